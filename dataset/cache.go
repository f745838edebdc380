// Copyright 2025 Tomas Machalek <tomas.machalek@gmail.com>
// Copyright 2025 Department of Linguistics,
// Faculty of Arts, Charles University
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dataset

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog/log"
	"github.com/vmihailenco/msgpack/v5"
)

const sourceKeyPrefix = 's'

type cachedSource struct {
	NumRows int                  `msgpack:"numRows"`
	Dims    map[string][]string  `msgpack:"dims"`
	Meas    map[string][]float64 `msgpack:"meas"`
}

// Cache is a wrapper around badger.DB keeping materialized fact
// tables between runs so slow SQL or CSV sources are read once.
type Cache struct {
	bdb *badger.DB
}

// Close closes the internal Badger database. It is possible to
// call the method on a nil instance or on an uninitialized Cache,
// in which case it is a NOP.
func (c *Cache) Close() error {
	if c != nil && c.bdb != nil {
		return c.bdb.Close()
	}
	return nil
}

func (c *Cache) Flush() error {
	return c.bdb.DropAll()
}

func sourceKey(dataset string) []byte {
	key := make([]byte, 1+len(dataset))
	key[0] = sourceKeyPrefix
	copy(key[1:], []byte(dataset))
	return key
}

func (c *Cache) Store(dataset string, src *Source) error {
	srz, err := msgpack.Marshal(cachedSource{
		NumRows: src.numRows,
		Dims:    src.dims,
		Meas:    src.meas,
	})
	if err != nil {
		return fmt.Errorf("failed to store dataset %s: %w", dataset, err)
	}
	err = c.bdb.Update(func(txn *badger.Txn) error {
		return txn.Set(sourceKey(dataset), srz)
	})
	if err != nil {
		return fmt.Errorf("failed to store dataset %s: %w", dataset, err)
	}
	log.Debug().Str("dataset", dataset).Int("numRows", src.numRows).Msg("cached fact table")
	return nil
}

// Load fetches a previously stored fact table. The second return
// value is false on a cache miss.
func (c *Cache) Load(dataset string) (*Source, bool, error) {
	var srz []byte
	err := c.bdb.View(func(txn *badger.Txn) error {
		item, err := txn.Get(sourceKey(dataset))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			srz = append([]byte{}, val...)
			return nil
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, false, nil

	} else if err != nil {
		return nil, false, fmt.Errorf("failed to load dataset %s: %w", dataset, err)
	}
	var cs cachedSource
	if err := msgpack.Unmarshal(srz, &cs); err != nil {
		return nil, false, fmt.Errorf("failed to load dataset %s: %w", dataset, err)
	}
	src := &Source{
		numRows: cs.NumRows,
		dims:    cs.Dims,
		meas:    cs.Meas,
	}
	if src.dims == nil {
		src.dims = make(map[string][]string)
	}
	if src.meas == nil {
		src.meas = make(map[string][]float64)
	}
	return src, true, nil
}

func OpenCache(path string) (*Cache, error) {
	opts := badger.DefaultOptions(path).
		WithLogger(nil)
	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset cache: %w", err)
	}
	return &Cache{bdb: bdb}, nil
}
