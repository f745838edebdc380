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

// Package describe runs parsed describe statements against a
// dataset catalog: it builds the grouped cube, annotates it with
// interestingness scores and selection-model flags and folds the
// result into the session state driving subsequent drill-downs.
package describe

import (
	"fmt"
	"time"

	"github.com/czcorpus/intentio/dataset"
	"github.com/czcorpus/intentio/iql"
	"github.com/rs/zerolog/log"
)

// Mode selects which interestingness formulas annotate the cube.
type Mode int

const (
	// ModeLegacy computes the membership-weighted peculiarity
	// only, with no novelty or surprise columns.
	ModeLegacy Mode = iota
	// ModeRevised computes the normalized peculiarity together
	// with the novelty and surprise columns.
	ModeRevised
)

// annotation column names of the result table
const (
	ColPeculiarity = "peculiarity"
	ColNovelty     = "novelty"
	ColSurprise    = "surprise"
	ColLabel       = "label"

	ZScorePrefix  = "zscore_"
	TopPrefix     = "model_top_"
	ColSkyline    = "model_skyline"
	ColClustering = "model_clustering"
	defaultTopK   = 1
)

// Engine executes describe statements. It is stateless itself;
// all cross-call state lives in the Session passed to Execute.
type Engine struct {
	catalog *dataset.Catalog
	mode    Mode
}

func NewEngine(catalog *dataset.Catalog, mode Mode) *Engine {
	return &Engine{catalog: catalog, mode: mode}
}

// Execute builds and annotates the cube of one describe statement.
// The session is mutated: its membership accumulators absorb the
// produced cube and its previous-cube reference is replaced.
func (eng *Engine) Execute(sess *Session, stmt *iql.Statement) (*dataset.Table, error) {
	if stmt.Kind != iql.KindDescribe {
		return nil, fmt.Errorf("failed to execute statement: not a describe statement")
	}
	t0 := time.Now()
	ds, err := eng.catalog.Get(stmt.Dataset)
	if err != nil {
		return nil, fmt.Errorf("failed to execute describe: %w", err)
	}
	cube, err := dataset.BuildCube(ds.Rows, ds.Schema, stmt)
	if err != nil {
		return nil, fmt.Errorf("failed to execute describe: %w", err)
	}
	dims := make([]string, len(stmt.Dimensions))
	for i, d := range stmt.Dimensions {
		f, _ := ds.Schema.Dimension(d)
		dims[i] = f.Name
	}
	if cube.NumRows() == 0 {
		sess.absorb(cube, dims)
		return cube, nil
	}

	zByMeasure := make([][]float64, len(stmt.Measures))
	for i, m := range stmt.Measures {
		col, err := cube.Column(m.OutName())
		if err != nil {
			return nil, fmt.Errorf("failed to execute describe: %w", err)
		}
		zByMeasure[i] = zscores(col.Num)
		cube.AddColumn(dataset.Column{
			Name: ZScorePrefix + m.OutName(),
			Kind: dataset.ColNum,
			Num:  zByMeasure[i],
		})
	}
	leadZ := zByMeasure[0]

	topFlags := make([][]bool, 0, len(stmt.Measures))
	if stmt.HasModel(iql.ModelTopK) {
		k := stmt.Size
		if k <= 0 {
			k = defaultTopK
		}
		for i, m := range stmt.Measures {
			flags := topK(zByMeasure[i], k)
			topFlags = append(topFlags, flags)
			cube.AddColumn(dataset.Column{
				Name: TopPrefix + m.OutName(),
				Kind: dataset.ColFlag,
				Flag: flags,
			})
		}
	}

	var skyFlags []bool
	if stmt.HasModel(iql.ModelSkyline) && len(stmt.Measures) > 1 {
		measureCols := make([][]float64, len(stmt.Measures))
		for i, m := range stmt.Measures {
			col, err := cube.Column(m.OutName())
			if err != nil {
				return nil, fmt.Errorf("failed to execute describe: %w", err)
			}
			measureCols[i] = col.Num
		}
		skyFlags = skyline(measureCols)
		cube.AddColumn(dataset.Column{
			Name: ColSkyline,
			Kind: dataset.ColFlag,
			Flag: skyFlags,
		})
	}

	var clusterFlags []bool
	if stmt.HasModel(iql.ModelClustering) && cube.NumRows() >= minClusterRows {
		bands := clusterBands(leadZ)
		clusterFlags = minorityBand(bands)
		cube.AddColumn(dataset.Column{
			Name: ColClustering,
			Kind: dataset.ColNum,
			Num:  bands,
		})
	}

	switch eng.mode {
	case ModeRevised:
		novelty, surprise := noveltySurprise(sess, cube, dims)
		cube.AddColumn(dataset.Column{
			Name: ColPeculiarity,
			Kind: dataset.ColNum,
			Num:  revisedPeculiarity(leadZ),
		})
		cube.AddColumn(dataset.Column{
			Name: ColNovelty,
			Kind: dataset.ColNum,
			Num:  novelty,
		})
		cube.AddColumn(dataset.Column{
			Name: ColSurprise,
			Kind: dataset.ColNum,
			Num:  surprise,
		})
	default:
		cube.AddColumn(dataset.Column{
			Name: ColPeculiarity,
			Kind: dataset.ColNum,
			Num:  legacyPeculiarity(sess, cube, dims, leadZ),
		})
	}

	labels := make([]string, cube.NumRows())
	for row := range labels {
		top := false
		for _, flags := range topFlags {
			if flags[row] {
				top = true
				break
			}
		}
		sky := skyFlags != nil && skyFlags[row]
		cluster := clusterFlags != nil && clusterFlags[row]
		labels[row] = rowLabel(top, sky, cluster, leadZ[row])
	}
	cube.AddColumn(dataset.Column{
		Name: ColLabel,
		Kind: dataset.ColLabel,
		Str:  labels,
	})

	sess.absorb(cube, dims)

	// with top-k requested, size parametrizes k and the result
	// keeps all rows; otherwise it caps the output
	if stmt.Size > 0 && !stmt.HasModel(iql.ModelTopK) {
		cube.Truncate(stmt.Size)
	}
	log.Debug().
		Str("dataset", stmt.Dataset).
		Int("numRows", cube.NumRows()).
		Dur("procTime", time.Since(t0)).
		Msg("executed describe statement")
	return cube, nil
}
