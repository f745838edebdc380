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
	"strings"
	"time"
)

// FieldType determines the natural ordering used by filter
// comparisons on a field.
type FieldType int

const (
	TypeString FieldType = iota
	TypeNumber
	TypeDate
)

func (ft FieldType) String() string {
	switch ft {
	case TypeNumber:
		return "number"
	case TypeDate:
		return "date"
	default:
		return "string"
	}
}

// dateLayouts lists the date-like token forms the engine accepts,
// from the most to the least specific.
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
	"2006-01",
	"2006",
}

// ParseDate resolves a date-like literal to a point in time.
func ParseDate(v string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("failed to parse date value %q", v)
}

type Field struct {
	Name string    `json:"name"`
	Type FieldType `json:"type"`
}

// Schema describes the star-schema shape of one dataset: the
// grouping dimensions and the numeric measures of its (flattened)
// fact table.
type Schema struct {
	Dimensions []Field `json:"dimensions"`
	Measures   []Field `json:"measures"`
}

func (s Schema) Dimension(name string) (Field, bool) {
	for _, f := range s.Dimensions {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return Field{}, false
}

func (s Schema) Measure(name string) (Field, bool) {
	for _, f := range s.Measures {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return Field{}, false
}

// FieldType resolves the declared type of any field. Measures
// without an explicit declaration are numeric.
func (s Schema) FieldType(name string) FieldType {
	if f, ok := s.Dimension(name); ok {
		return f.Type
	}
	if f, ok := s.Measure(name); ok {
		return f.Type
	}
	return TypeString
}

// Dataset couples a schema with a fully materialized row source.
type Dataset struct {
	Name   string
	Schema Schema
	Rows   *Source
}

// Catalog resolves dataset identifiers to their schema and rows.
// It satisfies the parser's Resolver interface so that statements
// are validated at parse time.
type Catalog struct {
	datasets map[string]*Dataset
}

func NewCatalog() *Catalog {
	return &Catalog{datasets: make(map[string]*Dataset)}
}

func (cat *Catalog) Register(ds *Dataset) {
	cat.datasets[strings.ToLower(ds.Name)] = ds
}

func (cat *Catalog) Get(name string) (*Dataset, error) {
	ds, ok := cat.datasets[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("failed to resolve dataset %q", name)
	}
	return ds, nil
}

func (cat *Catalog) Names() []string {
	ans := make([]string, 0, len(cat.datasets))
	for _, ds := range cat.datasets {
		ans = append(ans, ds.Name)
	}
	return ans
}

func (cat *Catalog) DatasetExists(name string) bool {
	_, ok := cat.datasets[strings.ToLower(name)]
	return ok
}

func (cat *Catalog) IsDimension(dataset, field string) bool {
	ds, ok := cat.datasets[strings.ToLower(dataset)]
	if !ok {
		return false
	}
	_, ok = ds.Schema.Dimension(field)
	return ok
}

func (cat *Catalog) IsMeasure(dataset, field string) bool {
	ds, ok := cat.datasets[strings.ToLower(dataset)]
	if !ok {
		return false
	}
	_, ok = ds.Schema.Measure(field)
	return ok
}

func (cat *Catalog) FieldNames(dataset string) []string {
	ds, ok := cat.datasets[strings.ToLower(dataset)]
	if !ok {
		return nil
	}
	ans := make([]string, 0, len(ds.Schema.Dimensions)+len(ds.Schema.Measures))
	for _, f := range ds.Schema.Dimensions {
		ans = append(ans, f.Name)
	}
	for _, f := range ds.Schema.Measures {
		ans = append(ans, f.Name)
	}
	return ans
}
