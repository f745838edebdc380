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
	"math"
	"sort"
	"strings"

	"github.com/czcorpus/intentio/iql"
)

const groupKeySep = "\x00"

type accumulator struct {
	sum   float64
	min   float64
	max   float64
	count int
}

func (a *accumulator) add(v float64) {
	if math.IsNaN(v) {
		return
	}
	if a.count == 0 {
		a.min = v
		a.max = v

	} else {
		if v < a.min {
			a.min = v
		}
		if v > a.max {
			a.max = v
		}
	}
	a.sum += v
	a.count++
}

func (a *accumulator) value(fn iql.AggFunc) float64 {
	if a.count == 0 {
		return math.NaN()
	}
	switch fn {
	case iql.AggAvg:
		return a.sum / float64(a.count)
	case iql.AggMin:
		return a.min
	case iql.AggMax:
		return a.max
	case iql.AggCount:
		return float64(a.count)
	default:
		return a.sum
	}
}

type group struct {
	dims []string
	accs []*accumulator
}

// BuildCube filters the source rows by the statement's predicates,
// groups them by the statement's dimensions and aggregates each
// measure. Rows of the resulting table are ordered by the natural
// (typed) ordering of the grouping dimensions so repeated runs of
// the same statement always produce the same table.
func BuildCube(src *Source, schema Schema, stmt *iql.Statement) (*Table, error) {
	rows, err := ApplyFilters(src, schema, stmt.Clauses)
	if err != nil {
		return nil, fmt.Errorf("failed to build cube: %w", err)
	}

	dims := make([]string, len(stmt.Dimensions))
	for i, d := range stmt.Dimensions {
		f, ok := schema.Dimension(d)
		if !ok {
			return nil, fmt.Errorf("failed to build cube: unknown dimension %q", d)
		}
		dims[i] = f.Name
	}
	for _, m := range stmt.Measures {
		if !src.HasMeasure(m.Field) {
			return nil, fmt.Errorf("failed to build cube: unknown measure %q", m.Field)
		}
	}

	groups := make(map[string]*group)
	for _, row := range rows {
		vals := make([]string, len(dims))
		for i, d := range dims {
			vals[i] = src.DimValue(row, d)
		}
		key := strings.Join(vals, groupKeySep)
		g, ok := groups[key]
		if !ok {
			g = &group{dims: vals, accs: make([]*accumulator, len(stmt.Measures))}
			for i := range g.accs {
				g.accs[i] = new(accumulator)
			}
			groups[key] = g
		}
		for i, m := range stmt.Measures {
			g.accs[i].add(src.MeasureValue(row, m.Field))
		}
	}

	ordered := make([]*group, 0, len(groups))
	for _, g := range groups {
		ordered = append(ordered, g)
	}
	cmps := make([]compareFn, len(dims))
	for i, d := range dims {
		cmps[i] = comparatorFor(schema.FieldType(d))
	}
	sort.Slice(ordered, func(i, j int) bool {
		for k := range dims {
			rel, err := cmps[k](ordered[i].dims[k], ordered[j].dims[k])
			if err != nil {
				// fall back to the surface form on unparseable values
				rel = strings.Compare(ordered[i].dims[k], ordered[j].dims[k])
			}
			if rel != 0 {
				return rel < 0
			}
		}
		return false
	})

	tbl := new(Table)
	for i, d := range dims {
		col := Column{Name: d, Kind: ColDim, Str: make([]string, len(ordered))}
		for j, g := range ordered {
			col.Str[j] = g.dims[i]
		}
		tbl.AddColumn(col)
	}
	for i, m := range stmt.Measures {
		col := Column{Name: m.OutName(), Kind: ColNum, Num: make([]float64, len(ordered))}
		for j, g := range ordered {
			col.Num[j] = g.accs[i].value(m.Fn)
		}
		tbl.AddColumn(col)
	}
	return tbl, nil
}
