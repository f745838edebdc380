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
	"strings"
)

// Source is a fully materialized fact table kept column-major:
// dimension columns as strings (in their original surface form),
// measure columns as float64 with NaN marking missing values.
type Source struct {
	numRows int
	dims    map[string][]string
	meas    map[string][]float64
}

func NewSource(numRows int) *Source {
	return &Source{
		numRows: numRows,
		dims:    make(map[string][]string),
		meas:    make(map[string][]float64),
	}
}

func (src *Source) Len() int {
	return src.numRows
}

func (src *Source) AddDimColumn(name string, values []string) {
	src.dims[strings.ToLower(name)] = values
}

func (src *Source) AddMeasureColumn(name string, values []float64) {
	src.meas[strings.ToLower(name)] = values
}

func (src *Source) DimValue(row int, field string) string {
	col, ok := src.dims[strings.ToLower(field)]
	if !ok {
		return ""
	}
	return col[row]
}

func (src *Source) MeasureValue(row int, field string) float64 {
	col, ok := src.meas[strings.ToLower(field)]
	if !ok {
		return math.NaN()
	}
	return col[row]
}

func (src *Source) HasDim(field string) bool {
	_, ok := src.dims[strings.ToLower(field)]
	return ok
}

func (src *Source) HasMeasure(field string) bool {
	_, ok := src.meas[strings.ToLower(field)]
	return ok
}

// ---------------------------------------------------------------

type ColumnKind int

const (
	ColDim ColumnKind = iota
	ColNum
	ColFlag
	ColLabel
)

// Column is one typed column of a result table. Exactly one of
// Str/Num/Flag is populated, according to Kind (ColLabel shares
// the Str storage with ColDim).
type Column struct {
	Name string
	Kind ColumnKind
	Str  []string
	Num  []float64
	Flag []bool
}

func (c Column) Len() int {
	switch c.Kind {
	case ColNum:
		return len(c.Num)
	case ColFlag:
		return len(c.Flag)
	default:
		return len(c.Str)
	}
}

// Table is an ordered collection of equally sized columns; the
// result form of both the describe and the predict operators.
type Table struct {
	cols []Column
}

func (tbl *Table) AddColumn(c Column) {
	tbl.cols = append(tbl.cols, c)
}

func (tbl *Table) NumRows() int {
	if len(tbl.cols) == 0 {
		return 0
	}
	return tbl.cols[0].Len()
}

func (tbl *Table) NumCols() int {
	return len(tbl.cols)
}

func (tbl *Table) ColumnNames() []string {
	ans := make([]string, len(tbl.cols))
	for i, c := range tbl.cols {
		ans[i] = c.Name
	}
	return ans
}

func (tbl *Table) HasColumn(name string) bool {
	for _, c := range tbl.cols {
		if c.Name == name {
			return true
		}
	}
	return false
}

func (tbl *Table) Column(name string) (Column, error) {
	for _, c := range tbl.cols {
		if c.Name == name {
			return c, nil
		}
	}
	return Column{}, fmt.Errorf("failed to access column %q: no such column", name)
}

func (tbl *Table) Columns() []Column {
	return tbl.cols
}

// Records returns a row-oriented view of the table suitable for
// JSON serialization. NaN cells become nil.
func (tbl *Table) Records() []map[string]any {
	ans := make([]map[string]any, tbl.NumRows())
	for row := range ans {
		rec := make(map[string]any, len(tbl.cols))
		for _, c := range tbl.cols {
			switch c.Kind {
			case ColNum:
				if math.IsNaN(c.Num[row]) {
					rec[c.Name] = nil

				} else {
					rec[c.Name] = c.Num[row]
				}
			case ColFlag:
				rec[c.Name] = c.Flag[row]
			default:
				rec[c.Name] = c.Str[row]
			}
		}
		ans[row] = rec
	}
	return ans
}

// Truncate keeps the first n rows of every column. It is a NOP
// when the table already fits.
func (tbl *Table) Truncate(n int) {
	if n <= 0 || tbl.NumRows() <= n {
		return
	}
	for i := range tbl.cols {
		switch tbl.cols[i].Kind {
		case ColNum:
			tbl.cols[i].Num = tbl.cols[i].Num[:n]
		case ColFlag:
			tbl.cols[i].Flag = tbl.cols[i].Flag[:n]
		default:
			tbl.cols[i].Str = tbl.cols[i].Str[:n]
		}
	}
}
