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
	"math"
	"testing"

	"github.com/czcorpus/intentio/iql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema() Schema {
	return Schema{
		Dimensions: []Field{
			{Name: "country", Type: TypeString},
			{Name: "the_month", Type: TypeDate},
			{Name: "customer_id", Type: TypeNumber},
		},
		Measures: []Field{
			{Name: "cases", Type: TypeNumber},
			{Name: "deaths", Type: TypeNumber},
		},
	}
}

func testSource() *Source {
	src := NewSource(6)
	src.AddDimColumn("country", []string{
		"Italy", "Italy", "France", "France", "Spain", "Spain"})
	src.AddDimColumn("the_month", []string{
		"2020-03", "2020-04", "2020-03", "2020-04", "2020-03", "2020-04"})
	src.AddDimColumn("customer_id", []string{
		"10", "10", "7", "7", "102", "102"})
	src.AddMeasureColumn("cases", []float64{100, 200, 50, 150, 80, math.NaN()})
	src.AddMeasureColumn("deaths", []float64{10, 20, 5, 15, 8, 12})
	return src
}

func TestApplyFiltersEq(t *testing.T) {
	rows, err := ApplyFilters(testSource(), testSchema(), []iql.FilterClause{
		{Field: "country", Op: iql.OpEq, Values: []iql.Literal{{Value: "Italy"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, rows)
}

func TestApplyFiltersNeq(t *testing.T) {
	rows, err := ApplyFilters(testSource(), testSchema(), []iql.FilterClause{
		{Field: "country", Op: iql.OpNeq, Values: []iql.Literal{{Value: "Italy"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 4, 5}, rows)
}

func TestApplyFiltersNumericIn(t *testing.T) {
	// numeric dimensions compare by value, not surface form
	rows, err := ApplyFilters(testSource(), testSchema(), []iql.FilterClause{
		{
			Field: "customer_id",
			Op:    iql.OpIn,
			Values: []iql.Literal{
				{Value: "7.0"},
				{Value: "102"},
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 4, 5}, rows)
}

func TestApplyFiltersDateBetween(t *testing.T) {
	rows, err := ApplyFilters(testSource(), testSchema(), []iql.FilterClause{
		{
			Field: "the_month",
			Op:    iql.OpBetween,
			Values: []iql.Literal{
				{Value: "2020-04"},
				{Value: "2020-12"},
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 5}, rows)
}

func TestApplyFiltersConjunction(t *testing.T) {
	rows, err := ApplyFilters(testSource(), testSchema(), []iql.FilterClause{
		{Field: "the_month", Op: iql.OpEq, Values: []iql.Literal{{Value: "2020-03"}}},
		{Field: "cases", Op: iql.OpGte, Values: []iql.Literal{{Value: "80"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 4}, rows)
}

func TestBuildCubeSums(t *testing.T) {
	stmt := &iql.Statement{
		Kind:       iql.KindDescribe,
		Dataset:    "covid",
		Measures:   []iql.Measure{{Field: "cases", Fn: iql.AggSum}},
		Dimensions: []string{"country"},
	}
	tbl, err := BuildCube(testSource(), testSchema(), stmt)
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.NumRows())

	countries, err := tbl.Column("country")
	require.NoError(t, err)
	assert.Equal(t, []string{"France", "Italy", "Spain"}, countries.Str)

	cases, err := tbl.Column("cases")
	require.NoError(t, err)
	assert.Equal(t, 200.0, cases.Num[0])
	assert.Equal(t, 300.0, cases.Num[1])
	assert.Equal(t, 80.0, cases.Num[2])
}

func TestBuildCubeDateOrdering(t *testing.T) {
	stmt := &iql.Statement{
		Kind:       iql.KindDescribe,
		Dataset:    "covid",
		Measures:   []iql.Measure{{Field: "deaths", Fn: iql.AggSum}},
		Dimensions: []string{"the_month"},
	}
	tbl, err := BuildCube(testSource(), testSchema(), stmt)
	require.NoError(t, err)
	months, err := tbl.Column("the_month")
	require.NoError(t, err)
	assert.Equal(t, []string{"2020-03", "2020-04"}, months.Str)
}

func TestBuildCubeAggFunctions(t *testing.T) {
	stmt := &iql.Statement{
		Kind:    iql.KindDescribe,
		Dataset: "covid",
		Measures: []iql.Measure{
			{Field: "deaths", Fn: iql.AggAvg, Alias: "avg_deaths"},
			{Field: "deaths", Fn: iql.AggMin, Alias: "min_deaths"},
			{Field: "deaths", Fn: iql.AggMax, Alias: "max_deaths"},
			{Field: "deaths", Fn: iql.AggCount, Alias: "num_deaths"},
		},
		Dimensions: []string{"country"},
	}
	tbl, err := BuildCube(testSource(), testSchema(), stmt)
	require.NoError(t, err)

	avg, err := tbl.Column("avg_deaths")
	require.NoError(t, err)
	assert.InDelta(t, 10.0, avg.Num[0], 0.0001)

	mn, err := tbl.Column("min_deaths")
	require.NoError(t, err)
	assert.Equal(t, 5.0, mn.Num[0])

	mx, err := tbl.Column("max_deaths")
	require.NoError(t, err)
	assert.Equal(t, 15.0, mx.Num[0])

	cnt, err := tbl.Column("num_deaths")
	require.NoError(t, err)
	assert.Equal(t, 2.0, cnt.Num[0])
}

func TestBuildCubeSkipsMissingValues(t *testing.T) {
	stmt := &iql.Statement{
		Kind:       iql.KindDescribe,
		Dataset:    "covid",
		Measures:   []iql.Measure{{Field: "cases", Fn: iql.AggCount}},
		Dimensions: []string{"country"},
	}
	tbl, err := BuildCube(testSource(), testSchema(), stmt)
	require.NoError(t, err)
	cases, err := tbl.Column("cases")
	require.NoError(t, err)
	// Spain has one NaN cell out of two rows
	assert.Equal(t, 1.0, cases.Num[2])
}

func TestBuildCubeRollupPreservesTotals(t *testing.T) {
	fine := &iql.Statement{
		Kind:       iql.KindDescribe,
		Dataset:    "covid",
		Measures:   []iql.Measure{{Field: "deaths", Fn: iql.AggSum}},
		Dimensions: []string{"country", "the_month"},
	}
	coarse := &iql.Statement{
		Kind:       iql.KindDescribe,
		Dataset:    "covid",
		Measures:   []iql.Measure{{Field: "deaths", Fn: iql.AggSum}},
		Dimensions: []string{"country"},
	}
	fineTbl, err := BuildCube(testSource(), testSchema(), fine)
	require.NoError(t, err)
	coarseTbl, err := BuildCube(testSource(), testSchema(), coarse)
	require.NoError(t, err)

	sumOf := func(tbl *Table) float64 {
		col, err := tbl.Column("deaths")
		require.NoError(t, err)
		var total float64
		for _, v := range col.Num {
			total += v
		}
		return total
	}
	assert.InDelta(t, sumOf(fineTbl), sumOf(coarseTbl), 0.0001)
}

func TestTableTruncate(t *testing.T) {
	stmt := &iql.Statement{
		Kind:       iql.KindDescribe,
		Dataset:    "covid",
		Measures:   []iql.Measure{{Field: "deaths", Fn: iql.AggSum}},
		Dimensions: []string{"country"},
	}
	tbl, err := BuildCube(testSource(), testSchema(), stmt)
	require.NoError(t, err)
	tbl.Truncate(2)
	assert.Equal(t, 2, tbl.NumRows())
	tbl.Truncate(10)
	assert.Equal(t, 2, tbl.NumRows())
}
