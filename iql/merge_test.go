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

package iql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, text string) *Statement {
	st, err := Parse(text, nil)
	require.NoError(t, err)
	return st
}

func TestMergeDiscardsFilters(t *testing.T) {
	prev := mustParse(t, "with sales describe unit_sales by the_month for country = 'USA'")
	next, err := ParseWith(prev, "with sales describe unit_sales by the_year", false, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, len(next.Clauses))
	assert.Equal(t, []string{"the_year"}, next.Dimensions)
}

func TestMergeKeepsFilters(t *testing.T) {
	prev := mustParse(t, "with sales describe unit_sales by the_month for country = 'USA' and gender = 'F'")
	next, err := ParseWith(prev, "with sales describe unit_sales by the_year for city = 'Albany'", true, nil)
	require.NoError(t, err)
	require.Equal(t, 3, len(next.Clauses))
	fields := []string{next.Clauses[0].Field, next.Clauses[1].Field, next.Clauses[2].Field}
	assert.Equal(t, []string{"country", "gender", "city"}, fields)
}

func TestMergeSupersedesSameField(t *testing.T) {
	prev := mustParse(t, "with sales describe unit_sales by the_month for country = 'USA'")
	next, err := ParseWith(prev, "with sales describe unit_sales by the_month for country = 'Italy'", true, nil)
	require.NoError(t, err)
	require.Equal(t, 1, len(next.Clauses))
	assert.Equal(t, "Italy", next.Clauses[0].Values[0].Value)
}

func TestMergeInheritsOptionalClauses(t *testing.T) {
	prev := mustParse(t, "with sales describe unit_sales by the_month size 5 using top-k")
	next, err := ParseWith(prev, "with sales describe unit_sales by the_year", false, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, next.Size)
	assert.Equal(t, []SelectionModel{ModelTopK}, next.Models)
}

func TestMergeReplacesGrouping(t *testing.T) {
	prev := mustParse(t, "with sales describe unit_sales, store_sales by the_month, country")
	next, err := ParseWith(prev, "with sales describe unit_sales by gender", true, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"gender"}, next.Dimensions)
	assert.Equal(t, []Measure{{Field: "unit_sales", Fn: AggSum}}, next.Measures)
}

func TestMergeIsPure(t *testing.T) {
	prev := mustParse(t, "with sales describe unit_sales by the_month for country = 'USA'")
	_, err := ParseWith(prev, "with sales describe unit_sales by the_year for country = 'Italy'", true, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, len(prev.Clauses))
	assert.Equal(t, "USA", prev.Clauses[0].Values[0].Value)
	assert.Equal(t, []string{"the_month"}, prev.Dimensions)
}

func TestMergeNilPrevious(t *testing.T) {
	next, err := ParseWith(nil, "with sales describe unit_sales by the_year", true, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"the_year"}, next.Dimensions)
}
