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

func TestGrammarVariants(t *testing.T) {
	for _, stmt := range []string{
		"with sales describe ma",
		"with sales describe ma, mb",
		"with sales describe ma, mb for c = -1",
		"with sales describe ma, mb for c = a",
		"with sales describe ma, mb for c >= 01/02/2001",
		"with sales describe ma, mb for c >= '01/02/2001'",
		"with sales describe ma, mb for c >= 01-01-2001",
		"with sales describe ma, mb for c >= '01-02-2001'",
		"with sales describe ma, mb for c >= -1.0",
		"with sales describe ma, mb for c = TRUE",
		"with sales describe ma, mb for c = 1 by a",
		"with sales describe ma, mb for c = 1 by a using clustering",
		"with sales describe ma, mb for c = 1 by a using clustering, top-k",
		"with sales_fact_1997 describe unit_sales for customer_id = 10 and store_id = 11 and the_date = '1997-01-20' by customer_id",
		"with sales_fact_1997 describe unit_sales, store_sales for product_category = 'Bread' by product_category",
		"with COVID-19 describe deaths by month, country for country in ('United States Of America', 'Italy') and month in ('2020-11', '2020-12')",
		"with sales describe avg(unit_sales), store_sales by the_month size 3",
	} {
		_, err := Parse(stmt, nil)
		assert.NoError(t, err, stmt)
	}
}

func TestParseDescribe(t *testing.T) {
	st, err := Parse(
		"with sales_fact_1997 describe unit_sales, store_sales by the_month "+
			"for country = 'USA' and store_country = 'USA' using top-k size 3", nil)
	require.NoError(t, err)
	assert.Equal(t, KindDescribe, st.Kind)
	assert.Equal(t, "sales_fact_1997", st.Dataset)
	assert.Equal(
		t,
		[]Measure{{Field: "unit_sales", Fn: AggSum}, {Field: "store_sales", Fn: AggSum}},
		st.Measures,
	)
	assert.Equal(t, []string{"the_month"}, st.Dimensions)
	assert.Equal(t, 3, st.Size)
	assert.Equal(t, []SelectionModel{ModelTopK}, st.Models)
	require.Equal(t, 2, len(st.Clauses))
	assert.Equal(t, OpEq, st.Clauses[0].Op)
	assert.Equal(t, "country", st.Clauses[0].Field)
	assert.Equal(t, Literal{Value: "USA", Quoted: true}, st.Clauses[0].Values[0])
}

func TestParseInList(t *testing.T) {
	st, err := Parse(
		"with sales describe unit_sales by product_subcategory "+
			"for product_subcategory in ('Bagels', 'Beer', 'Bologna')", nil)
	require.NoError(t, err)
	c, ok := st.FilterOn("product_subcategory")
	require.True(t, ok)
	assert.Equal(t, OpIn, c.Op)
	assert.Equal(t, 3, len(c.Values))
	assert.Equal(t, "Beer", c.Values[1].Value)
}

func TestParseBetween(t *testing.T) {
	st, err := Parse(
		"with CIMICE predict adults for month between ['2021-05', '2021-09'] "+
			"by week, province from small_instars, total_captures", nil)
	require.NoError(t, err)
	assert.Equal(t, KindPredict, st.Kind)
	c, ok := st.FilterOn("month")
	require.True(t, ok)
	assert.Equal(t, OpBetween, c.Op)
	assert.Equal(t, []Literal{{Value: "2021-05", Quoted: true}, {Value: "2021-09", Quoted: true}}, c.Values)
	assert.Equal(t, []string{"week", "province"}, st.Dimensions)
	assert.Equal(t, []string{"small_instars", "total_captures"}, st.Features)
}

func TestParsePredictClauses(t *testing.T) {
	st, err := Parse(
		"with WATERING predict value as predicted by hour, agent "+
			"using univariateTS, timeRandomForest nullify 10 accuracysize 5 executionid run42", nil)
	require.NoError(t, err)
	assert.Equal(t, "value", st.Target().Field)
	assert.Equal(t, "predicted", st.Target().OutName())
	assert.Equal(t, []string{"univariateTS", "timeRandomForest"}, st.Families)
	assert.Equal(t, 10, st.Nullify)
	assert.Equal(t, 5, st.AccuracySize)
	assert.Equal(t, "run42", st.ExecutionID)
}

func TestParseCaseInsensitiveKeywords(t *testing.T) {
	st, err := Parse("with COVID-19 describe dEaThs FOR CoNtiNenTExp='Africa' BY MoNtH", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"MoNtH"}, st.Dimensions)
	c, ok := st.FilterOn("CoNtiNenTExp")
	require.True(t, ok)
	assert.Equal(t, "Africa", c.Values[0].Value)
}

func TestParseSyntaxError(t *testing.T) {
	for _, stmt := range []string{
		"describe unit_sales",
		"with sales",
		"with sales describe",
		"with sales describe unit_sales for",
		"with sales describe unit_sales for a >",
		"with sales describe unit_sales for a in (1, 2",
		"with sales describe unit_sales for a between [1, 2",
		"with sales describe unit_sales by",
		"with sales describe unit_sales size x",
		"with sales describe unit_sales for a = 'unclosed",
	} {
		_, err := Parse(stmt, nil)
		var serr *SyntaxError
		assert.ErrorAs(t, err, &serr, stmt)
	}
}

func TestParseUnknownModel(t *testing.T) {
	_, err := Parse("with sales describe unit_sales by a using paradox", nil)
	var merr *ModelSelectionError
	assert.ErrorAs(t, err, &merr)
	assert.Equal(t, "paradox", merr.Model)

	_, err = Parse("with sales predict unit_sales by the_date using sarimax", nil)
	assert.ErrorAs(t, err, &merr)
}

func TestParseOverlappingMeasureAndDimension(t *testing.T) {
	_, err := Parse("with sales describe unit_sales by unit_sales", nil)
	var derr *DescribeError
	assert.ErrorAs(t, err, &derr)
}

func TestParseDuplicateDimension(t *testing.T) {
	_, err := Parse("with sales describe unit_sales by the_month, the_month", nil)
	var derr *DescribeError
	assert.ErrorAs(t, err, &derr)
}

// ---------------------- schema validation ----------------------

type testResolver struct{}

func (testResolver) DatasetExists(name string) bool {
	return name == "sales"
}

func (testResolver) IsDimension(dataset, field string) bool {
	return field == "the_month" || field == "product_category"
}

func (testResolver) IsMeasure(dataset, field string) bool {
	return field == "unit_sales" || field == "store_sales"
}

func (testResolver) FieldNames(dataset string) []string {
	return []string{"the_month", "product_category", "unit_sales", "store_sales"}
}

func TestParseUnknownDataset(t *testing.T) {
	_, err := Parse("with nonsense describe unit_sales by the_month", testResolver{})
	var serr *SchemaError
	assert.ErrorAs(t, err, &serr)
	assert.Equal(t, "nonsense", serr.Dataset)
}

func TestParseUnknownFieldWithSuggestion(t *testing.T) {
	_, err := Parse("with sales describe unit_sales by the_montt", testResolver{})
	var serr *SchemaError
	assert.ErrorAs(t, err, &serr)
	assert.Equal(t, "the_montt", serr.Field)
	assert.Equal(t, "the_month", serr.Suggestion)
}

func TestParseValidAgainstSchema(t *testing.T) {
	_, err := Parse(
		"with sales describe unit_sales, store_sales by the_month for product_category = 'Bread'",
		testResolver{})
	assert.NoError(t, err)
}
