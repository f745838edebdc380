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

package predict

import (
	"fmt"
	"testing"

	"github.com/czcorpus/intentio/dataset"
	"github.com/czcorpus/intentio/iql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog() *dataset.Catalog {
	numMonths := 24
	months := make([]string, 0, numMonths)
	cases := make([]float64, 0, numMonths)
	vaccines := make([]float64, 0, numMonths)
	for i := 0; i < numMonths; i++ {
		months = append(months, fmt.Sprintf("%d-%02d", 2020+i/12, i%12+1))
		cases = append(cases, float64(100+20*i))
		vaccines = append(vaccines, float64(1000-30*i))
	}
	src := dataset.NewSource(numMonths)
	src.AddDimColumn("the_month", months)
	src.AddMeasureColumn("cases", cases)
	src.AddMeasureColumn("vaccines", vaccines)

	cat := dataset.NewCatalog()
	cat.Register(&dataset.Dataset{
		Name: "covid",
		Schema: dataset.Schema{
			Dimensions: []dataset.Field{{Name: "the_month", Type: dataset.TypeDate}},
			Measures: []dataset.Field{
				{Name: "cases", Type: dataset.TypeNumber},
				{Name: "vaccines", Type: dataset.TypeNumber},
			},
		},
		Rows: src,
	})
	return cat
}

func mustParse(t *testing.T, cat *dataset.Catalog, text string) *iql.Statement {
	stmt, err := iql.Parse(text, cat)
	require.NoError(t, err)
	return stmt
}

func numRowsOfFamily(t *testing.T, tbl *dataset.Table, family string) int {
	col, err := tbl.Column(ColFamily)
	require.NoError(t, err)
	ans := 0
	for _, v := range col.Str {
		if v == family {
			ans++
		}
	}
	return ans
}

func TestExecuteAccuracyRowsPerFamily(t *testing.T) {
	cat := testCatalog()
	runner := NewRunner(cat)

	res, err := runner.Execute(mustParse(t, cat,
		"with covid predict cases by the_month from vaccines nullify 4 accuracysize 2"))
	require.NoError(t, err)

	for _, fam := range iql.AllPredictFamilies() {
		if fam == "decisionTree" || fam == "randomForest" {
			continue
		}
		assert.Equal(t, 2, numRowsOfFamily(t, res.Accuracy, fam), fam)
		assert.Equal(t, 4, numRowsOfFamily(t, res.Predictions, fam), fam)
	}
}

func TestExecuteAccuracySizeLargerThanNullify(t *testing.T) {
	cat := testCatalog()
	runner := NewRunner(cat)

	res, err := runner.Execute(mustParse(t, cat,
		"with covid predict cases by the_month nullify 3 accuracysize 100 using univariateTS"))
	require.NoError(t, err)
	assert.Equal(t, 3, numRowsOfFamily(t, res.Accuracy, "univariateTS"))
}

func TestExecuteUnivariateFollowsLinearTrend(t *testing.T) {
	cat := testCatalog()
	runner := NewRunner(cat)

	res, err := runner.Execute(mustParse(t, cat,
		"with covid predict cases by the_month nullify 2 using univariateTS"))
	require.NoError(t, err)

	pred, err := res.Predictions.Column(ColPredicted)
	require.NoError(t, err)
	require.Len(t, pred.Num, 2)
	// the series grows by exactly 20 per month
	assert.InDelta(t, 540.0, pred.Num[0], 5.0)
	assert.InDelta(t, 560.0, pred.Num[1], 5.0)
}

func TestExecuteFeaturelessTreesAreSkipped(t *testing.T) {
	cat := testCatalog()
	runner := NewRunner(cat)

	res, err := runner.Execute(mustParse(t, cat,
		"with covid predict cases by the_month nullify 2"))
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Statistics["skipped_decisionTree"])
	assert.Equal(t, 1.0, res.Statistics["skipped_randomForest"])
	// time-aware variants can still split on the temporal position
	assert.Zero(t, res.Statistics["skipped_timeDecisionTree"])
	assert.Equal(t, 2, numRowsOfFamily(t, res.Predictions, "timeDecisionTree"))
}

func TestExecuteStatisticsKeys(t *testing.T) {
	cat := testCatalog()
	runner := NewRunner(cat)

	res, err := runner.Execute(mustParse(t, cat,
		"with covid predict cases by the_month nullify 2 using univariateTS"))
	require.NoError(t, err)
	assert.Contains(t, res.Statistics, StatPivot)
	assert.Equal(t, 24.0, res.Statistics[StatCardinality])
	assert.Equal(t, 0.0, res.Statistics[StatMissingValues])
	assert.Equal(t, 24.0, res.Statistics[StatNotMissingValues])
	assert.Contains(t, res.Statistics, "univariateTS")
	assert.Contains(t, res.Statistics, "score_univariateTS")
}

func TestExecuteInsufficientData(t *testing.T) {
	cat := testCatalog()
	runner := NewRunner(cat)

	// nullify eats almost the whole series
	stmt := mustParse(t, cat,
		"with covid predict cases by the_month nullify 22 using univariateTS")
	_, err := runner.Execute(stmt)
	var insufficient *iql.InsufficientDataError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, "cases", insufficient.Target)
}

func TestSplitHoldoutDeterministic(t *testing.T) {
	y := []float64{1, 2, 3, 4, 5, 6}
	a := splitHoldout(y, nil, 2)
	b := splitHoldout(y, nil, 2)
	assert.Equal(t, a.trueVals, b.trueVals)
	assert.Equal(t, []float64{5, 6}, a.trueVals)
	assert.Equal(t, []int{4, 5}, a.rows)
	assert.Equal(t, 4, a.train.trainLen())
}

func TestValueBinsDegenerateSeries(t *testing.T) {
	vb := makeValueBins([]float64{3, 3, 3, 3})
	assert.Len(t, vb.mids, 1)
	assert.Equal(t, 0, vb.classOf(3))
}

func TestExecuteShortSeriesWithFeatureSkipsMultivariate(t *testing.T) {
	cat := testCatalog()
	runner := NewRunner(cat)

	// 7 training months minus the holdout leave fewer equations
	// than the lagged+exogenous fit has coefficients
	stmt := mustParse(t, cat,
		"with covid predict cases by the_month from vaccines for the_month <= '2020-07' nullify 2 using multivariateTS")
	_, err := runner.Execute(stmt)
	var insufficient *iql.InsufficientDataError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, "cases", insufficient.Target)
}

func TestLeastSquaresUnderdetermined(t *testing.T) {
	_, err := leastSquares([][]float64{{1, 2, 3}}, []float64{1})
	assert.ErrorIs(t, err, errSkipFamily)
}

func TestExecuteEchoesExecutionID(t *testing.T) {
	cat := testCatalog()
	runner := NewRunner(cat)

	res, err := runner.Execute(mustParse(t, cat,
		"with covid predict cases by the_month nullify 2 using univariateTS executionid exp42"))
	require.NoError(t, err)
	assert.Equal(t, "exp42", res.ExecutionID)
}
