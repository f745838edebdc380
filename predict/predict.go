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

// Package predict implements the predict operator: it pivots the
// target measure into a time-ordered series, withholds the
// nullified tail and lets the requested forecasting families
// compete on reproducing it.
package predict

import (
	"fmt"
	"math"
	"time"

	"github.com/czcorpus/intentio/dataset"
	"github.com/czcorpus/intentio/iql"
	"github.com/rs/zerolog/log"
)

// result table column names
const (
	ColFamily    = "family"
	ColPredicted = "predicted_value"
	ColTrue      = "true_value"
	ColError     = "abs_error"
)

// statistics map keys shared with the benchmark output
const (
	StatPivot            = "pivot"
	StatCardinality      = "cardinality"
	StatMissingValues    = "missingValues"
	StatNotMissingValues = "notMissingValues"
	skippedStatPrefix    = "skipped_"
	scoreStatPrefix      = "score_"
)

// Result is the three-part outcome of one predict statement.
// ExecutionID carries the statement's `executionid` tag so callers
// can correlate the output with their own bookkeeping.
type Result struct {
	ExecutionID string
	Statistics  map[string]float64
	Predictions *dataset.Table
	Accuracy    *dataset.Table
}

// Runner executes predict statements against a dataset catalog.
// Unlike describe, predict keeps no cross-call state.
type Runner struct {
	catalog *dataset.Catalog
}

func NewRunner(catalog *dataset.Catalog) *Runner {
	return &Runner{catalog: catalog}
}

// Execute pivots the statement's target measure, runs every
// requested (or every known) forecasting family on it and scores
// each family on the withheld tail. A family that cannot run on
// the series is skipped with a diagnostic in the statistics map;
// only all families failing makes the call fail.
func (r *Runner) Execute(stmt *iql.Statement) (*Result, error) {
	if stmt.Kind != iql.KindPredict {
		return nil, fmt.Errorf("failed to execute statement: not a predict statement")
	}
	ds, err := r.catalog.Get(stmt.Dataset)
	if err != nil {
		return nil, fmt.Errorf("failed to execute predict: %w", err)
	}

	t0 := time.Now()
	cube, dims, err := r.pivot(ds, stmt)
	if err != nil {
		return nil, err
	}
	stats := map[string]float64{
		StatPivot:       float64(time.Since(t0).Milliseconds()),
		StatCardinality: float64(cube.NumRows()),
	}

	targetCol, err := cube.Column(stmt.Target().OutName())
	if err != nil {
		return nil, fmt.Errorf("failed to execute predict: %w", err)
	}
	y, missing, present := imputeMissing(targetCol.Num)
	stats[StatMissingValues] = float64(missing)
	stats[StatNotMissingValues] = float64(present)
	// the holdout scores against the raw values, missing included
	rawY := targetCol.Num

	feats := make([][]float64, len(stmt.Features))
	for i, f := range stmt.Features {
		col, err := cube.Column(f)
		if err != nil {
			return nil, fmt.Errorf("failed to execute predict: %w", err)
		}
		feats[i], _, _ = imputeMissing(col.Num)
	}

	ho := splitHoldout(y, feats, stmt.Nullify)
	numScored := len(ho.rows)
	if stmt.AccuracySize > 0 && stmt.AccuracySize < numScored {
		numScored = stmt.AccuracySize
	}

	families := stmt.Families
	if len(families) == 0 {
		families = iql.AllPredictFamilies()
	}

	predictions := new(resultRows)
	accuracy := new(resultRows)
	numRan := 0
	for _, famName := range families {
		fam, err := GetForecaster(famName)
		if err != nil {
			return nil, &iql.ModelSelectionError{Model: famName}
		}
		if ho.train.trainLen() < fam.MinPoints() {
			stats[skippedStatPrefix+famName] = 1
			log.Warn().
				Str("family", famName).
				Int("numPts", ho.train.trainLen()).
				Msg("not enough training points, skipping family")
			continue
		}
		tf := time.Now()
		forecast, err := fam.Forecast(ho.train, len(ho.rows))
		if err != nil {
			stats[skippedStatPrefix+famName] = 1
			log.Warn().Err(err).Str("family", famName).Msg("family failed, skipping")
			continue
		}
		stats[famName] = float64(time.Since(tf).Milliseconds())
		numRan++

		for i, row := range ho.rows {
			predictions.add(cube, dims, row, famName, map[string]float64{
				ColPredicted: forecast[i],
			})
		}
		scoredTrue := make([]float64, 0, numScored)
		scoredPred := make([]float64, 0, numScored)
		for i := 0; i < numScored; i++ {
			row := ho.rows[i]
			trueV := rawY[row]
			scoredTrue = append(scoredTrue, trueV)
			scoredPred = append(scoredPred, forecast[i])
			accuracy.add(cube, dims, row, famName, map[string]float64{
				ColTrue:      trueV,
				ColPredicted: forecast[i],
				ColError:     math.Abs(trueV - forecast[i]),
			})
		}
		stats[scoreStatPrefix+famName] = meanAbsError(scoredTrue, scoredPred)
	}

	if numRan == 0 {
		return nil, &iql.InsufficientDataError{
			Target: stmt.Target().OutName(),
			NumPts: ho.train.trainLen(),
		}
	}
	log.Debug().
		Str("dataset", stmt.Dataset).
		Int("numFamilies", numRan).
		Int("numHoldout", len(ho.rows)).
		Msg("executed predict statement")
	return &Result{
		ExecutionID: stmt.ExecutionID,
		Statistics:  stats,
		Predictions: predictions.table(dims, []string{ColPredicted}),
		Accuracy:    accuracy.table(dims, []string{ColTrue, ColPredicted, ColError}),
	}, nil
}

// pivot groups the fact table by the statement's dimensions so the
// target and feature measures form one observation per time step,
// ordered by the dimensions' natural ordering.
func (r *Runner) pivot(ds *dataset.Dataset, stmt *iql.Statement) (*dataset.Table, []string, error) {
	cubeStmt := *stmt
	cubeStmt.Measures = append([]iql.Measure{stmt.Target()}, featureMeasures(stmt)...)
	cube, err := dataset.BuildCube(ds.Rows, ds.Schema, &cubeStmt)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to pivot series: %w", err)
	}
	dims := make([]string, len(stmt.Dimensions))
	for i, d := range stmt.Dimensions {
		f, _ := ds.Schema.Dimension(d)
		dims[i] = f.Name
	}
	return cube, dims, nil
}

func featureMeasures(stmt *iql.Statement) []iql.Measure {
	ans := make([]iql.Measure, len(stmt.Features))
	for i, f := range stmt.Features {
		ans[i] = iql.Measure{Field: f, Fn: iql.AggSum}
	}
	return ans
}

// resultRows accumulates long-format result rows (one per family
// per point) before materializing them as a table.
type resultRows struct {
	families []string
	dimVals  map[string][]string
	numVals  map[string][]float64
}

func (rr *resultRows) add(
	cube *dataset.Table,
	dims []string,
	row int,
	family string,
	values map[string]float64,
) {
	if rr.dimVals == nil {
		rr.dimVals = make(map[string][]string)
		rr.numVals = make(map[string][]float64)
	}
	rr.families = append(rr.families, family)
	for _, d := range dims {
		col, err := cube.Column(d)
		if err != nil {
			continue
		}
		rr.dimVals[d] = append(rr.dimVals[d], col.Str[row])
	}
	for name, v := range values {
		rr.numVals[name] = append(rr.numVals[name], v)
	}
}

func (rr *resultRows) table(dims []string, numCols []string) *dataset.Table {
	ans := new(dataset.Table)
	ans.AddColumn(dataset.Column{Name: ColFamily, Kind: dataset.ColDim, Str: rr.families})
	for _, d := range dims {
		ans.AddColumn(dataset.Column{Name: d, Kind: dataset.ColDim, Str: rr.dimVals[d]})
	}
	for _, name := range numCols {
		ans.AddColumn(dataset.Column{Name: name, Kind: dataset.ColNum, Num: rr.numVals[name]})
	}
	return ans
}
