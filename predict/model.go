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
	"errors"
	"math"
)

var ErrNoSuchFamily = errors.New("no such model family")

// errSkipFamily marks a family that cannot run on the given
// series. It is recovered locally - the family is just left out of
// the result tables.
var errSkipFamily = errors.New("family not applicable to this series")

// series is the pivoted, time-ordered input of one forecasting
// run: the target values of the training window plus the feature
// columns over the whole horizon (features are exogenous, so their
// held-out values are known at prediction time).
type series struct {
	y     []float64
	feats [][]float64
	total int
}

// trainLen returns the number of training observations.
func (s series) trainLen() int {
	return len(s.y)
}

// featsAt returns the feature vector of one time step.
func (s series) featsAt(t int) []float64 {
	ans := make([]float64, len(s.feats))
	for i, col := range s.feats {
		ans[i] = col[t]
	}
	return ans
}

// Forecaster is one model family of the predict operator. Forecast
// returns one value per held-out point, i.e. for time steps
// trainLen()..trainLen()+horizon-1.
type Forecaster interface {
	Name() string
	MinPoints() int
	Forecast(s series, horizon int) ([]float64, error)
}

// GetForecaster resolves a canonical family name to its
// implementation.
func GetForecaster(family string) (Forecaster, error) {
	switch family {
	case "univariateTS":
		return uniTSForecaster{}, nil
	case "multivariateTS":
		return multiTSForecaster{}, nil
	case "decisionTree":
		return treeForecaster{name: "decisionTree", numTrees: 1}, nil
	case "randomForest":
		return treeForecaster{name: "randomForest", numTrees: numForestTrees}, nil
	case "timeDecisionTree":
		return treeForecaster{name: "timeDecisionTree", numTrees: 1, useTime: true}, nil
	case "timeRandomForest":
		return treeForecaster{name: "timeRandomForest", numTrees: numForestTrees, useTime: true}, nil
	default:
		return nil, ErrNoSuchFamily
	}
}

// imputeMissing replaces NaN cells with the mean of the remaining
// values so model fitting never sees a missing observation. The
// returned counts feed the statistics map.
func imputeMissing(values []float64) (clean []float64, missing, present int) {
	var sum float64
	for _, v := range values {
		if math.IsNaN(v) {
			missing++

		} else {
			sum += v
			present++
		}
	}
	clean = make([]float64, len(values))
	mean := 0.0
	if present > 0 {
		mean = sum / float64(present)
	}
	for i, v := range values {
		if math.IsNaN(v) {
			clean[i] = mean

		} else {
			clean[i] = v
		}
	}
	return clean, missing, present
}
