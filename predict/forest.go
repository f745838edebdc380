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
	"sort"

	randomforest "github.com/malaschitz/randomForest"
)

const (
	numForestTrees = 100
	maxValueBins   = 5
)

// valueBins turns the continuous target into quantile classes so a
// classification forest can serve as a regressor: Vote returns a
// distribution over bins and the prediction is the vote-weighted
// mean of the bin midpoints.
type valueBins struct {
	bounds []float64
	mids   []float64
}

func makeValueBins(y []float64) valueBins {
	sorted := append([]float64{}, y...)
	sort.Float64s(sorted)
	numBins := maxValueBins
	if len(sorted) < numBins {
		numBins = len(sorted)
	}
	var ans valueBins
	for b := 0; b < numBins; b++ {
		lo := sorted[b*len(sorted)/numBins]
		hiIdx := (b+1)*len(sorted)/numBins - 1
		hi := sorted[hiIdx]
		if b > 0 && lo <= ans.bounds[len(ans.bounds)-1] {
			continue
		}
		ans.bounds = append(ans.bounds, lo)
		ans.mids = append(ans.mids, (lo+hi)/2)
	}
	return ans
}

func (vb valueBins) classOf(v float64) int {
	ans := 0
	for i, b := range vb.bounds {
		if v >= b {
			ans = i
		}
	}
	return ans
}

// treeForecaster runs tree-based regression over the feature
// columns, with numTrees = 1 behaving as a plain decision tree.
// The time-aware variants additionally encode the temporal
// position of each observation as a feature, which is what lets
// them extrapolate a trend the plain variants cannot see.
type treeForecaster struct {
	name     string
	numTrees int
	useTime  bool
}

func (f treeForecaster) Name() string { return f.name }

func (f treeForecaster) MinPoints() int { return 4 }

func (f treeForecaster) featureVector(s series, t int) []float64 {
	ans := s.featsAt(t)
	if f.useTime {
		ans = append(ans, float64(t))
	}
	return ans
}

func (f treeForecaster) Forecast(s series, horizon int) ([]float64, error) {
	if len(s.feats) == 0 && !f.useTime {
		// nothing to split on
		return nil, errSkipFamily
	}
	bins := makeValueBins(s.y)
	xData := make([][]float64, 0, s.trainLen())
	yData := make([]int, 0, s.trainLen())
	for t := 0; t < s.trainLen(); t++ {
		xData = append(xData, f.featureVector(s, t))
		yData = append(yData, bins.classOf(s.y[t]))
	}
	forest := &randomforest.Forest{}
	forest.Data = randomforest.ForestData{
		X:     xData,
		Class: yData,
	}
	forest.Train(f.numTrees)

	ans := make([]float64, horizon)
	for h := 0; h < horizon; h++ {
		votes := forest.Vote(f.featureVector(s, s.trainLen()+h))
		if len(votes) == 0 {
			return nil, fmt.Errorf("failed to predict with %s: empty vote", f.name)
		}
		var total, weighted float64
		for cls, v := range votes {
			if cls < len(bins.mids) {
				total += v
				weighted += v * bins.mids[cls]
			}
		}
		if total == 0 {
			ans[h] = bins.mids[0]

		} else {
			ans[h] = weighted / total
		}
	}
	return ans, nil
}
