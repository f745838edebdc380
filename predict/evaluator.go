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

import "math"

// holdout is the nullified tail of the pivoted series: the models
// train on the head and are scored on how well they reproduce the
// withheld true values.
type holdout struct {
	train    series
	trueVals []float64
	// cube row indices of the withheld points
	rows []int
}

// splitHoldout withholds the last nullify observations. The split
// is purely positional, so a fixed input always produces the same
// holdout set.
func splitHoldout(y []float64, feats [][]float64, nullify int) holdout {
	n := len(y)
	if nullify > n {
		nullify = n
	}
	cut := n - nullify
	ans := holdout{
		train: series{
			y:     y[:cut],
			feats: feats,
			total: n,
		},
		trueVals: y[cut:],
	}
	ans.rows = make([]int, nullify)
	for i := range ans.rows {
		ans.rows[i] = cut + i
	}
	return ans
}

// meanAbsError aggregates per-point absolute errors into the
// family score, skipping points whose true value is missing.
func meanAbsError(trueVals, predicted []float64) float64 {
	var sum float64
	num := 0
	for i := range trueVals {
		if math.IsNaN(trueVals[i]) || math.IsNaN(predicted[i]) {
			continue
		}
		sum += math.Abs(trueVals[i] - predicted[i])
		num++
	}
	if num == 0 {
		return math.NaN()
	}
	return sum / float64(num)
}
