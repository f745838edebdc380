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

package describe

import (
	"math"

	"github.com/czcorpus/intentio/dataset"
	"gonum.org/v1/gonum/stat"
)

// zscores standardizes a measure column over the rows of the
// current cube. A zero or undefined standard deviation (incl. the
// single-row cube) yields zero for every row. NaN cells stay NaN.
func zscores(values []float64) []float64 {
	clean := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	ans := make([]float64, len(values))
	if len(clean) < 2 {
		return ans
	}
	mean, std := stat.MeanStdDev(clean, nil)
	if std == 0 || math.IsNaN(std) {
		return ans
	}
	for i, v := range values {
		if math.IsNaN(v) {
			ans[i] = math.NaN()

		} else {
			ans[i] = (v - mean) / std
		}
	}
	return ans
}

// legacyPeculiarity weights the statistical extremity of each row
// by how established its dimension-value tuple is within the
// session. Values never seen before carry weight 1.0, so on a
// fresh session the score equals the raw z-score; values already
// absorbed under several groupings shrink the denominator below
// 1.0 and amplify the score of rows built from them.
func legacyPeculiarity(sess *Session, tbl *dataset.Table, dims []string, z []float64) []float64 {
	ans := make([]float64, len(z))
	for row := range z {
		tuple := rowTuple(tbl, dims, row)
		w := 1.0
		if len(tuple) > 0 {
			var total float64
			for _, v := range tuple {
				total += sess.weight(v)
			}
			w = total / float64(len(tuple))
		}
		if w == 0 {
			ans[row] = z[row]

		} else {
			ans[row] = z[row] / w
		}
	}
	return ans
}

// revisedPeculiarity min-max normalizes the absolute z-score so
// the most extreme row of the cube scores 1.0.
func revisedPeculiarity(z []float64) []float64 {
	var max float64
	for _, v := range z {
		if a := math.Abs(v); !math.IsNaN(a) && a > max {
			max = a
		}
	}
	ans := make([]float64, len(z))
	if max == 0 {
		return ans
	}
	for i, v := range z {
		ans[i] = math.Abs(v) / max
	}
	return ans
}

// noveltySurprise scores each row of the cube against the previous
// call of the same session. A dimension-value tuple already present
// in the previous cube is neither novel nor surprising; a tuple
// built entirely from unseen values scores full surprise while a
// tuple recombining known values scores half.
func noveltySurprise(sess *Session, tbl *dataset.Table, dims []string) (novelty, surprise []float64) {
	n := tbl.NumRows()
	novelty = make([]float64, n)
	surprise = make([]float64, n)
	for row := 0; row < n; row++ {
		tuple := rowTuple(tbl, dims, row)
		if sess.sawTuple(tuple) {
			continue
		}
		novelty[row] = 1.0
		if sess.sawAnyValue(tuple) {
			surprise[row] = 0.5

		} else {
			surprise[row] = 1.0
		}
	}
	return novelty, surprise
}
