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
	"sort"
)

const (
	// |z| above this marks a row as a numeric outlier
	outlierZThreshold = 2.0
	// cubes smaller than this never cluster
	minClusterRows  = 3
	numClusterBands = 3
)

// topK flags the k rows with the highest z-score, ties broken by
// the natural row order of the cube.
func topK(z []float64, k int) []bool {
	ans := make([]bool, len(z))
	if k <= 0 {
		return ans
	}
	idx := make([]int, len(z))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		za, zb := z[idx[a]], z[idx[b]]
		if math.IsNaN(za) {
			return false
		}
		if math.IsNaN(zb) {
			return true
		}
		return za > zb
	})
	if k > len(idx) {
		k = len(idx)
	}
	for _, i := range idx[:k] {
		ans[i] = true
	}
	return ans
}

// skyline flags the Pareto-optimal rows across the given measure
// columns, higher values being better. A row is dominated when
// some other row is at least as good on every measure and strictly
// better on at least one.
func skyline(measures [][]float64) []bool {
	numRows := 0
	if len(measures) > 0 {
		numRows = len(measures[0])
	}
	val := func(col, row int) float64 {
		v := measures[col][row]
		if math.IsNaN(v) {
			return math.Inf(-1)
		}
		return v
	}
	ans := make([]bool, numRows)
	for i := 0; i < numRows; i++ {
		dominated := false
		for j := 0; j < numRows && !dominated; j++ {
			if i == j {
				continue
			}
			allGte := true
			anyGt := false
			for c := range measures {
				vi, vj := val(c, i), val(c, j)
				if vj < vi {
					allGte = false
					break
				}
				if vj > vi {
					anyGt = true
				}
			}
			dominated = allGte && anyGt
		}
		ans[i] = !dominated
	}
	return ans
}

// clusterBands partitions the rows into interest bands by the
// z-score of the leading measure: rows are rank-ordered and split
// into equally sized bands, band 0 holding the lowest scores. The
// assignment is fully deterministic for a given cube.
func clusterBands(z []float64) []float64 {
	idx := make([]int, len(z))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		za, zb := z[idx[a]], z[idx[b]]
		if math.IsNaN(za) {
			return true
		}
		if math.IsNaN(zb) {
			return false
		}
		return za < zb
	})
	ans := make([]float64, len(z))
	bandSize := (len(z) + numClusterBands - 1) / numClusterBands
	for rank, i := range idx {
		ans[i] = float64(rank / bandSize)
	}
	return ans
}

// minorityBand returns for each row whether its band is not the
// most populous one, which is what makes a clustered row worth
// labelling.
func minorityBand(bands []float64) []bool {
	counts := make(map[float64]int)
	for _, b := range bands {
		counts[b]++
	}
	var topBand float64
	topCount := -1
	for b, c := range counts {
		if c > topCount || (c == topCount && b < topBand) {
			topBand = b
			topCount = c
		}
	}
	ans := make([]bool, len(bands))
	for i, b := range bands {
		ans[i] = b != topBand
	}
	return ans
}

// rowLabel condenses the active flags of one row into a single
// verdict. The precedence is fixed: a top-k hit wins over a skyline
// hit, which wins over a plain numeric outlier, which wins over a
// minority cluster band; everything else is typical.
func rowLabel(top, sky, cluster bool, z float64) string {
	switch {
	case top:
		return "top"
	case sky:
		return "skyline"
	case !math.IsNaN(z) && math.Abs(z) >= outlierZThreshold:
		return "outlier"
	case cluster:
		return "cluster"
	default:
		return "typical"
	}
}
