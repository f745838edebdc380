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
	"strings"

	"github.com/czcorpus/intentio/dataset"
)

const tupleKeySep = "\x00"

// prevCube is the comparison baseline for novelty and surprise:
// the dimension-value tuples of the previous cube plus the set of
// individual values those tuples were built from.
type prevCube struct {
	tuples map[string]bool
	values map[string]bool
}

// Session carries the cross-call mutable state of one drill
// session: the fuzzy membership accumulators feeding the legacy
// peculiarity formula and the previous-cube reference feeding
// novelty and surprise. A Session must not be shared between
// concurrently executing statements - create one per independent
// drill sequence.
type Session struct {
	// Vcoord counts, per dimension value, how many cube rows
	// across the session have carried that value.
	Vcoord map[string]int
	// Vmemb holds the fractional membership weight of each
	// dimension value, recomputed from the number of distinct
	// grouping dimensions the value has appeared under.
	Vmemb map[string]float64

	dimsSeen map[string]map[string]bool
	prev     *prevCube
	calls    int
}

func NewSession() *Session {
	sess := new(Session)
	sess.Reset()
	return sess
}

// Reset clears all accumulated state, starting a fresh drill
// session.
func (sess *Session) Reset() {
	sess.Vcoord = make(map[string]int)
	sess.Vmemb = make(map[string]float64)
	sess.dimsSeen = make(map[string]map[string]bool)
	sess.prev = nil
	sess.calls = 0
}

// NumCalls returns how many describe executions the session has
// absorbed since the last reset.
func (sess *Session) NumCalls() int {
	return sess.calls
}

// weight returns the current membership weight of a dimension
// value, falling back to 1.0 for values never seen in the session.
func (sess *Session) weight(value string) float64 {
	if w, ok := sess.Vmemb[value]; ok {
		return w
	}
	return 1.0
}

func rowTuple(tbl *dataset.Table, dims []string, row int) []string {
	ans := make([]string, len(dims))
	for i, d := range dims {
		col, err := tbl.Column(d)
		if err != nil {
			continue
		}
		ans[i] = col.Str[row]
	}
	return ans
}

func tupleKey(tuple []string) string {
	return strings.Join(tuple, tupleKeySep)
}

// sawTuple reports whether the previous cube contained the exact
// dimension-value tuple.
func (sess *Session) sawTuple(tuple []string) bool {
	if sess.prev == nil {
		return false
	}
	return sess.prev.tuples[tupleKey(tuple)]
}

// sawAnyValue reports whether the previous cube contained at least
// one of the tuple's individual values.
func (sess *Session) sawAnyValue(tuple []string) bool {
	if sess.prev == nil {
		return false
	}
	for _, v := range tuple {
		if sess.prev.values[v] {
			return true
		}
	}
	return false
}

// absorb folds the produced cube into the session state: the
// membership accumulators gain every dimension value of the cube
// and the previous-cube reference is replaced. Weights shrink as a
// value keeps appearing under new grouping dimensions, so values
// stable across many groupings stop looking peculiar.
func (sess *Session) absorb(tbl *dataset.Table, dims []string) {
	next := &prevCube{
		tuples: make(map[string]bool),
		values: make(map[string]bool),
	}
	for row := 0; row < tbl.NumRows(); row++ {
		tuple := rowTuple(tbl, dims, row)
		next.tuples[tupleKey(tuple)] = true
		for i, v := range tuple {
			next.values[v] = true
			sess.Vcoord[v]++
			if sess.dimsSeen[v] == nil {
				sess.dimsSeen[v] = make(map[string]bool)
			}
			sess.dimsSeen[v][dims[i]] = true
			sess.Vmemb[v] = 1.0 / float64(len(sess.dimsSeen[v]))
		}
	}
	sess.prev = next
	sess.calls++
}
