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
	"fmt"
	"strings"
)

type StatementKind int

const (
	KindDescribe StatementKind = iota
	KindPredict
)

func (k StatementKind) String() string {
	if k == KindPredict {
		return "predict"
	}
	return "describe"
}

// AggFunc is an aggregation function applicable to a measure.
type AggFunc string

const (
	AggSum   AggFunc = "sum"
	AggAvg   AggFunc = "avg"
	AggMin   AggFunc = "min"
	AggMax   AggFunc = "max"
	AggCount AggFunc = "count"
)

var aggFuncs = map[string]AggFunc{
	"sum":   AggSum,
	"avg":   AggAvg,
	"min":   AggMin,
	"max":   AggMax,
	"count": AggCount,
}

// Measure is one requested measure, optionally wrapped
// in an aggregation function (sum when not specified).
type Measure struct {
	Field string
	Fn    AggFunc
	Alias string
}

func (m Measure) String() string {
	if m.Fn != AggSum {
		return fmt.Sprintf("%s(%s)", m.Fn, m.Field)
	}
	return m.Field
}

// OutName is the column name the aggregated measure appears
// under in the resulting cube.
func (m Measure) OutName() string {
	if m.Alias != "" {
		return m.Alias
	}
	return m.Field
}

type FilterOp string

const (
	OpEq      FilterOp = "="
	OpNeq     FilterOp = "!="
	OpGte     FilterOp = ">="
	OpLte     FilterOp = "<="
	OpIn      FilterOp = "in"
	OpBetween FilterOp = "between"
)

// Literal is a filter operand as written in the statement.
// Typed comparison semantics are resolved later against the
// dataset schema - the parser keeps the raw form.
type Literal struct {
	Value  string
	Quoted bool
}

func (lit Literal) String() string {
	if lit.Quoted {
		return "'" + lit.Value + "'"
	}
	return lit.Value
}

// FilterClause is one conjunctive predicate of the `for` clause.
// Values holds a single item for comparison operators, two items
// for `between` and one or more for `in`.
type FilterClause struct {
	Field  string
	Op     FilterOp
	Values []Literal
}

func (c FilterClause) String() string {
	switch c.Op {
	case OpIn:
		items := make([]string, len(c.Values))
		for i, v := range c.Values {
			items[i] = v.String()
		}
		return fmt.Sprintf("%s in (%s)", c.Field, strings.Join(items, ", "))
	case OpBetween:
		return fmt.Sprintf("%s between [%s, %s]", c.Field, c.Values[0], c.Values[1])
	default:
		return fmt.Sprintf("%s %s %s", c.Field, c.Op, c.Values[0])
	}
}

// SelectionModel is a describe-side interestingness model
// requested via the `using` clause.
type SelectionModel string

const (
	ModelTopK       SelectionModel = "top-k"
	ModelSkyline    SelectionModel = "skyline"
	ModelClustering SelectionModel = "clustering"
)

var selectionModels = map[string]SelectionModel{
	"top-k":      ModelTopK,
	"skyline":    ModelSkyline,
	"clustering": ModelClustering,
}

// predictFamilies enumerates the closed set of forecasting model
// families the predict operator dispatches to. Unknown names are
// rejected at parse time.
var predictFamilies = map[string]string{
	"univariatets":     "univariateTS",
	"multivariatets":   "multivariateTS",
	"decisiontree":     "decisionTree",
	"randomforest":     "randomForest",
	"timedecisiontree": "timeDecisionTree",
	"timerandomforest": "timeRandomForest",
}

// AllPredictFamilies returns the canonical names of every known
// forecasting family, in a stable order.
func AllPredictFamilies() []string {
	return []string{
		"univariateTS",
		"multivariateTS",
		"decisionTree",
		"randomForest",
		"timeDecisionTree",
		"timeRandomForest",
	}
}

// Statement is the parsed representation of one intentional query.
// Describe and predict statements share the representation; the
// predict-only attributes stay zero-valued for describe statements.
type Statement struct {
	origValue string

	Kind       StatementKind
	Dataset    string
	Measures   []Measure
	Dimensions []string
	Clauses    []FilterClause
	Size       int
	Models     []SelectionModel

	Features     []string
	Families     []string
	Nullify      int
	AccuracySize int
	ExecutionID  string
}

func (st *Statement) Text() string {
	return st.origValue
}

// Target is the measure a predict statement forecasts.
func (st *Statement) Target() Measure {
	return st.Measures[0]
}

// HasModel reports whether the given selection model was requested.
func (st *Statement) HasModel(m SelectionModel) bool {
	for _, v := range st.Models {
		if v == m {
			return true
		}
	}
	return false
}

// FilterOn returns the filter clause on the given field, if any.
func (st *Statement) FilterOn(field string) (FilterClause, bool) {
	for _, c := range st.Clauses {
		if c.Field == field {
			return c, true
		}
	}
	return FilterClause{}, false
}

// Merge derives a statement from prev and next as specified for
// incremental parsing: grouping dimensions and measures always come
// from next; dataset and unset optional clauses are inherited from
// prev; filters are either replaced wholesale (keepFilters false) or
// merged field-wise, next superseding prev on the same field.
// Merge is a pure function - neither argument is mutated.
func Merge(prev, next *Statement, keepFilters bool) *Statement {
	ans := *next
	if prev == nil {
		return &ans
	}
	if ans.Dataset == "" {
		ans.Dataset = prev.Dataset
	}
	if ans.Size == 0 {
		ans.Size = prev.Size
	}
	if len(ans.Models) == 0 {
		ans.Models = append([]SelectionModel{}, prev.Models...)
	}
	if keepFilters {
		merged := make([]FilterClause, 0, len(prev.Clauses)+len(next.Clauses))
		replaced := make(map[string]bool)
		for _, c := range next.Clauses {
			replaced[c.Field] = true
		}
		for _, c := range prev.Clauses {
			if !replaced[c.Field] {
				merged = append(merged, c)
			}
		}
		merged = append(merged, next.Clauses...)
		ans.Clauses = merged
	}
	return &ans
}
