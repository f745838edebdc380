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

package dataset

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/czcorpus/intentio/iql"
)

// compareFn orders two surface values under a field's natural
// ordering; the returned value follows the cmp convention.
type compareFn func(a, b string) (int, error)

func comparatorFor(ft FieldType) compareFn {
	switch ft {
	case TypeNumber:
		return func(a, b string) (int, error) {
			av, err := strconv.ParseFloat(a, 64)
			if err != nil {
				return 0, fmt.Errorf("failed to compare %q as number: %w", a, err)
			}
			bv, err := strconv.ParseFloat(b, 64)
			if err != nil {
				return 0, fmt.Errorf("failed to compare %q as number: %w", b, err)
			}
			switch {
			case av < bv:
				return -1, nil
			case av > bv:
				return 1, nil
			default:
				return 0, nil
			}
		}
	case TypeDate:
		return func(a, b string) (int, error) {
			av, err := ParseDate(a)
			if err != nil {
				return 0, err
			}
			bv, err := ParseDate(b)
			if err != nil {
				return 0, err
			}
			switch {
			case av.Before(bv):
				return -1, nil
			case av.After(bv):
				return 1, nil
			default:
				return 0, nil
			}
		}
	default:
		return func(a, b string) (int, error) {
			return strings.Compare(a, b), nil
		}
	}
}

type rowPredicate func(row int) (bool, error)

func compileClause(src *Source, schema Schema, clause iql.FilterClause) (rowPredicate, error) {
	ft := schema.FieldType(clause.Field)
	if _, ok := schema.Measure(clause.Field); ok && !schema.hasDimension(clause.Field) {
		ft = TypeNumber
	}
	cmp := comparatorFor(ft)

	valueOf := func(row int) string {
		if src.HasDim(clause.Field) {
			return src.DimValue(row, clause.Field)
		}
		return strconv.FormatFloat(src.MeasureValue(row, clause.Field), 'f', -1, 64)
	}

	switch clause.Op {
	case iql.OpEq, iql.OpNeq, iql.OpGte, iql.OpLte:
		ref := clause.Values[0].Value
		return func(row int) (bool, error) {
			rel, err := cmp(valueOf(row), ref)
			if err != nil {
				return false, err
			}
			switch clause.Op {
			case iql.OpEq:
				return rel == 0, nil
			case iql.OpNeq:
				return rel != 0, nil
			case iql.OpGte:
				return rel >= 0, nil
			default:
				return rel <= 0, nil
			}
		}, nil
	case iql.OpIn:
		return func(row int) (bool, error) {
			v := valueOf(row)
			for _, item := range clause.Values {
				rel, err := cmp(v, item.Value)
				if err != nil {
					return false, err
				}
				if rel == 0 {
					return true, nil
				}
			}
			return false, nil
		}, nil
	case iql.OpBetween:
		lo := clause.Values[0].Value
		hi := clause.Values[1].Value
		return func(row int) (bool, error) {
			v := valueOf(row)
			relLo, err := cmp(v, lo)
			if err != nil {
				return false, err
			}
			relHi, err := cmp(v, hi)
			if err != nil {
				return false, err
			}
			return relLo >= 0 && relHi <= 0, nil
		}, nil
	default:
		return nil, fmt.Errorf("failed to compile filter: unsupported operator %q", clause.Op)
	}
}

func (s Schema) hasDimension(name string) bool {
	_, ok := s.Dimension(name)
	return ok
}

// ApplyFilters evaluates every clause as a conjunctive predicate
// and returns the indices of matching rows in their source order.
// In-lists and between-ranges are inclusive.
func ApplyFilters(src *Source, schema Schema, clauses []iql.FilterClause) ([]int, error) {
	preds := make([]rowPredicate, len(clauses))
	for i, c := range clauses {
		p, err := compileClause(src, schema, c)
		if err != nil {
			return nil, err
		}
		preds[i] = p
	}
	ans := make([]int, 0, src.Len())
	for row := 0; row < src.Len(); row++ {
		match := true
		for _, p := range preds {
			ok, err := p(row)
			if err != nil {
				return nil, fmt.Errorf("failed to apply filters: %w", err)
			}
			if !ok {
				match = false
				break
			}
		}
		if match {
			ans = append(ans, row)
		}
	}
	return ans, nil
}
