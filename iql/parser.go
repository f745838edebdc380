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
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Resolver gives the parser access to a dataset catalog so that
// referenced fields can be validated at parse time. A nil Resolver
// makes parsing purely syntactic.
type Resolver interface {
	DatasetExists(name string) bool
	IsDimension(dataset, field string) bool
	IsMeasure(dataset, field string) bool
	FieldNames(dataset string) []string
}

type parser struct {
	tokens []token
	idx    int
}

func (p *parser) peek() token {
	return p.tokens[p.idx]
}

func (p *parser) next() token {
	t := p.tokens[p.idx]
	if t.typ != tkEOF {
		p.idx++
	}
	return t
}

func (p *parser) expectKeyword(kw string) error {
	t := p.next()
	if !t.isKeyword(kw) {
		return &SyntaxError{Token: t.val, Pos: t.pos, Msg: "expected keyword `" + kw + "`"}
	}
	return nil
}

func (p *parser) expectWord() (token, error) {
	t := p.next()
	if t.typ != tkWord {
		return t, &SyntaxError{Token: t.val, Pos: t.pos, Msg: "expected identifier"}
	}
	return t, nil
}

func (p *parser) expectInt() (int, error) {
	t := p.next()
	if t.typ != tkNumber {
		return 0, &SyntaxError{Token: t.val, Pos: t.pos, Msg: "expected integer"}
	}
	v, err := strconv.Atoi(t.val)
	if err != nil {
		return 0, &SyntaxError{Token: t.val, Pos: t.pos, Msg: "expected integer"}
	}
	return v, nil
}

// parseMeasure handles both the bare `field` form and the
// `agg(field)` form.
func (p *parser) parseMeasure() (Measure, error) {
	t, err := p.expectWord()
	if err != nil {
		return Measure{}, err
	}
	fn, isAgg := aggFuncs[strings.ToLower(t.val)]
	if isAgg && p.peek().typ == tkLParen {
		p.next()
		fld, err := p.expectWord()
		if err != nil {
			return Measure{}, err
		}
		if cl := p.next(); cl.typ != tkRParen {
			return Measure{}, &SyntaxError{Token: cl.val, Pos: cl.pos, Msg: "expected `)`"}
		}
		return Measure{Field: fld.val, Fn: fn}, nil
	}
	return Measure{Field: t.val, Fn: AggSum}, nil
}

func (p *parser) parseMeasureList() ([]Measure, error) {
	ans := make([]Measure, 0, 4)
	for {
		m, err := p.parseMeasure()
		if err != nil {
			return nil, err
		}
		ans = append(ans, m)
		if p.peek().typ != tkComma {
			break
		}
		p.next()
	}
	return ans, nil
}

func (p *parser) parseLiteral() (Literal, error) {
	t := p.next()
	switch t.typ {
	case tkString:
		return Literal{Value: t.val, Quoted: true}, nil
	case tkWord, tkNumber:
		return Literal{Value: t.val}, nil
	default:
		return Literal{}, &SyntaxError{Token: t.val, Pos: t.pos, Msg: "expected literal"}
	}
}

func (p *parser) parsePredicate() (FilterClause, error) {
	fld, err := p.expectWord()
	if err != nil {
		return FilterClause{}, err
	}
	ans := FilterClause{Field: fld.val}
	op := p.next()
	switch {
	case op.typ == tkEq:
		ans.Op = OpEq
	case op.typ == tkNeq:
		ans.Op = OpNeq
	case op.typ == tkGte:
		ans.Op = OpGte
	case op.typ == tkLte:
		ans.Op = OpLte
	case op.isKeyword("in"):
		ans.Op = OpIn
		if t := p.next(); t.typ != tkLParen {
			return ans, &SyntaxError{Token: t.val, Pos: t.pos, Msg: "expected `(`"}
		}
		for {
			lit, err := p.parseLiteral()
			if err != nil {
				return ans, err
			}
			ans.Values = append(ans.Values, lit)
			t := p.next()
			if t.typ == tkRParen {
				return ans, nil
			}
			if t.typ != tkComma {
				return ans, &SyntaxError{Token: t.val, Pos: t.pos, Msg: "expected `,` or `)`"}
			}
		}
	case op.isKeyword("between"):
		ans.Op = OpBetween
		if t := p.next(); t.typ != tkLBracket {
			return ans, &SyntaxError{Token: t.val, Pos: t.pos, Msg: "expected `[`"}
		}
		lo, err := p.parseLiteral()
		if err != nil {
			return ans, err
		}
		if t := p.next(); t.typ != tkComma {
			return ans, &SyntaxError{Token: t.val, Pos: t.pos, Msg: "expected `,`"}
		}
		hi, err := p.parseLiteral()
		if err != nil {
			return ans, err
		}
		if t := p.next(); t.typ != tkRBracket {
			return ans, &SyntaxError{Token: t.val, Pos: t.pos, Msg: "expected `]`"}
		}
		ans.Values = []Literal{lo, hi}
		return ans, nil
	default:
		return ans, &SyntaxError{Token: op.val, Pos: op.pos, Msg: "expected comparison operator, `in` or `between`"}
	}
	lit, err := p.parseLiteral()
	if err != nil {
		return ans, err
	}
	ans.Values = []Literal{lit}
	return ans, nil
}

// parseNameList reads comma-separated bare identifiers
// (grouping dimensions, model names, feature fields).
func (p *parser) parseNameList() ([]string, error) {
	ans := make([]string, 0, 4)
	for {
		t, err := p.expectWord()
		if err != nil {
			return nil, err
		}
		ans = append(ans, t.val)
		if p.peek().typ != tkComma {
			break
		}
		p.next()
	}
	return ans, nil
}

func (p *parser) parseStatement(text string) (*Statement, error) {
	ans := &Statement{origValue: text}
	// the with-clause may be omitted in incremental statements,
	// which inherit the dataset of the previous one
	if p.peek().isKeyword("with") {
		p.next()
		ds, err := p.expectWord()
		if err != nil {
			return nil, err
		}
		ans.Dataset = ds.val
	}

	var err error
	verb := p.next()
	switch {
	case verb.isKeyword("describe"):
		ans.Kind = KindDescribe
		if ans.Measures, err = p.parseMeasureList(); err != nil {
			return nil, err
		}
	case verb.isKeyword("predict"):
		ans.Kind = KindPredict
		m, err := p.parseMeasure()
		if err != nil {
			return nil, err
		}
		if p.peek().isKeyword("as") {
			p.next()
			alias, err := p.expectWord()
			if err != nil {
				return nil, err
			}
			m.Alias = alias.val
		}
		ans.Measures = []Measure{m}
	default:
		return nil, &SyntaxError{Token: verb.val, Pos: verb.pos, Msg: "expected `describe` or `predict`"}
	}

	// optional clauses may come in any order - the original
	// statements mix `for ... by ...` and `by ... for ...` freely
	for {
		t := p.peek()
		if t.typ == tkEOF {
			break
		}
		switch {
		case t.isKeyword("for"):
			p.next()
			for {
				c, err := p.parsePredicate()
				if err != nil {
					return nil, err
				}
				ans.Clauses = append(ans.Clauses, c)
				if !p.peek().isKeyword("and") {
					break
				}
				p.next()
			}
		case t.isKeyword("by"):
			p.next()
			if ans.Dimensions, err = p.parseNameList(); err != nil {
				return nil, err
			}
		case t.isKeyword("size"):
			p.next()
			if ans.Size, err = p.expectInt(); err != nil {
				return nil, err
			}
		case t.isKeyword("using"):
			p.next()
			names, err := p.parseNameList()
			if err != nil {
				return nil, err
			}
			if err := ans.applyModels(names); err != nil {
				return nil, err
			}
		case t.isKeyword("from") && ans.Kind == KindPredict:
			p.next()
			if ans.Features, err = p.parseNameList(); err != nil {
				return nil, err
			}
		case t.isKeyword("nullify") && ans.Kind == KindPredict:
			p.next()
			if ans.Nullify, err = p.expectInt(); err != nil {
				return nil, err
			}
		case t.isKeyword("accuracysize") && ans.Kind == KindPredict:
			p.next()
			if ans.AccuracySize, err = p.expectInt(); err != nil {
				return nil, err
			}
		case t.isKeyword("executionid") && ans.Kind == KindPredict:
			p.next()
			id := p.next()
			if id.typ != tkWord && id.typ != tkNumber {
				return nil, &SyntaxError{Token: id.val, Pos: id.pos, Msg: "expected execution identifier"}
			}
			ans.ExecutionID = id.val
		default:
			return nil, &SyntaxError{Token: t.val, Pos: t.pos, Msg: "unexpected token"}
		}
	}
	return ans, nil
}

// applyModels resolves `using` names against the registry matching
// the statement kind.
func (st *Statement) applyModels(names []string) error {
	for _, name := range names {
		if st.Kind == KindDescribe {
			m, ok := selectionModels[strings.ToLower(name)]
			if !ok {
				return &ModelSelectionError{Model: name}
			}
			st.Models = append(st.Models, m)

		} else {
			fam, ok := predictFamilies[strings.ToLower(name)]
			if !ok {
				return &ModelSelectionError{Model: name}
			}
			st.Families = append(st.Families, fam)
		}
	}
	return nil
}

func (st *Statement) validate(res Resolver) error {
	seen := make(map[string]bool)
	for _, d := range st.Dimensions {
		if seen[d] {
			return &DescribeError{Msg: "dimension `" + d + "` appears more than once"}
		}
		seen[d] = true
	}
	for _, m := range st.Measures {
		if seen[m.Field] {
			return &DescribeError{
				Msg: "field `" + m.Field + "` cannot be both a measure and a grouping dimension"}
		}
	}
	for _, f := range st.Features {
		if seen[f] {
			return &DescribeError{
				Msg: "field `" + f + "` cannot be both a feature and a grouping dimension"}
		}
	}
	if res == nil {
		return nil
	}
	if !res.DatasetExists(st.Dataset) {
		return &SchemaError{Dataset: st.Dataset}
	}
	for _, m := range st.Measures {
		if !res.IsMeasure(st.Dataset, m.Field) {
			return st.schemaError(res, m.Field)
		}
	}
	for _, f := range st.Features {
		if !res.IsMeasure(st.Dataset, f) {
			return st.schemaError(res, f)
		}
	}
	for _, d := range st.Dimensions {
		if !res.IsDimension(st.Dataset, d) {
			return st.schemaError(res, d)
		}
	}
	for _, c := range st.Clauses {
		if !res.IsDimension(st.Dataset, c.Field) && !res.IsMeasure(st.Dataset, c.Field) {
			return st.schemaError(res, c.Field)
		}
	}
	return nil
}

func (st *Statement) schemaError(res Resolver, field string) error {
	ans := &SchemaError{Field: field, Dataset: st.Dataset}
	bestDist := len(field)/2 + 1
	for _, known := range res.FieldNames(st.Dataset) {
		d := levenshtein.ComputeDistance(strings.ToLower(field), strings.ToLower(known))
		if d < bestDist {
			bestDist = d
			ans.Suggestion = known
		}
	}
	return ans
}

func parseText(text string) (*Statement, error) {
	tokens, err := tokenize(text)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	return p.parseStatement(text)
}

// Parse parses a single statement. With a non-nil Resolver, field
// references are validated against the dataset catalog.
func Parse(text string, res Resolver) (*Statement, error) {
	ans, err := parseText(text)
	if err != nil {
		return nil, err
	}
	if ans.Dataset == "" {
		return nil, &SyntaxError{Token: "with", Msg: "missing `with` clause"}
	}
	if err := ans.validate(res); err != nil {
		return nil, err
	}
	return ans, nil
}

// ParseWith parses a statement in the context of a previous one,
// making successive drill-down/roll-up steps expressible as
// "same predicate, different grouping". The with-clause may be
// omitted, inheriting the previous dataset. See Merge for the
// exact inheritance rules; validation runs on the merged result.
func ParseWith(prev *Statement, text string, keepFilters bool, res Resolver) (*Statement, error) {
	next, err := parseText(text)
	if err != nil {
		return nil, err
	}
	if next.Kind != KindDescribe {
		return nil, &DescribeError{Msg: "incremental parsing applies to describe statements only"}
	}
	ans := Merge(prev, next, keepFilters)
	if ans.Dataset == "" {
		return nil, &SyntaxError{Token: "with", Msg: "missing `with` clause"}
	}
	if err := ans.validate(res); err != nil {
		return nil, err
	}
	return ans, nil
}
