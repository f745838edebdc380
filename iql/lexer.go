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
	"unicode"
)

type tokenType int

const (
	tkEOF tokenType = iota
	tkWord
	tkString
	tkNumber
	tkComma
	tkLParen
	tkRParen
	tkLBracket
	tkRBracket
	tkEq
	tkNeq
	tkGte
	tkLte
)

type token struct {
	typ tokenType
	val string
	pos int
}

func (t token) isKeyword(kw string) bool {
	return t.typ == tkWord && strings.EqualFold(t.val, kw)
}

// isWordRune decides which runes may appear in a bare word.
// The set is wide on purpose - dataset names like `COVID-19` and
// date-like literals (`1997-04`, `01/02/2001`) are single words.
func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) ||
		r == '_' || r == '-' || r == '/' || r == '.' || r == '%' || r == ':'
}

// tokenize splits a statement into tokens. It never fails on
// unknown input per se - anything non-structural becomes a word
// and the parser decides whether it fits the grammar.
func tokenize(text string) ([]token, error) {
	runes := []rune(text)
	ans := make([]token, 0, len(runes)/4)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == ',':
			ans = append(ans, token{tkComma, ",", i})
			i++
		case r == '(':
			ans = append(ans, token{tkLParen, "(", i})
			i++
		case r == ')':
			ans = append(ans, token{tkRParen, ")", i})
			i++
		case r == '[':
			ans = append(ans, token{tkLBracket, "[", i})
			i++
		case r == ']':
			ans = append(ans, token{tkRBracket, "]", i})
			i++
		case r == '=':
			ans = append(ans, token{tkEq, "=", i})
			i++
		case r == '!':
			if i+1 < len(runes) && runes[i+1] == '=' {
				ans = append(ans, token{tkNeq, "!=", i})
				i += 2

			} else {
				return nil, &SyntaxError{Token: "!", Pos: i, Msg: "expected `!=`"}
			}
		case r == '>':
			if i+1 < len(runes) && runes[i+1] == '=' {
				ans = append(ans, token{tkGte, ">=", i})
				i += 2

			} else {
				return nil, &SyntaxError{Token: ">", Pos: i, Msg: "expected `>=`"}
			}
		case r == '<':
			if i+1 < len(runes) && runes[i+1] == '=' {
				ans = append(ans, token{tkLte, "<=", i})
				i += 2

			} else {
				return nil, &SyntaxError{Token: "<", Pos: i, Msg: "expected `<=`"}
			}
		case r == '\'' || r == '"':
			quote := r
			j := i + 1
			var sb strings.Builder
			for j < len(runes) && runes[j] != quote {
				sb.WriteRune(runes[j])
				j++
			}
			if j == len(runes) {
				return nil, &SyntaxError{Token: string(quote), Pos: i, Msg: "unterminated string literal"}
			}
			ans = append(ans, token{tkString, sb.String(), i})
			i = j + 1
		default:
			start := i
			// a leading minus belongs to the word so that negative
			// numbers survive as a single token
			if r == '-' && i+1 < len(runes) && unicode.IsDigit(runes[i+1]) {
				i++
			}
			for i < len(runes) && isWordRune(runes[i]) {
				i++
			}
			if i == start {
				return nil, &SyntaxError{Token: string(r), Pos: i, Msg: "unexpected character"}
			}
			word := string(runes[start:i])
			if _, err := strconv.ParseFloat(word, 64); err == nil {
				ans = append(ans, token{tkNumber, word, start})

			} else {
				ans = append(ans, token{tkWord, word, start})
			}
		}
	}
	ans = append(ans, token{tkEOF, "", len(runes)})
	return ans, nil
}
