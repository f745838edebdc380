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

import "fmt"

// SyntaxError is returned when a statement does not match
// the grammar. Token carries the offending fragment.
type SyntaxError struct {
	Token string
	Pos   int
	Msg   string
}

func (err *SyntaxError) Error() string {
	if err.Token != "" {
		return fmt.Sprintf("syntax error at position %d near %q: %s", err.Pos, err.Token, err.Msg)
	}
	return fmt.Sprintf("syntax error at position %d: %s", err.Pos, err.Msg)
}

// SchemaError is returned when a statement references a field
// or dataset unknown to the catalog. Suggestion, when non-empty,
// contains the closest known field name.
type SchemaError struct {
	Field      string
	Dataset    string
	Suggestion string
}

func (err *SchemaError) Error() string {
	if err.Field == "" {
		return fmt.Sprintf("unknown dataset %q", err.Dataset)
	}
	if err.Suggestion != "" {
		return fmt.Sprintf(
			"unknown field %q in dataset %q (did you mean %q?)",
			err.Field, err.Dataset, err.Suggestion)
	}
	return fmt.Sprintf("unknown field %q in dataset %q", err.Field, err.Dataset)
}

// DescribeError is returned when a statement is grammatical but
// semantically invalid (e.g. a field used both as a measure and
// as a grouping dimension).
type DescribeError struct {
	Msg string
}

func (err *DescribeError) Error() string {
	return err.Msg
}

// ModelSelectionError is returned when a `using` clause names
// a model unknown to the respective registry.
type ModelSelectionError struct {
	Model string
}

func (err *ModelSelectionError) Error() string {
	return fmt.Sprintf("unknown model %q in using clause", err.Model)
}

// InsufficientDataError is returned by the predict operator when
// no model family could run on the available series.
type InsufficientDataError struct {
	Target string
	NumPts int
}

func (err *InsufficientDataError) Error() string {
	return fmt.Sprintf(
		"insufficient data to predict %q: no model family accepted %d point(s)",
		err.Target, err.NumPts)
}
