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
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// LoadCSV reads a fact table from a headered CSV file. Columns are
// matched against the schema case-insensitively; columns the schema
// does not mention are skipped, schema fields missing from the file
// produce an error. Empty or unparseable measure cells become NaN.
func LoadCSV(path string, schema Schema) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load CSV dataset: %w", err)
	}
	defer f.Close()
	return ReadCSV(f, schema)
}

// ReadCSV is the io.Reader form of LoadCSV.
func ReadCSV(r io.Reader, schema Schema) (*Source, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	dimIdx := make(map[int]string)
	measIdx := make(map[int]string)
	seen := make(map[string]bool)
	for i, name := range header {
		name = strings.TrimSpace(name)
		if f, ok := schema.Dimension(name); ok {
			dimIdx[i] = f.Name
			seen[strings.ToLower(f.Name)] = true

		} else if f, ok := schema.Measure(name); ok {
			measIdx[i] = f.Name
			seen[strings.ToLower(f.Name)] = true
		}
	}
	for _, f := range schema.Dimensions {
		if !seen[strings.ToLower(f.Name)] {
			return nil, fmt.Errorf("failed to read CSV: missing dimension column %q", f.Name)
		}
	}
	for _, f := range schema.Measures {
		if !seen[strings.ToLower(f.Name)] {
			return nil, fmt.Errorf("failed to read CSV: missing measure column %q", f.Name)
		}
	}

	dimCols := make(map[string][]string)
	measCols := make(map[string][]float64)
	numRows := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}
		for i, name := range dimIdx {
			dimCols[name] = append(dimCols[name], strings.TrimSpace(rec[i]))
		}
		for i, name := range measIdx {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
			if err != nil {
				v = math.NaN()
			}
			measCols[name] = append(measCols[name], v)
		}
		numRows++
	}

	src := NewSource(numRows)
	for name, col := range dimCols {
		src.AddDimColumn(name, col)
	}
	for name, col := range measCols {
		src.AddMeasureColumn(name, col)
	}
	return src, nil
}
