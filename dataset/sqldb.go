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
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

// DBConf addresses one fact table in a relational database. With
// Driver "sqlite3" only Path and Table apply; with "mysql" the
// Host/User/Passwd/Name quadruple is used instead of Path.
type DBConf struct {
	Driver string `json:"driver"`
	Path   string `json:"path"`
	Host   string `json:"host"`
	User   string `json:"user"`
	Passwd string `json:"passwd"`
	Name   string `json:"db"`
	Table  string `json:"table"`
}

func openDB(conf DBConf) (*sql.DB, error) {
	switch conf.Driver {
	case "sqlite3":
		return sql.Open("sqlite3", conf.Path)
	case "mysql":
		mc := mysql.NewConfig()
		mc.Net = "tcp"
		mc.Addr = conf.Host
		mc.User = conf.User
		mc.Passwd = conf.Passwd
		mc.DBName = conf.Name
		mc.ParseTime = true
		mc.Loc = time.Local
		return sql.Open("mysql", mc.FormatDSN())
	default:
		return nil, fmt.Errorf("failed to open database: unsupported driver %q", conf.Driver)
	}
}

// LoadSQL materializes a fact table from a relational source. Only
// the columns the schema mentions are selected; NULL measure cells
// become NaN, NULL dimension cells become empty strings.
func LoadSQL(ctx context.Context, conf DBConf, schema Schema) (*Source, error) {
	db, err := openDB(conf)
	if err != nil {
		return nil, fmt.Errorf("failed to load SQL dataset: %w", err)
	}
	defer db.Close()

	cols := make([]string, 0, len(schema.Dimensions)+len(schema.Measures))
	for _, f := range schema.Dimensions {
		cols = append(cols, f.Name)
	}
	for _, f := range schema.Measures {
		cols = append(cols, f.Name)
	}
	query := fmt.Sprintf(
		"SELECT %s FROM %s", strings.Join(cols, ", "), conf.Table)
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch fact rows: %w", err)
	}
	defer rows.Close()

	numDims := len(schema.Dimensions)
	dimCols := make([][]string, numDims)
	measCols := make([][]float64, len(schema.Measures))
	numRows := 0
	for rows.Next() {
		dst := make([]any, len(cols))
		dimVals := make([]sql.NullString, numDims)
		measVals := make([]sql.NullFloat64, len(schema.Measures))
		for i := range dimVals {
			dst[i] = &dimVals[i]
		}
		for i := range measVals {
			dst[numDims+i] = &measVals[i]
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, fmt.Errorf("failed to fetch fact rows: %w", err)
		}
		for i, v := range dimVals {
			dimCols[i] = append(dimCols[i], v.String)
		}
		for i, v := range measVals {
			if v.Valid {
				measCols[i] = append(measCols[i], v.Float64)

			} else {
				measCols[i] = append(measCols[i], math.NaN())
			}
		}
		numRows++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to fetch fact rows: %w", err)
	}
	log.Info().
		Str("table", conf.Table).
		Int("numRows", numRows).
		Msg("loaded fact table")

	src := NewSource(numRows)
	for i, f := range schema.Dimensions {
		src.AddDimColumn(f.Name, dimCols[i])
	}
	for i, f := range schema.Measures {
		src.AddMeasureColumn(f.Name, measCols[i])
	}
	return src, nil
}
