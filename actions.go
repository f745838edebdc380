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

package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/czcorpus/cnc-gokit/collections"
	"github.com/czcorpus/intentio/benchmark"
	"github.com/czcorpus/intentio/cnf"
	"github.com/czcorpus/intentio/dataset"
	"github.com/czcorpus/intentio/describe"
	"github.com/czcorpus/intentio/iql"
	"github.com/czcorpus/intentio/predict"
	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
)

const (
	errColor = color.FgHiRed
)

// buildCatalog materializes every configured dataset, going
// through the local cache when one is configured.
func buildCatalog(ctx context.Context, conf *cnf.Conf) (*dataset.Catalog, error) {
	var cache *dataset.Cache
	if conf.CacheDirPath != "" {
		var err error
		cache, err = dataset.OpenCache(conf.CacheDirPath)
		if err != nil {
			return nil, fmt.Errorf("failed to build dataset catalog: %w", err)
		}
		defer cache.Close()
	}
	ans := dataset.NewCatalog()
	for _, dsc := range conf.Datasets {
		src, err := loadSource(ctx, cache, dsc)
		if err != nil {
			return nil, fmt.Errorf("failed to build dataset catalog: %w", err)
		}
		ans.Register(&dataset.Dataset{
			Name:   dsc.Name,
			Schema: dsc.Schema,
			Rows:   src,
		})
		log.Info().
			Str("dataset", dsc.Name).
			Int("numRows", src.Len()).
			Msg("registered dataset")
	}
	return ans, nil
}

func loadSource(
	ctx context.Context,
	cache *dataset.Cache,
	dsc cnf.DatasetConf,
) (*dataset.Source, error) {
	if cache != nil {
		src, ok, err := cache.Load(dsc.Name)
		if err != nil {
			return nil, err
		}
		if ok {
			return src, nil
		}
	}
	var src *dataset.Source
	var err error
	if dsc.Path != "" {
		src, err = dataset.LoadCSV(dsc.Path, dsc.Schema)

	} else {
		src, err = dataset.LoadSQL(ctx, dsc.DB, dsc.Schema)
	}
	if err != nil {
		return nil, err
	}
	if cache != nil {
		if err := cache.Store(dsc.Name, src); err != nil {
			log.Error().Err(err).Str("dataset", dsc.Name).Msg("failed to cache dataset")
		}
	}
	return src, nil
}

func interestMode(conf *cnf.Conf) describe.Mode {
	if conf.InterestMode == "legacy" {
		return describe.ModeLegacy
	}
	return describe.ModeRevised
}

func formatCell(v any) string {
	switch tv := v.(type) {
	case float64:
		if math.IsNaN(tv) {
			return ""
		}
		return fmt.Sprintf("%.4g", tv)
	case bool:
		if tv {
			return "true"
		}
		return "false"
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", tv)
	}
}

func printTable(tbl *dataset.Table) {
	names := tbl.ColumnNames()
	widths := make([]int, len(names))
	cells := make([][]string, tbl.NumRows())
	for i, name := range names {
		widths[i] = len(name)
	}
	for row := 0; row < tbl.NumRows(); row++ {
		cells[row] = make([]string, len(names))
		for i, c := range tbl.Columns() {
			var v string
			switch c.Kind {
			case dataset.ColNum:
				v = formatCell(c.Num[row])
			case dataset.ColFlag:
				v = formatCell(c.Flag[row])
			default:
				v = c.Str[row]
			}
			cells[row][i] = v
			if len(v) > widths[i] {
				widths[i] = len(v)
			}
		}
	}
	hdr := color.New(color.FgHiMagenta)
	for i, name := range names {
		hdr.Printf("%-*s  ", widths[i], name)
	}
	fmt.Println()
	for _, row := range cells {
		for i, v := range row {
			fmt.Printf("%-*s  ", widths[i], v)
		}
		fmt.Println()
	}
}

func printStatistics(stats map[string]float64) {
	title := color.New(color.FgHiMagenta).SprintFunc()
	fmt.Printf("%s:\n", title("statistics"))
	entries := collections.MapToEntriesSorted(
		stats,
		func(a, b collections.MapEntry[string, float64]) int {
			return strings.Compare(a.K, b.K)
		},
	)
	for _, e := range entries {
		fmt.Printf("\t%s: %s\n", e.K, formatCell(e.V))
	}
}

// runStatement executes one statement in a throwaway session and
// prints the result.
func runStatement(conf *cnf.Conf, text string) {
	ctx := context.Background()
	catalog, err := buildCatalog(ctx, conf)
	if err != nil {
		color.New(errColor).Fprintln(os.Stderr, err)
		os.Exit(exitErrorFailedToLoadDatasets)
	}
	stmt, err := iql.Parse(text, catalog)
	if err != nil {
		color.New(errColor).Fprintln(os.Stderr, err)
		os.Exit(exitErrorStatementFailed)
	}
	switch stmt.Kind {
	case iql.KindPredict:
		res, err := predict.NewRunner(catalog).Execute(stmt)
		if err != nil {
			color.New(errColor).Fprintln(os.Stderr, err)
			os.Exit(exitErrorStatementFailed)
		}
		printTable(res.Predictions)
		fmt.Println()
		printTable(res.Accuracy)
		fmt.Println()
		printStatistics(res.Statistics)
	default:
		eng := describe.NewEngine(catalog, interestMode(conf))
		tbl, err := eng.Execute(describe.NewSession(), stmt)
		if err != nil {
			color.New(errColor).Fprintln(os.Stderr, err)
			os.Exit(exitErrorStatementFailed)
		}
		printTable(tbl)
	}
}

// runFlushCache drops all cached dataset rows so the next run
// re-reads the configured sources.
func runFlushCache(conf *cnf.Conf) {
	if conf.CacheDirPath == "" {
		color.New(errColor).Fprintln(os.Stderr, "no cacheDirPath configured")
		os.Exit(exitErrorGeneralFailure)
	}
	cache, err := dataset.OpenCache(conf.CacheDirPath)
	if err != nil {
		color.New(errColor).Fprintln(os.Stderr, err)
		os.Exit(exitErrorGeneralFailure)
	}
	defer cache.Close()
	if err := cache.Flush(); err != nil {
		color.New(errColor).Fprintln(os.Stderr, err)
		os.Exit(exitErrorGeneralFailure)
	}
	log.Info().Str("path", conf.CacheDirPath).Msg("dataset cache flushed")
}

// runBenchmark replays a statement list and writes the collected
// per-stage statistics to a CSV file.
func runBenchmark(conf *cnf.Conf, statementsPath string, repeats int, outPath string) {
	ctx := context.Background()
	catalog, err := buildCatalog(ctx, conf)
	if err != nil {
		color.New(errColor).Fprintln(os.Stderr, err)
		os.Exit(exitErrorFailedToLoadDatasets)
	}
	exe := benchmark.NewExecutor(catalog, interestMode(conf))
	if err := exe.RunFull(statementsPath, repeats, outPath); err != nil {
		color.New(errColor).Fprintln(os.Stderr, err)
		os.Exit(exitErrorBenchmarkFailed)
	}
}
