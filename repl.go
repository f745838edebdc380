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
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/chzyer/readline"
	"github.com/czcorpus/intentio/cnf"
	"github.com/czcorpus/intentio/describe"
	"github.com/czcorpus/intentio/iql"
	"github.com/czcorpus/intentio/predict"
	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
)

func ensureConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	configDir := filepath.Join(homeDir, ".config", "intentio")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", err
	}
	return configDir, nil
}

func runActionREPL(conf *cnf.Conf, legacy bool) {
	catalog, err := buildCatalog(context.Background(), conf)
	if err != nil {
		fmt.Printf("Error loading datasets: %v\n", err)
		os.Exit(exitErrorFailedToLoadDatasets)
	}
	mode := interestMode(conf)
	if legacy {
		mode = describe.ModeLegacy
	}
	eng := describe.NewEngine(catalog, mode)
	runner := predict.NewRunner(catalog)
	sess := describe.NewSession()

	titleColor := color.New(color.FgHiMagenta).SprintFunc()
	redColor := color.New(color.FgRed).SprintFunc()

	keepFilters := true
	var prevStmt *iql.Statement

	fmt.Println("Intentional Query Shell")
	fmt.Println("Commands:")
	fmt.Println("  <statement>      - execute a describe/predict statement")
	fmt.Println("  keep on|off      - retain previous filters when drilling (default on)")
	fmt.Println("  reset            - start a fresh session")
	fmt.Println("  datasets         - list available datasets")
	fmt.Println("  setup            - view current settings")
	fmt.Println("  exit             - exit the shell")
	fmt.Println()

	var historyFile string
	historyDir, err := ensureConfigDir()
	if err != nil {
		log.Error().Err(err).Msg("failed to determine user config directory - falling back to session-local history")

	} else {
		historyFile = filepath.Join(historyDir, "iql-history.txt")
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:      color.New(color.FgHiGreen).Sprintf("/iql> "),
		HistoryFile: historyFile,
	})
	if err != nil {
		fmt.Printf("Error initializing readline: %v\n", err)
		os.Exit(exitErrorGeneralFailure)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				fmt.Println("\nIntentio out!")
				break
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}
		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		switch {
		case input == "exit":
			fmt.Println("Goodbye!")
			return
		case input == "reset":
			sess.Reset()
			prevStmt = nil
			fmt.Println("session cleared")
			continue
		case input == "datasets":
			names := catalog.Names()
			sort.Strings(names)
			for _, name := range names {
				fmt.Printf("  %s\n", name)
			}
			continue
		case input == "setup":
			fmt.Printf("%s:\t%v\n", titleColor("Keep filters"), keepFilters)
			fmt.Printf("%s:\t%d\n", titleColor("Session calls"), sess.NumCalls())
			if prevStmt != nil {
				fmt.Printf("%s:\t%s\n", titleColor("Previous"), prevStmt.Text())
			}
			continue
		case strings.HasPrefix(input, "keep "):
			switch strings.TrimSpace(strings.TrimPrefix(input, "keep ")) {
			case "on":
				keepFilters = true
			case "off":
				keepFilters = false
			default:
				fmt.Println("Usage: keep on|off")
			}
			continue
		}

		stmt, err := iql.ParseWith(prevStmt, input, keepFilters, catalog)
		if err != nil {
			// predict statements do not participate in the drill
			// session and parse standalone
			var describeErr *iql.DescribeError
			if errors.As(err, &describeErr) {
				stmt, err = iql.Parse(input, catalog)
			}
			if err != nil {
				fmt.Printf("%s: %v\n", redColor("error"), err)
				continue
			}
		}

		if stmt.Kind == iql.KindPredict {
			res, err := runner.Execute(stmt)
			if err != nil {
				fmt.Printf("%s: %v\n", redColor("error"), err)
				continue
			}
			fmt.Printf("%s:\n", titleColor("predictions"))
			printTable(res.Predictions)
			fmt.Printf("\n%s:\n", titleColor("accuracy"))
			printTable(res.Accuracy)
			fmt.Println()
			printStatistics(res.Statistics)

		} else {
			tbl, err := eng.Execute(sess, stmt)
			if err != nil {
				fmt.Printf("%s: %v\n", redColor("error"), err)
				continue
			}
			printTable(tbl)
			prevStmt = stmt
		}
	}
}
