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
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/czcorpus/cnc-gokit/logging"
	"github.com/czcorpus/intentio/cnf"
	"github.com/rs/zerolog/log"
)

const (
	actionServer     = "server"
	actionREPL       = "repl"
	actionRun        = "run"
	actionBenchmark  = "benchmark"
	actionFlushCache = "flushcache"
	actionVersion    = "version"
	actionHelp       = "help"

	exitErrorGeneralFailure = iota
	exitErrorFailedToLoadDatasets
	exitErrorStatementFailed
	exitErrorBenchmarkFailed
)

var (
	version   string
	buildDate string
	gitCommit string
)

// VersionInfo provides a detailed information about the actual build
type VersionInfo struct {
	Version   string `json:"version"`
	BuildDate string `json:"buildDate"`
	GitCommit string `json:"gitCommit"`
}

func topLevelUsage() {
	fmt.Fprintf(os.Stderr, "INTENTIO - an intentional query analytics engine\n")
	fmt.Fprintf(os.Stderr, "-----------------------------\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "\t%s\t\tshow version info\n", actionVersion)
	fmt.Fprintf(os.Stderr, "\t%s\t\trun the HTTP API server\n", actionServer)
	fmt.Fprintf(os.Stderr, "\t%s\t\tinteractive drill-down session\n", actionREPL)
	fmt.Fprintf(os.Stderr, "\t%s\t\texecute a single statement\n", actionRun)
	fmt.Fprintf(os.Stderr, "\t%s\trun a scalability benchmark\n", actionBenchmark)
	fmt.Fprintf(os.Stderr, "\t%s\tdrop all cached dataset rows\n", actionFlushCache)
	fmt.Fprintf(os.Stderr, "\nUse `intentio help ACTION` for information about a specific action\n\n")
}

func setup(confPath string) *cnf.Conf {
	conf := cnf.LoadConfig(confPath)
	if conf.Logging.Level == "" {
		conf.Logging.Level = "info"
	}
	logging.SetupLogging(conf.Logging)
	cnf.ValidateAndDefaults(conf)
	log.Info().Str("path", conf.GetSourcePath()).Msg("configuration loaded")
	return conf
}

func cleanVersionInfo(v string) string {
	return strings.TrimLeft(strings.Trim(v, "'"), "v")
}

func runActionVersion(ver VersionInfo) {
	fmt.Fprintln(os.Stderr, "Intentio version: ", ver)
}

func main() {
	version := VersionInfo{
		Version:   cleanVersionInfo(version),
		BuildDate: cleanVersionInfo(buildDate),
		GitCommit: cleanVersionInfo(gitCommit),
	}

	cmdServer := flag.NewFlagSet(actionServer, flag.ExitOnError)
	cmdServer.Usage = func() {
		fmt.Fprintf(
			os.Stderr,
			"Usage:\t%s %s config.json\n",
			filepath.Base(os.Args[0]), actionServer)
		cmdServer.PrintDefaults()
	}

	cmdREPL := flag.NewFlagSet(actionREPL, flag.ExitOnError)
	replLegacy := cmdREPL.Bool(
		"legacy", false, "use the legacy membership-weighted peculiarity")
	cmdREPL.Usage = func() {
		fmt.Fprintf(
			os.Stderr,
			"Usage:\t%s %s [options] config.json\n",
			filepath.Base(os.Args[0]), actionREPL)
		cmdREPL.PrintDefaults()
	}

	cmdRun := flag.NewFlagSet(actionRun, flag.ExitOnError)
	cmdRun.Usage = func() {
		fmt.Fprintf(
			os.Stderr,
			"Usage:\t%s %s config.json \"with ... describe ...\"\n",
			filepath.Base(os.Args[0]), actionRun)
		cmdRun.PrintDefaults()
	}

	cmdBenchmark := flag.NewFlagSet(actionBenchmark, flag.ExitOnError)
	benchRepeats := cmdBenchmark.Int("repeats", 1, "how many times to run the statement list")
	benchOut := cmdBenchmark.String("out", "benchmark.csv", "output CSV path")
	cmdBenchmark.Usage = func() {
		fmt.Fprintf(
			os.Stderr,
			"Usage:\t%s %s [options] config.json statements.txt\n",
			filepath.Base(os.Args[0]), actionBenchmark)
		cmdBenchmark.PrintDefaults()
	}

	cmdFlushCache := flag.NewFlagSet(actionFlushCache, flag.ExitOnError)
	cmdFlushCache.Usage = func() {
		fmt.Fprintf(
			os.Stderr,
			"Usage:\t%s %s config.json\n",
			filepath.Base(os.Args[0]), actionFlushCache)
		cmdFlushCache.PrintDefaults()
	}

	cmdVersion := flag.NewFlagSet(actionVersion, flag.ExitOnError)
	cmdHelp := flag.NewFlagSet(actionHelp, flag.ExitOnError)

	action := actionHelp
	if len(os.Args) > 1 {
		action = os.Args[1]
	}

	switch action {
	case actionHelp:
		var subj string
		if len(os.Args) > 2 {
			cmdHelp.Parse(os.Args[2:])
			subj = cmdHelp.Arg(0)
		}
		if subj == "" {
			topLevelUsage()
			return
		}
		switch subj {
		case actionServer:
			cmdServer.Usage()
		case actionREPL:
			cmdREPL.Usage()
		case actionRun:
			cmdRun.Usage()
		case actionBenchmark:
			cmdBenchmark.Usage()
		case actionFlushCache:
			cmdFlushCache.Usage()
		}
	case actionVersion:
		cmdVersion.Parse(os.Args[2:])
		runActionVersion(version)
	case actionServer:
		cmdServer.Parse(os.Args[2:])
		conf := setup(cmdServer.Arg(0))
		ctx, stop := signal.NotifyContext(
			context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		runAPIServer(ctx, conf)
	case actionREPL:
		cmdREPL.Parse(os.Args[2:])
		conf := setup(cmdREPL.Arg(0))
		runActionREPL(conf, *replLegacy)
	case actionRun:
		cmdRun.Parse(os.Args[2:])
		conf := setup(cmdRun.Arg(0))
		runStatement(conf, cmdRun.Arg(1))
	case actionBenchmark:
		cmdBenchmark.Parse(os.Args[2:])
		conf := setup(cmdBenchmark.Arg(0))
		runBenchmark(conf, cmdBenchmark.Arg(1), *benchRepeats, *benchOut)
	case actionFlushCache:
		cmdFlushCache.Parse(os.Args[2:])
		conf := setup(cmdFlushCache.Arg(0))
		runFlushCache(conf)
	default:
		fmt.Fprintf(os.Stderr, "Unknown action, please use 'help' to get more information")
	}
}
