package benchmark

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/czcorpus/cnc-gokit/collections"
	"github.com/czcorpus/intentio/dataset"
	"github.com/czcorpus/intentio/describe"
	"github.com/czcorpus/intentio/iql"
	"github.com/czcorpus/intentio/predict"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
)

// Executor replays a list of statements against loaded datasets
// and measures how long each one takes. Each repeat runs describe
// statements through a fresh session so that cross-call state
// (membership weights, previous cube) evolves the same way as it
// would for a user typing the statements one by one.
type Executor struct {
	catalog *dataset.Catalog
	mode    describe.Mode
}

type measurement struct {
	statement string
	kind      iql.StatementKind
	repeat    int
	duration  time.Duration
	numRows   int
	details   string
}

func loadStatements(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load benchmark statements: %w", err)
	}
	defer f.Close()
	ans := make([]string, 0, 50)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ans = append(ans, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to load benchmark statements: %w", err)
	}
	return ans, nil
}

func formatStatistics(stats map[string]float64) string {
	entries := collections.MapToEntriesSorted(
		stats,
		func(a, b collections.MapEntry[string, float64]) int {
			return strings.Compare(a.K, b.K)
		},
	)
	var buf strings.Builder
	for i, entry := range entries {
		if i > 0 {
			buf.WriteString(";")
		}
		buf.WriteString(entry.K)
		buf.WriteString("=")
		buf.WriteString(strconv.FormatFloat(entry.V, 'g', 6, 64))
	}
	return buf.String()
}

func (e *Executor) runOnce(stmts []*iql.Statement, repeat int, bar *progressbar.ProgressBar) ([]measurement, error) {
	sess := describe.NewSession()
	engine := describe.NewEngine(e.catalog, e.mode)
	runner := predict.NewRunner(e.catalog)
	ans := make([]measurement, 0, len(stmts))
	for _, stmt := range stmts {
		m := measurement{
			statement: stmt.Text(),
			kind:      stmt.Kind,
			repeat:    repeat,
		}
		t0 := time.Now()
		if stmt.Kind == iql.KindPredict {
			res, err := runner.Execute(stmt)
			if err != nil {
				return nil, fmt.Errorf("failed to benchmark statement %q: %w", stmt.Text(), err)
			}
			m.duration = time.Since(t0)
			m.numRows = res.Predictions.NumRows()
			m.details = formatStatistics(res.Statistics)

		} else {
			tbl, err := engine.Execute(sess, stmt)
			if err != nil {
				return nil, fmt.Errorf("failed to benchmark statement %q: %w", stmt.Text(), err)
			}
			m.duration = time.Since(t0)
			m.numRows = tbl.NumRows()
		}
		ans = append(ans, m)
		bar.Add(1)
	}
	return ans, nil
}

func writeResults(w io.Writer, rows []measurement) error {
	cw := csv.NewWriter(w)
	cw.Comma = ';'
	if err := cw.Write([]string{"statement", "kind", "repeat", "durationMs", "numRows", "details"}); err != nil {
		return err
	}
	for _, m := range rows {
		rec := []string{
			m.statement,
			m.kind.String(),
			strconv.Itoa(m.repeat),
			strconv.FormatFloat(float64(m.duration)/float64(time.Millisecond), 'f', 3, 64),
			strconv.Itoa(m.numRows),
			m.details,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// RunFull parses all the statements in statementsPath, replays them
// `repeats` times and writes per-statement timings to outPath as CSV
// (or to the standard output if outPath is empty).
func (e *Executor) RunFull(statementsPath string, repeats int, outPath string) error {
	lines, err := loadStatements(statementsPath)
	if err != nil {
		return fmt.Errorf("failed to run full benchmark: %w", err)
	}
	if len(lines) == 0 {
		return fmt.Errorf("failed to run full benchmark: no statements in %s", statementsPath)
	}
	if repeats < 1 {
		repeats = 1
	}
	stmts := make([]*iql.Statement, 0, len(lines))
	var prev *iql.Statement
	for _, line := range lines {
		stmt, err := iql.ParseWith(prev, line, true, e.catalog)
		if err != nil {
			var describeErr *iql.DescribeError
			if !errors.As(err, &describeErr) {
				return fmt.Errorf("failed to run full benchmark: %w", err)
			}
			stmt, err = iql.Parse(line, e.catalog)
			if err != nil {
				return fmt.Errorf("failed to run full benchmark: %w", err)
			}
		}
		if stmt.Kind == iql.KindDescribe {
			prev = stmt
		}
		stmts = append(stmts, stmt)
	}

	log.Info().
		Int("numStatements", len(stmts)).
		Int("repeats", repeats).
		Msg("starting benchmark")
	bar := progressbar.Default(int64(len(stmts)*repeats), "running benchmark")
	allRows := make([]measurement, 0, len(stmts)*repeats)
	for rep := 0; rep < repeats; rep++ {
		rows, err := e.runOnce(stmts, rep, bar)
		if err != nil {
			return fmt.Errorf("failed to run full benchmark: %w", err)
		}
		allRows = append(allRows, rows...)
	}

	var out io.Writer = os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("failed to run full benchmark: %w", err)
		}
		defer f.Close()
		out = f
	}
	if err := writeResults(out, allRows); err != nil {
		return fmt.Errorf("failed to run full benchmark: %w", err)
	}
	if outPath != "" {
		log.Info().Str("file", outPath).Msg("benchmark results written")
	}
	return nil
}

func NewExecutor(catalog *dataset.Catalog, mode describe.Mode) *Executor {
	return &Executor{
		catalog: catalog,
		mode:    mode,
	}
}
