package benchmark

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/czcorpus/intentio/dataset"
	"github.com/czcorpus/intentio/describe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog() *dataset.Catalog {
	months := make([]string, 0, 12)
	sales := make([]float64, 0, 12)
	for i := 0; i < 12; i++ {
		months = append(months, fmt.Sprintf("1997-%02d", i+1))
		sales = append(sales, float64(100+10*i))
	}
	src := dataset.NewSource(len(months))
	src.AddDimColumn("the_month", months)
	src.AddMeasureColumn("unit_sales", sales)

	cat := dataset.NewCatalog()
	cat.Register(&dataset.Dataset{
		Name: "foodmart",
		Schema: dataset.Schema{
			Dimensions: []dataset.Field{
				{Name: "the_month", Type: dataset.TypeDate},
			},
			Measures: []dataset.Field{
				{Name: "unit_sales", Type: dataset.TypeNumber},
			},
		},
		Rows: src,
	})
	return cat
}

func writeStatements(t *testing.T, lines ...string) string {
	path := filepath.Join(t.TempDir(), "statements.txt")
	err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644)
	require.NoError(t, err)
	return path
}

func TestLoadStatementsSkipsCommentsAndBlanks(t *testing.T) {
	path := writeStatements(
		t,
		"# warm-up session",
		"",
		"with foodmart describe unit_sales by the_month",
		"   ",
		"describe unit_sales by the_month for the_month >= '1997-06'",
	)
	stmts, err := loadStatements(path)
	require.NoError(t, err)
	assert.Len(t, stmts, 2)
}

func TestRunFullWritesCSV(t *testing.T) {
	stmtsPath := writeStatements(
		t,
		"with foodmart describe unit_sales by the_month",
		"describe unit_sales by the_month for the_month >= '1997-06'",
	)
	outPath := filepath.Join(t.TempDir(), "results.csv")
	exe := NewExecutor(testCatalog(), describe.ModeRevised)
	err := exe.RunFull(stmtsPath, 2, outPath)
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	// header plus 2 statements times 2 repeats
	assert.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "statement;kind;repeat"))
}

func TestRunFullMissingFile(t *testing.T) {
	exe := NewExecutor(testCatalog(), describe.ModeRevised)
	err := exe.RunFull("/nonexistent/statements.txt", 1, "")
	assert.Error(t, err)
}

func TestFormatStatisticsStableOrder(t *testing.T) {
	s := formatStatistics(map[string]float64{
		"pivot":       12,
		"cardinality": 12,
	})
	assert.Equal(t, "cardinality=12;pivot=12", s)
}
