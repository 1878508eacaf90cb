package report

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fjacquet/travel-ledger/cmd/root"
	"fjacquet/travel-ledger/internal/canonical"
	"fjacquet/travel-ledger/internal/clock"
	"fjacquet/travel-ledger/internal/ledgererror"
	"fjacquet/travel-ledger/internal/logging"
	"fjacquet/travel-ledger/internal/models"
	"fjacquet/travel-ledger/internal/store/csvstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, cleaned *models.Table) (string, string) {
	t.Helper()
	for _, key := range []string{"LEDGER_LOG_LEVEL", "LEDGER_STORE_TYPE", "LEDGER_CSV_DELIMITER", "LEDGER_STORE_CSV_DIRECTORY", "LEDGER_AGGREGATES_ENABLED"} {
		t.Setenv(key, "")
	}

	dir := t.TempDir()
	storeDir := filepath.Join(dir, "out")
	if cleaned != nil {
		s, err := csvstore.New(storeDir, ',', logging.NewMockLogger())
		require.NoError(t, err)
		require.NoError(t, s.ReplaceTable(context.Background(), *cleaned))
	}

	cfg := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf("aggregates:\n  total_budget: 100\nstore:\n  type: csv\n  csv:\n    directory: %q\n", storeDir)
	require.NoError(t, os.WriteFile(cfg, []byte(content), 0600))
	return cfg, storeDir
}

func cleanedTable() *models.Table {
	t := models.NewTable(canonical.CleanedDataSheet, "Date", "Amount", "Category", "Country", "Month")
	t.Append("2024-01-06", "30.00", "Food", "France", "2024-01")
	t.Append("2024-01-08", "10.00", "Food", "France", "2024-01")
	t.Append("2024-01-08", "20.00", "Lodging", "Spain", "2024-01")
	return &t
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	app := root.NewApp()
	app.Clock = clock.FixedDate(2024, time.February, 1)
	app.Logger = logging.NewMockLogger()

	cmd := root.NewCommand(app)
	cmd.AddCommand(NewCommand(app))

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(append([]string{"report"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestReport_SingleSheet(t *testing.T) {
	cfg, _ := setup(t, cleanedTable())

	out, err := execute(t, "--config", cfg, "--sheet", "Spend_Summary")
	require.NoError(t, err)

	assert.Equal(t,
		"Total_Spent,Total_Days,Daily_Avg,Budget,Remaining,Percent_Used,Days_Remaining\n"+
			"60.00,2,30.00,100.00,40.00,0.6000,1\n",
		out)
}

func TestReport_SeveralSheetsAreTitled(t *testing.T) {
	cfg, _ := setup(t, cleanedTable())

	out, err := execute(t, "--config", cfg, "--sheet", "Weekend_vs_Weekday,Country_Total_Spend")
	require.NoError(t, err)

	assert.Equal(t,
		"# Country_Total_Spend\n"+
			"Country,Total_Spend\n"+
			"Spain,20.00\n"+
			"France,40.00\n"+
			"\n"+
			"# Weekend_vs_Weekday\n"+
			"Type,Amount\n"+
			"Weekend,30.00\n"+
			"Weekday,15.00\n"+
			"\n",
		out)
}

func TestReport_AllSheets(t *testing.T) {
	cfg, _ := setup(t, cleanedTable())

	out, err := execute(t, "--config", cfg)
	require.NoError(t, err)

	assert.Equal(t, 11, strings.Count(out, "# "))
	assert.Contains(t, out, "# Daily_Avg_Category\n")
	assert.NotContains(t, out, "# Cleaned_Data")
}

func TestReport_Errors(t *testing.T) {
	t.Run("no cleaned data stored", func(t *testing.T) {
		cfg, _ := setup(t, nil)
		_, err := execute(t, "--config", cfg)
		require.Error(t, err)
		assert.ErrorIs(t, err, ledgererror.ErrTableNotFound)
	})

	t.Run("unknown sheet", func(t *testing.T) {
		cfg, _ := setup(t, cleanedTable())
		_, err := execute(t, "--config", cfg, "--sheet", "Nope")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown aggregates: Nope")
	})

	t.Run("stored ledger is empty", func(t *testing.T) {
		empty := models.NewTable(canonical.CleanedDataSheet, "Date", "Amount", "Category", "Country", "Month")
		cfg, _ := setup(t, &empty)
		_, err := execute(t, "--config", cfg)
		require.Error(t, err)
		assert.ErrorIs(t, err, ledgererror.ErrEmptyResult)
	})
}

func TestReport_UsesConfiguredExclusion(t *testing.T) {
	tests := []struct {
		name      string
		canonical string
		expected  string
	}{
		{
			name:     "default drops flights",
			expected: "Country,Total_Spend\nSpain,20.00\nFrance,40.00\n",
		},
		{
			name:      "custom exclusion keeps flights",
			canonical: "canonical:\n  excluded_category: Transfers\n  decimal_comma: true\n",
			expected:  "Country,Total_Spend\nSpain,20.00\nFrance,90.00\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LEDGER_CANONICAL_EXCLUDED_CATEGORY", "")
			t.Setenv("LEDGER_CANONICAL_DECIMAL_COMMA", "")

			cleaned := cleanedTable()
			cleaned.Append("2024-01-07", "50.00", "Flights", "France", "2024-01")
			cfg, _ := setup(t, cleaned)

			f, err := os.OpenFile(cfg, os.O_APPEND|os.O_WRONLY, 0600)
			require.NoError(t, err)
			_, err = f.WriteString(tt.canonical)
			require.NoError(t, err)
			require.NoError(t, f.Close())

			out, err := execute(t, "--config", cfg, "--sheet", "Country_Total_Spend")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out)
		})
	}
}
