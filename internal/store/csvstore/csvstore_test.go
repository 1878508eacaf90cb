package csvstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"fjacquet/travel-ledger/internal/ledgererror"
	"fjacquet/travel-ledger/internal/logging"
	"fjacquet/travel-ledger/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cleanedTable(withCountry bool) models.Table {
	if withCountry {
		t := models.NewTable("Cleaned_Data", "Date", "Amount", "Category", "Country", "Month")
		t.Append("2024-03-01", "10.00", "Food", "France", "2024-03")
		t.Append("2024-03-02", "1,5", "Bar; Night", "Spain", "2024-03")
		return t
	}
	t := models.NewTable("Cleaned_Data", "Date", "Amount", "Category", "Month")
	t.Append("2024-03-01", "10.00", "Food", "2024-03")
	return t
}

func TestStore_RoundTrip(t *testing.T) {
	for _, delim := range []rune{',', ';'} {
		t.Run(string(delim), func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "out")
			s, err := New(dir, delim, logging.NewMockLogger())
			require.NoError(t, err)
			ctx := context.Background()

			summary := models.NewTable("Weekend_vs_Weekday", "Type", "Amount")
			summary.Append("Weekend", "50.00")
			require.NoError(t, s.Replace(ctx, models.NewBundle(cleanedTable(true), summary)))

			assert.FileExists(t, s.Path("Cleaned_Data"))
			assert.FileExists(t, s.Path("Weekend_vs_Weekday"))

			got, err := s.ReadTable(ctx, "Cleaned_Data")
			require.NoError(t, err)
			assert.Equal(t, cleanedTable(true), got)

			gotSummary, err := s.ReadTable(ctx, "Weekend_vs_Weekday")
			require.NoError(t, err)
			assert.Equal(t, summary, gotSummary)
		})
	}
}

func TestStore_CleanedWithoutCountry(t *testing.T) {
	s, err := New(t.TempDir(), ',', logging.NewMockLogger())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.ReplaceTable(ctx, cleanedTable(false)))
	got, err := s.ReadTable(ctx, "Cleaned_Data")
	require.NoError(t, err)
	assert.Equal(t, cleanedTable(false), got)
}

func TestStore_ReplaceOverwrites(t *testing.T) {
	s, err := New(t.TempDir(), ',', logging.NewMockLogger())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.ReplaceTable(ctx, cleanedTable(true)))
	require.NoError(t, s.ReplaceTable(ctx, cleanedTable(false)))

	got, err := s.ReadTable(ctx, "Cleaned_Data")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Len())
	assert.Equal(t, -1, got.ColumnIndex("Country"))

	entries, err := os.ReadDir(s.dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestStore_EmptyTable(t *testing.T) {
	s, err := New(t.TempDir(), ',', logging.NewMockLogger())
	require.NoError(t, err)
	ctx := context.Background()

	empty := models.NewTable("Country_Total_Spend", "Country", "Total_Spend")
	require.NoError(t, s.ReplaceTable(ctx, empty))

	got, err := s.ReadTable(ctx, "Country_Total_Spend")
	require.NoError(t, err)
	assert.Equal(t, empty, got)
}

func TestStore_ReadMissing(t *testing.T) {
	s, err := New(t.TempDir(), ',', logging.NewMockLogger())
	require.NoError(t, err)

	_, err = s.ReadTable(context.Background(), "Cleaned_Data")
	assert.ErrorIs(t, err, ledgererror.ErrTableNotFound)
}

func TestNew_RequiresDirectory(t *testing.T) {
	_, err := New("", ',', nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "csv store: open failed")
}
