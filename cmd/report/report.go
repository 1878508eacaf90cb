// Package report implements the command that prints summaries of a stored ledger.
package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"fjacquet/travel-ledger/cmd/root"
	"fjacquet/travel-ledger/internal/canonical"
	"fjacquet/travel-ledger/internal/models"
	"fjacquet/travel-ledger/internal/pipeline"

	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"
)

// NewCommand returns the report command.
func NewCommand(app *root.App) *cobra.Command {
	var sheets []string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print aggregate tables computed from the stored Cleaned_Data sheet",
		Long: `Report reads the Cleaned_Data table back from the configured store, rebuilds
the ledger and prints the requested aggregate tables as CSV on stdout.
Without --sheet every enabled aggregate is printed, each preceded by its name.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), app, sheets, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringSliceVarP(&sheets, "sheet", "s", nil, "aggregate sheet to print (repeatable)")

	return cmd
}

func run(ctx context.Context, app *root.App, sheets []string, out io.Writer) error {
	asOf, err := app.AsOf()
	if err != nil {
		return err
	}

	c, err := app.NewContainer(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := c.Close(); cerr != nil {
			c.GetLogger().WithError(cerr).Warn("Failed to close store")
		}
	}()

	p := c.GetPipeline()
	if len(sheets) > 0 {
		opts := app.Config.PipelineOptions()
		opts.Enabled = sheets
		if p, err = pipeline.New(opts, c.GetLogger()); err != nil {
			return err
		}
	}

	cleaned, err := c.GetStore().ReadTable(ctx, canonical.CleanedDataSheet)
	if err != nil {
		return fmt.Errorf("reading %s: %w", canonical.CleanedDataSheet, err)
	}

	result, err := canonical.FromCleanedTable(cleaned, app.Config.CanonicalOptions(), asOf, c.GetLogger())
	if err != nil {
		return fmt.Errorf("rebuilding ledger: %w", err)
	}

	bundle, err := p.Summarize(ctx, result.Ledger)
	if err != nil {
		return err
	}

	return writeTables(out, bundle.Tables(), app.Config.Delimiter(), len(sheets) != 1)
}

// writeTables prints each table as CSV. With titled set, every table is
// preceded by its name and followed by a blank line.
func writeTables(out io.Writer, tables []models.Table, delimiter rune, titled bool) error {
	for _, t := range tables {
		if titled {
			if _, err := fmt.Fprintf(out, "# %s\n", t.Name); err != nil {
				return err
			}
		}

		w := csv.NewWriter(out)
		w.Comma = delimiter
		sw := gocsv.NewSafeCSVWriter(w)
		for _, row := range t.Matrix() {
			if err := sw.Write(row); err != nil {
				return err
			}
		}
		sw.Flush()
		if err := sw.Error(); err != nil {
			return err
		}

		if titled {
			if _, err := fmt.Fprintln(out); err != nil {
				return err
			}
		}
	}
	return nil
}
