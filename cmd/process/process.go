// Package process implements the command that runs the full pipeline on a raw export.
package process

import (
	"context"
	"fmt"
	"io"

	"fjacquet/travel-ledger/cmd/root"
	"fjacquet/travel-ledger/internal/container"
	"fjacquet/travel-ledger/internal/logging"
	"fjacquet/travel-ledger/internal/models"
	"fjacquet/travel-ledger/internal/store"
	"fjacquet/travel-ledger/internal/validation"

	"github.com/spf13/cobra"
)

// NewCommand returns the process command.
func NewCommand(app *root.App) *cobra.Command {
	var (
		input  string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Clean a raw expense export and persist the sheet bundle",
		Long: `Process reads the raw expense CSV, drops rows that are unusable, excluded or too recent,
computes the enabled aggregate tables and replaces them in the configured store.
With --dry-run the bundle is kept in memory and only summarized.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), app, input, dryRun, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "raw expense CSV export")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "compute the bundle without writing it")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func run(ctx context.Context, app *root.App, input string, dryRun bool, out io.Writer) error {
	if err := validation.InputFile(input); err != nil {
		return err
	}
	asOf, err := app.AsOf()
	if err != nil {
		return err
	}

	var opts []container.Option
	if dryRun {
		opts = append(opts, container.WithStoreType(store.TypeMemory))
	}
	c, err := app.NewContainer(ctx, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := c.Close(); cerr != nil {
			c.GetLogger().WithError(cerr).Warn("Failed to close store")
		}
	}()

	raw, err := c.GetReader().ReadFile(input)
	if err != nil {
		return err
	}

	bundle, err := c.GetPipeline().Run(ctx, raw, asOf)
	if err != nil {
		return fmt.Errorf("processing %s: %w", input, err)
	}

	target := app.Config.Store.Type
	if dryRun {
		target = store.TypeMemory
	}
	if err := c.GetStore().Replace(ctx, bundle); err != nil {
		return err
	}

	c.GetLogger().Info("Bundle written",
		logging.F(logging.FieldInputFile, input),
		logging.F(logging.FieldStore, target),
		logging.F(logging.FieldTables, bundle.Len()))

	return printSummary(out, bundle, target, dryRun)
}

func printSummary(out io.Writer, bundle *models.Bundle, target string, dryRun bool) error {
	verb := "Wrote"
	if dryRun {
		verb = "Computed"
	}
	if _, err := fmt.Fprintf(out, "%s %d tables (%s store)\n", verb, bundle.Len(), target); err != nil {
		return err
	}
	for _, t := range bundle.Tables() {
		if _, err := fmt.Fprintf(out, "  %-28s %d rows\n", t.Name, t.Len()); err != nil {
			return err
		}
	}
	return nil
}
