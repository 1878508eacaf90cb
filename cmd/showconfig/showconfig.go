// Package showconfig implements the command that prints the effective configuration.
package showconfig

import (
	"fjacquet/travel-ledger/cmd/root"

	"github.com/spf13/cobra"
)

// NewCommand returns the config command.
func NewCommand(app *root.App) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Long: `Config prints the configuration after defaults, config file, environment
variables and flags have been applied. Credentials are never printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := app.Config.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
