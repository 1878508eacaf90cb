// Package root contains the root command for the application
package root

import (
	"context"
	"fmt"
	"time"

	"fjacquet/travel-ledger/internal/clock"
	"fjacquet/travel-ledger/internal/config"
	"fjacquet/travel-ledger/internal/container"
	"fjacquet/travel-ledger/internal/dateutils"
	"fjacquet/travel-ledger/internal/logging"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// App carries the state shared by every subcommand: the loaded
// configuration, the logger and the clock the as-of date is taken from.
type App struct {
	Clock  clock.Clock
	Config *config.Config
	Logger logging.Logger
	// ContainerOptions are appended to every container built by NewContainer.
	ContainerOptions []container.Option

	viper      *viper.Viper
	configFile string
	asOf       string
}

// NewApp returns an App reading the wall clock.
func NewApp() *App {
	return &App{
		Clock: clock.System{},
		viper: config.New(),
	}
}

// NewCommand builds the root command. Subcommands are attached by the caller.
func NewCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "travel-ledger",
		Short: "Clean travel expense exports and build spending summaries.",
		Long: `travel-ledger reads a raw travel expense CSV export, cleans it into a
canonical ledger and derives per-category, per-country and time-series
summary tables. The tables are written to Google Sheets, CSV files or a
SQL database.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.load()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&app.configFile, "config", "", "config file (default is config.yaml in $HOME/.travel-ledger, .travel-ledger or .)")
	flags.StringVar(&app.asOf, "as-of", "", "processing date as YYYY-MM-DD; rows after the previous day are dropped (default today)")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.String("log-format", "", "log format: text or json")
	flags.String("csv-delimiter", "", "CSV field delimiter")
	flags.String("store", "", "store backend: sheets, csv, sqlite, postgres or memory")

	for key, flag := range map[string]string{
		"log.level":     "log-level",
		"log.format":    "log-format",
		"csv.delimiter": "csv-delimiter",
		"store.type":    "store",
	} {
		_ = app.viper.BindPFlag(key, flags.Lookup(flag))
	}

	return cmd
}

func (a *App) load() error {
	config.LoadEnv()

	cfg, err := config.Load(a.viper, a.configFile)
	if err != nil {
		return err
	}
	a.Config = cfg

	if a.Logger == nil {
		a.Logger = logging.NewLogrusAdapter(cfg.Log.Level, cfg.Log.Format)
	}
	return nil
}

// AsOf returns the processing date: the --as-of flag when given, today otherwise.
func (a *App) AsOf() (time.Time, error) {
	if a.asOf == "" {
		return dateutils.TruncateToDay(a.Clock.Now()), nil
	}
	t, err := time.Parse(dateutils.DateLayoutISO, a.asOf)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --as-of date %q: expected YYYY-MM-DD", a.asOf)
	}
	return t, nil
}

// NewContainer wires the dependencies for the loaded configuration.
func (a *App) NewContainer(ctx context.Context, opts ...container.Option) (*container.Container, error) {
	all := make([]container.Option, 0, len(a.ContainerOptions)+len(opts)+1)
	all = append(all, container.WithLogger(a.Logger))
	all = append(all, a.ContainerOptions...)
	all = append(all, opts...)
	return container.NewContainer(ctx, a.Config, all...)
}
