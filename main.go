package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fjacquet/travel-ledger/cmd/process"
	"fjacquet/travel-ledger/cmd/report"
	"fjacquet/travel-ledger/cmd/root"
	"fjacquet/travel-ledger/cmd/showconfig"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := root.NewApp()
	cmd := root.NewCommand(app)
	cmd.AddCommand(
		process.NewCommand(app),
		report.NewCommand(app),
		showconfig.NewCommand(app),
	)

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
