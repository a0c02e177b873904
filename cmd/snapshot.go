package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/spf13/viper"

	"github.com/finbook/portfolio"
	"github.com/finbook/portfolio/renderer"
)

type snapshotCmd struct {
	date          string
	method        string
	currency      string
	skipPositions bool
	skipHistory   bool
}

func (*snapshotCmd) Name() string     { return "snapshot" }
func (*snapshotCmd) Synopsis() string { return "compute and display the portfolio snapshot" }
func (*snapshotCmd) Usage() string {
	return `pfc snapshot [-d <date>] [-m roai|twr] [-c <currency>]

  Values every position against market data and displays per-position and
  portfolio-wide performance, absolute and in percent.

Usage Examples:
# Today's snapshot with the configured defaults.
$ pfc snapshot

# Year-end snapshot, time-weighted return, totals in EUR.
$ pfc snapshot -d 2023-12-31 -m twr -c EUR

`
}

func (c *snapshotCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", portfolio.Today().String(), "evaluation date")
	f.StringVar(&c.method, "m", viper.GetString("method"), "calculation method: roai or twr")
	f.StringVar(&c.currency, "c", viper.GetString("base-currency"), "base currency for totals")
	f.BoolVar(&c.skipPositions, "skip-positions", false, "do not render the positions section")
	f.BoolVar(&c.skipHistory, "skip-history", false, "do not render the history section")
}

func (c *snapshotCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	snapshot, status := computeSnapshot(ctx, c.date, c.method, c.currency)
	if status != subcommands.ExitSuccess {
		return status
	}

	md := renderer.RenderSnapshot(snapshot, renderer.SnapshotRenderOptions{
		SkipPositions: c.skipPositions,
		SkipHistory:   c.skipHistory,
	})
	printMarkdown(md)
	return subcommands.ExitSuccess
}

// computeSnapshot loads the ledger and market data files and runs the engine.
func computeSnapshot(ctx context.Context, date, method, currency string) (*portfolio.PortfolioSnapshot, subcommands.ExitStatus) {
	on, err := portfolio.ParseDate(date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return nil, subcommands.ExitUsageError
	}
	m, err := portfolio.ParseCalculationMethod(method)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return nil, subcommands.ExitUsageError
	}

	ledger, err := DecodeLedgerFile()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading ledger: %v\n", err)
		return nil, subcommands.ExitFailure
	}
	market, err := DecodeMarketFile()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading market data: %v\n", err)
		return nil, subcommands.ExitFailure
	}

	engine, err := portfolio.NewEngine(ledger, market, market, currency, m, portfolio.WithLogger(Logger()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating engine: %v\n", err)
		return nil, subcommands.ExitFailure
	}
	snapshot, err := engine.ComputeSnapshot(ctx, on)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error computing snapshot: %v\n", err)
		return nil, subcommands.ExitFailure
	}
	return snapshot, subcommands.ExitSuccess
}
