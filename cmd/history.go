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

type historyCmd struct {
	date     string
	method   string
	currency string
	period   string
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "display the portfolio value history" }
func (*historyCmd) Usage() string {
	return `pfc history [-p <period>] [-d <date>] [-m roai|twr] [-c <currency>]

  Displays the portfolio's net worth and performance over time, one row per
  period bucket (daily, weekly, monthly, quarterly or yearly). Each bucket
  reports its closing state.

Usage Examples:
# Monthly history.
$ pfc history -p month

`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", portfolio.Today().String(), "evaluation date")
	f.StringVar(&c.method, "m", viper.GetString("method"), "calculation method: roai or twr")
	f.StringVar(&c.currency, "c", viper.GetString("base-currency"), "base currency for totals")
	f.StringVar(&c.period, "p", "monthly", "grouping period: daily, weekly, monthly, quarterly or yearly")
}

func (c *historyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	period, err := portfolio.ParsePeriod(c.period)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	snapshot, status := computeSnapshot(ctx, c.date, c.method, c.currency)
	if status != subcommands.ExitSuccess {
		return status
	}

	grouped := portfolio.GroupHistoricalData(snapshot.HistoricalData, period)
	printMarkdown(renderer.RenderHistory(grouped, period))
	return subcommands.ExitSuccess
}
