package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"

	"github.com/finbook/portfolio"
)

type recordCmd struct {
	date     string
	typ      string
	symbol   string
	quantity string
	price    string
	fee      string
	currency string
}

func (*recordCmd) Name() string     { return "record" }
func (*recordCmd) Synopsis() string { return "record an activity in the ledger" }
func (*recordCmd) Usage() string {
	return `pfc record -t <type> -s <symbol> [-d <date>] [-q <quantity>] [-p <price>] [-f <fee>] [-c <currency>]

  Appends one activity to the ledger file. Types: buy, sell, dividend, fee,
  interest, liability, item.

Usage Examples:
# Buy 2 shares of AAPL at 142.90 USD with a 1.55 fee.
$ pfc record -t buy -s YAHOO:AAPL -q 2 -p 142.90 -f 1.55 -c USD

# Record a one-off valuable.
$ pfc record -t item -s MANUAL:watch -q 1 -p 3500 -c CHF

`
}

func (c *recordCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", portfolio.Today().String(), "activity date")
	f.StringVar(&c.typ, "t", "", "activity type")
	f.StringVar(&c.symbol, "s", "", "symbol, optionally source qualified like YAHOO:AAPL")
	f.StringVar(&c.quantity, "q", "0", "quantity")
	f.StringVar(&c.price, "p", "0", "unit price in the asset currency")
	f.StringVar(&c.fee, "f", "0", "fee in the asset currency")
	f.StringVar(&c.currency, "c", "", "asset currency")
}

func (c *recordCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := c.activity()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	return AppendActivity(a)
}

func (c *recordCmd) activity() (portfolio.Activity, error) {
	on, err := portfolio.ParseDate(c.date)
	if err != nil {
		return portfolio.Activity{}, err
	}
	typ, err := portfolio.ParseActivityType(c.typ)
	if err != nil {
		return portfolio.Activity{}, err
	}
	symbol, err := portfolio.ParseSymbolID(c.symbol)
	if err != nil {
		return portfolio.Activity{}, err
	}
	quantity, err := decimal.NewFromString(c.quantity)
	if err != nil {
		return portfolio.Activity{}, fmt.Errorf("invalid quantity %q: %w", c.quantity, err)
	}
	price, err := decimal.NewFromString(c.price)
	if err != nil {
		return portfolio.Activity{}, fmt.Errorf("invalid price %q: %w", c.price, err)
	}
	fee, err := decimal.NewFromString(c.fee)
	if err != nil {
		return portfolio.Activity{}, fmt.Errorf("invalid fee %q: %w", c.fee, err)
	}
	if c.currency == "" {
		return portfolio.Activity{}, fmt.Errorf("currency is required")
	}
	return portfolio.NewActivity(on, typ, symbol,
		portfolio.Q(quantity),
		portfolio.M(price, c.currency),
		portfolio.M(fee, c.currency))
}
