package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/finbook/portfolio"
	"github.com/finbook/portfolio/quoteapi"
)

type updateCmd struct {
	from string
}

func (*updateCmd) Name() string { return "update" }
func (*updateCmd) Synopsis() string {
	return "fetch market prices and exchange rates from the configured providers"
}
func (*updateCmd) Usage() string {
	return `pfc update [-from <date>]

  Fetches historical prices for every symbol in the ledger, and exchange
  rates for every foreign activity currency, from the quote endpoints in the
  config file. New observations are merged into the market data file; a
  symbol whose provider fails is skipped with a warning.

Configuration (.pfc yaml):
  quote-endpoints:
    YAHOO:
      url: https://query1.finance.example.com/v8/chart/{symbol}?period1={start}&period2={end}
      rows: $.chart.result[0].quotes
      date: $.date
      price: $.close
  forex-endpoint:
    url: https://fx.example.com/series?pair={from}{to}
    rows: $.rates
    date: $.date
    price: $.rate

`
}

func (c *updateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.from, "from", "", "start of the range to fetch, defaults to the first activity date")
}

func (c *updateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ledger, err := DecodeLedgerFile()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	if ledger.Len() == 0 {
		fmt.Println("Ledger is empty, nothing to update.")
		return subcommands.ExitSuccess
	}
	market, err := DecodeMarketFile()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading market data: %v\n", err)
		return subcommands.ExitFailure
	}

	endpoints, forex, err := quoteEndpoints()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	from := ledger.FirstActivityDate()
	if c.from != "" {
		if from, err = portfolio.ParseDate(c.from); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitUsageError
		}
	}
	rng := portfolio.NewRange(from, portfolio.Today())

	log := Logger()
	provider := quoteapi.New(endpoints, forex, log)
	quotes, err := provider.ResolveQuotes(ctx, ledger.Symbols(), rng)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching quotes: %v\n", err)
		return subcommands.ExitFailure
	}

	base := viper.GetString("base-currency")
	rates := make(map[string]*portfolio.History[decimal.Decimal])
	for _, currency := range activityCurrencies(ledger, base) {
		h, err := provider.Rates(ctx, currency, base, rng)
		if err != nil {
			log.Warn().Err(err).Str("currency", currency).Msg("rate fetch failed")
			continue
		}
		rates[currency] = h
	}

	n := mergeMarketData(market, quotes, rates, base)

	filename := viper.GetString("market-file")
	f, err := os.Create(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening market data file %q: %v\n", filename, err)
		return subcommands.ExitFailure
	}
	defer f.Close()
	if err := portfolio.EncodeMarketData(f, market); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing market data file %q: %v\n", filename, err)
		return subcommands.ExitFailure
	}

	fmt.Printf("Merged %d observations into %s\n", n, filename)
	return subcommands.ExitSuccess
}

// quoteEndpoints loads the provider configuration.
func quoteEndpoints() (map[string]quoteapi.Endpoint, quoteapi.Endpoint, error) {
	var endpoints map[string]quoteapi.Endpoint
	if err := viper.UnmarshalKey("quote-endpoints", &endpoints); err != nil {
		return nil, quoteapi.Endpoint{}, fmt.Errorf("invalid quote-endpoints configuration: %w", err)
	}
	if len(endpoints) == 0 {
		return nil, quoteapi.Endpoint{}, fmt.Errorf("no quote-endpoints configured, see 'pfc help update'")
	}
	var forex quoteapi.Endpoint
	if err := viper.UnmarshalKey("forex-endpoint", &forex); err != nil {
		return nil, quoteapi.Endpoint{}, fmt.Errorf("invalid forex-endpoint configuration: %w", err)
	}
	return endpoints, forex, nil
}

// activityCurrencies returns the distinct non-base currencies of the ledger,
// in first-appearance order.
func activityCurrencies(ledger *portfolio.Ledger, base string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, a := range ledger.Activities() {
		if c := a.Currency(); c != base && !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// mergeMarketData adds the fetched series to the repository and returns the
// number of observations merged.
func mergeMarketData(m *portfolio.MarketData, quotes map[portfolio.SymbolID]*portfolio.History[decimal.Decimal], rates map[string]*portfolio.History[decimal.Decimal], base string) int {
	n := 0
	for id, h := range quotes {
		for on, price := range h.Values() {
			m.AddPrice(id, on, price)
			n++
		}
	}
	for currency, h := range rates {
		for on, rate := range h.Values() {
			m.AddRate(currency, base, on, rate)
			n++
		}
	}
	return n
}
