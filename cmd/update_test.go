package cmd

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/finbook/portfolio"
)

func TestQuoteEndpoints(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	viper.Set("quote-endpoints", map[string]any{
		"YAHOO": map[string]any{
			"url":   "https://example.com/{symbol}?from={start}&to={end}",
			"rows":  "$.data",
			"date":  "$.date",
			"price": "$.close",
		},
	})
	viper.Set("forex-endpoint", map[string]any{
		"url":   "https://example.com/fx?pair={from}{to}",
		"rows":  "$.rates",
		"date":  "$.date",
		"price": "$.rate",
	})

	endpoints, forex, err := quoteEndpoints()
	if err != nil {
		t.Fatal(err)
	}
	ep, ok := endpoints["YAHOO"]
	if !ok {
		t.Fatalf("missing YAHOO endpoint in %v", endpoints)
	}
	if ep.Rows != "$.data" {
		t.Errorf("rows: got %q", ep.Rows)
	}
	if forex.Price != "$.rate" {
		t.Errorf("forex price: got %q", forex.Price)
	}
}

func TestQuoteEndpoints_Unconfigured(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	if _, _, err := quoteEndpoints(); err == nil {
		t.Error("expected an error when no quote endpoint is configured")
	}
}

func TestActivityCurrencies(t *testing.T) {
	l := portfolio.NewLedger()
	for _, c := range []struct{ symbol, currency string }{
		{"YAHOO:AAPL", "USD"},
		{"YAHOO:SAP", "EUR"},
		{"YAHOO:NESN", "CHF"},
		{"YAHOO:MSFT", "USD"},
	} {
		id, err := portfolio.ParseSymbolID(c.symbol)
		if err != nil {
			t.Fatal(err)
		}
		a, err := portfolio.NewActivity(portfolio.MustParse("2024-01-10"), portfolio.ActivityBuy,
			id, portfolio.Q(1), portfolio.M(100, c.currency), portfolio.M(0, c.currency))
		if err != nil {
			t.Fatal(err)
		}
		if err := l.Append(a); err != nil {
			t.Fatal(err)
		}
	}

	got := activityCurrencies(l, "USD")
	want := []string{"EUR", "CHF"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
		}
	}
}

func TestMergeMarketData(t *testing.T) {
	m := portfolio.NewMarketData()
	id := portfolio.SymbolID{Source: "YAHOO", Symbol: "AAPL"}

	prices := &portfolio.History[decimal.Decimal]{}
	prices.Append(portfolio.MustParse("2024-01-10"), decimal.NewFromInt(100))
	prices.Append(portfolio.MustParse("2024-01-11"), decimal.NewFromInt(101))
	rates := &portfolio.History[decimal.Decimal]{}
	rates.Append(portfolio.MustParse("2024-01-10"), decimal.RequireFromString("0.9"))

	n := mergeMarketData(m,
		map[portfolio.SymbolID]*portfolio.History[decimal.Decimal]{id: prices},
		map[string]*portfolio.History[decimal.Decimal]{"USD": rates},
		"CHF")
	if n != 3 {
		t.Errorf("merged observations: got %d, want 3", n)
	}

	rate, err := m.Rate(context.Background(), "USD", "CHF", portfolio.MustParse("2024-01-15"))
	if err != nil {
		t.Fatal(err)
	}
	if !rate.Equal(decimal.RequireFromString("0.9")) {
		t.Errorf("merged rate: got %s", rate)
	}

	out, err := m.ResolveQuotes(context.Background(), []portfolio.SymbolID{id},
		portfolio.NewRange(portfolio.MustParse("2024-01-01"), portfolio.MustParse("2024-01-31")))
	if err != nil {
		t.Fatal(err)
	}
	if h := out[id]; h == nil || h.Len() != 2 {
		t.Errorf("merged prices: got %v", out)
	}
}
