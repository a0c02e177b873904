package portfolio

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// QuoteResolver supplies historical market prices. Implementations must be
// batch oriented: one call covers every requested symbol over the whole
// range, so network round-trips stay bounded. A missing date is not an
// error; the returned history simply has no entry for it.
type QuoteResolver interface {
	ResolveQuotes(ctx context.Context, ids []SymbolID, rng Range) (map[SymbolID]*History[decimal.Decimal], error)
}

// RateConverter supplies historical currency conversion factors.
// Rate must return exactly 1 when from equals to.
type RateConverter interface {
	Rate(ctx context.Context, from, to string, on Date) (decimal.Decimal, error)
}

// ErrNoRate reports a missing exchange rate for a currency pair on a date.
type ErrNoRate struct {
	From, To string
	On       Date
}

func (e ErrNoRate) Error() string {
	return fmt.Sprintf("no exchange rate for %s/%s as of %s", e.From, e.To, e.On)
}

// MarketData is an in-memory quote and exchange-rate repository implementing
// both collaborator interfaces. It backs tests and the file-based CLI; live
// deployments plug network providers instead.
type MarketData struct {
	prices map[SymbolID]*History[decimal.Decimal]
	forex  map[string]*History[decimal.Decimal] // keyed by "FROMTO", e.g. "USDCHF"
}

// NewMarketData creates an empty market data repository.
func NewMarketData() *MarketData {
	return &MarketData{
		prices: make(map[SymbolID]*History[decimal.Decimal]),
		forex:  make(map[string]*History[decimal.Decimal]),
	}
}

// AddPrice records the market price of a symbol on a date.
func (m *MarketData) AddPrice(id SymbolID, on Date, price decimal.Decimal) *MarketData {
	h, ok := m.prices[id]
	if !ok {
		h = &History[decimal.Decimal]{}
		m.prices[id] = h
	}
	h.Append(on, price)
	return m
}

// AddRate records the conversion factor from one currency to another on a
// date: one unit of 'from' is worth rate units of 'to'.
func (m *MarketData) AddRate(from, to string, on Date, rate decimal.Decimal) *MarketData {
	key := from + to
	h, ok := m.forex[key]
	if !ok {
		h = &History[decimal.Decimal]{}
		m.forex[key] = h
	}
	h.Append(on, rate)
	return m
}

// ResolveQuotes implements QuoteResolver. Symbols without any price data are
// absent from the result, which the engine treats as "no data available",
// not as a fatal error.
func (m *MarketData) ResolveQuotes(_ context.Context, ids []SymbolID, rng Range) (map[SymbolID]*History[decimal.Decimal], error) {
	out := make(map[SymbolID]*History[decimal.Decimal], len(ids))
	for _, id := range ids {
		h, ok := m.prices[id]
		if !ok {
			continue
		}
		filtered := &History[decimal.Decimal]{}
		for on, price := range h.Values() {
			if rng.Contains(on) {
				filtered.Append(on, price)
			}
		}
		// The last quote before the range seeds the first valuation days.
		if v, ok := h.ValueAsOf(rng.From); ok && filtered.Len() == 0 {
			filtered.Append(rng.From, v)
		}
		out[id] = filtered
	}
	return out, nil
}

// Rate implements RateConverter. It returns exactly 1 for identical
// currencies, the last known factor on or before the date for the direct
// pair, or the inverse of the reciprocal pair when only that one is known.
func (m *MarketData) Rate(_ context.Context, from, to string, on Date) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	if h, ok := m.forex[from+to]; ok {
		if rate, ok := h.ValueAsOf(on); ok {
			return rate, nil
		}
	}
	if h, ok := m.forex[to+from]; ok {
		if inverse, ok := h.ValueAsOf(on); ok && !inverse.IsZero() {
			return decimal.NewFromInt(1).Div(inverse), nil
		}
	}
	return decimal.Decimal{}, ErrNoRate{From: from, To: to, On: on}
}

var _ QuoteResolver = (*MarketData)(nil)
var _ RateConverter = (*MarketData)(nil)
