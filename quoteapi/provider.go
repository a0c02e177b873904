package quoteapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/PaesslerAG/jsonpath"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/finbook/portfolio"
)

// Endpoint describes how to fetch one data source's historical series: a URL
// template and jsonpath expressions locating the rows and their fields.
//
// The URL template expands {symbol}, {from}, {to}, {start} and {end}. Rows
// must select a JSON array; Date and Price are evaluated against each row.
type Endpoint struct {
	URL   string
	Rows  string // e.g. "$.chart.result[0].indicators.quote"
	Date  string // e.g. "$.date", a "2006-01-02" string or a unix epoch
	Price string // e.g. "$.close", a number or a numeric string
}

// Provider resolves quotes and exchange rates from JSON HTTP endpoints. It
// implements both collaborator interfaces of the calculation engine. Fetched
// responses are cached on disk for the day, so repeated snapshot runs stay
// cheap.
type Provider struct {
	client    *http.Client
	endpoints map[string]Endpoint // keyed by symbol source
	forex     Endpoint
	log       zerolog.Logger

	mu    sync.Mutex
	rates map[string]*portfolio.History[decimal.Decimal] // fetched pairs, keyed "FROMTO"
}

// New creates a provider with per-source quote endpoints and one forex
// endpoint.
func New(endpoints map[string]Endpoint, forex Endpoint, log zerolog.Logger) *Provider {
	return &Provider{
		client:    daily(log),
		endpoints: endpoints,
		forex:     forex,
		log:       log,
		rates:     make(map[string]*portfolio.History[decimal.Decimal]),
	}
}

// ResolveQuotes implements portfolio.QuoteResolver. Symbols whose source has
// no configured endpoint, or whose fetch fails, are absent from the result;
// the engine degrades them instead of failing the snapshot.
func (p *Provider) ResolveQuotes(ctx context.Context, ids []portfolio.SymbolID, rng portfolio.Range) (map[portfolio.SymbolID]*portfolio.History[decimal.Decimal], error) {
	out := make(map[portfolio.SymbolID]*portfolio.History[decimal.Decimal], len(ids))
	for _, id := range ids {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		ep, ok := p.endpoints[id.Source]
		if !ok {
			p.log.Warn().Stringer("symbol", id).Msg("no endpoint for source")
			continue
		}
		h, err := p.fetchSeries(ctx, ep, map[string]string{"symbol": id.Symbol}, rng)
		if err != nil {
			p.log.Warn().Err(err).Stringer("symbol", id).Msg("quote fetch failed")
			continue
		}
		out[id] = h
	}
	return out, nil
}

// Rate implements portfolio.RateConverter. Each currency pair is fetched at
// most once per process and probed with as-of semantics.
func (p *Provider) Rate(ctx context.Context, from, to string, on portfolio.Date) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}

	h, err := p.pairSeries(ctx, from, to)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if rate, ok := h.ValueAsOf(on); ok {
		return rate, nil
	}
	return decimal.Decimal{}, portfolio.ErrNoRate{From: from, To: to, On: on}
}

// Rates returns the exchange-rate series of a currency pair clipped to a
// range. It backs the CLI's market data file updates.
func (p *Provider) Rates(ctx context.Context, from, to string, rng portfolio.Range) (*portfolio.History[decimal.Decimal], error) {
	if from == to {
		return nil, fmt.Errorf("no rate series for identical currencies %q", from)
	}

	h, err := p.pairSeries(ctx, from, to)
	if err != nil {
		return nil, err
	}
	out := &portfolio.History[decimal.Decimal]{}
	for on, rate := range h.Values() {
		if rng.Contains(on) {
			out.Append(on, rate)
		}
	}
	return out, nil
}

// pairSeries fetches a pair's whole history, at most once per process.
func (p *Provider) pairSeries(ctx context.Context, from, to string) (*portfolio.History[decimal.Decimal], error) {
	p.mu.Lock()
	h, ok := p.rates[from+to]
	p.mu.Unlock()
	if ok {
		return h, nil
	}

	h, err := p.fetchSeries(ctx, p.forex, map[string]string{"from": from, "to": to}, portfolio.Range{})
	if err != nil {
		return nil, fmt.Errorf("fetching %s/%s rates: %w", from, to, err)
	}
	p.mu.Lock()
	p.rates[from+to] = h
	p.mu.Unlock()
	return h, nil
}

func (p *Provider) fetchSeries(ctx context.Context, ep Endpoint, vars map[string]string, rng portfolio.Range) (*portfolio.History[decimal.Decimal], error) {
	addr := ep.URL
	vars["start"] = rng.From.String()
	vars["end"] = rng.To.String()
	for k, v := range vars {
		addr = strings.ReplaceAll(addr, "{"+k+"}", url.QueryEscape(v))
	}

	var jobj any
	if err := jwget(ctx, p.client, addr, &jobj); err != nil {
		return nil, err
	}

	jrows, err := jsonpath.Get(ep.Rows, jobj)
	if err != nil {
		return nil, fmt.Errorf("jsonpath %q: %w", ep.Rows, err)
	}
	rows, ok := jrows.([]any)
	if !ok {
		return nil, fmt.Errorf("jsonpath %q: not a list", ep.Rows)
	}

	h := &portfolio.History[decimal.Decimal]{}
	for _, row := range rows {
		on, err := rowDate(ep.Date, row)
		if err != nil {
			return nil, err
		}
		price, err := rowPrice(ep.Price, row)
		if err != nil {
			return nil, err
		}
		if !rng.From.IsZero() && !rng.Contains(on) {
			continue
		}
		h.Append(on, price)
	}
	return h, nil
}

func rowDate(path string, row any) (portfolio.Date, error) {
	jval, err := jsonpath.Get(path, row)
	if err != nil {
		return portfolio.Date{}, fmt.Errorf("jsonpath %q: %w", path, err)
	}
	switch v := jval.(type) {
	case string:
		return portfolio.ParseDate(v)
	case float64:
		// unix epoch seconds
		return portfolio.DateOfUnix(int64(v)), nil
	default:
		return portfolio.Date{}, fmt.Errorf("jsonpath %q: %v is neither a date string nor an epoch", path, jval)
	}
}

func rowPrice(path string, row any) (decimal.Decimal, error) {
	jval, err := jsonpath.Get(path, row)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("jsonpath %q: %w", path, err)
	}
	// jsonpath is never clear about whether it returns a list of one answer
	// or a single answer; keep the first one if any.
	if jlist, ok := jval.([]any); ok && len(jlist) > 0 {
		jval = jlist[0]
	}
	switch v := jval.(type) {
	case float64:
		return decimal.NewFromFloat(v), nil
	case string:
		// some APIs return numbers as localized strings
		v = strings.ReplaceAll(v, ",", ".")
		v = strings.ReplaceAll(v, " ", "")
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("jsonpath %q: invalid numeric string %q: %w", path, v, err)
		}
		return decimal.NewFromFloat(f), nil
	default:
		return decimal.Decimal{}, fmt.Errorf("jsonpath %q: %v is not a number", path, jval)
	}
}

var _ portfolio.QuoteResolver = (*Provider)(nil)
var _ portfolio.RateConverter = (*Provider)(nil)
