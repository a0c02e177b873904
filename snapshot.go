package portfolio

import (
	"context"
	"fmt"
	"runtime"
	"slices"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// HistoricalDataItem is one dated row of the portfolio's historical series.
type HistoricalDataItem struct {
	Date                                       Date
	NetPerformance                             Money
	NetPerformanceWithCurrencyEffect           Money
	NetPerformancePercentage                   Percent
	NetPerformancePercentageWithCurrencyEffect Percent
	TotalInvestment                            Money
	NetWorth                                   Money
}

// PortfolioSnapshot is the root result of one calculation: per-symbol
// position snapshots, portfolio totals in the base currency, a dated
// historical series, and the list of symbols whose valuation could not be
// completed. It is constructed once per computation request and effectively
// immutable afterwards.
type PortfolioSnapshot struct {
	Date         Date
	BaseCurrency string
	Method       CalculationMethod

	Positions []*PositionSnapshot

	TotalInvestment                    Money
	TotalFeesWithCurrencyEffect        Money
	TotalInterestWithCurrencyEffect    Money
	TotalDividendWithCurrencyEffect    Money
	TotalLiabilitiesWithCurrencyEffect Money
	TotalValuablesWithCurrencyEffect   Money
	CurrentValueInBaseCurrency         Money

	NetPerformanceWithCurrencyEffect           Money
	NetPerformancePercentageWithCurrencyEffect Percent

	HistoricalData []HistoricalDataItem

	Errors    []SymbolID // symbols whose valuation could not be completed
	HasErrors bool
}

// Position returns the snapshot of one symbol.
func (s *PortfolioSnapshot) Position(id SymbolID) (*PositionSnapshot, bool) {
	for _, p := range s.Positions {
		if p.Symbol == id {
			return p, true
		}
	}
	return nil, false
}

// Engine computes portfolio snapshots. It owns no shared mutable state:
// every computation builds its own transaction points and position
// snapshots, so concurrent calculation requests never interfere. Caching of
// results belongs to an external collaborator, keyed on the exact
// combination of ledger filter, base currency and calculation method.
type Engine struct {
	ledger      *Ledger
	quotes      QuoteResolver
	rates       RateConverter
	base        string
	strategy    ReturnStrategy
	log         zerolog.Logger
	parallelism int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for invariant-violation reporting.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithParallelism bounds the number of symbols valued concurrently.
func WithParallelism(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.parallelism = n
		}
	}
}

// NewEngine creates a calculation engine. The base currency is the single
// currency in which portfolio-wide totals are reported.
func NewEngine(ledger *Ledger, quotes QuoteResolver, rates RateConverter, base string, method CalculationMethod, opts ...Option) (*Engine, error) {
	if ledger == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	if base == "" {
		return nil, fmt.Errorf("base currency is required")
	}
	strategy, err := NewReturnStrategy(method)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		ledger:      ledger,
		quotes:      quotes,
		rates:       rates,
		base:        base,
		strategy:    strategy,
		log:         zerolog.Nop(),
		parallelism: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// ComputeSnapshot values the whole portfolio as of the evaluation date.
//
// Valuation across distinct symbols is independent, so it fans out per
// symbol and fans back in here. A symbol whose market data cannot be
// resolved is recorded in Errors and degraded to null performance; it never
// aborts the rest of the snapshot.
func (e *Engine) ComputeSnapshot(ctx context.Context, end Date) (*PortfolioSnapshot, error) {
	snapshot := &PortfolioSnapshot{
		Date:         end,
		BaseCurrency: e.base,
		Method:       e.strategy.Method(),

		TotalInvestment:                    M(0, e.base),
		TotalFeesWithCurrencyEffect:        M(0, e.base),
		TotalInterestWithCurrencyEffect:    M(0, e.base),
		TotalDividendWithCurrencyEffect:    M(0, e.base),
		TotalLiabilitiesWithCurrencyEffect: M(0, e.base),
		TotalValuablesWithCurrencyEffect:   M(0, e.base),
		CurrentValueInBaseCurrency:         M(0, e.base),
		NetPerformanceWithCurrencyEffect:   M(0, e.base),
	}

	points := BuildTransactionPoints(e.ledger, e.log)
	if len(points) == 0 {
		return snapshot, nil
	}

	symbols := e.ledger.Symbols()
	first := e.ledger.FirstActivityDate()

	// One batched resolver call for all symbols over the whole range bounds
	// the external round-trips. A resolver failure degrades every symbol,
	// never the computation.
	quotes, err := e.resolveQuotes(ctx, symbols, NewRange(first, end))
	if err != nil {
		e.log.Warn().Err(err).Msg("quote resolution failed: valuing portfolio without market data")
		quotes = nil
	}

	// Fan out valuation per symbol, fan back in below.
	results := make([]*PositionSnapshot, len(symbols))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)
	for i, id := range symbols {
		g.Go(func() error {
			dates, states := statesFor(points, id)
			v := &positionValuer{
				symbol:   id,
				base:     e.base,
				dates:    dates,
				states:   states,
				quotes:   quotes[id],
				rates:    e.rates,
				log:      e.log,
				strategy: e.strategy,
			}
			snap, err := v.value(gctx, end)
			if err != nil {
				return fmt.Errorf("valuing %s: %w", id, err)
			}
			results[i] = snap
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snapshot.Positions = results
	for _, p := range results {
		if p.MarketDataMissing {
			snapshot.Errors = append(snapshot.Errors, p.Symbol)
		}
		snapshot.TotalInvestment = snapshot.TotalInvestment.Add(p.InvestmentWithCurrencyEffect)
		snapshot.TotalFeesWithCurrencyEffect = snapshot.TotalFeesWithCurrencyEffect.Add(p.FeeWithCurrencyEffect)
		snapshot.TotalInterestWithCurrencyEffect = snapshot.TotalInterestWithCurrencyEffect.Add(p.InterestWithCurrencyEffect)
		snapshot.TotalDividendWithCurrencyEffect = snapshot.TotalDividendWithCurrencyEffect.Add(p.DividendWithCurrencyEffect)
		snapshot.TotalLiabilitiesWithCurrencyEffect = snapshot.TotalLiabilitiesWithCurrencyEffect.Add(p.LiabilitiesWithCurrencyEffect)
		snapshot.TotalValuablesWithCurrencyEffect = snapshot.TotalValuablesWithCurrencyEffect.Add(p.ValuablesWithCurrencyEffect)
		snapshot.CurrentValueInBaseCurrency = snapshot.CurrentValueInBaseCurrency.Add(p.ValueInBaseCurrency)
		if p.NetPerformanceWithCurrencyEffect != nil {
			snapshot.NetPerformanceWithCurrencyEffect = snapshot.NetPerformanceWithCurrencyEffect.Add(*p.NetPerformanceWithCurrencyEffect)
		}
	}
	snapshot.HasErrors = len(snapshot.Errors) > 0

	snapshot.HistoricalData = e.assembleHistory(results)
	if n := len(snapshot.HistoricalData); n > 0 {
		snapshot.NetPerformancePercentageWithCurrencyEffect = snapshot.HistoricalData[n-1].NetPerformancePercentageWithCurrencyEffect
	}

	return snapshot, nil
}

func (e *Engine) resolveQuotes(ctx context.Context, ids []SymbolID, rng Range) (map[SymbolID]*History[decimal.Decimal], error) {
	if e.quotes == nil {
		return nil, nil
	}
	return e.quotes.ResolveQuotes(ctx, ids, rng)
}

// statesFor extracts one symbol's dated state sequence from the transaction
// points, keeping only the dates where the symbol had activity.
func statesFor(points []TransactionPoint, id SymbolID) (dates []Date, states []TransactionPointSymbol) {
	var lastCount int
	for _, tp := range points {
		s, ok := tp.Item(id)
		if !ok || s.TransactionCount == lastCount {
			continue
		}
		lastCount = s.TransactionCount
		dates = append(dates, tp.Date)
		states = append(states, s)
	}
	return dates, states
}

// assembleHistory merges the per-position valuation timelines into the
// portfolio-wide historical series, one row per date any position was
// evaluated on, and derives the percentage column with the configured
// return methodology.
func (e *Engine) assembleHistory(positions []*PositionSnapshot) []HistoricalDataItem {
	var series [][]ValuationPoint
	var anchors []decimal.Decimal
	var axes [][]Date
	for _, p := range positions {
		if len(p.Series()) == 0 {
			continue
		}
		s := p.Series()
		series = append(series, s)
		anchors = append(anchors, p.anchorRate)
		days := make([]Date, len(s))
		for i, vp := range s {
			days[i] = vp.On
		}
		axes = append(axes, days)
	}
	if len(series) == 0 {
		return nil
	}

	var merged []ValuationPoint
	indexes := make([]int, len(series))
	for on := range iterate(axes...) {
		row := ValuationPoint{On: on}
		for i, s := range series {
			for indexes[i]+1 < len(s) && !s[indexes[i]+1].On.After(on) {
				indexes[i]++
			}
			p := s[indexes[i]]
			if p.On.After(on) {
				continue // this position does not exist yet
			}
			// "No currency effect" figures are anchored at each position's
			// inception exchange rate so they can be summed in one currency.
			anchor := anchors[i]
			row.Value = row.Value.Add(M(p.Value.Amount().Mul(anchor), e.base))
			row.ValueWithCurrencyEffect = row.ValueWithCurrencyEffect.Add(p.ValueWithCurrencyEffect)
			row.Investment = row.Investment.Add(M(p.Investment.Amount().Mul(anchor), e.base))
			row.InvestmentWithCurrencyEffect = row.InvestmentWithCurrencyEffect.Add(p.InvestmentWithCurrencyEffect)
			row.Fees = row.Fees.Add(M(p.Fees.Amount().Mul(anchor), e.base))
			row.FeesWithCurrencyEffect = row.FeesWithCurrencyEffect.Add(p.FeesWithCurrencyEffect)
			row.Liabilities = row.Liabilities.Add(M(p.Liabilities.Amount().Mul(anchor), e.base))
			row.LiabilitiesWithCurrencyEffect = row.LiabilitiesWithCurrencyEffect.Add(p.LiabilitiesWithCurrencyEffect)
			row.Valuables = row.Valuables.Add(M(p.Valuables.Amount().Mul(anchor), e.base))
			row.ValuablesWithCurrencyEffect = row.ValuablesWithCurrencyEffect.Add(p.ValuablesWithCurrencyEffect)
			row.NetPerformance = row.NetPerformance.Add(M(p.NetPerformance.Amount().Mul(anchor), e.base))
			row.NetPerformanceWithCurrencyEffect = row.NetPerformanceWithCurrencyEffect.Add(p.NetPerformanceWithCurrencyEffect)
			if s[indexes[i]].On == on {
				row.NetFlow = row.NetFlow.Add(M(p.NetFlow.Amount().Mul(anchor), e.base))
				row.NetFlowWithCurrencyEffect = row.NetFlowWithCurrencyEffect.Add(p.NetFlowWithCurrencyEffect)
			}
		}
		merged = append(merged, row)
	}

	items := make([]HistoricalDataItem, 0, len(merged))
	for i, row := range merged {
		prefix := merged[:i+1]
		item := HistoricalDataItem{
			Date:                             row.On,
			NetPerformance:                   row.NetPerformance,
			NetPerformanceWithCurrencyEffect: row.NetPerformanceWithCurrencyEffect,
			TotalInvestment:                  row.InvestmentWithCurrencyEffect,
			NetWorth:                         row.ValueWithCurrencyEffect.Add(row.ValuablesWithCurrencyEffect).Sub(row.LiabilitiesWithCurrencyEffect),
		}
		switch e.strategy.Method() {
		case MethodTWR:
			item.NetPerformancePercentage = chainLink(prefix, false, true)
			item.NetPerformancePercentageWithCurrencyEffect = chainLink(prefix, true, true)
		default:
			from, to := merged[0].On, row.On
			item.NetPerformancePercentage = dividePercent(row.NetPerformance, timeWeightedInvestment(prefix, from, to, false))
			item.NetPerformancePercentageWithCurrencyEffect = dividePercent(row.NetPerformanceWithCurrencyEffect, timeWeightedInvestment(prefix, from, to, true))
		}
		items = append(items, item)
	}

	// Guard against any merge irregularity: the series must be sorted.
	slices.SortFunc(items, func(a, b HistoricalDataItem) int { return a.Date.Compare(b.Date) })
	return items
}
