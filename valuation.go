package portfolio

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ValuationPoint is one dated row of a valuation timeline. Every figure
// exists twice: in the asset currency ("no currency effect") and in the base
// currency with each cash flow converted at its own historical exchange rate
// ("with currency effect"). The difference between the two is the FX
// contribution; they are exposed separately, never blended.
type ValuationPoint struct {
	On Date

	Value                   Money // quantity times market price, asset currency
	ValueWithCurrencyEffect Money

	NetFlow                   Money // that day's buys minus sells, at cost
	NetFlowWithCurrencyEffect Money

	Investment                   Money // running cost basis
	InvestmentWithCurrencyEffect Money

	Fees                   Money // cumulative
	FeesWithCurrencyEffect Money

	Liabilities                   Money // cumulative
	LiabilitiesWithCurrencyEffect Money
	Valuables                     Money // cumulative
	ValuablesWithCurrencyEffect   Money

	GrossPerformance                   Money
	GrossPerformanceWithCurrencyEffect Money
	NetPerformance                     Money
	NetPerformanceWithCurrencyEffect   Money
}

// PositionSnapshot is the fully valued state of one symbol at the snapshot's
// evaluation date. It is created by the valuation engine and never mutated
// afterwards; a recalculation rebuilds it wholesale.
//
// Pointer fields are nil when the symbol has no resolvable market price
// (missing-quote degradation): the position then contributes to the
// portfolio's HasErrors flag but never aborts the snapshot.
type PositionSnapshot struct {
	Symbol   SymbolID
	Currency string

	Quantity     Quantity
	AveragePrice Money

	Investment                   Money // asset currency
	InvestmentWithCurrencyEffect Money // base currency, flows at historical rates

	MarketPrice               *Money
	MarketPriceInBaseCurrency *Money
	Value                     Money
	ValueInBaseCurrency       Money

	Fee                           Money
	FeeWithCurrencyEffect         Money
	Dividend                      Money
	DividendWithCurrencyEffect    Money
	Interest                      Money
	InterestWithCurrencyEffect    Money
	Liabilities                   Money
	LiabilitiesWithCurrencyEffect Money
	Valuables                     Money
	ValuablesWithCurrencyEffect   Money

	GrossPerformance                             *Money
	GrossPerformancePercentage                   *Percent
	GrossPerformanceWithCurrencyEffect           *Money
	GrossPerformancePercentageWithCurrencyEffect *Percent
	NetPerformance                               *Money
	NetPerformancePercentage                     *Percent
	NetPerformanceWithCurrencyEffect             *Money
	NetPerformancePercentageWithCurrencyEffect   *Percent

	// Per reporting window, re-anchored to the window's start date.
	NetPerformanceWithCurrencyEffectMap           map[Window]Money
	NetPerformancePercentageWithCurrencyEffectMap map[Window]Percent

	TimeWeightedInvestment                   Money
	TimeWeightedInvestmentWithCurrencyEffect Money

	TransactionCount  int
	FirstActivity     Date
	MarketDataMissing bool // error flag: no resolvable market price

	// anchorRate converts asset-currency figures at the first activity
	// date's exchange rate, a fixed historical anchor for aggregating
	// "no currency effect" figures across currencies.
	anchorRate decimal.Decimal

	series []ValuationPoint
}

// Series returns the position's valuation timeline.
func (p *PositionSnapshot) Series() []ValuationPoint { return p.series }

// positionValuer walks one symbol's transaction points forward, combining
// them with resolved prices and rates.
type positionValuer struct {
	symbol   SymbolID
	base     string
	dates    []Date                   // transaction point dates for this symbol
	states   []TransactionPointSymbol // cumulative state per date, same index
	quotes   *History[decimal.Decimal]
	rates    RateConverter
	log      zerolog.Logger
	strategy ReturnStrategy
}

// value produces the position snapshot at the evaluation date.
func (v *positionValuer) value(ctx context.Context, end Date) (*PositionSnapshot, error) {
	if len(v.states) == 0 {
		return nil, fmt.Errorf("no transaction points for %s", v.symbol)
	}
	last := v.states[len(v.states)-1]
	currency := last.Currency
	first := v.states[0].FirstActivity

	snap := &PositionSnapshot{
		Symbol:           v.symbol,
		Currency:         currency,
		TransactionCount: last.TransactionCount,
		FirstActivity:    first,
		AveragePrice:     last.AveragePrice,
		anchorRate:       decimal.NewFromInt(1),
	}

	if rate, err := v.rates.Rate(ctx, currency, v.base, first); err == nil {
		snap.anchorRate = rate
	}

	noQuotes := v.quotes == nil || v.quotes.Len() == 0
	manual := last.ManualPrice && noQuotes
	if noQuotes && !manual {
		// No market data at all: degrade this symbol. Cash-like totals are
		// still converted so portfolio totals stay exact.
		snap.MarketDataMissing = true
		v.convertCashTotals(ctx, snap, last)
		return snap, nil
	}

	// The date axis is the union of the symbol's transaction point dates and
	// its quote dates, clipped to the evaluation window, plus the evaluation
	// date itself.
	var quoteDays []Date
	if v.quotes != nil {
		for on := range v.quotes.Values() {
			if !on.Before(first) && !on.After(end) {
				quoteDays = append(quoteDays, on)
			}
		}
	}
	var axis []Date
	for on := range iterate(v.dates, quoteDays, []Date{end}) {
		if !on.After(end) {
			axis = append(axis, on)
		}
	}

	one := decimal.NewFromInt(1)
	zeroAsset := M(0, currency)
	zeroBase := M(0, v.base)

	// Base-currency accumulators: each flow converted at its own date.
	invBase, realizedBase := zeroBase, zeroBase
	feeBase, divBase, intBase := zeroBase, zeroBase, zeroBase
	liabBase, valuBase := zeroBase, zeroBase

	var series []ValuationPoint
	next := 0 // next transaction point to consume
	// State of the last consumed transaction point.
	state := TransactionPointSymbol{Investment: zeroAsset, Fee: zeroAsset, RealizedGain: zeroAsset}

	for _, on := range axis {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		netFlowAsset, netFlowBase := zeroAsset, zeroBase
		for next < len(v.dates) && !v.dates[next].After(on) {
			prev := state
			state = v.states[next]
			f := state.Flows
			rate, err := v.rates.Rate(ctx, currency, v.base, v.dates[next])
			if err != nil {
				v.log.Warn().Err(err).Stringer("symbol", v.symbol).Msg("degrading position: unresolved exchange rate")
				snap.MarketDataMissing = true
				v.convertCashTotals(ctx, snap, last)
				return snap, nil
			}
			next++

			// Buys add cost at that day's rate.
			invBase = invBase.Add(f.BuyCost.Convert(rate, v.base))
			// Sells remove cost proportionally, mirroring the average-cost
			// reduction done in the asset currency by the point builder.
			if !f.SoldQuantity.IsZero() {
				var costRemovedBase Money
				switch {
				case prev.Quantity.IsZero():
					costRemovedBase = zeroBase
				case prev.Quantity.Equal(f.SoldQuantity):
					costRemovedBase = invBase
				default:
					costRemovedBase = invBase.Mul(f.SoldQuantity).Div(prev.Quantity)
				}
				realizedBase = realizedBase.Add(f.SellProceeds.Convert(rate, v.base).Sub(costRemovedBase))
				invBase = invBase.Sub(costRemovedBase)
			}
			feeBase = feeBase.Add(f.Fee.Convert(rate, v.base))
			divBase = divBase.Add(f.Dividend.Convert(rate, v.base))
			intBase = intBase.Add(f.Interest.Convert(rate, v.base))
			liabBase = liabBase.Add(f.Liability.Convert(rate, v.base))
			valuBase = valuBase.Add(f.Valuable.Convert(rate, v.base))

			netFlowAsset = netFlowAsset.Add(f.BuyCost).Sub(f.SellProceeds)
			netFlowBase = netFlowBase.Add(f.BuyCost.Convert(rate, v.base)).Sub(f.SellProceeds.Convert(rate, v.base))
		}

		price, priceKnown := decimal.Decimal{}, false
		if v.quotes != nil {
			price, priceKnown = v.quotes.ValueAsOf(on)
		}
		switch {
		case priceKnown:
			// use the quoted price
		case state.ManualPrice:
			price = state.AveragePrice.Amount() // manually priced asset
		case !state.Quantity.IsZero():
			price = state.AveragePrice.Amount() // no quote yet: valued at cost
		}

		rate := one
		if currency != v.base {
			var err error
			rate, err = v.rates.Rate(ctx, currency, v.base, on)
			if err != nil {
				v.log.Warn().Err(err).Stringer("symbol", v.symbol).Msg("degrading position: unresolved exchange rate")
				snap.MarketDataMissing = true
				v.convertCashTotals(ctx, snap, last)
				return snap, nil
			}
		}

		value := M(price, currency).Mul(state.Quantity)
		valueBase := value.Convert(rate, v.base)
		gross := value.Sub(state.Investment).Add(state.RealizedGain)
		grossBase := valueBase.Sub(invBase).Add(realizedBase)
		net := gross.Sub(state.Fee).Sub(state.Liabilities)
		netBase := grossBase.Sub(feeBase).Sub(liabBase)

		series = append(series, ValuationPoint{
			On:                                 on,
			Value:                              value,
			ValueWithCurrencyEffect:            valueBase,
			NetFlow:                            netFlowAsset,
			NetFlowWithCurrencyEffect:          netFlowBase,
			Investment:                         state.Investment,
			InvestmentWithCurrencyEffect:       invBase,
			Fees:                               state.Fee,
			FeesWithCurrencyEffect:             feeBase,
			Liabilities:                        state.Liabilities,
			LiabilitiesWithCurrencyEffect:      liabBase,
			Valuables:                          state.Valuables,
			ValuablesWithCurrencyEffect:        valuBase,
			GrossPerformance:                   gross,
			GrossPerformanceWithCurrencyEffect: grossBase,
			NetPerformance:                     net,
			NetPerformanceWithCurrencyEffect:   netBase,
		})
	}

	final := series[len(series)-1]
	snap.series = series
	snap.Quantity = last.Quantity
	snap.Investment = last.Investment
	snap.InvestmentWithCurrencyEffect = final.InvestmentWithCurrencyEffect
	snap.Value = final.Value
	snap.ValueInBaseCurrency = final.ValueWithCurrencyEffect
	snap.Fee = last.Fee
	snap.FeeWithCurrencyEffect = feeBase
	snap.Dividend = last.Dividend
	snap.DividendWithCurrencyEffect = divBase
	snap.Interest = last.Interest
	snap.InterestWithCurrencyEffect = intBase
	snap.Liabilities = last.Liabilities
	snap.LiabilitiesWithCurrencyEffect = liabBase
	snap.Valuables = last.Valuables
	snap.ValuablesWithCurrencyEffect = valuBase

	if price, ok := lastQuote(v.quotes, end); ok {
		mp := M(price, currency)
		snap.MarketPrice = &mp
		if rate, err := v.rates.Rate(ctx, currency, v.base, end); err == nil {
			mpb := mp.Convert(rate, v.base)
			snap.MarketPriceInBaseCurrency = &mpb
		}
	} else if manual {
		mp := last.AveragePrice
		snap.MarketPrice = &mp
	}

	snap.TimeWeightedInvestment = timeWeightedInvestment(series, first, end, false)
	snap.TimeWeightedInvestmentWithCurrencyEffect = timeWeightedInvestment(series, first, end, true)

	figures := AbsoluteFigures{
		Gross:                                    final.GrossPerformance,
		Net:                                      final.NetPerformance,
		GrossWithCurrencyEffect:                  final.GrossPerformanceWithCurrencyEffect,
		NetWithCurrencyEffect:                    final.NetPerformanceWithCurrencyEffect,
		TimeWeightedInvestment:                   snap.TimeWeightedInvestment,
		TimeWeightedInvestmentWithCurrencyEffect: snap.TimeWeightedInvestmentWithCurrencyEffect,
		Series:                                   series,
	}
	pct := v.strategy.ComputeReturn(figures)

	snap.GrossPerformance = moneyPtr(final.GrossPerformance)
	snap.GrossPerformanceWithCurrencyEffect = moneyPtr(final.GrossPerformanceWithCurrencyEffect)
	snap.NetPerformance = moneyPtr(final.NetPerformance)
	snap.NetPerformanceWithCurrencyEffect = moneyPtr(final.NetPerformanceWithCurrencyEffect)
	snap.GrossPerformancePercentage = percentPtr(pct.Gross)
	snap.GrossPerformancePercentageWithCurrencyEffect = percentPtr(pct.GrossWithCurrencyEffect)
	snap.NetPerformancePercentage = percentPtr(pct.Net)
	snap.NetPerformancePercentageWithCurrencyEffect = percentPtr(pct.NetWithCurrencyEffect)

	snap.NetPerformanceWithCurrencyEffectMap = make(map[Window]Money)
	snap.NetPerformancePercentageWithCurrencyEffectMap = make(map[Window]Percent)
	for _, w := range Windows() {
		start, ok := w.Start(end, first)
		if !ok {
			continue // window with no elapsed history: absent, never a panic
		}
		windowNet := final.NetPerformanceWithCurrencyEffect.Sub(netAsOf(series, start))
		snap.NetPerformanceWithCurrencyEffectMap[w] = windowNet
		twi := timeWeightedInvestment(series, start, end, true)
		snap.NetPerformancePercentageWithCurrencyEffectMap[w] = dividePercent(windowNet, twi)
	}

	return snap, nil
}

// convertCashTotals fills the flow totals of a degraded position so that
// portfolio-wide fee, dividend, interest, liability and valuable totals stay
// exact even when the symbol has no market price. Performance fields stay
// nil; quantity, investment and value stay zero.
func (v *positionValuer) convertCashTotals(ctx context.Context, snap *PositionSnapshot, last TransactionPointSymbol) {
	currency := last.Currency
	zeroBase := M(0, v.base)
	snap.Fee, snap.FeeWithCurrencyEffect = last.Fee, zeroBase
	snap.Dividend, snap.DividendWithCurrencyEffect = last.Dividend, zeroBase
	snap.Interest, snap.InterestWithCurrencyEffect = last.Interest, zeroBase
	snap.Liabilities, snap.LiabilitiesWithCurrencyEffect = last.Liabilities, zeroBase
	snap.Valuables, snap.ValuablesWithCurrencyEffect = last.Valuables, zeroBase
	snap.Investment = M(0, currency)
	snap.Value = M(0, currency)
	snap.ValueInBaseCurrency = zeroBase
	snap.Quantity = Q(0)

	for i := range v.states {
		f := v.states[i].Flows
		rate, err := v.rates.Rate(ctx, currency, v.base, v.dates[i])
		if err != nil {
			v.log.Warn().Err(err).Stringer("symbol", v.symbol).Msg("flow conversion skipped: unresolved exchange rate")
			continue
		}
		snap.FeeWithCurrencyEffect = snap.FeeWithCurrencyEffect.Add(f.Fee.Convert(rate, v.base))
		snap.DividendWithCurrencyEffect = snap.DividendWithCurrencyEffect.Add(f.Dividend.Convert(rate, v.base))
		snap.InterestWithCurrencyEffect = snap.InterestWithCurrencyEffect.Add(f.Interest.Convert(rate, v.base))
		snap.LiabilitiesWithCurrencyEffect = snap.LiabilitiesWithCurrencyEffect.Add(f.Liability.Convert(rate, v.base))
		snap.ValuablesWithCurrencyEffect = snap.ValuablesWithCurrencyEffect.Add(f.Valuable.Convert(rate, v.base))
	}
}

// lastQuote returns the last known quote on or before 'on'.
func lastQuote(h *History[decimal.Decimal], on Date) (decimal.Decimal, bool) {
	if h == nil {
		return decimal.Decimal{}, false
	}
	return h.ValueAsOf(on)
}

// netAsOf returns the cumulative net performance (with currency effect) as
// of a date, or zero before the series starts.
func netAsOf(series []ValuationPoint, on Date) Money {
	var net Money
	for _, p := range series {
		if p.On.After(on) {
			break
		}
		net = p.NetPerformanceWithCurrencyEffect
	}
	return net
}

// timeWeightedInvestment computes the day-weighted average capital at risk
// over [from, to]: the denominator for percentage returns. It prevents
// percentages from being distorted by transactions that reduce the position
// to zero before the evaluation date.
func timeWeightedInvestment(series []ValuationPoint, from, to Date, withFx bool) Money {
	investment := func(p ValuationPoint) Money {
		if withFx {
			return p.InvestmentWithCurrencyEffect
		}
		return p.Investment
	}

	// Investment level as of 'from'.
	var level Money
	for _, p := range series {
		if p.On.After(from) {
			break
		}
		level = investment(p)
	}

	totalDays := from.Days(to)
	if totalDays <= 0 {
		return level
	}

	num := M(0, level.Currency())
	prev := from
	for _, p := range series {
		if !p.On.After(from) {
			continue
		}
		if p.On.After(to) {
			break
		}
		num = num.Add(level.Mul(Q(prev.Days(p.On))))
		prev = p.On
		level = investment(p)
	}
	num = num.Add(level.Mul(Q(prev.Days(to))))

	return num.Div(Q(totalDays))
}

// dividePercent derives a percentage from an absolute amount and its
// time-weighted investment denominator, zero when undefined.
func dividePercent(amount, twi Money) Percent {
	if twi.IsZero() {
		return Pct(0)
	}
	return PercentFromRatio(amount.Amount().Div(twi.Amount()))
}

func moneyPtr(m Money) *Money       { return &m }
func percentPtr(p Percent) *Percent { return &p }
