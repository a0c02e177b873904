package portfolio

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CalculationMethod selects the percentage-return methodology.
type CalculationMethod string

const (
	// MethodROAI divides the absolute performance by the time-weighted
	// average invested capital over the whole window, in a single division.
	MethodROAI CalculationMethod = "roai"
	// MethodTWR chain-links sub-period returns split at each cash flow,
	// neutralizing the effect of flow timing and size.
	MethodTWR CalculationMethod = "twr"
)

// ParseCalculationMethod parses a method name.
func ParseCalculationMethod(s string) (CalculationMethod, error) {
	switch m := CalculationMethod(s); m {
	case MethodROAI, MethodTWR:
		return m, nil
	default:
		return "", fmt.Errorf("unknown calculation method %q", s)
	}
}

// AbsoluteFigures carries the absolute performance of one position (or the
// whole portfolio) over an evaluation window, together with the valuation
// timeline the figures were derived from.
type AbsoluteFigures struct {
	Gross                   Money
	Net                     Money
	GrossWithCurrencyEffect Money
	NetWithCurrencyEffect   Money

	TimeWeightedInvestment                   Money
	TimeWeightedInvestmentWithCurrencyEffect Money

	Series []ValuationPoint
}

// PercentageFigures is the percentage counterpart of AbsoluteFigures.
type PercentageFigures struct {
	Gross                   Percent
	Net                     Percent
	GrossWithCurrencyEffect Percent
	NetWithCurrencyEffect   Percent
}

// ReturnStrategy derives percentage returns from absolute figures. The two
// implementations must agree on a position with a single inflow and no
// further activity; they diverge, predictably, on cash-flow-sensitive ones.
// Only this derivation step differs between methodologies.
type ReturnStrategy interface {
	Method() CalculationMethod
	ComputeReturn(f AbsoluteFigures) PercentageFigures
}

// NewReturnStrategy returns the strategy for a calculation method.
func NewReturnStrategy(m CalculationMethod) (ReturnStrategy, error) {
	switch m {
	case MethodROAI:
		return roaiStrategy{}, nil
	case MethodTWR:
		return twrStrategy{}, nil
	default:
		return nil, fmt.Errorf("unknown calculation method %q", m)
	}
}

// roaiStrategy implements Return on Average Investment: one division at the
// end of the window, no chaining. Simple, but sensitive to the size and
// timing of intermediate cash flows.
type roaiStrategy struct{}

func (roaiStrategy) Method() CalculationMethod { return MethodROAI }

func (roaiStrategy) ComputeReturn(f AbsoluteFigures) PercentageFigures {
	return PercentageFigures{
		Gross:                   dividePercent(f.Gross, f.TimeWeightedInvestment),
		Net:                     dividePercent(f.Net, f.TimeWeightedInvestment),
		GrossWithCurrencyEffect: dividePercent(f.GrossWithCurrencyEffect, f.TimeWeightedInvestmentWithCurrencyEffect),
		NetWithCurrencyEffect:   dividePercent(f.NetWithCurrencyEffect, f.TimeWeightedInvestmentWithCurrencyEffect),
	}
}

// twrStrategy implements the Time-Weighted Return: the window is partitioned
// at every cash-flow date, each sub-period return is
// (endValue - cashFlow) / startValue - 1 using only that sub-period's
// valuations, and the overall return is the geometric chain-link of all
// sub-period returns.
//
// The opening inflow serves as the first sub-period's starting value, which
// makes a single-inflow position return exactly (endValue - inflow) / inflow,
// identical to ROAI. A full exit closes the chain at the sell date: days with
// no capital at work contribute no sub-period.
type twrStrategy struct{}

func (twrStrategy) Method() CalculationMethod { return MethodTWR }

func (twrStrategy) ComputeReturn(f AbsoluteFigures) PercentageFigures {
	return PercentageFigures{
		Gross:                   chainLink(f.Series, false, false),
		Net:                     chainLink(f.Series, false, true),
		GrossWithCurrencyEffect: chainLink(f.Series, true, false),
		NetWithCurrencyEffect:   chainLink(f.Series, true, true),
	}
}

// chainLink computes the geometric chain of sub-period returns over a
// valuation timeline: each point's flow is stripped from its end value and
// the result divided by the previous end value. When the previous value is
// zero, the day's inflow itself is the starting value, covering the opening
// buy and any re-entry after a full exit. With net=true, values are taken
// net of cumulative fees, yielding the net TWR.
func chainLink(series []ValuationPoint, withFx, net bool) Percent {
	valueAt := func(p ValuationPoint) decimal.Decimal {
		var v, fees Money
		if withFx {
			v, fees = p.ValueWithCurrencyEffect, p.FeesWithCurrencyEffect
		} else {
			v, fees = p.Value, p.Fees
		}
		if net {
			return v.Amount().Sub(fees.Amount())
		}
		return v.Amount()
	}
	flowAt := func(p ValuationPoint) decimal.Decimal {
		if withFx {
			return p.NetFlowWithCurrencyEffect.Amount()
		}
		return p.NetFlow.Amount()
	}

	one := decimal.NewFromInt(1)
	factor := one
	prev := decimal.Decimal{}
	started := false
	for _, p := range series {
		end := valueAt(p)
		start, flow := prev, flowAt(p)
		if start.IsZero() {
			// The position (re)opens: the inflow is the starting value.
			start, flow = flow, decimal.Decimal{}
		}
		if !start.IsZero() {
			factor = factor.Mul(end.Sub(flow).Div(start))
			started = true
		}
		prev = end
	}
	if !started {
		return Pct(0)
	}
	return PercentFromRatio(factor.Sub(one))
}
