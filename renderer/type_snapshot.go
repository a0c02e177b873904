package renderer

import (
	"github.com/finbook/portfolio"
)

// snapshotView flattens a PortfolioSnapshot into template-friendly strings.
// Nullable performance figures render as "n/a" instead of a zero that would
// read as a real result.
type snapshotView struct {
	Date         string
	BaseCurrency string
	Method       string

	Positions []positionRow

	TotalInvestment  string
	TotalFees        string
	TotalInterest    string
	TotalDividend    string
	TotalLiabilities string
	TotalValuables   string
	CurrentValue     string
	NetPerformance   string
	NetPercentage    string

	History []historyRow

	Errors    []string
	HasErrors bool
}

type positionRow struct {
	Symbol       string
	Currency     string
	Quantity     string
	AveragePrice string
	MarketPrice  string
	Value        string
	NetPerf      string
	NetPct       string
	Degraded     bool
}

type historyRow struct {
	Date       string
	NetWorth   string
	Investment string
	NetPerf    string
	NetPct     string
}

const notAvailable = "n/a"

func newSnapshotView(s *portfolio.PortfolioSnapshot) *snapshotView {
	v := &snapshotView{
		Date:         s.Date.String(),
		BaseCurrency: s.BaseCurrency,
		Method:       string(s.Method),

		TotalInvestment:  s.TotalInvestment.String(),
		TotalFees:        s.TotalFeesWithCurrencyEffect.String(),
		TotalInterest:    s.TotalInterestWithCurrencyEffect.String(),
		TotalDividend:    s.TotalDividendWithCurrencyEffect.String(),
		TotalLiabilities: s.TotalLiabilitiesWithCurrencyEffect.String(),
		TotalValuables:   s.TotalValuablesWithCurrencyEffect.String(),
		CurrentValue:     s.CurrentValueInBaseCurrency.String(),
		NetPerformance:   s.NetPerformanceWithCurrencyEffect.SignedString(),
		NetPercentage:    s.NetPerformancePercentageWithCurrencyEffect.SignedString(),

		HasErrors: s.HasErrors,
	}
	for _, id := range s.Errors {
		v.Errors = append(v.Errors, id.String())
	}
	for _, p := range s.Positions {
		row := positionRow{
			Symbol:       p.Symbol.String(),
			Currency:     p.Currency,
			Quantity:     p.Quantity.String(),
			AveragePrice: p.AveragePrice.String(),
			MarketPrice:  notAvailable,
			Value:        p.ValueInBaseCurrency.String(),
			NetPerf:      notAvailable,
			NetPct:       notAvailable,
			Degraded:     p.MarketDataMissing,
		}
		if p.MarketPrice != nil {
			row.MarketPrice = p.MarketPrice.String()
		}
		if p.NetPerformanceWithCurrencyEffect != nil {
			row.NetPerf = p.NetPerformanceWithCurrencyEffect.SignedString()
		}
		if p.NetPerformancePercentageWithCurrencyEffect != nil {
			row.NetPct = p.NetPerformancePercentageWithCurrencyEffect.SignedString()
		}
		v.Positions = append(v.Positions, row)
	}
	for _, h := range s.HistoricalData {
		v.History = append(v.History, historyRow{
			Date:       h.Date.String(),
			NetWorth:   h.NetWorth.String(),
			Investment: h.TotalInvestment.String(),
			NetPerf:    h.NetPerformanceWithCurrencyEffect.SignedString(),
			NetPct:     h.NetPerformancePercentageWithCurrencyEffect.SignedString(),
		})
	}
	return v
}
