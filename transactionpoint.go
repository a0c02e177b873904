package portfolio

import (
	"slices"

	"github.com/rs/zerolog"
)

// DayFlows aggregates the raw flows of the activities that define one
// transaction point, per symbol. The valuation engine needs them to convert
// each cash flow at its own historical exchange rate.
type DayFlows struct {
	BuyCost      Money    // total cost of that day's buys
	SellProceeds Money    // total proceeds of that day's sells
	SoldQuantity Quantity // total quantity sold that day
	Fee          Money
	Dividend     Money
	Interest     Money
	Liability    Money
	Valuable     Money
}

// TransactionPointSymbol is the cumulative state of one symbol as of a
// transaction point's date.
//
// Investment is the average-cost basis in the asset currency: a sell removes
// cost proportionally to the fraction of quantity sold, at the running
// average price, never FIFO. Quantity may reach exactly zero (full exit) or
// go negative (short position); it is never clamped.
type TransactionPointSymbol struct {
	Symbol           SymbolID
	Currency         string
	Quantity         Quantity
	Investment       Money // cost basis, asset currency
	AveragePrice     Money // Investment / Quantity, or the manual price
	ManualPrice      bool  // true when AveragePrice comes from a liability/item activity
	Fee              Money
	Dividend         Money
	Interest         Money
	Liabilities      Money
	Valuables        Money
	RealizedGain     Money // cumulative gains locked in by sells
	TransactionCount int
	FirstActivity    Date

	Flows DayFlows // the flows of the activities defining this point
}

// TransactionPoint is the cumulative state of all symbols as of one activity
// date. Points are produced in strictly non-decreasing date order, one per
// distinct date that contains at least one activity.
type TransactionPoint struct {
	Date  Date
	Items []TransactionPointSymbol // sorted by symbol identifier
}

// Item returns the state of one symbol at this point.
func (tp TransactionPoint) Item(id SymbolID) (TransactionPointSymbol, bool) {
	for _, it := range tp.Items {
		if it.Symbol == id {
			return it, true
		}
	}
	return TransactionPointSymbol{}, false
}

// BuildTransactionPoints folds the ledger into its transaction point
// sequence. One running aggregate is kept per symbol and a snapshot of all
// aggregates is emitted after each distinct activity date.
func BuildTransactionPoints(l *Ledger, log zerolog.Logger) []TransactionPoint {
	activities := l.Activities()
	if len(activities) == 0 {
		return nil
	}

	states := make(map[SymbolID]*TransactionPointSymbol)
	var order []SymbolID

	var points []TransactionPoint
	flush := func(on Date) {
		items := make([]TransactionPointSymbol, 0, len(order))
		for _, id := range order {
			items = append(items, *states[id])
			states[id].Flows = DayFlows{} // day flows do not accumulate across points
		}
		slices.SortFunc(items, func(a, b TransactionPointSymbol) int {
			return a.Symbol.Compare(b.Symbol)
		})
		points = append(points, TransactionPoint{Date: on, Items: items})
	}

	current := activities[0].Date
	for _, a := range activities {
		if a.Date != current {
			flush(current)
			current = a.Date
		}

		s, ok := states[a.Symbol]
		if !ok {
			s = &TransactionPointSymbol{
				Symbol:        a.Symbol,
				Currency:      a.Currency(),
				FirstActivity: a.Date,
				Investment:    M(0, a.Currency()),
				Fee:           M(0, a.Currency()),
				Dividend:      M(0, a.Currency()),
				Interest:      M(0, a.Currency()),
				Liabilities:   M(0, a.Currency()),
				Valuables:     M(0, a.Currency()),
				RealizedGain:  M(0, a.Currency()),
			}
			states[a.Symbol] = s
			order = append(order, a.Symbol)
		}

		s.TransactionCount++
		s.Fee = s.Fee.Add(a.Fee)
		s.Flows.Fee = s.Flows.Fee.Add(a.Fee)

		switch a.Type {
		case ActivityBuy:
			cost := a.Amount()
			s.Investment = s.Investment.Add(cost)
			s.Quantity = s.Quantity.Add(a.Quantity)
			s.Flows.BuyCost = s.Flows.BuyCost.Add(cost)
			if !s.Quantity.IsZero() {
				s.AveragePrice = s.Investment.Div(s.Quantity)
				s.ManualPrice = false
			}

		case ActivitySell:
			proceeds := a.Amount()
			s.Flows.SellProceeds = s.Flows.SellProceeds.Add(proceeds)
			s.Flows.SoldQuantity = s.Flows.SoldQuantity.Add(a.Quantity)
			switch {
			case s.Quantity.IsZero():
				// Selling out of an empty position cannot derive an average
				// price. This is a programming-error class violation: fail
				// loudly in the log, keep the cost basis untouched.
				log.Error().
					Stringer("symbol", a.Symbol).
					Stringer("date", a.Date).
					Stringer("quantity", a.Quantity).
					Msg("sell without prior quantity: undefined average price")
				s.Quantity = s.Quantity.Sub(a.Quantity)
				s.RealizedGain = s.RealizedGain.Add(proceeds)
			case s.Quantity.Equal(a.Quantity):
				// Full exit: remove the entire cost basis so investment is
				// exactly zero, not a division residue.
				s.RealizedGain = s.RealizedGain.Add(proceeds.Sub(s.Investment))
				s.Investment = M(0, s.Currency)
				s.Quantity = Q(0)
			default:
				costOfSale := s.Investment.Mul(a.Quantity).Div(s.Quantity)
				s.RealizedGain = s.RealizedGain.Add(proceeds.Sub(costOfSale))
				s.Investment = s.Investment.Sub(costOfSale)
				s.Quantity = s.Quantity.Sub(a.Quantity)
			}
			if !s.Quantity.IsZero() {
				s.AveragePrice = s.Investment.Div(s.Quantity)
			}

		case ActivityDividend:
			amount := a.Amount()
			s.Dividend = s.Dividend.Add(amount)
			s.Flows.Dividend = s.Flows.Dividend.Add(amount)

		case ActivityInterest:
			amount := a.Amount()
			s.Interest = s.Interest.Add(amount)
			s.Flows.Interest = s.Flows.Interest.Add(amount)

		case ActivityFee:
			// The fee amount is carried in the activity's fee field; there is
			// nothing to add to quantity or investment.

		case ActivityLiability:
			amount := a.Amount()
			s.Liabilities = s.Liabilities.Add(amount)
			s.Flows.Liability = s.Flows.Liability.Add(amount)
			// Liabilities have no market feed: they are valued at the
			// activity's unit price until overridden by a later activity.
			s.AveragePrice = a.UnitPrice
			s.ManualPrice = true

		case ActivityItem:
			amount := a.Amount()
			s.Valuables = s.Valuables.Add(amount)
			s.Flows.Valuable = s.Flows.Valuable.Add(amount)
			s.AveragePrice = a.UnitPrice
			s.ManualPrice = true
		}
	}
	flush(current)

	return points
}
