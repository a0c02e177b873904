package portfolio

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestBuildTransactionPoints_AverageCost(t *testing.T) {
	l := ledgerOf(t,
		act(t, "2024-01-10", "buy", "YAHOO:AAPL", 10, 10, 0, "USD"),
		act(t, "2024-01-15", "buy", "YAHOO:AAPL", 10, 20, 0, "USD"),
		act(t, "2024-02-01", "sell", "YAHOO:AAPL", 5, 25, 0, "USD"),
	)

	points := BuildTransactionPoints(l, zerolog.Nop())
	if got, want := len(points), 3; got != want {
		t.Fatalf("got %d transaction points, want %d", got, want)
	}

	s, ok := points[1].Item(sym("YAHOO:AAPL"))
	if !ok {
		t.Fatal("missing symbol at second point")
	}
	if got, want := s.Investment, M(300, "USD"); !got.Equal(want) {
		t.Errorf("investment after two buys: got %s, want %s", got.Amount(), want.Amount())
	}
	if got, want := s.AveragePrice, M(15, "USD"); !got.Equal(want) {
		t.Errorf("average price: got %s, want %s", got.Amount(), want.Amount())
	}

	// Selling 5 of 20 removes a quarter of the cost basis at the average
	// price, not the FIFO lots.
	s, _ = points[2].Item(sym("YAHOO:AAPL"))
	if got, want := s.Investment, M(225, "USD"); !got.Equal(want) {
		t.Errorf("investment after sell: got %s, want %s", got.Amount(), want.Amount())
	}
	if got, want := s.Quantity, Q(15); !got.Equal(want) {
		t.Errorf("quantity after sell: got %s, want %s", got, want)
	}
	if got, want := s.RealizedGain, M(50, "USD"); !got.Equal(want) {
		t.Errorf("realized gain: got %s, want %s", got.Amount(), want.Amount())
	}
	if got, want := s.AveragePrice, M(15, "USD"); !got.Equal(want) {
		t.Errorf("average price must not change on sell: got %s, want %s", got.Amount(), want.Amount())
	}
}

func TestBuildTransactionPoints_RoundTripNeutrality(t *testing.T) {
	l := ledgerOf(t,
		act(t, "2021-11-22", "buy", "YAHOO:AAPL", 2, 142.90, 1.55, "USD"),
		act(t, "2021-11-30", "sell", "YAHOO:AAPL", 2, 136.60, 1.65, "USD"),
	)

	points := BuildTransactionPoints(l, zerolog.Nop())
	s, _ := points[len(points)-1].Item(sym("YAHOO:AAPL"))

	if !s.Quantity.IsZero() {
		t.Errorf("quantity after full exit: got %s, want exactly 0", s.Quantity)
	}
	if !s.Investment.IsZero() {
		t.Errorf("investment after full exit: got %s, want exactly 0", s.Investment.Amount())
	}
	if got, want := s.RealizedGain, M(-12.60, "USD"); !got.Equal(want) {
		t.Errorf("realized gain: got %s, want %s", got.Amount(), want.Amount())
	}
	if got, want := s.Fee, M(3.20, "USD"); !got.Equal(want) {
		t.Errorf("fees: got %s, want %s", got.Amount(), want.Amount())
	}
}

func TestBuildTransactionPoints_FractionalRoundTrip(t *testing.T) {
	// A third of a share bought and fully sold must leave no residue, even
	// though 1/3 has no finite decimal representation.
	third := Q(dec("0.3333333333"))
	id := sym("YAHOO:VTI")
	l := NewLedger()
	if err := l.Append(
		Activity{ID: newTestID(), Date: MustParse("2024-03-01"), Type: ActivityBuy, Symbol: id, Quantity: third, UnitPrice: M(300, "USD"), Fee: M(0, "USD")},
		Activity{ID: newTestID(), Date: MustParse("2024-04-01"), Type: ActivitySell, Symbol: id, Quantity: third, UnitPrice: M(330, "USD"), Fee: M(0, "USD")},
	); err != nil {
		t.Fatal(err)
	}

	points := BuildTransactionPoints(l, zerolog.Nop())
	s, _ := points[len(points)-1].Item(id)
	if !s.Quantity.IsZero() || !s.Investment.IsZero() {
		t.Errorf("full exit left residue: quantity=%s investment=%s", s.Quantity, s.Investment.Amount())
	}
}

func TestBuildTransactionPoints_SellWithoutQuantity(t *testing.T) {
	l := ledgerOf(t,
		act(t, "2024-01-10", "sell", "YAHOO:AAPL", 2, 100, 0, "USD"),
	)

	points := BuildTransactionPoints(l, zerolog.Nop())
	s, _ := points[0].Item(sym("YAHOO:AAPL"))

	// The cost basis stays untouched; the proceeds are still realized and
	// the quantity goes negative, never clamped.
	if got, want := s.Quantity, Q(-2); !got.Equal(want) {
		t.Errorf("quantity: got %s, want %s", got, want)
	}
	if !s.Investment.IsZero() {
		t.Errorf("investment: got %s, want 0", s.Investment.Amount())
	}
	if got, want := s.RealizedGain, M(200, "USD"); !got.Equal(want) {
		t.Errorf("realized gain: got %s, want %s", got.Amount(), want.Amount())
	}
}

func TestBuildTransactionPoints_OnePointPerDate(t *testing.T) {
	l := ledgerOf(t,
		act(t, "2024-01-10", "buy", "YAHOO:AAPL", 1, 100, 0, "USD"),
		act(t, "2024-01-10", "buy", "YAHOO:MSFT", 1, 200, 0, "USD"),
		act(t, "2024-01-11", "dividend", "YAHOO:AAPL", 1, 0.5, 0, "USD"),
	)

	points := BuildTransactionPoints(l, zerolog.Nop())
	if got, want := len(points), 2; got != want {
		t.Fatalf("got %d points, want %d", got, want)
	}
	if got, want := len(points[0].Items), 2; got != want {
		t.Errorf("first point: got %d items, want %d", got, want)
	}
	// Later points carry every symbol seen so far, updated or not.
	if got, want := len(points[1].Items), 2; got != want {
		t.Errorf("second point: got %d items, want %d", got, want)
	}
	s, _ := points[1].Item(sym("YAHOO:AAPL"))
	if got, want := s.Dividend, M(0.5, "USD"); !got.Equal(want) {
		t.Errorf("dividend: got %s, want %s", got.Amount(), want.Amount())
	}
}

func TestBuildTransactionPoints_FlowsDoNotAccumulate(t *testing.T) {
	l := ledgerOf(t,
		act(t, "2024-01-10", "buy", "YAHOO:AAPL", 1, 100, 0, "USD"),
		act(t, "2024-01-20", "buy", "YAHOO:AAPL", 1, 110, 0, "USD"),
	)

	points := BuildTransactionPoints(l, zerolog.Nop())
	s, _ := points[1].Item(sym("YAHOO:AAPL"))
	if got, want := s.Flows.BuyCost, M(110, "USD"); !got.Equal(want) {
		t.Errorf("second day flows: got %s, want %s (that day only)", got.Amount(), want.Amount())
	}
	if got, want := s.Investment, M(210, "USD"); !got.Equal(want) {
		t.Errorf("cumulative investment: got %s, want %s", got.Amount(), want.Amount())
	}
}

func TestBuildTransactionPoints_ManualPrices(t *testing.T) {
	l := ledgerOf(t,
		act(t, "2024-01-10", "item", "MANUAL:watch", 1, 3500, 0, "CHF"),
		act(t, "2024-01-10", "liability", "MANUAL:loan", 1, 10000, 0, "CHF"),
	)

	points := BuildTransactionPoints(l, zerolog.Nop())
	w, _ := points[0].Item(sym("MANUAL:watch"))
	if !w.ManualPrice {
		t.Error("item activity must set a manual price")
	}
	if got, want := w.Valuables, M(3500, "CHF"); !got.Equal(want) {
		t.Errorf("valuables: got %s, want %s", got.Amount(), want.Amount())
	}
	loan, _ := points[0].Item(sym("MANUAL:loan"))
	if got, want := loan.Liabilities, M(10000, "CHF"); !got.Equal(want) {
		t.Errorf("liabilities: got %s, want %s", got.Amount(), want.Amount())
	}
}
