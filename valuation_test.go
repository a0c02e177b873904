package portfolio

import (
	"testing"
)

func TestTimeWeightedInvestment(t *testing.T) {
	series := []ValuationPoint{
		{On: MustParse("2024-01-01"), Investment: M(1000, "USD"), InvestmentWithCurrencyEffect: M(900, "EUR")},
		{On: MustParse("2024-01-11"), Investment: M(0, "USD"), InvestmentWithCurrencyEffect: M(0, "EUR")},
	}

	// 1000 at risk for 10 of 20 days.
	got := timeWeightedInvestment(series, MustParse("2024-01-01"), MustParse("2024-01-21"), false)
	if want := M(500, "USD"); !got.Equal(want) {
		t.Errorf("got %s, want %s", got.Amount(), want.Amount())
	}

	gotFx := timeWeightedInvestment(series, MustParse("2024-01-01"), MustParse("2024-01-21"), true)
	if want := M(450, "EUR"); !gotFx.Equal(want) {
		t.Errorf("with currency effect: got %s, want %s", gotFx.Amount(), want.Amount())
	}
}

func TestTimeWeightedInvestment_SingleDay(t *testing.T) {
	series := []ValuationPoint{
		{On: MustParse("2024-01-01"), Investment: M(1000, "USD")},
	}
	// A zero-length window falls back to the investment level itself.
	got := timeWeightedInvestment(series, MustParse("2024-01-01"), MustParse("2024-01-01"), false)
	if want := M(1000, "USD"); !got.Equal(want) {
		t.Errorf("got %s, want %s", got.Amount(), want.Amount())
	}
}

func TestNetAsOf(t *testing.T) {
	series := []ValuationPoint{
		{On: MustParse("2024-01-01"), NetPerformanceWithCurrencyEffect: M(10, "USD")},
		{On: MustParse("2024-02-01"), NetPerformanceWithCurrencyEffect: M(25, "USD")},
	}
	if got := netAsOf(series, MustParse("2023-12-31")); !got.IsZero() {
		t.Errorf("before the series: got %s, want 0", got.Amount())
	}
	if got, want := netAsOf(series, MustParse("2024-01-15")), M(10, "USD"); !got.Equal(want) {
		t.Errorf("mid series: got %s, want %s", got.Amount(), want.Amount())
	}
	if got, want := netAsOf(series, MustParse("2024-03-01")), M(25, "USD"); !got.Equal(want) {
		t.Errorf("after the series: got %s, want %s", got.Amount(), want.Amount())
	}
}

func TestDividePercent(t *testing.T) {
	if got := dividePercent(M(50, "USD"), M(0, "USD")); !got.IsZero() {
		t.Errorf("zero denominator: got %s, want 0", got)
	}
	if got, want := dividePercent(M(50, "USD"), M(1000, "USD")), Pct(5); !got.Identical(want) {
		t.Errorf("got %s, want %s", got, want)
	}
}
