package portfolio

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Test fixture helpers. All helpers fail the test on invalid input so the
// fixtures stay honest.

func act(t *testing.T, day, typ, symbol string, qty, price, fee float64, currency string) Activity {
	t.Helper()
	id, err := ParseSymbolID(symbol)
	if err != nil {
		t.Fatalf("invalid symbol %q: %v", symbol, err)
	}
	a, err := NewActivity(MustParse(day), ActivityType(typ), id,
		Q(qty), M(price, currency), M(fee, currency))
	if err != nil {
		t.Fatalf("invalid activity: %v", err)
	}
	return a
}

func ledgerOf(t *testing.T, activities ...Activity) *Ledger {
	t.Helper()
	l := NewLedger()
	if err := l.Append(activities...); err != nil {
		t.Fatalf("appending activities: %v", err)
	}
	return l
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestID() uuid.UUID { return uuid.New() }

func sym(s string) SymbolID {
	id, err := ParseSymbolID(s)
	if err != nil {
		panic(err)
	}
	return id
}
