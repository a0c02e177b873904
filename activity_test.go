package portfolio

import (
	"strings"
	"testing"
)

func TestActivityValidate(t *testing.T) {
	valid := act(t, "2024-01-10", "buy", "YAHOO:AAPL", 2, 142.90, 1.55, "USD")

	testCases := []struct {
		name    string
		mutate  func(a Activity) Activity
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(a Activity) Activity { return a },
		},
		{
			name:    "unknown type",
			mutate:  func(a Activity) Activity { a.Type = "transfer"; return a },
			wantErr: "unknown activity type",
		},
		{
			name:    "missing date",
			mutate:  func(a Activity) Activity { a.Date = Date{}; return a },
			wantErr: "date is missing",
		},
		{
			name:    "missing symbol",
			mutate:  func(a Activity) Activity { a.Symbol = SymbolID{}; return a },
			wantErr: "symbol is missing",
		},
		{
			name:    "negative quantity",
			mutate:  func(a Activity) Activity { a.Quantity = Q(-1); return a },
			wantErr: "quantity must not be negative",
		},
		{
			name:    "negative price",
			mutate:  func(a Activity) Activity { a.UnitPrice = M(-1, "USD"); return a },
			wantErr: "unit price must not be negative",
		},
		{
			name:    "negative fee",
			mutate:  func(a Activity) Activity { a.Fee = M(-1, "USD"); return a },
			wantErr: "fee must not be negative",
		},
		{
			name:    "fee currency mismatch",
			mutate:  func(a Activity) Activity { a.Fee = M(1, "EUR"); return a },
			wantErr: "fee currency",
		},
		{
			name: "missing currency",
			mutate: func(a Activity) Activity {
				a.UnitPrice = M(142.90, "")
				a.Fee = M(1.55, "")
				return a
			},
			wantErr: "currency is missing",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.mutate(valid).Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("got error %v, want it to contain %q", err, tc.wantErr)
			}
		})
	}
}

func TestLedgerAppend_RejectsInvalid(t *testing.T) {
	l := NewLedger()
	a := act(t, "2024-01-10", "buy", "YAHOO:AAPL", 2, 100, 0, "USD")
	a.Quantity = Q(-2)
	if err := l.Append(a); err == nil {
		t.Fatal("expected a validation error")
	}
	if l.Len() != 0 {
		t.Errorf("rejected activity must not enter the ledger, got %d", l.Len())
	}
}

func TestLedgerAppend_SortsByDateKeepingInsertionOrder(t *testing.T) {
	first := act(t, "2024-01-10", "buy", "YAHOO:AAPL", 1, 100, 0, "USD")
	second := act(t, "2024-01-10", "sell", "YAHOO:AAPL", 1, 110, 0, "USD")
	earlier := act(t, "2024-01-05", "buy", "YAHOO:MSFT", 1, 200, 0, "USD")

	l := ledgerOf(t, first, second, earlier)

	got := l.Activities()
	if got[0].Symbol != sym("YAHOO:MSFT") {
		t.Errorf("earliest date must come first, got %s", got[0].Symbol)
	}
	// Same-date activities keep their insertion order, not a type priority.
	if got[1].Type != ActivityBuy || got[2].Type != ActivitySell {
		t.Errorf("same-date order: got %s then %s, want buy then sell", got[1].Type, got[2].Type)
	}
}

func TestLedgerSymbols_FirstAppearanceOrder(t *testing.T) {
	l := ledgerOf(t,
		act(t, "2024-01-10", "buy", "YAHOO:MSFT", 1, 200, 0, "USD"),
		act(t, "2024-01-15", "buy", "YAHOO:AAPL", 1, 100, 0, "USD"),
		act(t, "2024-01-20", "buy", "YAHOO:MSFT", 1, 210, 0, "USD"),
	)
	got := l.Symbols()
	if len(got) != 2 {
		t.Fatalf("got %d symbols, want 2", len(got))
	}
	if got[0] != sym("YAHOO:MSFT") || got[1] != sym("YAHOO:AAPL") {
		t.Errorf("got %v, want MSFT then AAPL", got)
	}
}

func TestLedgerFilters(t *testing.T) {
	l := ledgerOf(t,
		act(t, "2024-01-10", "buy", "YAHOO:AAPL", 1, 100, 0, "USD"),
		act(t, "2024-02-10", "dividend", "YAHOO:AAPL", 1, 0.5, 0, "USD"),
		act(t, "2024-02-15", "buy", "YAHOO:MSFT", 1, 200, 0, "USD"),
	)

	if got := l.Activities(BySymbol(sym("YAHOO:AAPL"))); len(got) != 2 {
		t.Errorf("BySymbol: got %d, want 2", len(got))
	}
	if got := l.Activities(ByType(ActivityBuy)); len(got) != 2 {
		t.Errorf("ByType: got %d, want 2", len(got))
	}
	r := NewRange(MustParse("2024-02-01"), MustParse("2024-02-28"))
	if got := l.Activities(ByRange(r)); len(got) != 2 {
		t.Errorf("ByRange: got %d, want 2", len(got))
	}
	if got := l.Activities(BySymbol(sym("YAHOO:AAPL")), ByType(ActivityBuy)); len(got) != 1 {
		t.Errorf("combined filters: got %d, want 1", len(got))
	}
}

func TestActivityAmount(t *testing.T) {
	a := act(t, "2024-01-10", "buy", "YAHOO:AAPL", 2, 142.90, 1.55, "USD")
	if got, want := a.Amount(), M(285.80, "USD"); !got.Equal(want) {
		t.Errorf("got %s, want %s", got.Amount(), want.Amount())
	}
}
