package portfolio

import (
	"bytes"
	"strings"
	"testing"
)

func TestLedgerRoundTrip(t *testing.T) {
	original := ledgerOf(t,
		act(t, "2024-01-10", "buy", "YAHOO:AAPL", 2, 142.90, 1.55, "USD"),
		act(t, "2024-01-10", "buy", "YAHOO:MSFT", 1, 200, 0, "EUR"),
		act(t, "2024-02-01", "sell", "YAHOO:AAPL", 2, 136.60, 1.65, "USD"),
	)

	var buf bytes.Buffer
	if err := EncodeLedger(&buf, original); err != nil {
		t.Fatal(err)
	}
	decoded, err := DecodeLedger(&buf)
	if err != nil {
		t.Fatal(err)
	}

	want := original.Activities()
	got := decoded.Activities()
	if len(got) != len(want) {
		t.Fatalf("got %d activities, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i].ID {
			t.Errorf("activity %d: id changed across the round trip", i)
		}
		if got[i].Date != want[i].Date || got[i].Type != want[i].Type || got[i].Symbol != want[i].Symbol {
			t.Errorf("activity %d: got %+v, want %+v", i, got[i], want[i])
		}
		if !got[i].Quantity.Equal(want[i].Quantity) {
			t.Errorf("activity %d quantity: got %s, want %s", i, got[i].Quantity, want[i].Quantity)
		}
		if !got[i].UnitPrice.Equal(want[i].UnitPrice) {
			t.Errorf("activity %d unit price: got %s, want %s", i, got[i].UnitPrice.Amount(), want[i].UnitPrice.Amount())
		}
		if !got[i].Fee.Equal(want[i].Fee) {
			t.Errorf("activity %d fee: got %s, want %s", i, got[i].Fee.Amount(), want[i].Fee.Amount())
		}
	}
}

func TestDecodeLedger_SkipsEmptyLines(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeActivity(&buf, act(t, "2024-01-10", "buy", "YAHOO:AAPL", 1, 100, 0, "USD")); err != nil {
		t.Fatal(err)
	}
	buf.WriteString("\n\n")

	l, err := DecodeLedger(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if l.Len() != 1 {
		t.Errorf("got %d activities, want 1", l.Len())
	}
}

func TestDecodeLedger_RejectsUnknownField(t *testing.T) {
	line := `{"id":"c2cc10e1-57d6-4b70-9e2a-6bd52c0a18e8","date":"2024-01-10","type":"buy","symbol":"YAHOO:AAPL","quantity":1,"unitPrice":100,"currency":"USD","note":"oops"}`
	_, err := DecodeLedger(strings.NewReader(line))
	if err == nil || !strings.Contains(err.Error(), "note") {
		t.Fatalf("got %v, want an unknown-field error mentioning %q", err, "note")
	}
}

func TestDecodeLedger_RejectsMalformedActivity(t *testing.T) {
	line := `{"id":"c2cc10e1-57d6-4b70-9e2a-6bd52c0a18e8","date":"2024-01-10","type":"buy","symbol":"YAHOO:AAPL","quantity":-1,"unitPrice":100,"currency":"USD"}`
	_, err := DecodeLedger(strings.NewReader(line))
	if err == nil || !strings.Contains(err.Error(), "negative") {
		t.Fatalf("got %v, want a validation error", err)
	}
}

func TestMarketDataRoundTrip(t *testing.T) {
	original := NewMarketData().
		AddPrice(sym("YAHOO:AAPL"), MustParse("2024-01-10"), dec("142.90")).
		AddPrice(sym("YAHOO:AAPL"), MustParse("2024-01-11"), dec("143.10")).
		AddRate("USD", "CHF", MustParse("2024-01-10"), dec("0.9"))

	var buf bytes.Buffer
	if err := EncodeMarketData(&buf, original); err != nil {
		t.Fatal(err)
	}
	decoded, err := DecodeMarketData(&buf)
	if err != nil {
		t.Fatal(err)
	}

	h := decoded.prices[sym("YAHOO:AAPL")]
	if h == nil || h.Len() != 2 {
		t.Fatalf("prices did not survive the round trip: %+v", h)
	}
	if v, _ := h.Get(MustParse("2024-01-11")); !v.Equal(dec("143.10")) {
		t.Errorf("price: got %s, want 143.10", v)
	}
	rate, err := decoded.Rate(t.Context(), "USD", "CHF", MustParse("2024-01-10"))
	if err != nil {
		t.Fatal(err)
	}
	if !rate.Equal(dec("0.9")) {
		t.Errorf("rate: got %s, want 0.9", rate)
	}
}

func TestDecodeMarketData_RejectsAmbiguousLine(t *testing.T) {
	_, err := DecodeMarketData(strings.NewReader(`{"on":"2024-01-10"}`))
	if err == nil {
		t.Fatal("expected an error for a line that is neither a price nor a rate")
	}
}
