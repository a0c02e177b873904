package portfolio

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// unmarshalStrict decodes JSON rejecting unknown fields, so a typo in a
// hand-edited ledger line fails loudly instead of being dropped.
func unmarshalStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// DecodeLedger decodes activities from a stream of JSONL data, one activity
// per line, and returns a sorted ledger. Empty lines are skipped. The file
// order of same-date lines is preserved as their tie-break order.
func DecodeLedger(r io.Reader) (*Ledger, error) {
	ledger := NewLedger()
	scanner := bufio.NewScanner(r)

	i := 0
	for scanner.Scan() {
		i++
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		var a Activity
		if err := json.Unmarshal(line, &a); err != nil {
			return nil, fmt.Errorf("parse error on line %d: %w", i, err)
		}
		if err := ledger.Append(a); err != nil {
			return nil, fmt.Errorf("invalid activity on line %d: %w", i, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading ledger: %w", err)
	}
	return ledger, nil
}

// EncodeActivity marshals a single activity and writes it as one JSONL line.
func EncodeActivity(w io.Writer, a Activity) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal activity: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write activity: %w", err)
	}
	return nil
}

// EncodeLedger persists the ledger to a writer in JSONL format, in
// chronological order. Encoding then decoding a ledger yields the same
// calculation inputs.
func EncodeLedger(w io.Writer, ledger *Ledger) error {
	for _, a := range ledger.Activities() {
		if err := EncodeActivity(w, a); err != nil {
			return err
		}
	}
	return nil
}

// Market data persistence. One JSONL line per observation, either a price
// {"on":..., "symbol":..., "price":...} or an exchange rate
// {"on":..., "from":..., "to":..., "rate":...}. The format is line oriented
// and sorted on encode, so files stay human-readable and git-friendly.

type jquote struct {
	On     Date            `json:"on"`
	Symbol SymbolID        `json:"symbol,omitzero"`
	Price  decimal.Decimal `json:"price,omitzero"`
	From   string          `json:"from,omitempty"`
	To     string          `json:"to,omitempty"`
	Rate   decimal.Decimal `json:"rate,omitzero"`
}

// DecodeMarketData reads prices and exchange rates from a JSONL stream.
func DecodeMarketData(r io.Reader) (*MarketData, error) {
	m := NewMarketData()
	scanner := bufio.NewScanner(r)

	i := 0
	for scanner.Scan() {
		i++
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		var jq jquote
		if err := unmarshalStrict(line, &jq); err != nil {
			return nil, fmt.Errorf("parse error on line %d: %w", i, err)
		}
		switch {
		case jq.On.IsZero():
			return nil, fmt.Errorf("parse error on line %d: missing %q date", i, "on")
		case !jq.Symbol.IsZero():
			m.AddPrice(jq.Symbol, jq.On, jq.Price)
		case jq.From != "" && jq.To != "":
			m.AddRate(jq.From, jq.To, jq.On, jq.Rate)
		default:
			return nil, fmt.Errorf("parse error on line %d: neither a price nor a rate", i)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading market data: %w", err)
	}
	return m, nil
}

// EncodeMarketData persists prices then rates, each series in chronological
// order, series sorted by identifier for a canonical output.
func EncodeMarketData(w io.Writer, m *MarketData) error {
	ids := make([]SymbolID, 0, len(m.prices))
	for id := range m.prices {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, SymbolID.Compare)
	for _, id := range ids {
		for on, price := range m.prices[id].Values() {
			if err := encodeQuote(w, jquote{On: on, Symbol: id, Price: price}); err != nil {
				return err
			}
		}
	}

	pairs := make([]string, 0, len(m.forex))
	for pair := range m.forex {
		pairs = append(pairs, pair)
	}
	slices.Sort(pairs)
	for _, pair := range pairs {
		from, to := pair[:3], pair[3:]
		for on, rate := range m.forex[pair].Values() {
			if err := encodeQuote(w, jquote{On: on, From: from, To: to, Rate: rate}); err != nil {
				return err
			}
		}
	}
	return nil
}

func encodeQuote(w io.Writer, jq jquote) error {
	data, err := json.Marshal(jq)
	if err != nil {
		return fmt.Errorf("failed to marshal market data line: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write market data line: %w", err)
	}
	return nil
}
