package portfolio

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SymbolID identifies a traded instrument: a symbol qualified by the data
// source that quotes it. Two sources may quote the same symbol with
// different histories, so both parts take part in identity.
type SymbolID struct {
	Source string // data source short name, e.g. "YAHOO"; empty for manual assets
	Symbol string
}

// NewSymbolID creates a SymbolID from a data source and a symbol.
func NewSymbolID(source, symbol string) SymbolID {
	return SymbolID{Source: strings.ToUpper(strings.TrimSpace(source)), Symbol: strings.TrimSpace(symbol)}
}

// ParseSymbolID parses "SOURCE:SYMBOL" or a bare "SYMBOL".
func ParseSymbolID(s string) (SymbolID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return SymbolID{}, fmt.Errorf("empty symbol identifier")
	}
	if source, symbol, found := strings.Cut(s, ":"); found {
		if symbol == "" {
			return SymbolID{}, fmt.Errorf("invalid symbol identifier %q", s)
		}
		return NewSymbolID(source, symbol), nil
	}
	return SymbolID{Symbol: s}, nil
}

// String renders the identifier as "SOURCE:SYMBOL", or the bare symbol when
// there is no data source.
func (id SymbolID) String() string {
	if id.Source == "" {
		return id.Symbol
	}
	return id.Source + ":" + id.Symbol
}

// IsZero returns true for the zero identifier.
func (id SymbolID) IsZero() bool { return id.Source == "" && id.Symbol == "" }

// Compare orders identifiers lexicographically, source first.
func (id SymbolID) Compare(o SymbolID) int {
	if c := strings.Compare(id.Source, o.Source); c != 0 {
		return c
	}
	return strings.Compare(id.Symbol, o.Symbol)
}

// MarshalJSON implements the json.Marshaler interface for SymbolID.
func (id SymbolID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for SymbolID.
func (id *SymbolID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseSymbolID(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
