package portfolio

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Percent represents a return expressed in percent points (5 means 5%).
//
// It is decimal-backed: percentages derive from exact divisions of exact
// amounts and must compare equal to many significant digits across
// calculation methods.
type Percent struct {
	value decimal.Decimal
}

func Pct[T float32 | float64 | int | int32 | int64 | decimal.Decimal](value T) Percent {
	return Percent{value: newDecimal(value)}
}

// PercentFromRatio converts a ratio (0.05 for 5%) into a Percent.
func PercentFromRatio(ratio decimal.Decimal) Percent {
	return Percent{value: ratio.Shift(2)}
}

func (p Percent) Decimal() decimal.Decimal { return p.value }

// Ratio returns the percentage as a ratio (5% -> 0.05).
func (p Percent) Ratio() decimal.Decimal { return p.value.Shift(-2) }

func (p Percent) Add(q Percent) Percent { return Percent{value: p.value.Add(q.value)} }
func (p Percent) IsZero() bool          { return p.value.IsZero() }

// Equal compares with some precision, enough for display-level assertions.
func (p Percent) Equal(q Percent) bool {
	const precision = "0.0001"
	return p.value.Sub(q.value).Abs().LessThan(decimal.RequireFromString(precision))
}

// Identical reports whether two percentages are exactly the same decimal.
func (p Percent) Identical(q Percent) bool { return p.value.Equal(q.value) }

func (p Percent) String() string {
	return fmt.Sprintf("%s%%", p.value.Round(2).StringFixed(2))
}

func (p Percent) SignedString() string {
	if p.value.IsZero() {
		return "-"
	}
	if p.value.IsPositive() {
		return "+" + p.String()
	}
	return p.String()
}

// MarshalJSON implements the json.Marshaler interface for Percent.
func (p Percent) MarshalJSON() ([]byte, error) {
	return p.value.MarshalJSON()
}

func (p *Percent) UnmarshalJSON(b []byte) error {
	return p.value.UnmarshalJSON(b)
}
