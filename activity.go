package portfolio

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// ActivityType is a typed string identifying a ledger entry kind.
type ActivityType string

// Activity types recorded in the ledger.
const (
	ActivityBuy       ActivityType = "buy"
	ActivitySell      ActivityType = "sell"
	ActivityDividend  ActivityType = "dividend"
	ActivityFee       ActivityType = "fee"
	ActivityInterest  ActivityType = "interest"
	ActivityLiability ActivityType = "liability"
	ActivityItem      ActivityType = "item"
)

// ParseActivityType parses an activity type name.
func ParseActivityType(s string) (ActivityType, error) {
	switch t := ActivityType(s); t {
	case ActivityBuy, ActivitySell, ActivityDividend, ActivityFee,
		ActivityInterest, ActivityLiability, ActivityItem:
		return t, nil
	default:
		return "", fmt.Errorf("unknown activity type %q", s)
	}
}

// Activity is one ledger entry. It is immutable once read by the engine:
// the calculation rebuilds all derived state from scratch on every run.
//
// Quantity is a magnitude; the direction (in or out) is implied by Type.
type Activity struct {
	ID        uuid.UUID    // identity, assigned on creation
	Date      Date         // when the activity occurred
	Type      ActivityType //
	Symbol    SymbolID     // data source qualified symbol
	Quantity  Quantity     // >= 0
	UnitPrice Money        // price per unit, in the asset currency
	Fee       Money        // transaction fee, in the asset currency

	seq int // insertion order, the tie-break for same-date activities
}

// NewActivity creates a validated activity.
func NewActivity(on Date, typ ActivityType, symbol SymbolID, quantity Quantity, unitPrice, fee Money) (Activity, error) {
	a := Activity{
		ID:        uuid.New(),
		Date:      on,
		Type:      typ,
		Symbol:    symbol,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		Fee:       fee,
	}
	if err := a.Validate(); err != nil {
		return Activity{}, err
	}
	return a, nil
}

// Currency returns the asset currency of the activity.
func (a Activity) Currency() string {
	if c := a.UnitPrice.Currency(); c != "" {
		return c
	}
	return a.Fee.Currency()
}

// Validate rejects malformed activities before they can enter the
// transaction point builder. Violations are validation failures surfaced
// to the caller, never silently coerced.
func (a Activity) Validate() error {
	if _, err := ParseActivityType(string(a.Type)); err != nil {
		return err
	}
	if a.Date.IsZero() {
		return errors.New("activity date is missing")
	}
	if a.Symbol.IsZero() {
		return errors.New("activity symbol is missing")
	}
	if a.Quantity.IsNegative() {
		return fmt.Errorf("activity quantity must not be negative, got %s", a.Quantity)
	}
	if a.UnitPrice.IsNegative() {
		return fmt.Errorf("activity unit price must not be negative, got %s", a.UnitPrice.Amount())
	}
	if a.Fee.IsNegative() {
		return fmt.Errorf("activity fee must not be negative, got %s", a.Fee.Amount())
	}
	if a.Currency() == "" {
		return errors.New("activity currency is missing")
	}
	if fc := a.Fee.Currency(); fc != "" && fc != a.Currency() {
		return fmt.Errorf("activity fee currency %q differs from asset currency %q", fc, a.Currency())
	}
	return nil
}

// Amount returns quantity times unit price, the total value the activity
// moved, in the asset currency.
func (a Activity) Amount() Money { return a.UnitPrice.Mul(a.Quantity) }

// MarshalJSON implements the json.Marshaler interface for Activity.
func (a Activity) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("id", a.ID.String())
	w.Append("date", a.Date)
	w.Append("type", a.Type)
	w.Append("symbol", a.Symbol)
	w.Append("quantity", a.Quantity)
	w.Append("unitPrice", a.UnitPrice.Amount())
	w.Optional("fee", a.Fee.Amount())
	w.Append("currency", a.Currency())
	return w.MarshalJSON()
}

// UnmarshalJSON implements the json.Unmarshaler interface for Activity.
func (a *Activity) UnmarshalJSON(data []byte) error {
	var temp struct {
		ID        uuid.UUID    `json:"id"`
		Date      Date         `json:"date"`
		Type      ActivityType `json:"type"`
		Symbol    SymbolID     `json:"symbol"`
		Quantity  Quantity     `json:"quantity"`
		UnitPrice Quantity     `json:"unitPrice"`
		Fee       Quantity     `json:"fee"`
		Currency  string       `json:"currency"`
	}
	if err := unmarshalStrict(data, &temp); err != nil {
		return err
	}
	a.ID = temp.ID
	a.Date = temp.Date
	a.Type = temp.Type
	a.Symbol = temp.Symbol
	a.Quantity = temp.Quantity
	a.UnitPrice = M(temp.UnitPrice.Decimal(), temp.Currency)
	a.Fee = M(temp.Fee.Decimal(), temp.Currency)
	return nil
}

// Ledger holds the chronologically ordered list of activities of one
// portfolio. Activities are sorted by (date, insertion order): the stable
// tie-break makes every calculation reproducible. Same-date ordering by
// insertion rather than by activity-type priority is a deliberate choice.
type Ledger struct {
	activities []Activity
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger { return &Ledger{} }

// Append validates and adds activities to the ledger, keeping it sorted.
func (l *Ledger) Append(activities ...Activity) error {
	for _, a := range activities {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("invalid activity on %s: %w", a.Date, err)
		}
	}
	for _, a := range activities {
		a.seq = len(l.activities)
		l.activities = append(l.activities, a)
	}
	sort.SliceStable(l.activities, func(i, j int) bool {
		if c := l.activities[i].Date.Compare(l.activities[j].Date); c != 0 {
			return c < 0
		}
		return l.activities[i].seq < l.activities[j].seq
	})
	return nil
}

// Len returns the number of activities in the ledger.
func (l *Ledger) Len() int { return len(l.activities) }

// Activities returns the sorted activities matching every given filter.
func (l *Ledger) Activities(filters ...func(Activity) bool) []Activity {
	out := make([]Activity, 0, len(l.activities))
next:
	for _, a := range l.activities {
		for _, keep := range filters {
			if !keep(a) {
				continue next
			}
		}
		out = append(out, a)
	}
	return out
}

// Symbols returns the distinct symbol identifiers, ordered by first appearance.
func (l *Ledger) Symbols() []SymbolID {
	seen := make(map[SymbolID]struct{})
	var ids []SymbolID
	for _, a := range l.activities {
		if _, ok := seen[a.Symbol]; !ok {
			seen[a.Symbol] = struct{}{}
			ids = append(ids, a.Symbol)
		}
	}
	return ids
}

// FirstActivityDate returns the date of the earliest activity, or a zero
// date for an empty ledger.
func (l *Ledger) FirstActivityDate() Date {
	if len(l.activities) == 0 {
		return Date{}
	}
	return l.activities[0].Date
}

// BySymbol returns a filter keeping activities of one symbol.
func BySymbol(id SymbolID) func(Activity) bool {
	return func(a Activity) bool { return a.Symbol == id }
}

// ByType returns a filter keeping activities of one type.
func ByType(t ActivityType) func(Activity) bool {
	return func(a Activity) bool { return a.Type == t }
}

// ByRange returns a filter keeping activities within a date range.
func ByRange(r Range) func(Activity) bool {
	return func(a Activity) bool { return r.Contains(a.Date) }
}
