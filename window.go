package portfolio

import "fmt"

// Window identifies a standard reporting window, anchored to the evaluation
// date: how far back the per-window performance figures look.
type Window string

const (
	Window1D  Window = "1d"
	WindowWTD Window = "wtd"
	WindowMTD Window = "mtd"
	WindowYTD Window = "ytd"
	Window1Y  Window = "1y"
	Window5Y  Window = "5y"
	WindowMax Window = "max"
)

// Windows returns the fixed set of reporting windows, shortest first.
func Windows() []Window {
	return []Window{Window1D, WindowWTD, WindowMTD, WindowYTD, Window1Y, Window5Y, WindowMax}
}

// ParseWindow parses a window name.
func ParseWindow(s string) (Window, error) {
	switch w := Window(s); w {
	case Window1D, WindowWTD, WindowMTD, WindowYTD, Window1Y, Window5Y, WindowMax:
		return w, nil
	default:
		return "", fmt.Errorf("unknown reporting window %q", s)
	}
}

// Start returns the window's start date for an evaluation on 'end', given
// the date of the first activity. The start is clamped to 'first': a window
// never reaches before the position existed. The second return value is
// false when the window has no elapsed history at all (its nominal start is
// on or after the evaluation date, e.g. ytd on January 1st of the first
// year of activity).
func (w Window) Start(end, first Date) (Date, bool) {
	var start Date
	switch w {
	case Window1D:
		start = end.Add(-1)
	case WindowWTD:
		start = end.StartOf(Weekly).Add(-1)
	case WindowMTD:
		start = end.StartOf(Monthly).Add(-1)
	case WindowYTD:
		start = end.StartOf(Yearly).Add(-1)
	case Window1Y:
		start = end.AddYear(-1)
	case Window5Y:
		start = end.AddYear(-5)
	case WindowMax:
		return first, !first.After(end)
	default:
		panic(fmt.Sprintf("unknown reporting window %q", w))
	}
	if start.Before(first) {
		start = first
	}
	if !start.Before(end) {
		return Date{}, false
	}
	return start, true
}
