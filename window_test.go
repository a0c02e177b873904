package portfolio

import "testing"

func TestWindowStart(t *testing.T) {
	end := MustParse("2024-08-15") // a thursday
	first := MustParse("2020-01-10")

	testCases := []struct {
		window Window
		want   string
	}{
		{Window1D, "2024-08-14"},
		{WindowWTD, "2024-08-11"}, // day before monday
		{WindowMTD, "2024-07-31"},
		{WindowYTD, "2023-12-31"},
		{Window1Y, "2023-08-15"},
		{Window5Y, "2020-01-10"}, // clamped to the first activity
		{WindowMax, "2020-01-10"},
	}
	for _, tc := range testCases {
		t.Run(string(tc.window), func(t *testing.T) {
			start, ok := tc.window.Start(end, first)
			if !ok {
				t.Fatalf("window %s: unexpectedly empty", tc.window)
			}
			if want := MustParse(tc.want); start != want {
				t.Errorf("window %s: got %s, want %s", tc.window, start, want)
			}
		})
	}
}

func TestWindowStart_NoElapsedHistory(t *testing.T) {
	// First activity on the evaluation date: no window has any history.
	end := MustParse("2024-01-01")
	first := MustParse("2024-01-01")
	for _, w := range Windows() {
		if _, ok := w.Start(end, first); ok && w != WindowMax {
			t.Errorf("window %s: expected no elapsed history", w)
		}
	}
	// Max still covers the single day.
	if _, ok := WindowMax.Start(end, first); !ok {
		t.Error("max window must cover the first day")
	}
}

func TestParseWindow(t *testing.T) {
	for _, w := range Windows() {
		if _, err := ParseWindow(string(w)); err != nil {
			t.Errorf("ParseWindow(%q): unexpected error %v", w, err)
		}
	}
	if _, err := ParseWindow("2w"); err == nil {
		t.Error("ParseWindow(\"2w\"): expected an error")
	}
}
