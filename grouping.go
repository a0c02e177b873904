package portfolio

// GroupHistoricalData downsamples a daily historical series to one row per
// calendar bucket. Each bucket keeps its chronologically last row, dated at
// the bucket's start, so the value reported for "March" is the state at the
// end of March. Buckets without any row are omitted, never zero-filled.
//
// The input must be sorted by date; the output preserves that order.
func GroupHistoricalData(items []HistoricalDataItem, p Period) []HistoricalDataItem {
	if len(items) == 0 {
		return nil
	}
	var out []HistoricalDataItem
	for _, item := range items {
		bucket := item.Date.StartOf(p)
		row := item
		row.Date = bucket
		if n := len(out); n > 0 && out[n-1].Date == bucket {
			out[n-1] = row
			continue
		}
		out = append(out, row)
	}
	return out
}
