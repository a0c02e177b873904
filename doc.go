// Package portfolio computes investment performance from a raw, unordered
// ledger of financial activities. It is designed to be deterministic,
// auditable, and exact: every monetary figure flows through arbitrary
// precision decimal arithmetic from the first activity to the final
// percentage.
//
// The core functionalities include:
//   - Ledger Management: Recording and validating all financial activities
//     (buys, sells, dividends, fees, interest, liabilities, and valuables)
//     as an immutable, chronologically ordered record.
//   - Transaction Points: Folding the ledger into a sequence of cumulative
//     per-symbol position states, one per activity date.
//   - Position Valuation: Combining transaction points with historical
//     market prices and exchange rates to value each position over time,
//     isolating currency effects from asset-price effects.
//   - Return Strategies: Two interchangeable percentage methodologies,
//     Return on Average Investment (ROAI) and Time-Weighted Return (TWR).
//   - Snapshot Assembly: Aggregating per-symbol results into portfolio
//     totals and a dated historical series, degrading gracefully per symbol
//     when market data is missing.
//
// This package serves as the foundational logic for the `pfc` command-line
// tool. The engine itself performs no I/O: market prices and exchange rates
// are supplied through the QuoteResolver and RateConverter interfaces.
package portfolio
