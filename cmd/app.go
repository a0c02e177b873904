// Package cmd implements the CLI application to record activities and report
// portfolio performance.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/finbook/portfolio"
)

// Register the subcommands.
// A main package calls Register() to allow subcommands, and Execute() on the
// user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&recordCmd{}, "ledger")
	c.Register(&fmtCmd{}, "ledger")

	c.Register(&updateCmd{}, "market data")

	c.Register(&snapshotCmd{}, "reports")
	c.Register(&historyCmd{}, "reports")
}

// InitConfig loads defaults from a config file and the environment. Flags on
// individual commands override these.
func InitConfig() {
	viper.SetConfigName(".pfc")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME")
	viper.SetEnvPrefix("pfc")
	viper.AutomaticEnv()

	viper.SetDefault("ledger-file", "activities.jsonl")
	viper.SetDefault("market-file", "market.jsonl")
	viper.SetDefault("base-currency", "USD")
	viper.SetDefault("method", string(portfolio.MethodROAI))

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Warning: could not read config file: %v\n", err)
		}
	}
}

// Logger returns the application logger, verbose when PFC_DEBUG is set.
func Logger() zerolog.Logger {
	level := zerolog.WarnLevel
	if viper.GetBool("debug") {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}

// DecodeLedgerFile loads the ledger from the configured file. A missing file
// yields an empty ledger, not an error.
func DecodeLedgerFile() (*portfolio.Ledger, error) {
	filename := viper.GetString("ledger-file")
	f, err := os.Open(filename)
	if errors.Is(err, fs.ErrNotExist) {
		return portfolio.NewLedger(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot open ledger file %q: %w", filename, err)
	}
	defer f.Close()
	return portfolio.DecodeLedger(f)
}

// DecodeMarketFile loads market data from the configured file. A missing
// file yields an empty repository, not an error.
func DecodeMarketFile() (*portfolio.MarketData, error) {
	filename := viper.GetString("market-file")
	f, err := os.Open(filename)
	if errors.Is(err, fs.ErrNotExist) {
		return portfolio.NewMarketData(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot open market data file %q: %w", filename, err)
	}
	defer f.Close()
	return portfolio.DecodeMarketData(f)
}

// AppendActivity appends a single activity to the configured ledger file.
func AppendActivity(a portfolio.Activity) subcommands.ExitStatus {
	filename := viper.GetString("ledger-file")
	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening ledger file %q: %v\n", filename, err)
		return subcommands.ExitFailure
	}
	defer f.Close()

	if err := portfolio.EncodeActivity(f, a); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing to ledger file %q: %v\n", filename, err)
		return subcommands.ExitFailure
	}

	fmt.Printf("Successfully appended %s activity to %s\n", a.Type, filename)
	return subcommands.ExitSuccess
}

// printMarkdown renders markdown to the terminal, falling back to the raw
// text when the renderer is unavailable.
func printMarkdown(md string) {
	out, err := glamour.Render(md, "auto")
	if err != nil {
		fmt.Println(md)
		return
	}
	fmt.Print(out)
}
