package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/spf13/viper"

	"github.com/finbook/portfolio"
)

type fmtCmd struct{}

func (*fmtCmd) Name() string { return "fmt" }
func (*fmtCmd) Synopsis() string {
	return "validates and formats the ledger file into a canonical form"
}
func (*fmtCmd) Usage() string {
	return `pfc fmt

  Validates and formats the ledger file. This command reads all activities,
  validates them, sorts them by date keeping the original order of same-date
  lines, and writes them back in a canonical JSONL format.

`
}

func (*fmtCmd) SetFlags(*flag.FlagSet) {}

func (*fmtCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ledger, err := DecodeLedgerFile()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not load ledger: %v\n", err)
		return subcommands.ExitFailure
	}

	filename := viper.GetString("ledger-file")
	f, err := os.Create(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening ledger file %q: %v\n", filename, err)
		return subcommands.ExitFailure
	}
	defer f.Close()

	if err := portfolio.EncodeLedger(f, ledger); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing ledger file %q: %v\n", filename, err)
		return subcommands.ExitFailure
	}

	fmt.Fprintf(os.Stderr, "Formatted %d activities in %q.\n", ledger.Len(), filename)
	return subcommands.ExitSuccess
}
