package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"

	"github.com/finbook/portfolio/cmd"
)

func main() {
	// Shell completion: this returns immediately unless the binary is being
	// invoked by the shell's completion machinery.
	completion().Complete("pfc")

	cmd.InitConfig()

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "help")
	commander.Register(commander.FlagsCommand(), "help")
	commander.Register(commander.CommandsCommand(), "help")
	cmd.Register(commander)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

func completion() *complete.Command {
	dates := predict.Something
	methods := predict.Set{"roai", "twr"}
	currency := predict.Set{"USD", "EUR", "CHF", "GBP", "JPY"}
	return &complete.Command{
		Sub: map[string]*complete.Command{
			"record": {
				Flags: map[string]complete.Predictor{
					"d": dates,
					"t": predict.Set{"buy", "sell", "dividend", "fee", "interest", "liability", "item"},
					"s": predict.Something,
					"q": predict.Something,
					"p": predict.Something,
					"f": predict.Something,
					"c": currency,
				},
			},
			"snapshot": {
				Flags: map[string]complete.Predictor{
					"d": dates,
					"m": methods,
					"c": currency,
				},
			},
			"history": {
				Flags: map[string]complete.Predictor{
					"d": dates,
					"m": methods,
					"c": currency,
					"p": predict.Set{"daily", "weekly", "monthly", "quarterly", "yearly"},
				},
			},
			"update": {
				Flags: map[string]complete.Predictor{
					"from": dates,
				},
			},
			"fmt": {},
		},
	}
}
