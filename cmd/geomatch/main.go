// Command geomatch pairs every point of a query set with the nearest point
// of a reference set, by great-circle distance.
//
//	geomatch match query.csv reference.csv
//	geomatch match --interactive --format yaml
//	geomatch parse "40°26'46\"N" "79°58.93'W"
//	geomatch submit query.csv reference.csv
//	geomatch batch --wait query.csv reference.csv
package main

import (
	"log/slog"
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/samirrijal/geomatch/internal/pkg/config"
	"github.com/samirrijal/geomatch/internal/pkg/logging"
)

// Options are the global flags shared by every command.
type Options struct {
	LogLevel  string `long:"log-level" env:"GEOMATCH_LOG_LEVEL" description:"Log level" choice:"debug" choice:"info" choice:"warn" choice:"error" default:"warn"`
	LogFormat string `long:"log-format" env:"GEOMATCH_LOG_FORMAT" description:"Log format" choice:"text" choice:"json" default:"text"`
}

var opts Options

func main() {
	parser := flags.NewParser(&opts, flags.Default)
	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		logging.SetupTo(os.Stderr, opts.LogLevel, opts.LogFormat)
		if cmd == nil {
			return nil
		}
		return cmd.Execute(args)
	}

	_, _ = parser.AddCommand("match", "Match two point sets",
		"Reads the query and reference sets from CSV files, or prompts for them with --interactive, and writes one record per query point.",
		&MatchCommand{})
	_, _ = parser.AddCommand("parse", "Normalise coordinate tokens",
		"Prints the decimal-degree value and notation of each token. Reads tokens from stdin, one per line, when none are given.",
		&ParseCommand{})
	_, _ = parser.AddCommand("submit", "Queue a match job on NATS",
		"Publishes both CSV files as one match job for the matcher service.",
		&SubmitCommand{})
	_, _ = parser.AddCommand("batch", "Start a batch match workflow",
		"Starts BatchMatchWorkflow on Temporal for two CSV files readable by the worker.",
		&BatchCommand{})

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
			os.Exit(2)
		}
		slog.Error("geomatch failed", "error", err)
		os.Exit(1)
	}
}

// loadConfig reads the shared service configuration (config.yaml and
// GEOMATCH_* variables). Flags given on the command line take precedence.
func loadConfig() (*config.Config, error) {
	return config.Load("geomatch-cli")
}
