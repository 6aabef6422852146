// strand-sandbox is a development tool for poking at a strand backend from
// the command line.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagURL     string
	flagAMQP    string
	flagConfig  string
	flagDebug   bool
	flagTimeout int
)

func main() {
	root := &cobra.Command{
		Use:           "strand-sandbox",
		Short:         "Exercise a strand backend from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagURL, "url", "http://localhost:8187", "base URL of the HTTP transport")
	root.PersistentFlags().StringVar(&flagAMQP, "amqp", "", "AMQP DSN, used instead of the HTTP transport when set")
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "path to a YAML client configuration file")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	root.PersistentFlags().IntVar(&flagTimeout, "timeout", 0, "per-operation timeout in milliseconds")

	root.AddCommand(
		newQueryCommand(),
		newMutateCommand(),
		newWatchCommand(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
