package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/jmalloc/twelf/src/twelf"
	"github.com/spf13/cobra"
	"github.com/strand/strand-go/src/strand"
	"github.com/strand/strand-go/src/strand/cache"
	"github.com/strand/strand-go/src/strand/options"
	"github.com/strand/strand-go/src/strandamqp"
	"github.com/strand/strand-go/src/strandhttp"
)

// newClient builds a client from the global flags, the environment and the
// optional configuration file. Flags win over the file, the file wins over
// the environment.
func newClient(ctx context.Context) (*strand.Client, error) {
	opts, err := options.FromEnv()
	if err != nil {
		return nil, err
	}

	if flagConfig != "" {
		fileOpts, err := options.FromFile(flagConfig)
		if err != nil {
			return nil, err
		}
		opts = append(opts, fileOpts...)
	}

	logger := &twelf.StandardLogger{CaptureDebug: flagDebug}
	opts = append(opts, options.Logger(logger))

	if flagTimeout > 0 {
		opts = append(opts, options.DefaultTimeout(
			time.Duration(flagTimeout)*time.Millisecond,
		))
	}

	opts = append(opts, options.Product("strand-sandbox/0.1.0"))

	var transport strand.Transport

	if flagAMQP != "" {
		d := strandamqp.Dialer{Logger: logger}
		transport, err = d.Dial(ctx, flagAMQP)
	} else {
		transport, err = strandhttp.New(
			flagURL,
			strandhttp.WithLogger(logger),
		)
	}
	if err != nil {
		return nil, err
	}

	return strand.NewClient(transport, opts...)
}

// parseArgs decodes the optional JSON argument payload.
func parseArgs(args []string) (any, error) {
	if len(args) < 2 {
		return nil, nil
	}

	var v any
	if err := json.Unmarshal([]byte(args[1]), &v); err != nil {
		return nil, fmt.Errorf("arguments are not valid JSON: %w", err)
	}

	return v, nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(string(out))

	return nil
}

func newQueryCommand() *cobra.Command {
	var consistent bool

	cmd := &cobra.Command{
		Use:   "query NAME [ARGS_JSON]",
		Short: "Execute a query and print the result",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			client, err := newClient(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			queryArgs, err := parseArgs(args)
			if err != nil {
				return err
			}

			var result any
			if consistent {
				result, err = strand.ConsistentQuery[any](ctx, client, args[0], queryArgs)
			} else {
				result, err = strand.Query[any](ctx, client, args[0], queryArgs)
			}
			if err != nil {
				return err
			}

			return printJSON(result)
		},
	}

	cmd.Flags().BoolVar(&consistent, "consistent", false, "pin the query to the current snapshot cursor")

	return cmd
}

func newMutateCommand() *cobra.Command {
	var invalidates []string

	cmd := &cobra.Command{
		Use:   "mutate NAME [ARGS_JSON]",
		Short: "Execute a mutation and print the result",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			client, err := newClient(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			if len(invalidates) > 0 {
				client.Dependencies().Define(args[0], invalidates...)
			}

			mutArgs, err := parseArgs(args)
			if err != nil {
				return err
			}

			result, err := strand.Mutate[any](ctx, client, args[0], mutArgs)
			if err != nil {
				return err
			}

			return printJSON(result)
		},
	}

	cmd.Flags().StringSliceVar(&invalidates, "invalidates", nil, "query patterns to invalidate when the mutation succeeds")

	return cmd
}

func newWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch KEY",
		Short: "Subscribe to a cache key and print changes until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			client, err := newClient(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			sub := client.Subscribe(args[0])
			defer sub.Close()

			// prime the cache so that changes start flowing
			if _, err := strand.Query[any](ctx, client, args[0], nil); err != nil {
				fmt.Fprintln(os.Stderr, "initial query failed:", err)
			}

			signals := make(chan os.Signal, 1)
			signal.Notify(signals, os.Interrupt)
			defer signal.Stop(signals)

			for {
				select {
				case change, ok := <-sub.Changes():
					if !ok {
						return nil
					}
					printChange(change)

				case <-signals:
					return nil
				}
			}
		},
	}
}

func printChange(change cache.Change) {
	if !change.Present {
		fmt.Printf("%s removed (%s)\n", change.Key, change.Source)
		return
	}

	fmt.Printf("%s = %v (%s)\n", change.Key, change.Value, change.Source)
}
