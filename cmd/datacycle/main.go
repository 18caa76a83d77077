package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := buildRoot().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildRoot creates the root command and its subcommands.
func buildRoot() *cobra.Command {
	root := &cobra.Command{
		Use:   "datacycle",
		Short: "Fetch, cache and periodically refresh chart or weather data",
		Long: `datacycle fetches a payload (a chart series or the current weather),
caches it locally and refreshes it while a consumer is active.

Examples:
  datacycle serve                   # HTTP API on $PORT
  datacycle tui                     # interactive terminal client
  datacycle launches                # print the launch log`,
		SilenceUsage: true,
	}

	root.AddCommand(
		createServeCommand(),
		createTUICommand(),
		createLaunchesCommand(),
	)
	return root
}
