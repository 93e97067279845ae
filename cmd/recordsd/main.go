// Command recordsd runs the records service and provides operational
// subcommands for migrations and talking to a running instance.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	app "github.com/R3E-Network/records_service/internal/app"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "recordsd",
		Short: "Records service",
		Long: `recordsd serves the records API and manages its schema.

Available subcommands:
  serve   - Run the HTTP API until SIGINT/SIGTERM
  migrate - Apply or roll back the postgres schema
  client  - Call a running instance
  version - Print the build version`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "path to YAML config (defaults to $RECORDS_CONFIG)")

	root.AddCommand(newServeCmd(), newMigrateCmd(), newClientCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), app.Version)
		},
	}
}
