// Package cli implements the taskbay command-line interface using Cobra.
// The serve command runs the daemon; every other subcommand is a thin
// client for the daemon's HTTP API.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "taskbay",
	Short: "taskbay — task marketplace with escrowed rewards",
	Long: `taskbay runs a task-marketplace escrow ledger.
Posters lock a reward into custody when they post a task; the ledger
releases it to the freelancer on completion or refunds it on cancel.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var apiAddr string

func init() {
	rootCmd.PersistentFlags().StringVar(&apiAddr, "addr", defaultAddr(),
		"Base URL of the taskbay daemon API")
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func defaultAddr() string {
	if env := os.Getenv("TASKBAY_ADDR"); env != "" {
		return env
	}
	return "http://127.0.0.1:8480"
}
