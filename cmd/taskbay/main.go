// Package main is the single-binary entrypoint for taskbay.
// taskbay is a task-marketplace escrow daemon: rewards are locked into
// ledger custody at post time and released by lifecycle transitions.
package main

import "github.com/taskbay-network/taskbay/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
