// Package main is the entry point for the launchpad CLI.
//
// launchpad deploys applications described by a declarative spec onto a
// Coolify server, manages their Cloudflare DNS, and can drive a resumable
// provisioning saga for a new domain.
//
// Commands: plan, apply, status, destroy, logs, provision, resume, jobs,
// secrets, serve.
//
// For detailed usage information, run:
//
//	launchpad --help
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/imamik/launchpad/cmd/launchpad/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	cobra.OnFinalize(commands.WriteMetrics)
	// Interrupting cancels the running command; the saga persists its
	// last state and releases its locks on the way out.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := commands.Root().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
