// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument parsing,
// flag binding, and validation. Command execution is delegated to handler
// functions in the handlers package.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/imamik/launchpad/cmd/launchpad/handlers"
	"github.com/imamik/launchpad/internal/config"
)

// vp holds env bindings and the persistent flags of the command tree.
var vp = config.NewViper()

// persistentFlags maps settings keys to the root flags that override them.
var persistentFlags = map[string]string{
	"state_dir":     "state-dir",
	"store":         "store",
	"log_format":    "log-format",
	"metrics_file":  "metrics-file",
	"template_dirs": "template-dir",
}

// Root returns the root command for the launchpad CLI.
//
// The root command owns the flags shared by every subcommand: where job
// state lives, which store backend holds it, the log format and the metrics
// textfile written on exit.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "launchpad",
		Short:        "Deploy applications to Coolify with Cloudflare DNS",
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.String("state-dir", config.DefaultStateDir, "Directory for job snapshots and the job database")
	flags.String("store", config.StoreFile, "Job store backend: file, sqlite or s3")
	flags.String("log-format", "text", "Log format: text or json")
	flags.String("metrics-file", "", "Write Prometheus metrics to this file on exit")
	flags.StringSlice("template-dir", nil, "Directories searched for deployment templates")
	bindFlags(vp, flags)

	// Deployment commands
	cmd.AddCommand(Plan())
	cmd.AddCommand(Apply())
	cmd.AddCommand(Status())
	cmd.AddCommand(Logs())
	cmd.AddCommand(Destroy())
	cmd.AddCommand(Secrets())

	// Provisioning saga
	cmd.AddCommand(Provision())
	cmd.AddCommand(Resume())
	cmd.AddCommand(Jobs())
	cmd.AddCommand(Serve())

	// Utility commands
	cmd.AddCommand(Version())
	cmd.AddCommand(Completion())

	return cmd
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	for key, name := range persistentFlags {
		_ = v.BindPFlag(key, flags.Lookup(name))
	}
}

// loadSettings decodes the effective settings from flags and environment.
func loadSettings() (*config.Settings, error) {
	return config.Load(vp)
}

// WriteMetrics writes the metrics textfile when one was requested. It is
// registered as a cobra finalizer so it runs after failed commands too.
func WriteMetrics() {
	if err := handlers.WriteMetrics(vp.GetString("metrics_file")); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}
