package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/launchpad/cmd/launchpad/handlers"
)

// Serve returns the serve command.
func Serve() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the read-only job API and Prometheus metrics",
		Long: `Serve exposes provisioning jobs over HTTP:

  GET /v1/health
  GET /v1/jobs?domain=&state=&open=
  GET /v1/jobs/{id}
  GET /metrics

Example:
  launchpad serve --addr :8080 --store sqlite`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			return handlers.Serve(cmd.Context(), settings, addr, version)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")

	return cmd
}
