package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/launchpad/cmd/launchpad/handlers"
)

// Plan returns the plan command.
func Plan() *cobra.Command {
	var (
		specPath string
		jsonOut  bool
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the actions apply would take",
		Long: `Plan validates a deployment spec and lists the actions an apply would
take, without calling Cloudflare or Coolify.

Example:
  launchpad plan -f launchpad.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			return handlers.Plan(cmd.Context(), settings, specPath, jsonOut)
		},
	}

	cmd.Flags().StringVarP(&specPath, "file", "f", "launchpad.yaml", "Path to the deployment spec")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the plan as JSON")

	return cmd
}
