package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/launchpad/cmd/launchpad/handlers"
)

// Destroy returns the destroy command.
func Destroy() *cobra.Command {
	var (
		specPath string
		yes      bool
	)

	cmd := &cobra.Command{
		Use:   "destroy",
		Short: "Delete a deployed application and its DNS records",
		Long: `Destroy deletes the application named by the spec id from Coolify and
removes the spec's DNS records from Cloudflare.

On a terminal the command asks for confirmation unless --yes is given.

Example:
  launchpad destroy -f launchpad.yaml

WARNING: This operation is irreversible. Application volumes are deleted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			return handlers.Destroy(cmd.Context(), settings, specPath, yes)
		},
	}

	cmd.Flags().StringVarP(&specPath, "file", "f", "launchpad.yaml", "Path to the deployment spec")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}
