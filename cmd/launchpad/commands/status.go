package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/launchpad/cmd/launchpad/handlers"
)

// Status returns the status command.
func Status() *cobra.Command {
	var (
		specPath string
		jsonOut  bool
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the platform status of a deployed application",
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			return handlers.Status(cmd.Context(), settings, specPath, jsonOut)
		},
	}

	cmd.Flags().StringVarP(&specPath, "file", "f", "launchpad.yaml", "Path to the deployment spec")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the status as JSON")

	return cmd
}
