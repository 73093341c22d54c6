package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/launchpad/cmd/launchpad/handlers"
)

// Logs returns the logs command.
func Logs() *cobra.Command {
	var (
		specPath string
		lines    int
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print recent application logs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			return handlers.Logs(cmd.Context(), settings, specPath, lines)
		},
	}

	cmd.Flags().StringVarP(&specPath, "file", "f", "launchpad.yaml", "Path to the deployment spec")
	cmd.Flags().IntVarP(&lines, "lines", "n", 100, "Number of log lines")

	return cmd
}
