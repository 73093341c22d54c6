package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/launchpad/cmd/launchpad/handlers"
)

// Jobs returns the jobs command.
func Jobs() *cobra.Command {
	var opts handlers.JobsOptions

	cmd := &cobra.Command{
		Use:   "jobs [job-id]",
		Short: "List provisioning jobs or show one job",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				opts.ID = args[0]
			}
			return handlers.Jobs(cmd.Context(), settings, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Domain, "domain", "", "Only jobs for this domain")
	cmd.Flags().BoolVar(&opts.Open, "open", false, "Only jobs that are not COMPLETE or FAILED_TERMINAL")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Print as JSON")

	return cmd
}
