package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/launchpad/cmd/launchpad/handlers"
)

// Resume returns the resume command.
func Resume() *cobra.Command {
	var opts handlers.ResumeOptions

	cmd := &cobra.Command{
		Use:   "resume <job-id>",
		Short: "Continue a provisioning job from its last persisted state",
		Long: `Resume continues a provisioning job. Steps whose outputs are already
recorded are not repeated. A job in FAILED_RETRYABLE restarts at the state
where it failed; COMPLETE and FAILED_TERMINAL jobs are left unchanged.

A lock left by a crashed process expires after LAUNCHPAD_LOCK_TTL (default
2m). --force-unlock releases it immediately; only use it when no other
process is working on the job.

Example:
  launchpad resume 3f2b9c1e-0d7a-4c61-9f55-2a8b1e6f0c42
  launchpad resume --force-unlock 3f2b9c1e-0d7a-4c61-9f55-2a8b1e6f0c42`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			return handlers.Resume(cmd.Context(), settings, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.Image, "image", "", "Container image deployed to Coolify")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Print the job as JSON")
	cmd.Flags().BoolVar(&opts.ForceUnlock, "force-unlock", false, "Release the job lock before resuming")

	return cmd
}
