package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/launchpad/cmd/launchpad/handlers"
)

// Apply returns the apply command.
//
// Apply drives one deployment through validation, DNS provisioning,
// deployment and verification. A failure after resources were created
// rolls them back in reverse creation order.
func Apply() *cobra.Command {
	var opts handlers.ApplyOptions

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Deploy an application from a spec",
		Long: `Apply deploys the application described by a spec.

The run moves through VALIDATING, PROVISIONING, DEPLOYING and VERIFYING.
Resources created before a failure are deleted newest first. When the spec
sets rollback.automatic to false, a failed verification keeps them.

Environment:
  COOLIFY_URL, COOLIFY_TOKEN, COOLIFY_SERVER_UUID, COOLIFY_PROJECT_UUID
  CLOUDFLARE_API_TOKEN (required when the spec lists dns records)

Example:
  launchpad apply -f launchpad.yaml
  launchpad apply -f launchpad.yaml --dry-run`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			return handlers.Apply(cmd.Context(), settings, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.SpecPath, "file", "f", "launchpad.yaml", "Path to the deployment spec")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Walk every phase without remote calls")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Print the run report as JSON")
	cmd.Flags().BoolVar(&opts.PersistSecrets, "persist-secrets", true, "Append generated secrets to the project .env file")

	return cmd
}
