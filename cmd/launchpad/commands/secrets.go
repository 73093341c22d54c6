package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/launchpad/cmd/launchpad/handlers"
)

// Secrets returns the secrets command.
func Secrets() *cobra.Command {
	var opts handlers.SecretsOptions

	cmd := &cobra.Command{
		Use:   "secrets",
		Short: "Show where each secret of a spec resolves from",
		Long: `Secrets resolves the spec's required and generated secrets and shows
their source: the process environment, the project .env file, or a newly
generated value. Values are masked unless --reveal is given.

Example:
  launchpad secrets -f launchpad.yaml --persist`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Secrets(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.SpecPath, "file", "f", "launchpad.yaml", "Path to the deployment spec")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Print the result as JSON")
	cmd.Flags().BoolVar(&opts.Reveal, "reveal", false, "Print secret values unmasked")
	cmd.Flags().BoolVar(&opts.Persist, "persist", false, "Append generated values to the project .env file")

	return cmd
}
