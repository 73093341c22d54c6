package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/launchpad/cmd/launchpad/handlers"
)

// Provision returns the provision command.
//
// Provision starts the provisioning saga for a domain: Cloudflare zone,
// optional domain registration, DNS records, zone activation gate, Coolify
// application, deployment and HTTPS verification. Every step is persisted,
// so an interrupted run continues where it stopped.
func Provision() *cobra.Command {
	var opts handlers.ProvisionOptions

	cmd := &cobra.Command{
		Use:   "provision <domain>",
		Short: "Provision a domain end to end with a resumable job",
		Long: `Provision creates or resumes the provisioning job for a domain.

If an unfinished job exists for the domain it is resumed instead of starting
a new one. A job waiting on zone activation or a pending registration exits
successfully and can be continued with 'launchpad resume <job-id>'.

Records are given as TYPE:NAME:CONTENT, for example A:@:203.0.113.10.

Example:
  launchpad provision shop.example.com --record A:@:203.0.113.10
  launchpad provision shop.example.com --register --contact-file contact.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			opts.Domain = args[0]
			return handlers.Provision(cmd.Context(), settings, opts)
		},
	}

	cmd.Flags().StringVar(&opts.AppName, "app", "", "Application name (defaults to the domain)")
	cmd.Flags().BoolVar(&opts.Register, "register", false, "Register the domain before provisioning")
	cmd.Flags().IntVar(&opts.Years, "years", 1, "Registration period in years")
	cmd.Flags().StringVar(&opts.ContactFile, "contact-file", "", "YAML file with registrant contact data")
	cmd.Flags().StringArrayVar(&opts.Records, "record", nil, "DNS record TYPE:NAME:CONTENT (repeatable)")
	cmd.Flags().StringSliceVar(&opts.Credentials, "credential", nil, "Credential names generated for the application")
	cmd.Flags().StringVar(&opts.Image, "image", "", "Container image deployed to Coolify")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Print the job as JSON")

	return cmd
}
