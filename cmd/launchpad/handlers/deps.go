// Package handlers implements the business logic behind each CLI command.
//
// Handlers build their collaborators through package-level factory
// variables so tests can replace the Coolify and Cloudflare clients, the job
// store and the interactive prompts.
package handlers

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-logr/logr/funcr"
	"github.com/mattn/go-isatty"

	"github.com/imamik/launchpad/internal/config"
	"github.com/imamik/launchpad/internal/deployment"
	"github.com/imamik/launchpad/internal/jobstore"
	"github.com/imamik/launchpad/internal/observe"
	"github.com/imamik/launchpad/internal/platform/cloudflare"
	"github.com/imamik/launchpad/internal/platform/coolify"
	"github.com/imamik/launchpad/internal/secrets"
)

// DNSClient is the Cloudflare surface the handlers use: records, zones and
// the registrar.
type DNSClient interface {
	deployment.DNSProvider
	deployment.Registrar
}

// Factory function variables - can be replaced in tests.
var (
	// newPlatform creates the Coolify client deploying image.
	newPlatform = func(s *config.Settings, image string) (deployment.Platform, error) {
		if err := s.RequireCoolify(); err != nil {
			return nil, err
		}
		var opts []coolify.Option
		if image != "" {
			opts = append(opts, coolify.WithImage(image))
		}
		return coolify.NewClient(s.CoolifyURL, s.CoolifyToken, s.CoolifyServerUUID, s.CoolifyProjectUUID, opts...), nil
	}

	// newDNS creates the Cloudflare client.
	newDNS = func(s *config.Settings) (DNSClient, error) {
		if err := s.RequireCloudflare(); err != nil {
			return nil, err
		}
		return cloudflare.NewClient(s.CloudflareToken, s.CloudflareAccountID), nil
	}

	// openStore opens the configured job store.
	openStore = jobstore.Open

	// newResolver creates the secrets resolver for a project directory.
	newResolver = func(dir string) *secrets.Resolver {
		return secrets.NewResolver(dir)
	}

	// isTerminal reports whether stdout is interactive.
	isTerminal = func() bool {
		return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	}

	// confirm asks a yes/no question.
	confirm = confirmPrompt

	// promptContact collects registrant data interactively.
	promptContact = contactForm

	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// newObserver returns the observer matching the configured log format.
func newObserver(s *config.Settings) observe.Observer {
	if s.LogFormat == "json" {
		logger := funcr.NewJSON(func(obj string) {
			fmt.Fprintln(stderr, obj)
		}, funcr.Options{LogTimestamp: true})
		return observe.NewLogrObserver(logger.WithName("launchpad"))
	}
	return observe.NewConsoleObserver()
}

// withStore opens the job store, runs fn and closes the store.
func withStore(ctx context.Context, s *config.Settings, fn func(jobstore.Store) error) error {
	store, err := openStore(ctx, s)
	if err != nil {
		return fmt.Errorf("failed to open job store: %w", err)
	}
	defer func() { _ = store.Close() }()
	return fn(store)
}
