package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/imamik/launchpad/internal/config"
	"github.com/imamik/launchpad/internal/deployment"
	"github.com/imamik/launchpad/internal/observe"
	"github.com/imamik/launchpad/internal/orchestrator"
	"github.com/imamik/launchpad/internal/secrets"
	"github.com/imamik/launchpad/internal/spec"
	"github.com/imamik/launchpad/internal/verify"
)

// ApplyOptions are the flags of the apply command.
type ApplyOptions struct {
	SpecPath       string
	DryRun         bool
	JSON           bool
	PersistSecrets bool
}

// Apply runs one deployment and prints its report. It returns an error when
// the run ends in FAILED.
func Apply(ctx context.Context, settings *config.Settings, opts ApplyOptions) error {
	s, err := spec.Load(opts.SpecPath)
	if err != nil {
		return err
	}

	obs := newObserver(settings)
	resolver := newResolver(filepath.Dir(opts.SpecPath))
	orch, err := newOrchestrator(settings, s, resolver, obs, !opts.DryRun)
	if err != nil {
		return err
	}

	report := orch.Run(ctx, deployment.NewContext(s, opts.DryRun))

	if opts.PersistSecrets && !opts.DryRun && keepsResources(report) {
		if err := resolver.PersistGenerated(); err != nil {
			observe.Warn(obs, string(report.Phase), "could not persist generated secrets: %v", err)
		}
	}

	if opts.JSON {
		if err := printJSON(newReportView(report)); err != nil {
			return err
		}
	} else {
		printReport(report)
	}

	if code := report.ExitCode(); code != 0 {
		return fmt.Errorf("deployment %s failed: %v", report.ID, report.Err)
	}
	return nil
}

// Plan prints the actions an apply would take. No remote call is made.
func Plan(_ context.Context, settings *config.Settings, specPath string, jsonOut bool) error {
	s, err := spec.Load(specPath)
	if err != nil {
		return err
	}
	validator := &spec.Validator{TemplateDirs: settings.TemplateDirs}
	warnings, err := validator.Validate(s)
	if err != nil {
		return err
	}

	orch, err := newOrchestrator(settings, s, nil, newObserver(settings), false)
	if err != nil {
		return err
	}
	dc := deployment.NewContext(s, true)
	actions := orch.Plan(dc)

	if jsonOut {
		view := planView{ID: s.ID, Fingerprint: dc.Fingerprint}
		for _, w := range warnings {
			view.Warnings = append(view.Warnings, w.String())
		}
		for _, a := range actions {
			view.Actions = append(view.Actions, actionView{Phase: string(a.Phase), Description: a.Description})
		}
		return printJSON(view)
	}
	printPlan(s, dc.Fingerprint, warnings, actions)
	return nil
}

// newOrchestrator wires the orchestrator for s. Without remote access the
// platform and DNS clients are left unset, which is enough for dry runs and
// plans.
func newOrchestrator(settings *config.Settings, s *spec.Spec, resolver *secrets.Resolver, obs observe.Observer, remote bool) (*orchestrator.Orchestrator, error) {
	var (
		platform deployment.Platform
		dns      deployment.DNSProvider
	)
	if remote {
		p, err := newPlatform(settings, s.Template)
		if err != nil {
			return nil, err
		}
		platform = p

		if len(s.DNS) > 0 || settings.CloudflareToken != "" {
			d, err := newDNS(settings)
			if err != nil {
				return nil, err
			}
			dns = d
		}
	}

	var secretResolver orchestrator.SecretResolver
	if resolver != nil {
		secretResolver = resolver
	}
	return orchestrator.New(platform, dns, verify.NewVerifier(nil, obs), secretResolver, obs,
		orchestrator.WithPostconditions(verify.NewChecker(obs)),
		orchestrator.WithValidator(&spec.Validator{TemplateDirs: settings.TemplateDirs}),
	), nil
}

// keepsResources reports whether the run left remote resources in place,
// in which case generated secrets are in use and must survive.
func keepsResources(r *orchestrator.Report) bool {
	return r.Phase == deployment.PhaseComplete || r.ResourcesKept
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	fmt.Fprintln(stdout, string(b))
	return nil
}
