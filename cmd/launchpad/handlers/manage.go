package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/imamik/launchpad/internal/config"
	"github.com/imamik/launchpad/internal/deployment"
	"github.com/imamik/launchpad/internal/observe"
	"github.com/imamik/launchpad/internal/orchestrator"
	"github.com/imamik/launchpad/internal/platform/cloudflare"
	"github.com/imamik/launchpad/internal/saga"
	"github.com/imamik/launchpad/internal/spec"
)

// ErrAborted is returned when the operator declines a confirmation.
var ErrAborted = errors.New("aborted by user")

// recordLister finds existing records so destroy can delete them by name.
type recordLister interface {
	deployment.ZoneLookup
	ListDNSRecords(ctx context.Context, zoneID, recordType, name string) ([]cloudflare.Record, error)
}

// Status prints the platform status of the application named by the spec.
func Status(ctx context.Context, settings *config.Settings, specPath string, jsonOut bool) error {
	s, orch, err := remoteOrchestrator(settings, specPath)
	if err != nil {
		return err
	}

	app, err := orch.Status(ctx, s)
	if err != nil {
		if errors.Is(err, orchestrator.ErrNotDeployed) {
			fmt.Fprintf(stdout, "%s is not deployed\n", s.ID)
			return nil
		}
		return err
	}

	if jsonOut {
		return printJSON(app)
	}
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, titleStyle.Render("  launchpad status: "+s.ID))
	fmt.Fprintln(stdout)
	printField("Application", valueStyle.Render(app.ID))
	if app.FQDN != "" {
		printField("URL", valueStyle.Render(app.FQDN))
	}
	printField("Status", appStatusStyle(app.Status).Render(app.Status))
	fmt.Fprintln(stdout)
	return nil
}

// Logs prints the last lines of the application's logs.
func Logs(ctx context.Context, settings *config.Settings, specPath string, lines int) error {
	s, orch, err := remoteOrchestrator(settings, specPath)
	if err != nil {
		return err
	}
	out, err := orch.Logs(ctx, s, lines)
	if err != nil {
		return err
	}
	for _, line := range out {
		fmt.Fprintln(stdout, line)
	}
	return nil
}

// Destroy deletes the application and the spec's DNS records. On a terminal
// the operator confirms first unless yes is set; without a terminal yes is
// required.
func Destroy(ctx context.Context, settings *config.Settings, specPath string, yes bool) error {
	s, orch, err := remoteOrchestrator(settings, specPath)
	if err != nil {
		return err
	}

	if !yes {
		if !isTerminal() {
			return errors.New("refusing to destroy without --yes when not running in a terminal")
		}
		ok, err := confirm(ctx,
			fmt.Sprintf("Destroy %s?", s.ID),
			fmt.Sprintf("Deletes the application and %d DNS records. This cannot be undone.", len(s.DNS)))
		if err != nil {
			return err
		}
		if !ok {
			return ErrAborted
		}
	}

	obs := newObserver(settings)
	if err := orch.Destroy(ctx, s); err != nil {
		return fmt.Errorf("destroy failed: %w", err)
	}

	if len(s.DNS) > 0 {
		dns, err := newDNS(settings)
		if err != nil {
			return err
		}
		if err := deleteRecords(ctx, dns, s, obs); err != nil {
			return err
		}
	}

	fmt.Fprintf(stdout, "%s %s destroyed\n", okStyle.Render(checkMark), s.ID)
	return nil
}

// deleteRecords removes every record the spec lists. Records that are
// already gone are skipped; the first other failure is returned after all
// records were attempted.
func deleteRecords(ctx context.Context, dns DNSClient, s *spec.Spec, obs observe.Observer) error {
	lister, ok := dns.(recordLister)
	if !ok {
		observe.Warn(obs, "destroy", "DNS provider cannot look up records, %d records left in place", len(s.DNS))
		return nil
	}
	zoneID, err := lister.ZoneID(ctx, s.Domain)
	if err != nil {
		if errors.Is(err, deployment.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("zone lookup for %s: %w", s.Domain, err)
	}

	var errs []error
	for _, r := range s.DNS {
		records, err := lister.ListDNSRecords(ctx, zoneID, r.Type, cloudflare.FQDN(s.Domain, r.Name))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, rec := range records {
			if err := dns.DeleteRecord(ctx, zoneID, rec.ID); err != nil && !errors.Is(err, deployment.ErrNotFound) {
				errs = append(errs, err)
				continue
			}
			observe.ResourceDeleted(obs, "destroy", string(deployment.ResourceDNSRecord), rec.ID)
		}
	}
	return errors.Join(errs...)
}

// remoteOrchestrator loads the spec and wires an orchestrator with live
// clients.
func remoteOrchestrator(settings *config.Settings, specPath string) (*spec.Spec, *orchestrator.Orchestrator, error) {
	s, err := spec.Load(specPath)
	if err != nil {
		return nil, nil, err
	}
	orch, err := newOrchestrator(settings, s, nil, newObserver(settings), true)
	if err != nil {
		return nil, nil, err
	}
	return s, orch, nil
}

func appStatusStyle(status string) lipgloss.Style {
	switch saga.ClassifyStatus(status) {
	case saga.HealthHealthy:
		return okStyle
	case saga.HealthDegraded:
		return failedStyle
	default:
		return warningStyle
	}
}
