// Package rollback undoes the remote side effects of a failed run.
//
// Resources are compensated in reverse creation order. Rollback is
// best-effort: a failure on one resource is collected and the remaining
// resources are still processed.
package rollback

import (
	"context"
	"errors"
	"fmt"

	"github.com/imamik/launchpad/internal/deployment"
	"github.com/imamik/launchpad/internal/metrics"
	"github.com/imamik/launchpad/internal/observe"
)

const phase = "rollback"

// Manager reverses resources recorded in a deployment context.
type Manager struct {
	Platform deployment.Platform
	DNS      deployment.DNSProvider
	Observer observe.Observer
}

// NewManager creates a rollback manager. Any capability may be nil if the
// run never creates that kind of resource.
func NewManager(platform deployment.Platform, dns deployment.DNSProvider, observer observe.Observer) *Manager {
	if observer == nil {
		observer = observe.NewConsoleObserver()
	}
	return &Manager{
		Platform: platform,
		DNS:      dns,
		Observer: observer,
	}
}

// Rollback deletes dc.Resources in reverse order and returns one
// *deployment.RollbackError per resource that could not be deleted. A
// dry-run context makes no remote calls.
func (m *Manager) Rollback(ctx context.Context, dc *deployment.Context) []error {
	if dc.DryRun {
		m.Observer.Printf("[Rollback] dry run: would delete %d resources", len(dc.Resources))
		return nil
	}

	m.Observer.Printf("[Rollback] Rolling back %d resources for %s", len(dc.Resources), dc.Spec.ID)

	var errs []error
	for i := len(dc.Resources) - 1; i >= 0; i-- {
		res := dc.Resources[i]
		if err := m.undo(ctx, res); err != nil {
			metrics.RecordRollback(string(res.Type()), "failed")
			m.Observer.Event(observe.Event{
				Type:     observe.EventResourceFailed,
				Phase:    phase,
				Resource: res.ID(),
				Message:  fmt.Sprintf("failed to delete %s: %v", res.Type(), err),
				Fields:   map[string]string{"type": string(res.Type())},
			})
			errs = append(errs, &deployment.RollbackError{
				ResourceType: res.Type(),
				ResourceID:   res.ID(),
				Err:          err,
			})
		}
	}

	if len(errs) > 0 {
		m.Observer.Printf("[Rollback] Completed with %d errors", len(errs))
	}
	return errs
}

// undo dispatches on the closed set of resource variants.
func (m *Manager) undo(ctx context.Context, res deployment.Resource) error {
	switch r := res.(type) {
	case deployment.PlatformApp:
		return m.deleteApp(ctx, r)
	case deployment.DNSRecord:
		return m.deleteRecord(ctx, r)
	case deployment.Monitor:
		return m.deleteMonitor(ctx, r)
	default:
		// unreachable: Resource is sealed
		panic(fmt.Sprintf("rollback: unhandled resource %T", res))
	}
}

func (m *Manager) deleteApp(ctx context.Context, r deployment.PlatformApp) error {
	if m.Platform == nil {
		return fmt.Errorf("no deployment platform configured")
	}
	if err := m.Platform.Delete(ctx, r.AppID); err != nil {
		if errors.Is(err, deployment.ErrNotFound) {
			m.gone(r)
			return nil
		}
		return err
	}
	metrics.RecordRollback(string(deployment.ResourcePlatformApp), "deleted")
	observe.ResourceDeleted(m.Observer, phase, string(deployment.ResourcePlatformApp), r.AppID)
	return nil
}

func (m *Manager) deleteRecord(ctx context.Context, r deployment.DNSRecord) error {
	if r.ZoneID == "" {
		metrics.RecordRollback(string(deployment.ResourceDNSRecord), "skipped")
		m.skip(r, "no zone reference recorded")
		return nil
	}
	if m.DNS == nil {
		return fmt.Errorf("no DNS provider configured")
	}
	if err := m.DNS.DeleteRecord(ctx, r.ZoneID, r.RecordID); err != nil {
		if errors.Is(err, deployment.ErrNotFound) {
			m.gone(r)
			return nil
		}
		return err
	}
	metrics.RecordRollback(string(deployment.ResourceDNSRecord), "deleted")
	observe.ResourceDeleted(m.Observer, phase, string(deployment.ResourceDNSRecord), r.RecordID)
	return nil
}

// deleteMonitor is a logged no-op: monitors are left for the operator until
// the monitoring client supports deletion end to end.
func (m *Manager) deleteMonitor(_ context.Context, r deployment.Monitor) error {
	metrics.RecordRollback(string(deployment.ResourceMonitor), "skipped")
	m.skip(r, "monitor deletion not implemented, remove it manually")
	return nil
}

// gone records a resource that was already deleted outside the run.
func (m *Manager) gone(res deployment.Resource) {
	metrics.RecordRollback(string(res.Type()), "absent")
	m.Observer.Printf("[Rollback] %s %s already deleted", res.Type(), res.ID())
}

func (m *Manager) skip(res deployment.Resource, reason string) {
	m.Observer.Event(observe.Event{
		Type:     observe.EventResourceSkipped,
		Phase:    phase,
		Resource: res.ID(),
		Message:  fmt.Sprintf("skipping %s: %s", res.Type(), reason),
		Fields:   map[string]string{"type": string(res.Type())},
	})
}
