package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/imamik/launchpad/internal/deployment"
	"github.com/imamik/launchpad/internal/observe"
	"github.com/imamik/launchpad/internal/spec"
)

// ErrNotDeployed is returned by Status and Logs when the application does
// not exist on the platform.
var ErrNotDeployed = errors.New("application not deployed")

// Destroy deletes the application named by s. An application that does not
// exist counts as already deleted.
func (o *Orchestrator) Destroy(ctx context.Context, s *spec.Spec) error {
	app, err := o.platform.FindByName(ctx, s.ID)
	if err != nil {
		return deployError("find", err)
	}
	if app == nil {
		o.observer.Printf("[Destroy] %s not found, nothing to delete", s.ID)
		return nil
	}

	o.observer.Event(observe.Event{
		Type:     observe.EventResourceDeleting,
		Phase:    "destroy",
		Resource: app.ID,
		Message:  fmt.Sprintf("deleting application %s", s.ID),
	})
	if err := o.platform.Delete(ctx, app.ID); err != nil {
		if errors.Is(err, deployment.ErrNotFound) {
			return nil
		}
		return deployError("delete", err)
	}
	observe.ResourceDeleted(o.observer, "destroy", string(deployment.ResourcePlatformApp), app.ID)
	return nil
}

// Status returns the application named by s with its current status.
func (o *Orchestrator) Status(ctx context.Context, s *spec.Spec) (*deployment.App, error) {
	app, err := o.platform.FindByName(ctx, s.ID)
	if err != nil {
		return nil, deployError("find", err)
	}
	if app == nil {
		return nil, fmt.Errorf("%s: %w", s.ID, ErrNotDeployed)
	}
	status, err := o.platform.GetStatus(ctx, app.ID)
	if err != nil {
		return nil, deployError("status", err)
	}
	app.Status = status
	return app, nil
}

// Logs returns the last lines of the application's logs when the platform
// exposes them.
func (o *Orchestrator) Logs(ctx context.Context, s *spec.Spec, lines int) ([]string, error) {
	source, ok := o.platform.(deployment.LogSource)
	if !ok {
		return nil, errors.New("deployment platform does not expose logs")
	}
	app, err := o.platform.FindByName(ctx, s.ID)
	if err != nil {
		return nil, deployError("find", err)
	}
	if app == nil {
		return nil, fmt.Errorf("%s: %w", s.ID, ErrNotDeployed)
	}
	return source.Logs(ctx, app.ID, lines)
}
