package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/imamik/launchpad/internal/deployment"
	"github.com/imamik/launchpad/internal/observe"
	"github.com/imamik/launchpad/internal/verify"
)

func (o *Orchestrator) validate(_ context.Context, dc *deployment.Context, obs observe.Observer, report *Report) error {
	warnings, err := o.validator.Validate(dc.Spec)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		obs.Event(observe.Event{
			Type:    observe.EventValidationWarning,
			Phase:   string(deployment.PhaseValidating),
			Message: w.String(),
			Fields:  map[string]string{"field": w.Field},
		})
	}
	report.Warnings = warnings

	if o.secrets == nil {
		return nil
	}
	resolved, err := o.secrets.Resolve(dc.Spec.Secrets)
	if err != nil {
		return err
	}
	for k, v := range resolved {
		dc.Secrets[k] = v
	}
	return nil
}

func (o *Orchestrator) provision(ctx context.Context, dc *deployment.Context, obs observe.Observer, _ *Report) error {
	records := dc.Spec.DNS
	if len(records) == 0 {
		return nil
	}
	if dc.DryRun {
		for _, r := range records {
			obs.Printf("[Provision] would upsert %s record %s", r.Type, r.Name)
		}
		return nil
	}
	if o.dns == nil {
		return deployError("dns", errors.New("no DNS provider configured"))
	}

	zoneID := ""
	if lookup, ok := o.dns.(deployment.ZoneLookup); ok {
		id, err := lookup.ZoneID(ctx, dc.Spec.Domain)
		if err != nil {
			observe.Warn(obs, string(deployment.PhaseProvisioning), "zone lookup for %s failed: %v", dc.Spec.Domain, err)
		}
		zoneID = id
	}

	for _, r := range records {
		id, created, err := o.dns.UpsertRecord(ctx, dc.Spec.Domain, r.Type, r.Name, r.Content)
		if err != nil {
			return deployError("upsert_record", fmt.Errorf("%s %s: %w", r.Type, r.Name, err))
		}
		if !created {
			obs.Event(observe.Event{
				Type:     observe.EventResourceExists,
				Phase:    string(deployment.PhaseProvisioning),
				Resource: id,
				Message:  fmt.Sprintf("%s record %s exists, updated in place", r.Type, r.Name),
			})
			continue
		}
		res := deployment.DNSRecord{ZoneID: zoneID, RecordID: id, Name: r.Name, RecordType: r.Type}
		dc.Record(res)
		observe.ResourceCreated(obs, string(deployment.PhaseProvisioning), string(res.Type()), id)
	}
	return nil
}

func (o *Orchestrator) deploy(ctx context.Context, dc *deployment.Context, obs observe.Observer, _ *Report) error {
	name := dc.Spec.ID
	url := fqdn(dc.Spec)

	if dc.DryRun {
		obs.Printf("[Deploy] would create or update application %s at %s", name, url)
		dc.URL = url
		return nil
	}
	if o.platform == nil {
		return deployError("deploy", errors.New("no deployment platform configured"))
	}

	existing, err := o.platform.FindByName(ctx, name)
	if err != nil {
		return deployError("find", err)
	}

	var appID string
	if existing != nil {
		appID = existing.ID
		obs.Event(observe.Event{
			Type:     observe.EventResourceExists,
			Phase:    string(deployment.PhaseDeploying),
			Resource: appID,
			Message:  fmt.Sprintf("application %s exists, updating", name),
		})
		if err := o.platform.Update(ctx, appID, url, dc.Env()); err != nil {
			return deployError("update", err)
		}
	} else {
		appID, err = o.platform.Create(ctx, name, url, dc.Env())
		if err != nil {
			return deployError("create", err)
		}
		res := deployment.PlatformApp{AppID: appID, Name: name}
		dc.Record(res)
		observe.ResourceCreated(obs, string(deployment.PhaseDeploying), string(res.Type()), appID)
	}

	deploymentID, err := o.platform.Start(ctx, appID)
	if err != nil {
		return deployError("start", err)
	}
	obs.Printf("[Deploy] Started deployment %s for %s", deploymentID, name)

	dc.URL = url
	return nil
}

func (o *Orchestrator) verify(ctx context.Context, dc *deployment.Context, obs observe.Observer, report *Report) error {
	if o.verifier != nil {
		if err := o.verifier.Verify(ctx, dc); err != nil {
			return err
		}
	}

	if o.checker == nil || len(dc.Spec.Postconditions) == 0 || dc.DryRun {
		return nil
	}
	results := o.checker.Run(ctx, dc.Spec.Postconditions)
	report.Checks = results

	if results.AllPassed() {
		return nil
	}
	if failed := results.Failed(); len(failed) > 0 {
		return &deployment.VerificationError{
			CheckType: failed[0].Type,
			Err:       fmt.Errorf("%d of %d postconditions failed, first: %s: %s", len(failed), len(results), failed[0].Name, failed[0].Message),
		}
	}
	observe.Warn(obs, string(deployment.PhaseVerifying), "no postcondition passed, deployment is unverified")
	return &deployment.VerificationError{
		CheckType: verify.CheckPostconditions,
		Err:       fmt.Errorf("none of %d postconditions passed", len(results)),
	}
}
