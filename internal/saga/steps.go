package saga

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/imamik/launchpad/internal/deployment"
	"github.com/imamik/launchpad/internal/observe"
	"github.com/imamik/launchpad/internal/retry"
)

type stepFunc func(ctx context.Context, obs observe.Observer, job *deployment.ProvisionJob) StepResult

// Deployment status values reported by the platform.
var (
	healthyStatuses  = map[string]bool{"running": true, "healthy": true, "finished": true, "success": true}
	degradedStatuses = map[string]bool{"failed": true, "degraded": true, "exited": true, "error": true, "unhealthy": true}
)

var errDegraded = errors.New("deployment degraded")

// Health classifies a platform status.
type Health string

// Health classes.
const (
	HealthPending  Health = "pending"
	HealthHealthy  Health = "healthy"
	HealthDegraded Health = "degraded"
)

// NormalizeStatus lowercases status and drops the detail after a colon,
// so "Running:healthy" becomes "running".
func NormalizeStatus(status string) string {
	status = strings.ToLower(status)
	if i := strings.IndexByte(status, ':'); i >= 0 {
		status = status[:i]
	}
	return status
}

// ClassifyStatus maps a platform status onto its health class.
func ClassifyStatus(status string) Health {
	status = NormalizeStatus(status)
	switch {
	case healthyStatuses[status]:
		return HealthHealthy
	case degradedStatuses[status]:
		return HealthDegraded
	}
	return HealthPending
}

func (d *Driver) steps() map[deployment.JobState]stepFunc {
	return map[deployment.JobState]stepFunc{
		deployment.JobInit:                    d.createZone,
		deployment.JobZoneCreated:             d.afterZone,
		deployment.JobDomainRegisterRequested: d.awaitRegistration,
		deployment.JobDomainRegistered:        d.upsertRecords,
		deployment.JobDNSRecordsUpserted:      d.snapshotZone,
		deployment.JobZoneStatusSnapshot:      func(context.Context, observe.Observer, *deployment.ProvisionJob) StepResult { return advance(deployment.JobGateWaitZoneActive) },
		deployment.JobGateWaitZoneActive:      d.gateZoneActive,
		deployment.JobAppCreateRequested:      d.createApp,
		deployment.JobAppCreated:              func(context.Context, observe.Observer, *deployment.ProvisionJob) StepResult { return advance(deployment.JobDeployRequested) },
		deployment.JobDeployRequested:         d.triggerDeploy,
		deployment.JobDeployRunning:           d.pollDeploy,
		deployment.JobDeploySucceeded:         d.verifyHTTP,
		deployment.JobHTTPVerified:            func(context.Context, observe.Observer, *deployment.ProvisionJob) StepResult { return advance(deployment.JobComplete) },
	}
}

func (d *Driver) createZone(ctx context.Context, obs observe.Observer, job *deployment.ProvisionJob) StepResult {
	if job.Outputs.ZoneID != "" {
		return advance(deployment.JobZoneCreated)
	}
	zone, err := d.dns.CreateZone(ctx, job.Domain)
	if err != nil {
		return retryable("create zone: %w", err)
	}
	job.Outputs.ZoneID = zone.ID
	job.Outputs.Nameservers = zone.Nameservers
	observe.ResourceCreated(obs, string(job.State), "dns_zone", zone.ID)
	return advance(deployment.JobZoneCreated)
}

func (d *Driver) afterZone(ctx context.Context, obs observe.Observer, job *deployment.ProvisionJob) StepResult {
	if job.RegisterDomain {
		return advance(deployment.JobDomainRegisterRequested)
	}
	return d.upsertRecords(ctx, obs, job)
}

// awaitRegistration issues the purchase at most once. A resumed job without
// an order id asks the registrar for an existing order before buying.
func (d *Driver) awaitRegistration(ctx context.Context, obs observe.Observer, job *deployment.ProvisionJob) StepResult {
	if d.registrar == nil {
		return terminal(errors.New("domain registration requested but no registrar is configured"))
	}

	if job.Outputs.RegistrarOrderID == "" {
		reg, err := d.registrar.GetOrder(ctx, job.Domain, "")
		switch {
		case errors.Is(err, deployment.ErrNotFound):
			if job.Contact == nil {
				return terminal(errors.New("registrant contact is required to register a domain"))
			}
			reg, err = d.registrar.RegisterDomain(ctx, job.Domain, job.Outputs.Nameservers, *job.Contact, job.RegistrationYears)
			if err != nil {
				return retryable("register domain: %w", err)
			}
			observe.ResourceCreated(obs, string(job.State), "domain_order", reg.OrderID)
		case err != nil:
			return retryable("query registrar order: %w", err)
		default:
			obs.Printf("[Saga] Found existing order %s for %s", reg.OrderID, job.Domain)
		}
		job.Outputs.RegistrarDomainID = reg.DomainID
		job.Outputs.RegistrarOrderID = reg.OrderID
		return checkpoint()
	}

	err := d.cfg.Registration.Poll(ctx, func(ctx context.Context, _ int) (bool, error) {
		reg, err := d.registrar.GetOrder(ctx, job.Domain, job.Outputs.RegistrarOrderID)
		if err != nil {
			return false, err
		}
		switch reg.Status {
		case "registered":
			if reg.DomainID != "" {
				job.Outputs.RegistrarDomainID = reg.DomainID
			}
			return true, nil
		case "failed":
			return false, retry.Fatal(fmt.Errorf("order %s failed", reg.OrderID))
		}
		return false, nil
	})
	switch {
	case err == nil:
		return advance(deployment.JobDomainRegistered)
	case retry.IsFatal(err):
		return terminal(err)
	case errors.Is(err, retry.ErrExhausted):
		return wait("domain registration still pending", nil)
	}
	return retryable("poll registrar order: %w", err)
}

// upsertRecords skips records already recorded in the job outputs.
func (d *Driver) upsertRecords(ctx context.Context, obs observe.Observer, job *deployment.ProvisionJob) StepResult {
	if job.Outputs.DNSRecordIDs == nil {
		job.Outputs.DNSRecordIDs = make(map[string]string, len(job.Records))
	}
	for _, r := range job.Records {
		key := recordKey(r.Type, r.Name)
		if _, done := job.Outputs.DNSRecordIDs[key]; done {
			continue
		}
		id, created, err := d.dns.UpsertRecord(ctx, job.Domain, strings.ToUpper(r.Type), r.Name, r.Content)
		if err != nil {
			return StepResult{Outcome: Fail, Retryable: true, Err: fmt.Errorf("upsert %s: %w", key, err)}
		}
		job.Outputs.DNSRecordIDs[key] = id
		if created {
			observe.ResourceCreated(obs, string(job.State), "dns_record", id)
		} else {
			obs.Printf("[Saga] %s existed, updated in place", key)
		}
		// Each record is persisted before the next is created.
		if err := d.persist(ctx, job); err != nil {
			return retryable("checkpoint dns records: %w", err)
		}
	}
	return advance(deployment.JobDNSRecordsUpserted)
}

func (d *Driver) snapshotZone(ctx context.Context, _ observe.Observer, job *deployment.ProvisionJob) StepResult {
	status, err := d.dns.GetZoneStatus(ctx, job.Domain)
	if err != nil {
		return retryable("zone status: %w", err)
	}
	job.Outputs.ZoneStatus = status
	return advance(deployment.JobZoneStatusSnapshot)
}

// gateZoneActive stays in the gate when the zone is not active in time.
func (d *Driver) gateZoneActive(ctx context.Context, obs observe.Observer, job *deployment.ProvisionJob) StepResult {
	err := d.cfg.Gate.Poll(ctx, func(ctx context.Context, _ int) (bool, error) {
		status, err := d.dns.GetZoneStatus(ctx, job.Domain)
		if err != nil {
			return false, err
		}
		job.Outputs.ZoneStatus = status
		return status == "active", nil
	})
	if err != nil {
		if errors.Is(err, retry.ErrExhausted) {
			return wait(fmt.Sprintf("zone %s is %s, resume to keep waiting", job.Domain, job.Outputs.ZoneStatus), nil)
		}
		return wait("zone activation interrupted", err)
	}

	if err := d.generateCredentials(job); err != nil {
		return terminal(err)
	}
	obs.Printf("[Saga] Zone %s is active", job.Domain)
	return advance(deployment.JobAppCreateRequested)
}

func (d *Driver) generateCredentials(job *deployment.ProvisionJob) error {
	if len(job.CredentialNames) == 0 {
		return nil
	}
	if d.creds == nil {
		return errors.New("credentials requested but no credential source is configured")
	}
	if job.Outputs.GeneratedCredentials == nil {
		job.Outputs.GeneratedCredentials = make(map[string]string, len(job.CredentialNames))
	}
	for _, name := range job.CredentialNames {
		if _, ok := job.Outputs.GeneratedCredentials[name]; ok {
			continue
		}
		v, ok := d.creds.Get(name, true)
		if !ok {
			return fmt.Errorf("failed to generate credential %s", name)
		}
		job.Outputs.GeneratedCredentials[name] = v
	}
	return nil
}

// createApp adopts an application of the same name left by an interrupted run.
func (d *Driver) createApp(ctx context.Context, obs observe.Observer, job *deployment.ProvisionJob) StepResult {
	if job.Outputs.ApplicationID != "" {
		return advance(deployment.JobAppCreated)
	}
	existing, err := d.platform.FindByName(ctx, job.AppName)
	if err != nil {
		return retryable("find application: %w", err)
	}
	if existing != nil {
		job.Outputs.ApplicationID = existing.ID
		obs.Event(observe.Event{
			Type:     observe.EventResourceExists,
			Phase:    string(job.State),
			Resource: existing.ID,
			Message:  "application already exists",
		})
		return advance(deployment.JobAppCreated)
	}
	id, err := d.platform.Create(ctx, job.AppName, fqdn(job), job.Outputs.GeneratedCredentials)
	if err != nil {
		return retryable("create application: %w", err)
	}
	job.Outputs.ApplicationID = id
	observe.ResourceCreated(obs, string(job.State), "platform_app", id)
	return advance(deployment.JobAppCreated)
}

func (d *Driver) triggerDeploy(ctx context.Context, obs observe.Observer, job *deployment.ProvisionJob) StepResult {
	if job.Outputs.DeploymentID != "" {
		return advance(deployment.JobDeployRunning)
	}
	depID, err := d.platform.Start(ctx, job.Outputs.ApplicationID)
	if err != nil {
		return retryable("start deployment: %w", err)
	}
	job.Outputs.DeploymentID = depID
	job.Outputs.DegradedPolls = 0
	obs.Printf("[Saga] Deployment %s started for %s", depID, job.Outputs.ApplicationID)
	return advance(deployment.JobDeployRunning)
}

// pollDeploy waits for a healthy deployment. A run of DegradedThreshold
// failed or degraded polls re-triggers the deploy up to DeployRetries times,
// then tries the fallback once.
func (d *Driver) pollDeploy(ctx context.Context, obs observe.Observer, job *deployment.ProvisionJob) StepResult {
	err := d.cfg.DeployPoll.Poll(ctx, func(ctx context.Context, _ int) (bool, error) {
		status, err := d.platform.GetStatus(ctx, job.Outputs.ApplicationID)
		if err != nil {
			return false, err
		}
		job.Outputs.DeployStatus = NormalizeStatus(status)
		switch ClassifyStatus(status) {
		case HealthHealthy:
			return true, nil
		case HealthDegraded:
			job.Outputs.DegradedPolls++
			if job.Outputs.DegradedPolls >= d.threshold() {
				return false, retry.Fatal(errDegraded)
			}
		default:
			job.Outputs.DegradedPolls = 0
		}
		return false, nil
	})

	switch {
	case err == nil:
		job.Outputs.DegradedPolls = 0
		return advance(deployment.JobDeploySucceeded)
	case errors.Is(err, errDegraded):
		return d.recoverDeploy(ctx, obs, job)
	}
	return retryable("deployment did not become healthy: %w", err)
}

func (d *Driver) recoverDeploy(ctx context.Context, obs observe.Observer, job *deployment.ProvisionJob) StepResult {
	job.Outputs.DegradedPolls = 0

	if job.Outputs.DeployRetries < d.cfg.DeployRetries {
		job.Outputs.DeployRetries++
		job.Outputs.DeploymentID = ""
		observe.Warn(obs, string(job.State), "deployment %s, retrying (%d/%d)",
			job.Outputs.DeployStatus, job.Outputs.DeployRetries, d.cfg.DeployRetries)
		return advance(deployment.JobDeployRequested)
	}

	// The fallback counts as attempted once its deployment started, so a
	// resume after a failed update or start runs it again.
	if !job.Outputs.FallbackAttempted {
		observe.Warn(obs, string(job.State), "deploy retries exhausted, redeploying with updated configuration")
		if err := d.platform.Update(ctx, job.Outputs.ApplicationID, fqdn(job), job.Outputs.GeneratedCredentials); err != nil {
			return retryable("fallback update: %w", err)
		}
		depID, err := d.platform.Start(ctx, job.Outputs.ApplicationID)
		if err != nil {
			return retryable("fallback start: %w", err)
		}
		job.Outputs.FallbackAttempted = true
		job.Outputs.DeploymentID = depID
		return checkpoint()
	}

	return terminal(fmt.Errorf("deployment %s after %d retries and fallback", job.Outputs.DeployStatus, job.Outputs.DeployRetries))
}

// verifyHTTP records a failed probe as a warning and completes the job.
func (d *Driver) verifyHTTP(ctx context.Context, obs observe.Observer, job *deployment.ProvisionJob) StepResult {
	if err := d.verifier.VerifyURL(ctx, fqdn(job)+"/"); err != nil {
		job.Outputs.HTTPWarning = err.Error()
		observe.Warn(obs, string(job.State), "HTTP verification failed: %v", err)
		return advance(deployment.JobComplete)
	}
	job.Outputs.HTTPWarning = ""
	return advance(deployment.JobHTTPVerified)
}

func (d *Driver) threshold() int {
	if d.cfg.DegradedThreshold <= 0 {
		return 1
	}
	return d.cfg.DegradedThreshold
}

func fqdn(job *deployment.ProvisionJob) string {
	return "https://" + job.Domain
}

func recordKey(recordType, name string) string {
	return strings.ToUpper(recordType) + " " + name
}
