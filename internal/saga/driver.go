package saga

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/imamik/launchpad/internal/config"
	"github.com/imamik/launchpad/internal/deployment"
	"github.com/imamik/launchpad/internal/jobstore"
	"github.com/imamik/launchpad/internal/metrics"
	"github.com/imamik/launchpad/internal/observe"
	"github.com/imamik/launchpad/internal/retry"
	"github.com/imamik/launchpad/internal/spec"
	"github.com/imamik/launchpad/internal/verify"
)

const machine = "saga"

// CredentialSource produces per-job credentials. *secrets.Resolver
// satisfies it.
type CredentialSource interface {
	Get(name string, generateIfMissing bool) (string, bool)
}

// URLVerifier probes an HTTPS endpoint. *verify.Verifier satisfies it.
type URLVerifier interface {
	VerifyURL(ctx context.Context, url string) error
}

// Config bounds the waits and retries of a run.
type Config struct {
	// Gate polls zone activation.
	Gate retry.Policy
	// Registration polls a pending domain order.
	Registration retry.Policy
	// DeployPoll polls one deployment attempt.
	DeployPoll retry.Policy
	// DegradedThreshold is how many consecutive failed or degraded polls
	// trigger a redeploy.
	DegradedThreshold int
	// DeployRetries is how many redeploys are made before the fallback.
	DeployRetries int

	Now func() time.Time
}

// DefaultConfig returns the configuration derived from t.
func DefaultConfig(t *config.Timeouts) Config {
	return Config{
		Gate:              retry.Policy{MaxElapsed: t.ZoneActiveMax, Backoff: retry.Constant(t.ZoneActivePoll)},
		Registration:      retry.Policy{MaxElapsed: t.RegisterMax, Backoff: retry.Constant(t.RegisterPoll)},
		DeployPoll:        retry.Policy{MaxElapsed: t.DeployPollMax, Backoff: retry.Constant(t.DeployPoll)},
		DegradedThreshold: t.DegradedThreshold,
		DeployRetries:     t.DeployRetries,
	}
}

// Request describes a new provisioning job.
type Request struct {
	Domain         string
	AppName        string
	RegisterDomain bool
	Contact        *deployment.Contact
	Years          int
	Records        []spec.DNSRecord
	// Credentials are generated for the job and passed to the application
	// as environment variables.
	Credentials []string
}

// Driver advances provisioning jobs.
type Driver struct {
	store     jobstore.Store
	dns       deployment.DNSProvider
	registrar deployment.Registrar
	platform  deployment.Platform
	creds     CredentialSource
	verifier  URLVerifier
	observer  observe.Observer
	cfg       Config
}

// NewDriver creates a driver. registrar may be nil when no job registers
// its domain.
func NewDriver(
	store jobstore.Store,
	dns deployment.DNSProvider,
	registrar deployment.Registrar,
	platform deployment.Platform,
	creds CredentialSource,
	verifier URLVerifier,
	observer observe.Observer,
	cfg Config,
) *Driver {
	if observer == nil {
		observer = observe.NewConsoleObserver()
	}
	if verifier == nil {
		verifier = verify.NewVerifier(nil, observer)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Driver{
		store:     store,
		dns:       dns,
		registrar: registrar,
		platform:  platform,
		creds:     creds,
		verifier:  verifier,
		observer:  observer,
		cfg:       cfg,
	}
}

// Start creates a job for req and runs it. If an open job exists for the
// domain it is resumed instead.
func (d *Driver) Start(ctx context.Context, req Request) (*deployment.ProvisionJob, error) {
	if req.Domain == "" {
		return nil, &spec.ValidationError{Field: "domain", Message: "is required"}
	}
	if req.RegisterDomain && d.registrar == nil {
		return nil, errors.New("domain registration requested but no registrar is configured")
	}

	id, err := d.findOrCreate(ctx, req)
	if err != nil {
		return nil, err
	}
	return d.Resume(ctx, id)
}

// findOrCreate returns the open job for the domain or persists a new one.
// It holds the domain lock so that concurrent starts agree on one job.
func (d *Driver) findOrCreate(ctx context.Context, req Request) (string, error) {
	lock, err := d.store.Lock(ctx, jobstore.DomainLockID(req.Domain))
	if err != nil {
		return "", fmt.Errorf("domain %s: %w", req.Domain, err)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			observe.Warn(d.observer, machine, "failed to release domain lock for %s: %v", req.Domain, err)
		}
	}()

	open, err := jobstore.FindOpen(ctx, d.store, req.Domain)
	if err != nil {
		return "", err
	}
	if open != nil {
		d.observer.Printf("[Saga] Resuming open job %s for %s (%s)", open.ID, open.Domain, open.State)
		return open.ID, nil
	}

	job := deployment.NewProvisionJob(req.Domain, req.AppName, req.RegisterDomain, d.cfg.Now())
	if job.AppName == "" {
		job.AppName = req.Domain
	}
	job.Contact = req.Contact
	job.RegistrationYears = req.Years
	if req.RegisterDomain && job.RegistrationYears <= 0 {
		job.RegistrationYears = 1
	}
	job.Records = req.Records
	job.CredentialNames = req.Credentials
	if err := d.store.Put(ctx, job); err != nil {
		return "", fmt.Errorf("failed to persist new job: %w", err)
	}
	d.observer.Printf("[Saga] Created job %s for %s", job.ID, job.Domain)
	return job.ID, nil
}

// Resume re-enters the job at its current state and runs until it
// completes, fails or has to wait. It holds the job lock throughout and
// returns jobstore.ErrLocked if another driver holds it.
func (d *Driver) Resume(ctx context.Context, id string) (*deployment.ProvisionJob, error) {
	lock, err := d.store.Lock(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("job %s: %w", id, err)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			observe.Warn(d.observer, machine, "failed to release lock for %s: %v", id, err)
		}
	}()

	job, err := d.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	obs := d.observer.WithFields(map[string]string{"job": job.ID, "domain": job.Domain})

	switch job.State {
	case deployment.JobComplete, deployment.JobFailedTerminal:
		obs.Printf("[Saga] Job %s is %s, nothing to do", job.ID, job.State)
		return job, nil
	case deployment.JobFailedRetryable:
		resumeAt := job.ResumeState
		if resumeAt == "" {
			resumeAt = deployment.JobInit
		}
		job.Failure = nil
		job.ResumeState = ""
		if err := d.transition(ctx, obs, job, resumeAt); err != nil {
			return job, err
		}
	}

	return d.run(ctx, obs, job)
}

func (d *Driver) run(ctx context.Context, obs observe.Observer, job *deployment.ProvisionJob) (*deployment.ProvisionJob, error) {
	steps := d.steps()
	for job.State != deployment.JobComplete {
		step, ok := steps[job.State]
		if !ok {
			return job, fmt.Errorf("job %s: no step for state %s", job.ID, job.State)
		}

		res := step(ctx, obs, job)
		switch res.Outcome {
		case Advance:
			if err := d.transition(ctx, obs, job, res.Next); err != nil {
				return job, err
			}
		case Retry:
			if err := d.persist(ctx, job); err != nil {
				return job, err
			}
		case Wait:
			if err := d.persist(ctx, job); err != nil {
				return job, err
			}
			obs.Printf("[Saga] Job %s waiting in %s: %s", job.ID, job.State, res.Message)
			return job, res.Err
		case Fail:
			return job, d.fail(ctx, obs, job, res)
		}
	}

	obs.Event(observe.Event{
		Type:    observe.EventPhaseCompleted,
		Phase:   machine,
		Message: fmt.Sprintf("job %s complete", job.ID),
	})
	return job, nil
}

func (d *Driver) fail(ctx context.Context, obs observe.Observer, job *deployment.ProvisionJob, res StepResult) error {
	failedIn := job.State
	job.Failure = &deployment.JobFailure{
		State:     failedIn,
		Message:   res.Err.Error(),
		Retryable: res.Retryable,
		At:        d.cfg.Now().UTC(),
	}
	next := deployment.JobFailedTerminal
	if res.Retryable {
		next = deployment.JobFailedRetryable
		job.ResumeState = failedIn
	}
	observe.PhaseFailed(obs, string(failedIn), res.Err)
	if err := d.transition(ctx, obs, job, next); err != nil {
		return err
	}
	return &FailedError{JobID: job.ID, State: failedIn, Retryable: res.Retryable, Err: res.Err}
}

// transition moves the job to `to` and writes the full snapshot before any
// further step runs.
func (d *Driver) transition(ctx context.Context, obs observe.Observer, job *deployment.ProvisionJob, to deployment.JobState) error {
	from := job.State
	legal := canTransition(from, to)
	if !legal {
		observe.Warn(obs, machine, "illegal transition %s -> %s", from, to)
	}
	now := d.cfg.Now().UTC()
	job.History = append(job.History, deployment.JobTransition{From: from, To: to, At: now})
	job.State = to
	metrics.RecordTransition(machine, string(to), legal)
	observe.Transition(obs, string(from), string(to))
	return d.persist(ctx, job)
}

func (d *Driver) persist(ctx context.Context, job *deployment.ProvisionJob) error {
	job.UpdatedAt = d.cfg.Now().UTC()
	// Persisting must survive a cancelled run so the snapshot reflects
	// every side effect that already happened.
	if err := d.store.Put(context.WithoutCancel(ctx), job); err != nil {
		return fmt.Errorf("failed to persist job %s: %w", job.ID, err)
	}
	return nil
}
