package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/imamik/launchpad/internal/deployment"
	"github.com/imamik/launchpad/internal/metrics"
	"github.com/imamik/launchpad/internal/observe"
	"github.com/imamik/launchpad/internal/rollback"
	"github.com/imamik/launchpad/internal/spec"
	"github.com/imamik/launchpad/internal/verify"
)

const machine = "orchestrator"

// Verifier confirms a deployment is reachable.
type Verifier interface {
	Verify(ctx context.Context, dc *deployment.Context) error
}

// PostconditionRunner evaluates spec postconditions.
type PostconditionRunner interface {
	Run(ctx context.Context, checks []spec.Postcondition) verify.Results
}

// SecretResolver resolves a spec's secrets policy.
type SecretResolver interface {
	Resolve(policy spec.SecretsPolicy) (map[string]string, error)
}

// Rollbacker undoes the resources recorded in a context.
type Rollbacker interface {
	Rollback(ctx context.Context, dc *deployment.Context) []error
}

// Orchestrator runs the coarse deployment state machine.
type Orchestrator struct {
	platform  deployment.Platform
	dns       deployment.DNSProvider
	verifier  Verifier
	checker   PostconditionRunner
	secrets   SecretResolver
	rollback  Rollbacker
	validator *spec.Validator
	observer  observe.Observer
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPostconditions runs spec postconditions after the health check.
func WithPostconditions(checker PostconditionRunner) Option {
	return func(o *Orchestrator) { o.checker = checker }
}

// WithValidator replaces the default spec validator.
func WithValidator(v *spec.Validator) Option {
	return func(o *Orchestrator) { o.validator = v }
}

// WithRollback replaces the default rollback manager.
func WithRollback(r Rollbacker) Option {
	return func(o *Orchestrator) { o.rollback = r }
}

// New creates an orchestrator. dns may be nil for specs without DNS records.
func New(
	platform deployment.Platform,
	dns deployment.DNSProvider,
	verifier Verifier,
	secrets SecretResolver,
	observer observe.Observer,
	opts ...Option,
) *Orchestrator {
	if observer == nil {
		observer = observe.NewConsoleObserver()
	}
	o := &Orchestrator{
		platform:  platform,
		dns:       dns,
		verifier:  verifier,
		secrets:   secrets,
		validator: &spec.Validator{},
		observer:  observer,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.rollback == nil {
		o.rollback = rollback.NewManager(platform, dns, observer)
	}
	return o
}

// Run drives dc from VALIDATING to a terminal phase and reports the outcome.
// Errors never escape Run: they are recorded on dc and in the report.
func (o *Orchestrator) Run(ctx context.Context, dc *deployment.Context) *Report {
	start := time.Now()
	obs := o.observer.WithFields(map[string]string{"deployment": dc.Spec.ID})
	report := &Report{ID: dc.Spec.ID, Fingerprint: dc.Fingerprint, DryRun: dc.DryRun}

	steps := []struct {
		phase deployment.Phase
		run   func(context.Context, *deployment.Context, observe.Observer, *Report) error
	}{
		{deployment.PhaseValidating, o.validate},
		{deployment.PhaseProvisioning, o.provision},
		{deployment.PhaseDeploying, o.deploy},
		{deployment.PhaseVerifying, o.verify},
	}

	for _, step := range steps {
		if dc.Phase != step.phase {
			o.transition(obs, dc, step.phase)
		}
		phaseStart := time.Now()
		observe.PhaseStarted(obs, string(step.phase))
		if err := step.run(ctx, dc, obs, report); err != nil {
			observe.PhaseFailed(obs, string(step.phase), err)
			o.fail(ctx, obs, dc, err, report)
			return o.finish(dc, report, start)
		}
		observe.PhaseCompleted(obs, string(step.phase), time.Since(phaseStart))
	}

	o.transition(obs, dc, deployment.PhaseComplete)
	return o.finish(dc, report, start)
}

// fail records err at the current phase and takes the failure path.
func (o *Orchestrator) fail(ctx context.Context, obs observe.Observer, dc *deployment.Context, err error, report *Report) {
	dc.Fail(err)

	if len(dc.Resources) == 0 {
		o.transition(obs, dc, deployment.PhaseFailed)
		return
	}

	if !o.rollbackWanted(dc, err, report) {
		observe.Warn(obs, string(dc.Phase), "automatic rollback disabled, keeping %d resources", len(dc.Resources))
		report.ResourcesKept = true
		o.transition(obs, dc, deployment.PhaseFailed)
		return
	}

	o.transition(obs, dc, deployment.PhaseRollingBack)
	report.RollbackErrors = o.rollback.Rollback(ctx, dc)
	if len(report.RollbackErrors) == 0 {
		o.transition(obs, dc, deployment.PhaseRolledBack)
		return
	}
	o.transition(obs, dc, deployment.PhaseFailed)
}

// rollbackWanted applies the rollback policy to a failure. Deploy errors
// always roll back; verification failures follow the spec, through the
// postcondition results when there are any.
func (o *Orchestrator) rollbackWanted(dc *deployment.Context, err error, report *Report) bool {
	var verr *deployment.VerificationError
	if !errors.As(err, &verr) {
		return true
	}
	if report.Checks != nil {
		return report.Checks.ShouldRollback(dc.Spec)
	}
	return dc.Spec.AutomaticRollback()
}

// transition moves dc to the target phase. An illegal transition is applied
// anyway and logged as a warning.
func (o *Orchestrator) transition(obs observe.Observer, dc *deployment.Context, to deployment.Phase) {
	from := dc.Phase
	legal := from.CanTransition(to)
	if !legal {
		observe.Warn(obs, string(from), "illegal transition %s -> %s", from, to)
	}
	dc.SetPhase(to)
	metrics.RecordTransition(machine, string(to), legal)
	observe.Transition(obs, string(from), string(to))
}

func (o *Orchestrator) finish(dc *deployment.Context, report *Report, start time.Time) *Report {
	report.Phase = dc.Phase
	report.URL = dc.URL
	report.Err = dc.Err
	report.Resources = append([]deployment.Resource(nil), dc.Resources...)
	report.History = append([]deployment.Transition(nil), dc.History...)
	report.Duration = time.Since(start)
	metrics.RecordRun(string(dc.Phase), report.Duration.Seconds())
	return report
}

func deployError(op string, err error) error {
	return &deployment.DeployError{Op: op, Err: err}
}

func fqdn(s *spec.Spec) string {
	if s.Domain == "" {
		return ""
	}
	return "https://" + s.Domain
}
