package orchestrator

import (
	"time"

	"github.com/imamik/launchpad/internal/deployment"
	"github.com/imamik/launchpad/internal/spec"
	"github.com/imamik/launchpad/internal/verify"
)

// Report is the outcome of one run.
type Report struct {
	ID          string
	Fingerprint string
	DryRun      bool
	Phase       deployment.Phase
	URL         string
	Err         *deployment.PhaseError

	Resources      []deployment.Resource
	RollbackErrors []error
	// ResourcesKept is set when verification failed and the spec disabled
	// automatic rollback.
	ResourcesKept bool

	Warnings []spec.Warning
	Checks   verify.Results
	History  []deployment.Transition
	Duration time.Duration
}

// Succeeded reports whether the run ended in COMPLETE or a clean rollback.
func (r *Report) Succeeded() bool {
	return r.Phase == deployment.PhaseComplete || r.Phase == deployment.PhaseRolledBack
}

// ExitCode is 0 for COMPLETE and ROLLED_BACK, 1 otherwise.
func (r *Report) ExitCode() int {
	if r.Succeeded() {
		return 0
	}
	return 1
}

// Phases returns the sequence of phases the run visited.
func (r *Report) Phases() []deployment.Phase {
	if len(r.History) == 0 {
		return []deployment.Phase{r.Phase}
	}
	out := []deployment.Phase{r.History[0].From}
	for _, t := range r.History {
		out = append(out, t.To)
	}
	return out
}
