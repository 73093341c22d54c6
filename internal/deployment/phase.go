package deployment

// Phase is a state of the coarse orchestrator.
type Phase string

// Orchestrator phases.
const (
	PhaseValidating   Phase = "VALIDATING"
	PhaseProvisioning Phase = "PROVISIONING"
	PhaseDeploying    Phase = "DEPLOYING"
	PhaseVerifying    Phase = "VERIFYING"
	PhaseComplete     Phase = "COMPLETE"
	PhaseRollingBack  Phase = "ROLLING_BACK"
	PhaseRolledBack   Phase = "ROLLED_BACK"
	PhaseFailed       Phase = "FAILED"
)

var transitions = map[Phase][]Phase{
	PhaseValidating:   {PhaseProvisioning, PhaseFailed},
	PhaseProvisioning: {PhaseDeploying, PhaseRollingBack, PhaseFailed},
	PhaseDeploying:    {PhaseVerifying, PhaseRollingBack, PhaseFailed},
	PhaseVerifying:    {PhaseComplete, PhaseRollingBack, PhaseFailed},
	PhaseRollingBack:  {PhaseRolledBack, PhaseFailed},
}

// CanTransition reports whether to is reachable from p in one step.
func (p Phase) CanTransition(to Phase) bool {
	for _, next := range transitions[p] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is expected.
func (p Phase) Terminal() bool {
	switch p {
	case PhaseComplete, PhaseRolledBack, PhaseFailed:
		return true
	}
	return false
}

// Active reports whether p is one of the forward phases whose failure sends
// the run down the rollback path.
func (p Phase) Active() bool {
	switch p {
	case PhaseValidating, PhaseProvisioning, PhaseDeploying, PhaseVerifying:
		return true
	}
	return false
}
