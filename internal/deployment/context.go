package deployment

import (
	"time"

	"github.com/imamik/launchpad/internal/spec"
)

// Transition is one recorded phase change.
type Transition struct {
	From Phase
	To   Phase
	At   time.Time
}

// Context is the mutable record of one orchestration run. It is owned by
// the orchestrating call and never shared between runs.
type Context struct {
	Spec        *spec.Spec
	Fingerprint string
	Secrets     map[string]string
	DryRun      bool

	Phase     Phase
	Resources []Resource
	Err       *PhaseError
	URL       string

	StartedAt time.Time
	History   []Transition
}

// NewContext creates a run context for s in the VALIDATING phase.
func NewContext(s *spec.Spec, dryRun bool) *Context {
	return &Context{
		Spec:        s,
		Fingerprint: spec.Fingerprint(s),
		Secrets:     make(map[string]string),
		DryRun:      dryRun,
		Phase:       PhaseValidating,
		StartedAt:   time.Now(),
	}
}

// Record appends a created resource. Callers must record a resource as soon
// as its create call returns, before running any further step.
func (c *Context) Record(r Resource) {
	c.Resources = append(c.Resources, r)
}

// SetPhase moves the context to p and appends to the history.
func (c *Context) SetPhase(p Phase) {
	c.History = append(c.History, Transition{From: c.Phase, To: p, At: time.Now()})
	c.Phase = p
}

// Fail records err as the terminal error at the current phase unless one is
// already recorded.
func (c *Context) Fail(err error) {
	if c.Err != nil || err == nil {
		return
	}
	c.Err = &PhaseError{Phase: c.Phase, Err: err}
}

// Env returns the environment handed to the platform: the spec's env
// overlaid with resolved secrets.
func (c *Context) Env() map[string]string {
	env := make(map[string]string, len(c.Spec.Env)+len(c.Secrets))
	for k, v := range c.Spec.Env {
		env[k] = v
	}
	for k, v := range c.Secrets {
		env[k] = v
	}
	return env
}
