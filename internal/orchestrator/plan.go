package orchestrator

import (
	"fmt"

	"github.com/imamik/launchpad/internal/deployment"
)

// Action is one step a run would take.
type Action struct {
	Phase       deployment.Phase
	Description string
}

// Plan lists the actions Run would take for dc without any remote call.
func (o *Orchestrator) Plan(dc *deployment.Context) []Action {
	s := dc.Spec
	actions := []Action{
		{deployment.PhaseValidating, fmt.Sprintf("validate spec %s (fingerprint %.12s)", s.ID, dc.Fingerprint)},
	}
	if n := len(s.Secrets.Required); n > 0 {
		actions = append(actions, Action{deployment.PhaseValidating, fmt.Sprintf("resolve %d required secrets", n)})
	}
	if n := len(s.Secrets.Generate); n > 0 {
		actions = append(actions, Action{deployment.PhaseValidating, fmt.Sprintf("resolve or generate %d secrets", n)})
	}
	for _, r := range s.DNS {
		actions = append(actions, Action{deployment.PhaseProvisioning, fmt.Sprintf("upsert %s record %s -> %s", r.Type, r.Name, r.Content)})
	}
	actions = append(actions,
		Action{deployment.PhaseDeploying, fmt.Sprintf("create or update application %s from template %s", s.ID, s.Template)},
		Action{deployment.PhaseDeploying, fmt.Sprintf("start deployment of %s", s.ID)},
	)
	if s.ExposesHTTP() {
		actions = append(actions, Action{deployment.PhaseVerifying, fmt.Sprintf("probe https://%s%s", s.Domain, s.HealthPath())})
	}
	for _, pc := range s.Postconditions {
		actions = append(actions, Action{deployment.PhaseVerifying, fmt.Sprintf("check %s (%s)", pc.Name, pc.Type)})
	}
	return actions
}
