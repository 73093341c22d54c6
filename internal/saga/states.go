package saga

import "github.com/imamik/launchpad/internal/deployment"

var transitions = map[deployment.JobState][]deployment.JobState{
	deployment.JobInit:                    {deployment.JobZoneCreated},
	deployment.JobZoneCreated:             {deployment.JobDomainRegisterRequested, deployment.JobDNSRecordsUpserted},
	deployment.JobDomainRegisterRequested: {deployment.JobDomainRegistered},
	deployment.JobDomainRegistered:        {deployment.JobDNSRecordsUpserted},
	deployment.JobDNSRecordsUpserted:      {deployment.JobZoneStatusSnapshot},
	deployment.JobZoneStatusSnapshot:      {deployment.JobGateWaitZoneActive},
	deployment.JobGateWaitZoneActive:      {deployment.JobAppCreateRequested},
	deployment.JobAppCreateRequested:      {deployment.JobAppCreated},
	deployment.JobAppCreated:              {deployment.JobDeployRequested},
	deployment.JobDeployRequested:         {deployment.JobDeployRunning},
	deployment.JobDeployRunning:           {deployment.JobDeploySucceeded, deployment.JobDeployRequested},
	deployment.JobDeploySucceeded:         {deployment.JobHTTPVerified, deployment.JobComplete},
	deployment.JobHTTPVerified:            {deployment.JobComplete},
}

// canTransition reports whether to follows from in the saga order. Failure
// states are reachable from every non-terminal state, and a retryable
// failure resumes into any state.
func canTransition(from, to deployment.JobState) bool {
	if to.Failed() {
		return !from.Terminal()
	}
	if from == deployment.JobFailedRetryable {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
