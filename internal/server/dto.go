package server

import (
	"time"

	"github.com/imamik/launchpad/internal/deployment"
)

// JobSummary is one row of the job listing.
type JobSummary struct {
	ID            string              `json:"id"`
	Domain        string              `json:"domain"`
	State         deployment.JobState `json:"state"`
	ApplicationID string              `json:"application_id,omitempty"`
	HTTPWarning   string              `json:"http_warning,omitempty"`
	Failure       string              `json:"failure,omitempty"`
	Retryable     bool                `json:"retryable"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

func summarize(j *deployment.ProvisionJob) JobSummary {
	s := JobSummary{
		ID:            j.ID,
		Domain:        j.Domain,
		State:         j.State,
		ApplicationID: j.Outputs.ApplicationID,
		HTTPWarning:   j.Outputs.HTTPWarning,
		UpdatedAt:     j.UpdatedAt,
	}
	if j.Failure != nil {
		s.Failure = j.Failure.Message
		s.Retryable = j.Failure.Retryable
	}
	return s
}
