package saga

import (
	"fmt"

	"github.com/imamik/launchpad/internal/deployment"
)

// Outcome tells the driver what to do after a step.
type Outcome int

const (
	// Advance persists the job in Next and runs the next step.
	Advance Outcome = iota
	// Wait persists the job in its current state and returns. A later
	// resume re-enters the same step.
	Wait
	// Retry persists the job in its current state and runs the same step
	// again immediately. Steps use it to checkpoint outputs mid-step.
	Retry
	// Fail persists the job in a failure state and returns.
	Fail
)

func (o Outcome) String() string {
	switch o {
	case Advance:
		return "advance"
	case Wait:
		return "wait"
	case Retry:
		return "retry"
	case Fail:
		return "fail"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// StepResult is returned by every step function.
type StepResult struct {
	Outcome Outcome
	Next    deployment.JobState
	// Retryable marks a Fail that a later resume may get past.
	Retryable bool
	Err       error
	Message   string
}

func advance(next deployment.JobState) StepResult {
	return StepResult{Outcome: Advance, Next: next}
}

func wait(msg string, err error) StepResult {
	return StepResult{Outcome: Wait, Message: msg, Err: err}
}

func checkpoint() StepResult {
	return StepResult{Outcome: Retry}
}

func retryable(format string, err error) StepResult {
	return StepResult{Outcome: Fail, Retryable: true, Err: fmt.Errorf(format, err)}
}

func terminal(err error) StepResult {
	return StepResult{Outcome: Fail, Err: err}
}

// FailedError is returned when a run leaves the job in a failure state.
type FailedError struct {
	JobID     string
	State     deployment.JobState
	Retryable bool
	Err       error
}

func (e *FailedError) Error() string {
	kind := "terminally"
	if e.Retryable {
		kind = "retryably"
	}
	return fmt.Sprintf("job %s failed %s in %s: %v", e.JobID, kind, e.State, e.Err)
}

func (e *FailedError) Unwrap() error { return e.Err }
