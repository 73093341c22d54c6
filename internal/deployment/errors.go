package deployment

import (
	"errors"
	"fmt"
)

// DeployError reports a failed call against a remote control plane.
type DeployError struct {
	Op  string
	Err error
}

func (e *DeployError) Error() string {
	return fmt.Sprintf("deploy %s: %v", e.Op, e.Err)
}

func (e *DeployError) Unwrap() error { return e.Err }

// VerificationError reports an unmet postcondition.
type VerificationError struct {
	CheckType string
	Err       error
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("verification %s failed: %v", e.CheckType, e.Err)
}

func (e *VerificationError) Unwrap() error { return e.Err }

// RollbackError reports one failed compensating action. It is collected,
// never returned from a run directly.
type RollbackError struct {
	ResourceType ResourceType
	ResourceID   string
	Err          error
}

func (e *RollbackError) Error() string {
	return fmt.Sprintf("rollback %s %s: %v", e.ResourceType, e.ResourceID, e.Err)
}

func (e *RollbackError) Unwrap() error { return e.Err }

// PhaseError records the terminal error of a run and where it happened.
type PhaseError struct {
	Phase Phase
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }

// ErrNotFound is returned by capability implementations when the remote
// object does not exist.
var ErrNotFound = errors.New("not found")
