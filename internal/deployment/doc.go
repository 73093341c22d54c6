// Package deployment holds the state of a single orchestration run.
//
// A [Context] is created at the start of a run, mutated only by the
// orchestrator driving it and discarded at the end. Every remote object the
// run creates is appended to Context.Resources as a [Resource] before the
// next step starts, which is what lets a failed run be undone in reverse
// creation order.
//
// The package also defines the error taxonomy shared by the validator,
// orchestrator, verifier and rollback manager, and the capability interfaces
// implemented by the platform clients.
package deployment
