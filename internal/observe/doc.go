// Package observe provides structured progress reporting for deployment runs.
//
// An [Observer] receives free-form Printf lines and typed [Event] values.
// [ConsoleObserver] writes to the standard logger; [LogrObserver] forwards to
// a go-logr sink so the same events can be emitted as JSON.
package observe
