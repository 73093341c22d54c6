// Package orchestrator drives a single deployment through the coarse phase
// machine.
//
// # Workflow
//
// The Orchestrator executes the following phases in order:
//  1. VALIDATING - spec validation and secret resolution, no remote calls
//  2. PROVISIONING - DNS records declared by the spec
//  3. DEPLOYING - find-or-create the application, then start it
//  4. VERIFYING - health endpoint and spec postconditions
//  5. COMPLETE
//
// A failure in any of the first four phases moves the run to ROLLING_BACK
// when it created resources, then to ROLLED_BACK or FAILED depending on
// whether every compensating action succeeded. A run that created nothing
// goes straight to FAILED.
//
// # Usage
//
//	o := orchestrator.New(platform, dns, verifier, resolver, observer)
//	report := o.Run(ctx, deployment.NewContext(s, false))
//	os.Exit(report.ExitCode())
//
// Transitions outside the legal table are logged as warnings and applied.
package orchestrator
