// Package config holds launchpad's runtime settings.
//
// [Settings] carries control-plane credentials, the state directory and the
// job-store backend. It is read through viper so every key can come from a
// flag, a LAUNCHPAD_* variable or, for provider credentials, the provider's
// conventional variable name. [LoadTimeouts] reads poll intervals and retry
// budgets from the environment.
package config
