// Package jobstore persists provisioning jobs.
//
// A [Store] holds full snapshots of [deployment.ProvisionJob] keyed by job
// id and provides a job-scoped exclusive lock so only one driver advances a
// job at a time. Three backends are available:
//
//   - FileStore: one YAML file per job, replaced atomically, flock-based locks
//   - SQLStore: SQLite database with a lock table
//   - S3Store: one object per job, locks created with a conditional put
//
// A store is opened once per process and closed at shutdown.
package jobstore
