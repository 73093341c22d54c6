// Package s3 provides a client for S3-compatible object storage.
//
// It wraps the AWS SDK with the handful of operations the S3 job store
// needs: bucket bootstrap, whole-object reads and writes, prefix listing and
// a create-only put used for job locks. SDK errors are classified into
// [ErrNotFound] and [ErrExists] so callers can use errors.Is.
package s3
