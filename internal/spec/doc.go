// Package spec loads, validates and fingerprints declarative deployment
// specifications.
//
// A spec is a YAML document describing one hosted service or worker:
//
//	id: my-api
//	kind: service
//	domain: api.example.com
//	template: python-api
//	secrets:
//	  required: [API_KEY]
//	  generate: [SESSION_SECRET]
//	healthcheck:
//	  path: /health
//
// [Load] parses a file, [Validator.Validate] checks it before any remote
// call is made, and [Fingerprint] returns a content hash that is stable
// across key order so callers can tell whether re-applying would change
// anything.
package spec
