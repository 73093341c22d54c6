// Package cloudflare is a small client for the Cloudflare v4 API.
//
// [Client] implements the DNS capability (zones and records), zone lookup
// for rollback, and the registrar capability used when a domain has to be
// bought before it can be served.
package cloudflare
