// Package coolify is a client for the Coolify v1 API implementing the
// deployment-platform capability.
package coolify
