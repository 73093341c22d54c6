package handlers

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/imamik/launchpad/internal/config"
	"github.com/imamik/launchpad/internal/jobstore"
	"github.com/imamik/launchpad/internal/metrics"
	"github.com/imamik/launchpad/internal/server"
)

// newServer builds the HTTP handler - can be replaced in tests.
var newServer = server.New

// Serve runs the job API until interrupted.
func Serve(ctx context.Context, settings *config.Settings, addr, version string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs := newObserver(settings)
	return withStore(ctx, settings, func(store jobstore.Store) error {
		h, err := newServer(server.Config{
			Store:    store,
			Gatherer: metrics.Registry,
			Version:  version,
		})
		if err != nil {
			return err
		}
		obs.Printf("[Serve] Listening on %s (store: %s)", addr, settings.Store)
		return server.Serve(ctx, addr, h)
	})
}
