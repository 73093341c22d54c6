package handlers

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/imamik/launchpad/internal/config"
	"github.com/imamik/launchpad/internal/deployment"
	"github.com/imamik/launchpad/internal/observe"
	"github.com/imamik/launchpad/internal/retry"
	"github.com/imamik/launchpad/internal/saga"
	"github.com/imamik/launchpad/internal/secrets"
	lptest "github.com/imamik/launchpad/internal/testing"
)

// origPlatformFactory is the production platform factory, captured before
// any test swaps it.
var origPlatformFactory = newPlatform

// fakeDNSClient joins the DNS and registrar fakes into one client, as the
// Cloudflare client is.
type fakeDNSClient struct {
	*lptest.FakeDNS
	*lptest.FakeRegistrar
}

type fakeURLVerifier struct {
	err  error
	urls []string
}

func (v *fakeURLVerifier) VerifyURL(_ context.Context, url string) error {
	v.urls = append(v.urls, url)
	return v.err
}

type env struct {
	log       *lptest.CallLog
	platform  *lptest.FakePlatform
	dns       *lptest.FakeDNS
	registrar *lptest.FakeRegistrar
	verifier  *fakeURLVerifier
	out       *bytes.Buffer
	settings  *config.Settings
	dir       string
	// images records the image passed to each platform construction.
	images []string
}

// setup swaps every factory for in-memory fakes and restores them when the
// test ends. Tests using it must not run in parallel.
func setup(t *testing.T) *env {
	t.Helper()

	origPlatform, origDNS, origStore := newPlatform, newDNS, openStore
	origResolver, origTerminal, origConfirm, origContact := newResolver, isTerminal, confirm, promptContact
	origVerifier, origSaga := newURLVerifier, sagaConfig
	origStdout, origStderr := stdout, stderr
	t.Cleanup(func() {
		newPlatform, newDNS, openStore = origPlatform, origDNS, origStore
		newResolver, isTerminal, confirm, promptContact = origResolver, origTerminal, origConfirm, origContact
		newURLVerifier, sagaConfig = origVerifier, origSaga
		stdout, stderr = origStdout, origStderr
	})

	log := lptest.NewCallLog()
	e := &env{
		log:       log,
		platform:  lptest.NewFakePlatform(log),
		dns:       lptest.NewFakeDNS(log),
		registrar: lptest.NewFakeRegistrar(log),
		verifier:  &fakeURLVerifier{},
		out:       &bytes.Buffer{},
		dir:       t.TempDir(),
	}
	e.settings = &config.Settings{
		StateDir:  filepath.Join(e.dir, ".launchpad"),
		Store:     config.StoreFile,
		LogFormat: "json",
	}

	newPlatform = func(_ *config.Settings, image string) (deployment.Platform, error) {
		e.images = append(e.images, image)
		return e.platform, nil
	}
	newDNS = func(_ *config.Settings) (DNSClient, error) {
		return fakeDNSClient{FakeDNS: e.dns, FakeRegistrar: e.registrar}, nil
	}
	newResolver = func(dir string) *secrets.Resolver {
		return secrets.NewResolver(dir, secrets.WithLookupEnv(func(string) (string, bool) { return "", false }))
	}
	isTerminal = func() bool { return false }
	confirm = func(context.Context, string, string) (bool, error) {
		t.Fatal("unexpected confirmation prompt")
		return false, nil
	}
	promptContact = func(context.Context) (*deployment.Contact, error) {
		t.Fatal("unexpected contact prompt")
		return nil, nil
	}
	newURLVerifier = func(observe.Observer) saga.URLVerifier { return e.verifier }
	sagaConfig = func() saga.Config {
		noSleep := func(context.Context, time.Duration) error { return nil }
		return saga.Config{
			Gate:              retry.Policy{MaxAttempts: 3, Sleep: noSleep},
			Registration:      retry.Policy{MaxAttempts: 3, Sleep: noSleep},
			DeployPoll:        retry.Policy{MaxAttempts: 10, Sleep: noSleep},
			DegradedThreshold: 3,
			DeployRetries:     1,
		}
	}
	stdout = e.out
	stderr = io.Discard
	return e
}

// writeFile writes content under the env directory and returns its path.
func (e *env) writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const workerSpec = `
id: worker-app
kind: worker
domain: worker.example.com
template: ghcr.io/acme/worker:1.4
env:
  QUEUE: default
dns:
  - type: A
    name: "@"
    content: 203.0.113.10
`
