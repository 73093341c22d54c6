package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/launchpad/internal/deployment"
)

func TestStatus(t *testing.T) {
	e := setup(t)
	path := e.writeFile(t, "launchpad.yaml", workerSpec)
	e.platform.AddApp(deployment.App{ID: "app-9", Name: "worker-app", FQDN: "https://worker.example.com"})

	err := Status(t.Context(), e.settings, path, false)

	require.NoError(t, err)
	assert.Contains(t, e.out.String(), "app-9")
	assert.Contains(t, e.out.String(), "running")
}

func TestStatus_NotDeployed(t *testing.T) {
	e := setup(t)
	path := e.writeFile(t, "launchpad.yaml", workerSpec)

	err := Status(t.Context(), e.settings, path, false)

	require.NoError(t, err)
	assert.Contains(t, e.out.String(), "worker-app is not deployed")
}

func TestLogs(t *testing.T) {
	e := setup(t)
	path := e.writeFile(t, "launchpad.yaml", workerSpec)
	e.platform.AddApp(deployment.App{ID: "app-3", Name: "worker-app"})

	err := Logs(t.Context(), e.settings, path, 1)

	require.NoError(t, err)
	assert.Equal(t, "app-3 listening on :8080\n", e.out.String())
}

func TestDestroy_RequiresYesWithoutTerminal(t *testing.T) {
	e := setup(t)
	path := e.writeFile(t, "launchpad.yaml", workerSpec)
	e.platform.AddApp(deployment.App{ID: "app-1", Name: "worker-app"})

	err := Destroy(t.Context(), e.settings, path, false)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")
	assert.Equal(t, []string{"app-1"}, e.platform.Apps())
}

func TestDestroy_DeclinedConfirmation(t *testing.T) {
	e := setup(t)
	path := e.writeFile(t, "launchpad.yaml", workerSpec)
	e.platform.AddApp(deployment.App{ID: "app-1", Name: "worker-app"})
	isTerminal = func() bool { return true }
	var asked string
	confirm = func(_ context.Context, title, _ string) (bool, error) {
		asked = title
		return false, nil
	}

	err := Destroy(t.Context(), e.settings, path, false)

	require.ErrorIs(t, err, ErrAborted)
	assert.Equal(t, "Destroy worker-app?", asked)
	assert.Equal(t, []string{"app-1"}, e.platform.Apps())
	assert.Zero(t, e.log.Count("platform.delete"))
}

func TestDestroy_ConfirmedOnTerminal(t *testing.T) {
	e := setup(t)
	path := e.writeFile(t, "launchpad.yaml", workerSpec)
	e.platform.AddApp(deployment.App{ID: "app-1", Name: "worker-app"})
	isTerminal = func() bool { return true }
	confirm = func(context.Context, string, string) (bool, error) { return true, nil }

	err := Destroy(t.Context(), e.settings, path, false)

	require.NoError(t, err)
	assert.Empty(t, e.platform.Apps())
	assert.Contains(t, e.out.String(), "worker-app destroyed")
}

func TestDestroy_YesSkipsPrompt(t *testing.T) {
	e := setup(t)
	path := e.writeFile(t, "launchpad.yaml", workerSpec)
	e.platform.AddApp(deployment.App{ID: "app-1", Name: "worker-app"})

	err := Destroy(t.Context(), e.settings, path, true)

	require.NoError(t, err)
	assert.Empty(t, e.platform.Apps())
	assert.Equal(t, 1, e.log.Count("platform.delete(app-1)"))
}

func TestDestroy_MissingAppIsNotAnError(t *testing.T) {
	e := setup(t)
	path := e.writeFile(t, "launchpad.yaml", workerSpec)

	err := Destroy(t.Context(), e.settings, path, true)

	require.NoError(t, err)
	assert.Zero(t, e.log.Count("platform.delete"))
}
