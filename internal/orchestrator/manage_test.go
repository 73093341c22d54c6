package orchestrator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/launchpad/internal/deployment"
	lptest "github.com/imamik/launchpad/internal/testing"
)

func TestDestroy(t *testing.T) {
	t.Parallel()
	h, o := newHarness()
	h.platform.AddApp(deployment.App{ID: "app-3", Name: "my-api"})

	require.NoError(t, o.Destroy(lptest.TestContext(t), lptest.NewSpecBuilder().Build()))
	assert.Empty(t, h.platform.Apps())
}

func TestDestroy_NotFoundIsSuccess(t *testing.T) {
	t.Parallel()
	h, o := newHarness()

	require.NoError(t, o.Destroy(lptest.TestContext(t), lptest.NewSpecBuilder().Build()))
	assert.Zero(t, h.log.Count("platform.delete"))

	// The app vanishing between lookup and delete is also fine.
	h.platform.AddApp(deployment.App{ID: "app-3", Name: "my-api"})
	h.platform.Fail("delete", deployment.ErrNotFound)
	require.NoError(t, o.Destroy(lptest.TestContext(t), lptest.NewSpecBuilder().Build()))
}

func TestDestroy_PropagatesDeleteError(t *testing.T) {
	t.Parallel()
	h, o := newHarness()
	h.platform.AddApp(deployment.App{ID: "app-3", Name: "my-api"})
	h.platform.Fail("delete", errors.New("forbidden"))

	err := o.Destroy(lptest.TestContext(t), lptest.NewSpecBuilder().Build())

	var derr *deployment.DeployError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "delete", derr.Op)
}

func TestStatus(t *testing.T) {
	t.Parallel()
	h, o := newHarness()
	h.platform.AddApp(deployment.App{ID: "app-3", Name: "my-api"})
	h.platform.SetStatuses("running:healthy")

	app, err := o.Status(lptest.TestContext(t), lptest.NewSpecBuilder().Build())
	require.NoError(t, err)
	assert.Equal(t, "app-3", app.ID)
	assert.Equal(t, "running:healthy", app.Status)

	_, err = o.Status(lptest.TestContext(t), lptest.NewSpecBuilder().WithID("other").Build())
	assert.ErrorIs(t, err, ErrNotDeployed)
}

func TestLogs(t *testing.T) {
	t.Parallel()
	h, o := newHarness()
	h.platform.AddApp(deployment.App{ID: "app-3", Name: "my-api"})

	lines, err := o.Logs(lptest.TestContext(t), lptest.NewSpecBuilder().Build(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"app-3 listening on :8080"}, lines)
}

func TestPlan(t *testing.T) {
	t.Parallel()
	h, o := newHarness()
	s := lptest.NewSpecBuilder().WithDNS("CNAME", "www", "api.example.com").Build()

	actions := o.Plan(deployment.NewContext(s, true))

	assert.Empty(t, h.log.Calls())
	var descriptions []string
	for _, a := range actions {
		descriptions = append(descriptions, a.Description)
	}
	assert.Contains(t, descriptions, "upsert CNAME record www -> api.example.com")
	assert.Contains(t, descriptions, "probe https://api.example.com/health")
	assert.Equal(t, deployment.PhaseValidating, actions[0].Phase)
}
