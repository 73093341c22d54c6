package orchestrator

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/imamik/launchpad/internal/deployment"
	"github.com/imamik/launchpad/internal/observe"
	"github.com/imamik/launchpad/internal/secrets"
	"github.com/imamik/launchpad/internal/spec"
	lptest "github.com/imamik/launchpad/internal/testing"
	"github.com/imamik/launchpad/internal/verify"
)

type okClient struct {
	urls []string
}

func (c *okClient) Do(req *http.Request) (*http.Response, error) {
	c.urls = append(c.urls, req.URL.String())
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("ok"))}, nil
}

type stubVerifier struct {
	err   error
	calls int
}

func (v *stubVerifier) Verify(context.Context, *deployment.Context) error {
	v.calls++
	return v.err
}

type stubChecker struct {
	results verify.Results
}

func (c stubChecker) Run(context.Context, []spec.Postcondition) verify.Results {
	return c.results
}

func resolverWith(env map[string]string) *secrets.Resolver {
	return secrets.NewResolver("/nonexistent", secrets.WithLookupEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}))
}

type harness struct {
	log      *lptest.CallLog
	platform *lptest.FakePlatform
	dns      *lptest.FakeDNS
	verifier *stubVerifier
	recorder *observe.Recorder
}

func newHarness(opts ...Option) (*harness, *Orchestrator) {
	log := lptest.NewCallLog()
	h := &harness{
		log:      log,
		platform: lptest.NewFakePlatform(log),
		dns:      lptest.NewFakeDNS(log),
		verifier: &stubVerifier{},
		recorder: observe.NewRecorder(),
	}
	o := New(h.platform, h.dns, h.verifier, resolverWith(map[string]string{"API_KEY": "secret"}), h.recorder, opts...)
	return h, o
}

func TestRun_EndToEndHappyPath(t *testing.T) {
	t.Parallel()
	platform := lptest.NewMockPlatform()
	platform.On("Create", mock.Anything, "my-api", "https://api.example.com", map[string]string{"API_KEY": "k-123"}).
		Return("app-1", nil).Once()
	platform.On("Start", mock.Anything, "app-1").Return("dep-1", nil).Once()

	client := &okClient{}
	verifier := verify.NewVerifier(client, observe.NewRecorder())
	verifier.Policy.Sleep = func(context.Context, time.Duration) error { return nil }

	o := New(platform, nil, verifier, resolverWith(map[string]string{"API_KEY": "k-123"}), observe.NewRecorder())
	dc := deployment.NewContext(lptest.NewSpecBuilder().Build(), false)

	report := o.Run(lptest.TestContext(t), dc)

	require.Nil(t, report.Err)
	assert.Equal(t, deployment.PhaseComplete, report.Phase)
	assert.Equal(t, []deployment.Phase{
		deployment.PhaseValidating,
		deployment.PhaseProvisioning,
		deployment.PhaseDeploying,
		deployment.PhaseVerifying,
		deployment.PhaseComplete,
	}, report.Phases())
	assert.Equal(t, []string{"https://api.example.com/health"}, client.urls)
	assert.Equal(t, "https://api.example.com", report.URL)
	assert.Equal(t, 0, report.ExitCode())
	platform.AssertExpectations(t)
	platform.AssertNumberOfCalls(t, "Create", 1)
}

func TestRun_CreateFailsGoesStraightToFailed(t *testing.T) {
	t.Parallel()
	h, o := newHarness()
	h.platform.Fail("create", errors.New("quota exceeded"))
	dc := deployment.NewContext(lptest.NewSpecBuilder().Build(), false)

	report := o.Run(lptest.TestContext(t), dc)

	assert.Equal(t, deployment.PhaseFailed, report.Phase)
	assert.Equal(t, []deployment.Phase{
		deployment.PhaseValidating,
		deployment.PhaseProvisioning,
		deployment.PhaseDeploying,
		deployment.PhaseFailed,
	}, report.Phases())
	require.NotNil(t, report.Err)
	assert.Equal(t, deployment.PhaseDeploying, report.Err.Phase)
	var derr *deployment.DeployError
	require.ErrorAs(t, report.Err, &derr)
	assert.Equal(t, "create", derr.Op)
	assert.Zero(t, h.log.Count("platform.delete"))
	assert.Equal(t, 1, report.ExitCode())
}

func TestRun_MissingRequiredSecretFailsBeforeRemoteCalls(t *testing.T) {
	t.Parallel()
	h, _ := newHarness()
	o := New(h.platform, h.dns, h.verifier, resolverWith(nil), h.recorder)
	dc := deployment.NewContext(lptest.NewSpecBuilder().Build(), false)

	report := o.Run(lptest.TestContext(t), dc)

	assert.Equal(t, deployment.PhaseFailed, report.Phase)
	assert.Equal(t, deployment.PhaseValidating, report.Err.Phase)
	assert.True(t, spec.IsValidation(report.Err))
	assert.Empty(t, h.log.Calls())
}

func TestRun_InvalidSpecFailsBeforeRemoteCalls(t *testing.T) {
	t.Parallel()
	h, o := newHarness()
	dc := deployment.NewContext(lptest.NewSpecBuilder().WithDomain("").Build(), false)

	report := o.Run(lptest.TestContext(t), dc)

	assert.Equal(t, deployment.PhaseFailed, report.Phase)
	var verr *spec.ValidationError
	require.ErrorAs(t, report.Err, &verr)
	assert.Equal(t, "domain", verr.Field)
	assert.Empty(t, h.log.Calls())
}

func TestRun_VerificationFailureRollsBackInReverse(t *testing.T) {
	t.Parallel()
	h, o := newHarness()
	h.verifier.err = &deployment.VerificationError{CheckType: verify.CheckHealth, Err: errors.New("HTTP 502")}
	s := lptest.NewSpecBuilder().
		WithDNS("CNAME", "www", "api.example.com").
		WithDNS("TXT", "_verify", "token").
		Build()
	dc := deployment.NewContext(s, false)

	report := o.Run(lptest.TestContext(t), dc)

	assert.Equal(t, deployment.PhaseRolledBack, report.Phase)
	assert.Equal(t, deployment.PhaseVerifying, report.Err.Phase)
	assert.Empty(t, report.RollbackErrors)
	var deletes []string
	for _, c := range h.log.Calls() {
		if strings.Contains(c, ".delete(") {
			deletes = append(deletes, c)
		}
	}
	assert.Equal(t, []string{
		"platform.delete(app-1)",
		"dns.delete(zone-api-example-com,rec-2)",
		"dns.delete(zone-api-example-com,rec-1)",
	}, deletes)
	assert.Empty(t, h.platform.Apps())
	assert.Zero(t, h.dns.RecordCount())
	assert.Equal(t, 0, report.ExitCode())
}

func TestRun_RollbackErrorsEndInFailed(t *testing.T) {
	t.Parallel()
	h, o := newHarness()
	h.verifier.err = &deployment.VerificationError{CheckType: verify.CheckHealth, Err: errors.New("timeout")}
	h.platform.Fail("delete", errors.New("locked"))
	dc := deployment.NewContext(lptest.NewSpecBuilder().Build(), false)

	report := o.Run(lptest.TestContext(t), dc)

	assert.Equal(t, deployment.PhaseFailed, report.Phase)
	require.Len(t, report.RollbackErrors, 1)
	assert.Equal(t, deployment.PhaseVerifying, report.Err.Phase)
	assert.Equal(t, 1, report.ExitCode())
}

func TestRun_RollbackDisabledKeepsResources(t *testing.T) {
	t.Parallel()
	h, o := newHarness()
	h.verifier.err = &deployment.VerificationError{CheckType: verify.CheckHealth, Err: errors.New("timeout")}
	dc := deployment.NewContext(lptest.NewSpecBuilder().WithAutomaticRollback(false).Build(), false)

	report := o.Run(lptest.TestContext(t), dc)

	assert.Equal(t, deployment.PhaseFailed, report.Phase)
	assert.True(t, report.ResourcesKept)
	assert.Zero(t, h.log.Count("platform.delete"))
}

func TestRun_DeployErrorRollsBackEvenWhenAutomaticDisabled(t *testing.T) {
	t.Parallel()
	h, o := newHarness()
	h.platform.Fail("start", errors.New("build failed"))
	dc := deployment.NewContext(lptest.NewSpecBuilder().WithAutomaticRollback(false).Build(), false)

	report := o.Run(lptest.TestContext(t), dc)

	assert.Equal(t, deployment.PhaseRolledBack, report.Phase)
	assert.Equal(t, 1, h.log.Count("platform.delete(app-1)"))
}

func TestRun_ExistingAppIsUpdatedNotRecorded(t *testing.T) {
	t.Parallel()
	h, o := newHarness()
	h.platform.AddApp(deployment.App{ID: "app-9", Name: "my-api"})
	h.verifier.err = &deployment.VerificationError{CheckType: verify.CheckHealth, Err: errors.New("timeout")}
	dc := deployment.NewContext(lptest.NewSpecBuilder().Build(), false)

	report := o.Run(lptest.TestContext(t), dc)

	assert.Equal(t, 1, h.log.Count("platform.update(app-9)"))
	assert.Zero(t, h.log.Count("platform.create"))
	assert.Empty(t, report.Resources)
	assert.Equal(t, deployment.PhaseFailed, report.Phase, "nothing created, nothing to roll back")
	assert.Zero(t, h.log.Count("platform.delete"))
}

func TestRun_DryRunMakesNoRemoteCalls(t *testing.T) {
	t.Parallel()
	h, o := newHarness()
	dc := deployment.NewContext(lptest.NewSpecBuilder().WithDNS("A", "@", "203.0.113.10").Build(), true)

	report := o.Run(lptest.TestContext(t), dc)

	assert.Equal(t, deployment.PhaseComplete, report.Phase)
	assert.True(t, report.DryRun)
	assert.Empty(t, h.log.Calls())
}

func TestRun_PostconditionFailureTriggersRollback(t *testing.T) {
	t.Parallel()
	checker := stubChecker{results: verify.Results{
		{Name: "home", Type: verify.TypeHTTPGet, Status: verify.StatusPass},
		{Name: "dns", Type: verify.TypeDNSLookup, Status: verify.StatusFail, Message: "no such host"},
	}}
	h, o := newHarness(WithPostconditions(checker))
	s := lptest.NewSpecBuilder().WithPostcondition(spec.Postcondition{Name: "dns", Type: verify.TypeDNSLookup, Host: "api.example.com"}).Build()

	report := o.Run(lptest.TestContext(t), deployment.NewContext(s, false))

	assert.Equal(t, deployment.PhaseRolledBack, report.Phase)
	var verr *deployment.VerificationError
	require.ErrorAs(t, report.Err, &verr)
	assert.Equal(t, verify.TypeDNSLookup, verr.CheckType)
	assert.Len(t, report.Checks, 2)
	assert.Equal(t, 1, h.log.Count("platform.delete"))
}

func TestRun_WarnOnlyPostconditionsAreNotSuccess(t *testing.T) {
	t.Parallel()
	checker := stubChecker{results: verify.Results{{Name: "ping", Type: "icmp", Status: verify.StatusWarn}}}
	h, o := newHarness(WithPostconditions(checker))
	s := lptest.NewSpecBuilder().WithPostcondition(spec.Postcondition{Name: "ping", Type: "icmp"}).Build()

	report := o.Run(lptest.TestContext(t), deployment.NewContext(s, false))

	assert.Equal(t, deployment.PhaseRolledBack, report.Phase)
	var verr *deployment.VerificationError
	require.ErrorAs(t, report.Err, &verr)
	assert.Equal(t, verify.CheckPostconditions, verr.CheckType)
	assert.Equal(t, 1, h.log.Count("platform.delete(app-1)"))
	assert.NotEmpty(t, h.recorder.EventsOfType(observe.EventWarning))
}

func TestRun_SkipOnlyPostconditionsWithRollbackDisabledKeepResources(t *testing.T) {
	t.Parallel()
	checker := stubChecker{results: verify.Results{{Name: "tls", Type: verify.TypeSSLVerify, Status: verify.StatusSkip}}}
	h, o := newHarness(WithPostconditions(checker))
	s := lptest.NewSpecBuilder().
		WithAutomaticRollback(false).
		WithPostcondition(spec.Postcondition{Name: "tls", Type: verify.TypeSSLVerify, Host: "api.example.com"}).
		Build()

	report := o.Run(lptest.TestContext(t), deployment.NewContext(s, false))

	assert.Equal(t, deployment.PhaseFailed, report.Phase)
	assert.True(t, report.ResourcesKept)
	assert.Zero(t, h.log.Count("platform.delete"))
}

func TestRun_PreexistingDNSRecordIsNotRolledBack(t *testing.T) {
	t.Parallel()
	h, o := newHarness()
	h.dns.SeedRecord("api.example.com", "A", "www", "users-own-record")
	h.platform.Fail("create", errors.New("quota exceeded"))
	s := lptest.NewSpecBuilder().
		WithDNS("A", "www", "203.0.113.10").
		WithDNS("TXT", "_verify", "token").
		Build()

	report := o.Run(lptest.TestContext(t), deployment.NewContext(s, false))

	assert.Equal(t, deployment.PhaseRolledBack, report.Phase)
	require.Len(t, report.Resources, 1)
	rec, ok := report.Resources[0].(deployment.DNSRecord)
	require.True(t, ok)
	assert.Equal(t, "TXT", rec.RecordType)
	assert.True(t, h.dns.HasRecord("users-own-record"))
	assert.Zero(t, h.log.Count("dns.delete(zone-api-example-com,users-own-record)"))
	assert.Equal(t, 1, h.log.Count("dns.delete(zone-api-example-com,rec-1)"))
	assert.NotEmpty(t, h.recorder.EventsOfType(observe.EventResourceExists))
}

func TestTransition_IllegalIsAppliedWithWarning(t *testing.T) {
	t.Parallel()
	h, o := newHarness()
	dc := deployment.NewContext(lptest.NewSpecBuilder().Build(), false)

	o.transition(h.recorder, dc, deployment.PhaseComplete)

	assert.Equal(t, deployment.PhaseComplete, dc.Phase)
	warnings := h.recorder.EventsOfType(observe.EventWarning)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Message, "illegal transition VALIDATING -> COMPLETE")
}
