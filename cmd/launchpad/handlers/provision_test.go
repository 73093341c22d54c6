package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/launchpad/internal/deployment"
	"github.com/imamik/launchpad/internal/jobstore"
	"github.com/imamik/launchpad/internal/spec"
)

const domain = "shop.example.com"

func provisionJob(t *testing.T, e *env, opts ProvisionOptions) *deployment.ProvisionJob {
	t.Helper()
	opts.Domain = domain
	opts.JSON = true
	err := Provision(t.Context(), e.settings, opts)
	require.NoError(t, err)

	var job deployment.ProvisionJob
	require.NoError(t, json.Unmarshal(e.out.Bytes(), &job))
	e.out.Reset()
	return &job
}

func TestProvision_HappyPath(t *testing.T) {
	e := setup(t)

	job := provisionJob(t, e, ProvisionOptions{
		Records:     []string{"A:@:203.0.113.10", "CNAME:www:shop.example.com"},
		Credentials: []string{"ADMIN_PASSWORD"},
		Image:       "ghcr.io/acme/shop:2",
	})

	assert.Equal(t, deployment.JobComplete, job.State)
	assert.Equal(t, domain, job.AppName)
	assert.Len(t, job.Outputs.DNSRecordIDs, 2)
	assert.NotEmpty(t, job.Outputs.ApplicationID)
	assert.Equal(t, []string{"https://" + domain + "/"}, e.verifier.urls)
	assert.Equal(t, []string{"ghcr.io/acme/shop:2"}, e.images)

	apps := e.platform.Apps()
	require.Len(t, apps, 1)
	assert.NotEmpty(t, e.platform.Env[apps[0]]["ADMIN_PASSWORD"])
	assert.Zero(t, e.log.Count("registrar."))
}

func TestProvision_ReusesOpenJob(t *testing.T) {
	e := setup(t)
	e.dns.SetZoneStatuses("pending")

	first := provisionJob(t, e, ProvisionOptions{Records: []string{"A:@:203.0.113.10"}})
	require.Equal(t, deployment.JobGateWaitZoneActive, first.State)

	e.dns.SetZoneStatuses("active")
	second := provisionJob(t, e, ProvisionOptions{})

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, deployment.JobComplete, second.State)
	assert.Equal(t, 1, e.log.Count("dns.create_zone"))
	assert.Equal(t, 1, e.log.Count("dns.upsert"))
}

func TestProvision_WaitingJobPrintsResumeHint(t *testing.T) {
	e := setup(t)
	e.dns.SetZoneStatuses("pending")

	err := Provision(t.Context(), e.settings, ProvisionOptions{Domain: domain})

	require.NoError(t, err)
	assert.Contains(t, e.out.String(), "launchpad resume")
	assert.Contains(t, e.out.String(), string(deployment.JobGateWaitZoneActive))
}

func TestProvision_RetryableFailureNamesResumeCommand(t *testing.T) {
	e := setup(t)
	e.platform.Fail("create", errors.New("coolify unavailable"))

	err := Provision(t.Context(), e.settings, ProvisionOptions{Domain: domain})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "coolify unavailable")
	assert.Contains(t, err.Error(), "launchpad resume")
}

func TestProvision_InvalidRecord(t *testing.T) {
	e := setup(t)

	err := Provision(t.Context(), e.settings, ProvisionOptions{Domain: domain, Records: []string{"A:@"}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "TYPE:NAME:CONTENT")
	assert.Empty(t, e.log.Calls())
}

func TestProvision_RegisterNeedsContactWithoutTerminal(t *testing.T) {
	e := setup(t)

	err := Provision(t.Context(), e.settings, ProvisionOptions{Domain: domain, Register: true})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "--contact-file")
	assert.Empty(t, e.log.Calls())
}

func TestProvision_RegisterWithContactFile(t *testing.T) {
	e := setup(t)
	path := e.writeFile(t, "contact.yaml", `
first_name: Ada
last_name: Lovelace
email: ada@example.com
phone: "+44.2071234567"
address: 12 St James's Square
city: London
postal_code: SW1Y 4JH
country: GB
`)

	job := provisionJob(t, e, ProvisionOptions{Register: true, Years: 2, ContactFile: path})

	assert.Equal(t, deployment.JobComplete, job.State)
	assert.Equal(t, 1, e.log.Count("registrar.register(shop.example.com,2)"))
	assert.NotEmpty(t, job.Outputs.RegistrarOrderID)
}

func TestProvision_RegisterPromptsOnTerminal(t *testing.T) {
	e := setup(t)
	isTerminal = func() bool { return true }
	prompted := false
	promptContact = func(context.Context) (*deployment.Contact, error) {
		prompted = true
		return &deployment.Contact{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Country: "GB"}, nil
	}

	job := provisionJob(t, e, ProvisionOptions{Register: true})

	assert.True(t, prompted)
	assert.Equal(t, deployment.JobComplete, job.State)
}

func TestResume_UnknownJob(t *testing.T) {
	e := setup(t)

	err := Resume(t.Context(), e.settings, "missing-job", ResumeOptions{})

	require.ErrorIs(t, err, jobstore.ErrNotFound)
}

func TestResume_ContinuesWaitingJob(t *testing.T) {
	e := setup(t)
	e.dns.SetZoneStatuses("pending")
	first := provisionJob(t, e, ProvisionOptions{})
	e.dns.SetZoneStatuses("active")

	err := Resume(t.Context(), e.settings, first.ID, ResumeOptions{JSON: true})

	require.NoError(t, err)
	var job deployment.ProvisionJob
	require.NoError(t, json.Unmarshal(e.out.Bytes(), &job))
	assert.Equal(t, deployment.JobComplete, job.State)
}

func TestResume_ForceUnlockReleasesStaleLock(t *testing.T) {
	e := setup(t)
	e.dns.SetZoneStatuses("pending")
	first := provisionJob(t, e, ProvisionOptions{})
	e.dns.SetZoneStatuses("active")

	// A crashed run still holds the job lock.
	store, err := jobstore.NewFileStore(e.settings.JobsDir())
	require.NoError(t, err)
	stale, err := store.Lock(t.Context(), first.ID)
	require.NoError(t, err)
	t.Cleanup(func() { _ = stale.Unlock() })

	err = Resume(t.Context(), e.settings, first.ID, ResumeOptions{})
	require.ErrorIs(t, err, jobstore.ErrLocked)

	e.out.Reset()
	err = Resume(t.Context(), e.settings, first.ID, ResumeOptions{JSON: true, ForceUnlock: true})
	require.NoError(t, err)
	var job deployment.ProvisionJob
	require.NoError(t, json.Unmarshal(e.out.Bytes(), &job))
	assert.Equal(t, deployment.JobComplete, job.State)
}

func TestParseRecords(t *testing.T) {
	records, err := parseRecords([]string{"aaaa:@:2001:db8::1", "TXT:_acme:token=abc"})

	require.NoError(t, err)
	assert.Equal(t, []spec.DNSRecord{
		{Type: "AAAA", Name: "@", Content: "2001:db8::1"},
		{Type: "TXT", Name: "_acme", Content: "token=abc"},
	}, records)

	_, err = parseRecords([]string{"SRV:_sip:10 5060 sip.example.com"})
	require.Error(t, err)
}

func TestJobs_ListAndFilter(t *testing.T) {
	e := setup(t)
	provisionJob(t, e, ProvisionOptions{})
	e.dns.SetZoneStatuses("pending")
	require.NoError(t, Provision(t.Context(), e.settings, ProvisionOptions{Domain: "blog.example.com", JSON: true}))
	e.out.Reset()

	require.NoError(t, Jobs(t.Context(), e.settings, JobsOptions{Open: true, JSON: true}))
	var open []*deployment.ProvisionJob
	require.NoError(t, json.Unmarshal(e.out.Bytes(), &open))
	require.Len(t, open, 1)
	assert.Equal(t, "blog.example.com", open[0].Domain)

	e.out.Reset()
	require.NoError(t, Jobs(t.Context(), e.settings, JobsOptions{}))
	assert.Contains(t, e.out.String(), domain)
	assert.Contains(t, e.out.String(), "blog.example.com")
	assert.Contains(t, e.out.String(), "COMPLETE")
}

func TestJobs_ShowOne(t *testing.T) {
	e := setup(t)
	job := provisionJob(t, e, ProvisionOptions{Records: []string{"A:@:203.0.113.10"}})

	require.NoError(t, Jobs(t.Context(), e.settings, JobsOptions{ID: job.ID}))

	out := e.out.String()
	assert.Contains(t, out, job.ID)
	assert.Contains(t, out, "DNS records")
	assert.Contains(t, out, "203.0.113.10")
}
