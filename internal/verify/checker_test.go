package verify

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/launchpad/internal/observe"
	"github.com/imamik/launchpad/internal/spec"
	lptest "github.com/imamik/launchpad/internal/testing"
)

type fakeResolver map[string][]string

func (f fakeResolver) LookupHost(_ context.Context, host string) ([]string, error) {
	addrs, ok := f[host]
	if !ok {
		return nil, errors.New("no such host")
	}
	return addrs, nil
}

func newTestChecker(delays *[]time.Duration) *Checker {
	c := NewChecker(observe.NewRecorder())
	c.Resolver = fakeResolver{"api.example.com": {"203.0.113.10"}}
	c.Sleep = func(_ context.Context, d time.Duration) error {
		if delays != nil {
			*delays = append(*delays, d)
		}
		return nil
	}
	return c
}

func TestResults_AllPassed(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		results Results
		want    bool
	}{
		{"empty", nil, false},
		{"only warn and skip", Results{{Status: StatusWarn}, {Status: StatusSkip}}, false},
		{"one pass", Results{{Status: StatusPass}}, true},
		{"pass and warn", Results{{Status: StatusPass}, {Status: StatusWarn}}, true},
		{"pass and fail", Results{{Status: StatusPass}, {Status: StatusFail}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.results.AllPassed())
		})
	}
}

func TestResults_ShouldRollback(t *testing.T) {
	t.Parallel()
	failed := Results{{Status: StatusPass}, {Status: StatusFail}}

	assert.True(t, failed.ShouldRollback(lptest.NewSpecBuilder().Build()))
	assert.False(t, failed.ShouldRollback(lptest.NewSpecBuilder().WithAutomaticRollback(false).Build()))
	assert.False(t, Results{{Status: StatusPass}}.ShouldRollback(lptest.NewSpecBuilder().Build()))

	unverified := Results{{Status: StatusWarn}, {Status: StatusSkip}}
	assert.True(t, unverified.ShouldRollback(lptest.NewSpecBuilder().Build()))
	assert.False(t, unverified.ShouldRollback(lptest.NewSpecBuilder().WithAutomaticRollback(false).Build()))
}

func TestChecker_HTTPGet(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	var delays []time.Duration
	results := newTestChecker(&delays).Run(lptest.TestContext(t), []spec.Postcondition{
		{Name: "home", Type: TypeHTTPGet, URL: srv.URL + "/"},
		{Name: "gone", Type: TypeHTTPGet, URL: srv.URL + "/missing", ExpectStatus: 404},
		{Name: "broken", Type: TypeHTTPGet, URL: srv.URL + "/missing"},
	})

	require.Len(t, results, 3)
	assert.Equal(t, StatusPass, results[0].Status)
	assert.Equal(t, StatusPass, results[1].Status)
	assert.Equal(t, StatusFail, results[2].Status)
	assert.Equal(t, defaultCheckAttempts, results[2].Attempts)
	assert.Contains(t, results[2].Message, "expected HTTP 200, got 404")
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, delays, "backoff is 2^attempt seconds")
	assert.False(t, results.AllPassed())
}

func TestChecker_SSLVerify(t *testing.T) {
	t.Parallel()
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	defer srv.Close()

	host, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	pool := x509.NewCertPool()
	pool.AddCert(srv.Certificate())

	c := newTestChecker(nil)
	c.TLSConfig = &tls.Config{RootCAs: pool}
	results := c.Run(lptest.TestContext(t), []spec.Postcondition{
		{Name: "tls", Type: TypeSSLVerify, Host: host, Port: port},
	})

	require.Len(t, results, 1)
	assert.Equal(t, StatusPass, results[0].Status, results[0].Message)
}

func TestChecker_SSLVerify_UntrustedCertificateFails(t *testing.T) {
	t.Parallel()
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	defer srv.Close()

	host, portStr, _ := net.SplitHostPort(srv.Listener.Addr().String())
	port, _ := strconv.Atoi(portStr)

	results := newTestChecker(nil).Run(lptest.TestContext(t), []spec.Postcondition{
		{Name: "tls", Type: TypeSSLVerify, Host: host, Port: port, Attempts: 1},
	})

	assert.Equal(t, StatusFail, results[0].Status)
}

func TestChecker_DNSLookup(t *testing.T) {
	t.Parallel()
	results := newTestChecker(nil).Run(lptest.TestContext(t), []spec.Postcondition{
		{Name: "resolves", Type: TypeDNSLookup, Host: "api.example.com"},
		{Name: "matches", Type: TypeDNSLookup, Host: "api.example.com", ExpectIP: "203.0.113.10"},
		{Name: "mismatch", Type: TypeDNSLookup, Host: "api.example.com", ExpectIP: "198.51.100.1", Attempts: 2},
		{Name: "unknown", Type: TypeDNSLookup, Host: "nope.example.com", Attempts: 1},
	})

	require.Len(t, results, 4)
	assert.Equal(t, StatusPass, results[0].Status)
	assert.Equal(t, StatusPass, results[1].Status)
	assert.Equal(t, StatusFail, results[2].Status)
	assert.Equal(t, 2, results[2].Attempts)
	assert.Equal(t, StatusFail, results[3].Status)
}

func TestChecker_UnknownTypeWarns(t *testing.T) {
	t.Parallel()
	results := newTestChecker(nil).Run(lptest.TestContext(t), []spec.Postcondition{
		{Name: "ping", Type: "icmp"},
	})

	require.Len(t, results, 1)
	assert.Equal(t, StatusWarn, results[0].Status)
	assert.False(t, results.AllPassed())
}

func TestChecker_MissingTargetFails(t *testing.T) {
	t.Parallel()
	results := newTestChecker(nil).Run(lptest.TestContext(t), []spec.Postcondition{
		{Type: TypeHTTPGet},
		{Type: TypeSSLVerify},
	})

	assert.Equal(t, StatusFail, results[0].Status)
	assert.Equal(t, TypeHTTPGet, results[0].Name)
	assert.Equal(t, StatusFail, results[1].Status)
}
