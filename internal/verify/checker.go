package verify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/imamik/launchpad/internal/metrics"
	"github.com/imamik/launchpad/internal/observe"
	"github.com/imamik/launchpad/internal/retry"
	"github.com/imamik/launchpad/internal/spec"
)

// Status is the outcome of one postcondition.
type Status string

// Postcondition outcomes.
const (
	StatusPass Status = "PASS"
	StatusFail Status = "FAIL"
	StatusWarn Status = "WARN"
	StatusSkip Status = "SKIP"
)

// Postcondition types.
const (
	TypeHTTPGet   = "http_get"
	TypeSSLVerify = "ssl_verify"
	TypeDNSLookup = "dns_lookup"

	// CheckPostconditions names a verification failure where no check
	// passed and none failed.
	CheckPostconditions = "postconditions"
)

const (
	defaultCheckAttempts = 3
	defaultExpectStatus  = http.StatusOK
	defaultTLSPort       = 443
)

// Result is the outcome of one named check.
type Result struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Status   Status `json:"status"`
	Message  string `json:"message,omitempty"`
	Attempts int    `json:"attempts"`
}

// Results is the outcome of a postcondition run.
type Results []Result

// AllPassed reports whether at least one check passed and none failed. A
// run with no checks, or only skipped and warned checks, has not passed.
func (r Results) AllPassed() bool {
	passed := 0
	for _, res := range r {
		switch res.Status {
		case StatusFail:
			return false
		case StatusPass:
			passed++
		}
	}
	return passed > 0
}

// Failed returns the failed checks.
func (r Results) Failed() Results {
	var out Results
	for _, res := range r {
		if res.Status == StatusFail {
			out = append(out, res)
		}
	}
	return out
}

// ShouldRollback reports whether r warrants a rollback under the spec's
// policy. Any run that has not passed does, unless the spec disables
// automatic rollback.
func (r Results) ShouldRollback(s *spec.Spec) bool {
	if r.AllPassed() {
		return false
	}
	return s == nil || s.AutomaticRollback()
}

// HostResolver resolves host names. *net.Resolver satisfies it.
type HostResolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Checker runs spec postconditions.
type Checker struct {
	Client   HTTPClient
	Resolver HostResolver
	// TLSConfig is cloned for every ssl_verify handshake. Nil uses the
	// system roots.
	TLSConfig *tls.Config
	// Backoff is the delay base; the n-th retry waits Backoff * 2^n.
	Backoff  time.Duration
	Sleep    func(ctx context.Context, d time.Duration) error
	Observer observe.Observer
}

// NewChecker creates a checker using the default HTTP client and resolver.
func NewChecker(observer observe.Observer) *Checker {
	if observer == nil {
		observer = observe.NewConsoleObserver()
	}
	return &Checker{
		Client:   &http.Client{Timeout: 10 * time.Second},
		Resolver: net.DefaultResolver,
		Backoff:  time.Second,
		Observer: observer,
	}
}

// Run executes checks in order and returns one result per check.
func (c *Checker) Run(ctx context.Context, checks []spec.Postcondition) Results {
	results := make(Results, 0, len(checks))
	for _, pc := range checks {
		res := c.run(ctx, pc)
		metrics.RecordCheck(res.Type, string(res.Status))
		c.Observer.Event(observe.Event{
			Type:    observe.EventCheckResult,
			Phase:   phase,
			Message: fmt.Sprintf("%s %s: %s", res.Status, res.Name, res.Message),
			Fields:  map[string]string{"check": res.Type, "status": string(res.Status)},
		})
		results = append(results, res)
	}
	return results
}

func (c *Checker) run(ctx context.Context, pc spec.Postcondition) Result {
	res := Result{Name: pc.Name, Type: pc.Type}
	if res.Name == "" {
		res.Name = pc.Type
	}

	var probe func(ctx context.Context) (string, error)
	switch pc.Type {
	case TypeHTTPGet:
		if pc.URL == "" {
			return failed(res, "url is required")
		}
		probe = func(ctx context.Context) (string, error) { return c.httpGet(ctx, pc) }
	case TypeSSLVerify:
		if pc.Host == "" {
			return failed(res, "host is required")
		}
		probe = func(ctx context.Context) (string, error) { return c.sslVerify(ctx, pc) }
	case TypeDNSLookup:
		if pc.Host == "" {
			return failed(res, "host is required")
		}
		probe = func(ctx context.Context) (string, error) { return c.dnsLookup(ctx, pc) }
	default:
		res.Status = StatusWarn
		res.Message = fmt.Sprintf("check type %q is not implemented", pc.Type)
		return res
	}

	attempts := pc.Attempts
	if attempts <= 0 {
		attempts = defaultCheckAttempts
	}
	policy := retry.Policy{
		MaxAttempts: attempts,
		Backoff:     retry.Exponential(c.Backoff, 0),
		Sleep:       c.Sleep,
	}

	var msg string
	err := policy.Poll(ctx, func(ctx context.Context, attempt int) (bool, error) {
		res.Attempts = attempt + 1
		m, err := probe(ctx)
		if err != nil {
			return false, err
		}
		msg = m
		return true, nil
	})
	if err != nil {
		var exhausted *retry.ExhaustedError
		if errors.As(err, &exhausted) && exhausted.Last != nil {
			err = exhausted.Last
		}
		return failed(res, err.Error())
	}
	res.Status = StatusPass
	res.Message = msg
	return res
}

func failed(res Result, msg string) Result {
	res.Status = StatusFail
	res.Message = msg
	return res
}

func (c *Checker) httpGet(ctx context.Context, pc spec.Postcondition) (string, error) {
	expect := pc.ExpectStatus
	if expect == 0 {
		expect = defaultExpectStatus
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pc.URL, nil)
	if err != nil {
		return "", retry.Fatal(err)
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != expect {
		return "", fmt.Errorf("expected HTTP %d, got %d", expect, resp.StatusCode)
	}
	return fmt.Sprintf("HTTP %d", resp.StatusCode), nil
}

func (c *Checker) sslVerify(ctx context.Context, pc spec.Postcondition) (string, error) {
	port := pc.Port
	if port == 0 {
		port = defaultTLSPort
	}
	cfg := &tls.Config{}
	if c.TLSConfig != nil {
		cfg = c.TLSConfig.Clone()
	}
	if cfg.ServerName == "" {
		cfg.ServerName = pc.Host
	}

	dialer := &tls.Dialer{NetDialer: &net.Dialer{Timeout: 10 * time.Second}, Config: cfg}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(pc.Host, strconv.Itoa(port)))
	if err != nil {
		return "", err
	}
	defer conn.Close()

	state := conn.(*tls.Conn).ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return "", errors.New("no certificate presented")
	}
	leaf := state.PeerCertificates[0]
	return fmt.Sprintf("certificate for %s valid until %s", leaf.Subject.CommonName, leaf.NotAfter.Format(time.RFC3339)), nil
}

func (c *Checker) dnsLookup(ctx context.Context, pc spec.Postcondition) (string, error) {
	addrs, err := c.Resolver.LookupHost(ctx, pc.Host)
	if err != nil {
		return "", err
	}
	if len(addrs) == 0 {
		return "", fmt.Errorf("%s did not resolve", pc.Host)
	}
	if pc.ExpectIP == "" {
		return fmt.Sprintf("%s resolves to %v", pc.Host, addrs), nil
	}
	for _, a := range addrs {
		if a == pc.ExpectIP {
			return fmt.Sprintf("%s resolves to %s", pc.Host, a), nil
		}
	}
	return "", fmt.Errorf("%s resolves to %v, expected %s", pc.Host, addrs, pc.ExpectIP)
}
