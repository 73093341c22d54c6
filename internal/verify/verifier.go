package verify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/imamik/launchpad/internal/deployment"
	"github.com/imamik/launchpad/internal/metrics"
	"github.com/imamik/launchpad/internal/observe"
	"github.com/imamik/launchpad/internal/retry"
	"github.com/imamik/launchpad/internal/spec"
)

const (
	// DefaultAttempts is how many health probes are made before giving up.
	DefaultAttempts = 6
	// DefaultDelay is the pause between health probes.
	DefaultDelay = 5 * time.Second

	// CheckHealth is the check type reported for health-endpoint failures.
	CheckHealth = "http_health"

	phase = "verify"
)

// HTTPClient is the subset of *http.Client used for probes.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Verifier checks that a deployed service answers on its health endpoint.
type Verifier struct {
	Client   HTTPClient
	Policy   retry.Policy
	Observer observe.Observer
}

// NewVerifier creates a verifier with the default probe policy.
func NewVerifier(client HTTPClient, observer observe.Observer) *Verifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if observer == nil {
		observer = observe.NewConsoleObserver()
	}
	return &Verifier{
		Client: client,
		Policy: retry.Policy{
			MaxAttempts: DefaultAttempts,
			Backoff:     retry.Constant(DefaultDelay),
		},
		Observer: observer,
	}
}

// HealthURL returns the HTTPS health endpoint of s.
func HealthURL(s *spec.Spec) string {
	return "https://" + s.Domain + s.HealthPath()
}

// Verify probes the health endpoint until it answers 2xx. Exhausting the
// policy returns a *deployment.VerificationError carrying the last observed
// error. Dry runs and workloads without HTTP exposure pass without a probe.
func (v *Verifier) Verify(ctx context.Context, dc *deployment.Context) error {
	if dc.DryRun || !dc.Spec.ExposesHTTP() {
		return nil
	}

	return v.VerifyURL(ctx, HealthURL(dc.Spec))
}

// VerifyURL probes url until it answers 2xx or the policy is spent.
func (v *Verifier) VerifyURL(ctx context.Context, url string) error {
	v.Observer.Printf("[Verify] Probing %s", url)

	var lastErr error
	err := v.Policy.Poll(ctx, func(ctx context.Context, attempt int) (bool, error) {
		if err := v.probe(ctx, url); err != nil {
			lastErr = err
			v.Observer.Printf("[Verify] Attempt %d/%d failed: %v", attempt+1, v.Policy.MaxAttempts, err)
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		metrics.RecordCheck(CheckHealth, string(StatusFail))
		if lastErr == nil || !errors.Is(err, retry.ErrExhausted) {
			lastErr = err
		}
		return &deployment.VerificationError{CheckType: CheckHealth, Err: lastErr}
	}

	metrics.RecordCheck(CheckHealth, string(StatusPass))
	v.Observer.Event(observe.Event{
		Type:    observe.EventCheckResult,
		Phase:   phase,
		Message: fmt.Sprintf("%s is healthy", url),
		Fields:  map[string]string{"check": CheckHealth, "status": string(StatusPass)},
	})
	return nil
}

func (v *Verifier) probe(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return retry.Fatal(err)
	}
	resp, err := v.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("GET %s returned HTTP %d", url, resp.StatusCode)
	}
	return nil
}
