package handlers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/imamik/launchpad/internal/config"
	"github.com/imamik/launchpad/internal/deployment"
	"github.com/imamik/launchpad/internal/jobstore"
	"github.com/imamik/launchpad/internal/observe"
	"github.com/imamik/launchpad/internal/saga"
	"github.com/imamik/launchpad/internal/spec"
	"github.com/imamik/launchpad/internal/verify"
)

// ProvisionOptions are the flags of the provision command.
type ProvisionOptions struct {
	Domain      string
	AppName     string
	Register    bool
	Years       int
	ContactFile string
	Records     []string
	Credentials []string
	Image       string
	JSON        bool
}

// Factory function variables for the saga - can be replaced in tests.
var (
	newURLVerifier = func(obs observe.Observer) saga.URLVerifier {
		return verify.NewVerifier(nil, obs)
	}
	sagaConfig = func() saga.Config {
		return saga.DefaultConfig(config.LoadTimeouts())
	}
)

// Provision starts or resumes the provisioning job for a domain.
func Provision(ctx context.Context, settings *config.Settings, opts ProvisionOptions) error {
	records, err := parseRecords(opts.Records)
	if err != nil {
		return err
	}

	var contact *deployment.Contact
	if opts.Register {
		contact, err = loadContact(ctx, opts.ContactFile)
		if err != nil {
			return err
		}
	}

	obs := newObserver(settings)
	return withStore(ctx, settings, func(store jobstore.Store) error {
		driver, err := newDriver(settings, store, opts.Image, obs)
		if err != nil {
			return err
		}
		job, err := driver.Start(ctx, saga.Request{
			Domain:         opts.Domain,
			AppName:        opts.AppName,
			RegisterDomain: opts.Register,
			Contact:        contact,
			Years:          opts.Years,
			Records:        records,
			Credentials:    opts.Credentials,
		})
		return finishJob(job, err, opts.JSON)
	})
}

// ResumeOptions are the flags of the resume command.
type ResumeOptions struct {
	Image string
	JSON  bool
	// ForceUnlock releases a lock left by a crashed process before resuming.
	ForceUnlock bool
}

// Resume continues a provisioning job from its persisted state.
func Resume(ctx context.Context, settings *config.Settings, id string, opts ResumeOptions) error {
	obs := newObserver(settings)
	return withStore(ctx, settings, func(store jobstore.Store) error {
		if opts.ForceUnlock {
			fmt.Fprintf(stderr, "%s releasing the lock on job %s; make sure no other process is running it\n",
				warningStyle.Render(warnMark), id)
			if err := store.ForceUnlock(ctx, id); err != nil {
				return err
			}
		}
		driver, err := newDriver(settings, store, opts.Image, obs)
		if err != nil {
			return err
		}
		job, err := driver.Resume(ctx, id)
		return finishJob(job, err, opts.JSON)
	})
}

func newDriver(settings *config.Settings, store jobstore.Store, image string, obs observe.Observer) (*saga.Driver, error) {
	dns, err := newDNS(settings)
	if err != nil {
		return nil, err
	}
	platform, err := newPlatform(settings, image)
	if err != nil {
		return nil, err
	}
	return saga.NewDriver(store, dns, dns, platform, newResolver("."), newURLVerifier(obs), obs, sagaConfig()), nil
}

// finishJob prints the job and turns the driver outcome into the command
// result. A job parked at a wait point is not an error.
func finishJob(job *deployment.ProvisionJob, runErr error, jsonOut bool) error {
	if job != nil {
		if jsonOut {
			if err := printJSON(job); err != nil {
				return err
			}
		} else {
			printJob(job)
			if runErr == nil && !job.State.Terminal() && !job.State.Failed() {
				fmt.Fprintf(stdout, "  %s waiting in %s, continue with: launchpad resume %s\n\n",
					warningStyle.Render(pending), job.State, job.ID)
			}
		}
	}

	var failed *saga.FailedError
	if errors.As(runErr, &failed) && failed.Retryable {
		return fmt.Errorf("%w (retry with: launchpad resume %s)", runErr, failed.JobID)
	}
	return runErr
}

// parseRecords parses TYPE:NAME:CONTENT triples. Content may itself contain
// colons, as IPv6 addresses do.
func parseRecords(raw []string) ([]spec.DNSRecord, error) {
	records := make([]spec.DNSRecord, 0, len(raw))
	for _, r := range raw {
		parts := strings.SplitN(r, ":", 3)
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
			return nil, fmt.Errorf("invalid record %q, want TYPE:NAME:CONTENT", r)
		}
		recordType := strings.ToUpper(parts[0])
		if !spec.ValidDNSTypes[recordType] {
			return nil, fmt.Errorf("invalid record %q: unsupported type %s", r, parts[0])
		}
		records = append(records, spec.DNSRecord{Type: recordType, Name: parts[1], Content: parts[2]})
	}
	return records, nil
}

// loadContact reads the registrant from path, or asks for it on a terminal.
func loadContact(ctx context.Context, path string) (*deployment.Contact, error) {
	if path == "" {
		if !isTerminal() {
			return nil, errors.New("domain registration needs --contact-file when not running in a terminal")
		}
		return promptContact(ctx)
	}

	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read contact file: %w", err)
	}
	var c deployment.Contact
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse contact file %s: %w", path, err)
	}
	if c.Email == "" || c.LastName == "" || c.Country == "" {
		return nil, fmt.Errorf("contact file %s: email, last_name and country are required", path)
	}
	return &c, nil
}
