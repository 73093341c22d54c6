package jobstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/imamik/launchpad/internal/deployment"
)

var (
	// ErrNotFound is returned when no job has the requested id.
	ErrNotFound = errors.New("job not found")
	// ErrLocked is returned when another driver holds the job lock.
	ErrLocked = errors.New("job is locked by another process")
)

// Unlocker releases a job lock.
type Unlocker interface {
	Unlock() error
}

// Store persists provisioning jobs.
type Store interface {
	Get(ctx context.Context, id string) (*deployment.ProvisionJob, error)
	// Put replaces the stored snapshot of job.
	Put(ctx context.Context, job *deployment.ProvisionJob) error
	// List returns every job, oldest first.
	List(ctx context.Context) ([]*deployment.ProvisionJob, error)
	// Lock takes the exclusive lock for id without waiting. It returns
	// ErrLocked if the lock is held elsewhere.
	Lock(ctx context.Context, id string) (Unlocker, error)
	// ForceUnlock releases the lock for id regardless of its holder.
	ForceUnlock(ctx context.Context, id string) error
	Close() error
}

var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,127}$`)

func checkID(id string) error {
	if !idPattern.MatchString(id) {
		return fmt.Errorf("invalid job id %q", id)
	}
	return nil
}

func encode(job *deployment.ProvisionJob) ([]byte, error) {
	data, err := yaml.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to encode job %s: %w", job.ID, err)
	}
	return data, nil
}

func decode(data []byte) (*deployment.ProvisionJob, error) {
	var job deployment.ProvisionJob
	if err := yaml.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to decode job: %w", err)
	}
	return &job, nil
}

func sortJobs(jobs []*deployment.ProvisionJob) {
	sort.SliceStable(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})
}

// FindOpen returns the most recent job for domain that has not reached a
// terminal state, or nil.
func FindOpen(ctx context.Context, s Store, domain string) (*deployment.ProvisionJob, error) {
	jobs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	var open *deployment.ProvisionJob
	for _, j := range jobs {
		if j.Domain == domain && !j.State.Terminal() {
			open = j
		}
	}
	return open, nil
}

type lockInfo struct {
	Holder   string    `yaml:"holder" json:"holder"`
	PID      int       `yaml:"pid" json:"pid"`
	Acquired time.Time `yaml:"acquired" json:"acquired"`
	Expires  time.Time `yaml:"expires,omitempty" json:"expires,omitempty"`
}

// expired reports whether the lease has run out. Locks written without an
// expiry last one TTL from acquisition.
func (i lockInfo) expired(o leaseOptions) bool {
	expires := i.Expires
	if expires.IsZero() {
		expires = i.Acquired.Add(o.ttl)
	}
	return !o.now().Before(expires)
}
