package jobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log"
	"strings"
	"sync"
	"time"
)

// DefaultLeaseTTL is how long a lock outlives its last heartbeat. A holder
// that crashed stops renewing and its lock can be taken after this long.
const DefaultLeaseTTL = 2 * time.Minute

// ErrLeaseLost is returned when a renewal finds the lock taken over.
var ErrLeaseLost = errors.New("job lock lease was lost")

// Option configures lock leases of the SQL and S3 stores.
type Option func(*leaseOptions)

type leaseOptions struct {
	ttl time.Duration
	now func() time.Time
}

// WithLeaseTTL sets how long a lock stays valid without a heartbeat.
func WithLeaseTTL(ttl time.Duration) Option {
	return func(o *leaseOptions) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithClock replaces time.Now for lease expiry.
func WithClock(now func() time.Time) Option {
	return func(o *leaseOptions) { o.now = now }
}

func newLeaseOptions(opts []Option) leaseOptions {
	o := leaseOptions{ttl: DefaultLeaseTTL, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// DomainLockID is the lock id that serializes job creation for domain.
// Names too long for a lock id are hashed.
func DomainLockID(domain string) string {
	id := "domain-" + strings.NewReplacer(".", "_", "*", "_").Replace(strings.ToLower(domain))
	if checkID(id) != nil {
		sum := sha256.Sum256([]byte(strings.ToLower(domain)))
		id = "domain-" + hex.EncodeToString(sum[:16])
	}
	return id
}

// heartbeat renews a lease every ttl/3 until stopped or the lease is lost.
type heartbeat struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func startHeartbeat(parent context.Context, ttl time.Duration, name string, renew func(context.Context) error) *heartbeat {
	ctx, cancel := context.WithCancel(parent)
	h := &heartbeat{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(h.done)
		ticker := time.NewTicker(max(ttl/3, time.Millisecond))
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				err := renew(ctx)
				if errors.Is(err, ErrLeaseLost) {
					log.Printf("[Lock] Lease on %s was taken over", name)
					return
				}
				if err != nil && ctx.Err() == nil {
					log.Printf("[Lock] Failed to renew lease on %s: %v", name, err)
				}
			}
		}
	}()
	return h
}

// stop ends renewals and waits for an in-flight one to finish.
func (h *heartbeat) stop() {
	h.once.Do(h.cancel)
	<-h.done
}
