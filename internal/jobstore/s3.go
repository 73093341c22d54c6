package jobstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/imamik/launchpad/internal/deployment"
	"github.com/imamik/launchpad/internal/platform/s3"
)

// ObjectStore is the subset of the S3 client used by S3Store.
type ObjectStore interface {
	ListObjects(ctx context.Context, bucket, prefix string) ([]string, error)
	PutObject(ctx context.Context, bucket, key string, data []byte) error
	PutObjectIfAbsent(ctx context.Context, bucket, key string, data []byte) (string, error)
	PutObjectIfMatch(ctx context.Context, bucket, key string, data []byte, etag string) (string, error)
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
	GetObjectWithETag(ctx context.Context, bucket, key string) ([]byte, string, error)
	DeleteObject(ctx context.Context, bucket, key string) error
	DeleteObjectIfMatch(ctx context.Context, bucket, key, etag string) error
}

// S3Store keeps one object per job under <prefix>jobs/ and lock objects
// under <prefix>locks/. A lock object records its lease expiry; every
// change to it is conditional on the ETag its writer last saw.
type S3Store struct {
	client ObjectStore
	bucket string
	prefix string
	lease  leaseOptions
	ctx    context.Context
	cancel context.CancelFunc
}

// NewS3Store creates a store in bucket under prefix.
func NewS3Store(client ObjectStore, bucket, prefix string, opts ...Option) *S3Store {
	ctx, cancel := context.WithCancel(context.Background())
	return &S3Store{
		client: client,
		bucket: bucket,
		prefix: prefix,
		lease:  newLeaseOptions(opts),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (s *S3Store) jobKey(id string) string {
	return path.Join(s.prefix, "jobs", id+".yaml")
}

func (s *S3Store) lockKey(id string) string {
	return path.Join(s.prefix, "locks", id+".lock")
}

// Get implements Store.
func (s *S3Store) Get(ctx context.Context, id string) (*deployment.ProvisionJob, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	data, err := s.client.GetObject(ctx, s.bucket, s.jobKey(id))
	if err != nil {
		if errors.Is(err, s3.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return decode(data)
}

// Put implements Store. S3 object writes replace the whole object.
func (s *S3Store) Put(ctx context.Context, job *deployment.ProvisionJob) error {
	if err := checkID(job.ID); err != nil {
		return err
	}
	data, err := encode(job)
	if err != nil {
		return err
	}
	return s.client.PutObject(ctx, s.bucket, s.jobKey(job.ID), data)
}

// List implements Store.
func (s *S3Store) List(ctx context.Context) ([]*deployment.ProvisionJob, error) {
	keys, err := s.client.ListObjects(ctx, s.bucket, path.Join(s.prefix, "jobs")+"/")
	if err != nil {
		return nil, err
	}
	var jobs []*deployment.ProvisionJob
	for _, key := range keys {
		if !strings.HasSuffix(key, ".yaml") {
			continue
		}
		id := strings.TrimSuffix(path.Base(key), ".yaml")
		job, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	sortJobs(jobs)
	return jobs, nil
}

// Lock creates the lock object with a create-only put. An existing lock
// object whose lease has expired is taken over with a put conditional on
// the ETag that was read, so two takers cannot both win.
func (s *S3Store) Lock(ctx context.Context, id string) (Unlocker, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	info, err := s.encodeLock()
	if err != nil {
		return nil, err
	}
	key := s.lockKey(id)
	etag, err := s.client.PutObjectIfAbsent(ctx, s.bucket, key, info)
	if errors.Is(err, s3.ErrExists) {
		etag, err = s.takeOver(ctx, key, info)
	}
	if err != nil {
		return nil, err
	}
	l := &s3Lock{store: s, key: key, etag: etag}
	l.beat = startHeartbeat(s.ctx, s.lease.ttl, id, l.renew)
	return l, nil
}

func (s *S3Store) encodeLock() ([]byte, error) {
	host, _ := os.Hostname()
	now := s.lease.now().UTC()
	return yaml.Marshal(lockInfo{
		Holder:   host,
		PID:      os.Getpid(),
		Acquired: now,
		Expires:  now.Add(s.lease.ttl),
	})
}

func (s *S3Store) takeOver(ctx context.Context, key string, info []byte) (string, error) {
	data, etag, err := s.client.GetObjectWithETag(ctx, s.bucket, key)
	if errors.Is(err, s3.ErrNotFound) {
		// Released between our put and this read.
		return "", ErrLocked
	}
	if err != nil {
		return "", err
	}
	var held lockInfo
	if err := yaml.Unmarshal(data, &held); err != nil {
		return "", fmt.Errorf("failed to decode lock %s: %w", key, err)
	}
	if !held.expired(s.lease) {
		return "", ErrLocked
	}
	etag, err = s.client.PutObjectIfMatch(ctx, s.bucket, key, info, etag)
	if errors.Is(err, s3.ErrPreconditionFailed) || errors.Is(err, s3.ErrNotFound) {
		return "", ErrLocked
	}
	return etag, err
}

// ForceUnlock deletes the lock object for id whoever holds it.
func (s *S3Store) ForceUnlock(ctx context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	return s.client.DeleteObject(ctx, s.bucket, s.lockKey(id))
}

// Close stops lease renewals.
func (s *S3Store) Close() error {
	s.cancel()
	return nil
}

type s3Lock struct {
	store *S3Store
	key   string
	beat  *heartbeat

	mu   sync.Mutex
	etag string
}

func (l *s3Lock) renew(ctx context.Context) error {
	info, err := l.store.encodeLock()
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	etag, err := l.store.client.PutObjectIfMatch(ctx, l.store.bucket, l.key, info, l.etag)
	if errors.Is(err, s3.ErrPreconditionFailed) || errors.Is(err, s3.ErrNotFound) {
		return fmt.Errorf("%s: %w", l.key, ErrLeaseLost)
	}
	if err != nil {
		return err
	}
	l.etag = etag
	return nil
}

// Unlock deletes the lock object unless another holder took it over.
func (l *s3Lock) Unlock() error {
	l.beat.stop()
	// Unlock runs after the driver finished, possibly with a cancelled
	// context; the lock must still be released.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	l.mu.Lock()
	defer l.mu.Unlock()
	err := l.store.client.DeleteObjectIfMatch(ctx, l.store.bucket, l.key, l.etag)
	if errors.Is(err, s3.ErrPreconditionFailed) {
		return nil
	}
	return err
}
