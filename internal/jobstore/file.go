package jobstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/imamik/launchpad/internal/deployment"
)

// FileStore keeps one YAML file per job in a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed and returns a store over it.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create job directory %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the store directory.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+".yaml")
}

// Get implements Store.
func (s *FileStore) Get(_ context.Context, id string) (*deployment.ProvisionJob, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read job %s: %w", id, err)
	}
	return decode(data)
}

// Put writes the snapshot to a temporary file and renames it over the
// previous one, so a crash leaves either the old or the new snapshot.
func (s *FileStore) Put(_ context.Context, job *deployment.ProvisionJob) error {
	if err := checkID(job.ID); err != nil {
		return err
	}
	data, err := encode(job)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, job.ID+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write job %s: %w", job.ID, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync job %s: %w", job.ID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close job %s: %w", job.ID, err)
	}
	if err := os.Rename(tmpName, s.path(job.ID)); err != nil {
		return fmt.Errorf("failed to replace job %s: %w", job.ID, err)
	}
	return nil
}

// List implements Store.
func (s *FileStore) List(ctx context.Context) ([]*deployment.ProvisionJob, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	var jobs []*deployment.ProvisionJob
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".yaml") {
			continue
		}
		job, err := s.Get(ctx, strings.TrimSuffix(name, ".yaml"))
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	sortJobs(jobs)
	return jobs, nil
}

// Lock takes an exclusive advisory lock on <id>.lock.
func (s *FileStore) Lock(_ context.Context, id string) (Unlocker, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	return lockFile(filepath.Join(s.dir, id+".lock"))
}

// ForceUnlock removes <id>.lock. A holder that is still running keeps its
// lock on the unlinked file, so the next Lock succeeds beside it.
func (s *FileStore) ForceUnlock(_ context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.dir, id+".lock")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove lock file for %s: %w", id, err)
	}
	return nil
}

// Close implements Store.
func (s *FileStore) Close() error { return nil }
