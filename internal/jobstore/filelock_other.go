//go:build !unix

package jobstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

type fileLock struct {
	path string
}

// lockFile falls back to an exclusive-create marker where flock is not
// available. A crashed process leaves the marker behind.
func lockFile(path string) (Unlocker, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("failed to create lock file: %w", err)
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	f.Close()
	return &fileLock{path: path}, nil
}

func (l *fileLock) Unlock() error {
	return os.Remove(l.path)
}
