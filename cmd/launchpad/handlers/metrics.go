package handlers

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/imamik/launchpad/internal/metrics"
)

// WriteMetrics writes the metrics registry to path in the node-exporter
// textfile format. An empty path is a no-op.
func WriteMetrics(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := metrics.WriteTextfile(path); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
