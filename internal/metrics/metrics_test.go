package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRun(t *testing.T) {
	runsTotal.Reset()
	runDuration.Reset()

	RecordRun("COMPLETE", 12)
	RecordRun("COMPLETE", 3)
	RecordRun("FAILED", 1)

	assert.Equal(t, float64(2), testutil.ToFloat64(runsTotal.WithLabelValues("COMPLETE")))
	assert.Equal(t, float64(1), testutil.ToFloat64(runsTotal.WithLabelValues("FAILED")))
}

func TestRecordTransition_CountsIllegal(t *testing.T) {
	transitionsTotal.Reset()
	illegalTransitionsTotal.Reset()

	RecordTransition("orchestrator", "DEPLOYING", true)
	RecordTransition("orchestrator", "COMPLETE", false)

	assert.Equal(t, float64(1), testutil.ToFloat64(transitionsTotal.WithLabelValues("orchestrator", "DEPLOYING")))
	assert.Equal(t, float64(1), testutil.ToFloat64(illegalTransitionsTotal.WithLabelValues("orchestrator")))
}

func TestRecordRollbackAndCheck(t *testing.T) {
	rollbackActionsTotal.Reset()
	checksTotal.Reset()

	RecordRollback("dns_record", "skipped")
	RecordCheck("http_get", "PASS")

	assert.Equal(t, float64(1), testutil.ToFloat64(rollbackActionsTotal.WithLabelValues("dns_record", "skipped")))
	assert.Equal(t, float64(1), testutil.ToFloat64(checksTotal.WithLabelValues("http_get", "PASS")))
}

func TestRecordAPICall(t *testing.T) {
	apiCallsTotal.Reset()
	apiLatency.Reset()

	RecordAPICall("coolify", "create", nil, 0.2)
	RecordAPICall("coolify", "create", errors.New("500"), 0.1)

	assert.Equal(t, float64(1), testutil.ToFloat64(apiCallsTotal.WithLabelValues("coolify", "create", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(apiCallsTotal.WithLabelValues("coolify", "create", "error")))
}

func TestWriteTextfile(t *testing.T) {
	RecordRun("COMPLETE", 1)
	path := filepath.Join(t.TempDir(), "launchpad.prom")

	require.NoError(t, WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "launchpad_orchestrator_runs_total")
}
