package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts holds poll intervals and retry budgets.
// These values can be customized via environment variables.
type Timeouts struct {
	ZoneActivePoll    time.Duration // Interval between zone activation polls
	ZoneActiveMax     time.Duration // Total wait for zone activation per invocation
	DeployPoll        time.Duration // Interval between deployment status polls
	DeployPollMax     time.Duration // Total wait for one deployment attempt
	DeployRetries     int           // Deploy re-triggers before the fallback
	DegradedThreshold int           // Consecutive failed/degraded polls before re-triggering
	VerifyAttempts    int           // Health probes after deploy
	VerifyDelay       time.Duration // Delay between health probes
	RegisterPoll      time.Duration // Interval between registrar order polls
	RegisterMax       time.Duration // Total wait for a pending registration
	LockTTL           time.Duration // Lease of a job lock between heartbeats
}

// LoadTimeouts loads timeout configuration from environment variables.
// If an environment variable is not set or invalid, a default value is used.
//
// Environment Variables:
//   - LAUNCHPAD_TIMEOUT_ZONE_POLL (default: 30s)
//   - LAUNCHPAD_TIMEOUT_ZONE_ACTIVE (default: 1h)
//   - LAUNCHPAD_TIMEOUT_DEPLOY_POLL (default: 10s)
//   - LAUNCHPAD_TIMEOUT_DEPLOY (default: 15m)
//   - LAUNCHPAD_DEPLOY_RETRIES (default: 3)
//   - LAUNCHPAD_DEGRADED_THRESHOLD (default: 3)
//   - LAUNCHPAD_VERIFY_ATTEMPTS (default: 6)
//   - LAUNCHPAD_VERIFY_DELAY (default: 5s)
//   - LAUNCHPAD_TIMEOUT_REGISTER_POLL (default: 30s)
//   - LAUNCHPAD_TIMEOUT_REGISTER (default: 10m)
//   - LAUNCHPAD_LOCK_TTL (default: 2m)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		ZoneActivePoll:    parseDuration("LAUNCHPAD_TIMEOUT_ZONE_POLL", 30*time.Second),
		ZoneActiveMax:     parseDuration("LAUNCHPAD_TIMEOUT_ZONE_ACTIVE", time.Hour),
		DeployPoll:        parseDuration("LAUNCHPAD_TIMEOUT_DEPLOY_POLL", 10*time.Second),
		DeployPollMax:     parseDuration("LAUNCHPAD_TIMEOUT_DEPLOY", 15*time.Minute),
		DeployRetries:     parseInt("LAUNCHPAD_DEPLOY_RETRIES", 3),
		DegradedThreshold: parseInt("LAUNCHPAD_DEGRADED_THRESHOLD", 3),
		VerifyAttempts:    parseInt("LAUNCHPAD_VERIFY_ATTEMPTS", 6),
		VerifyDelay:       parseDuration("LAUNCHPAD_VERIFY_DELAY", 5*time.Second),
		RegisterPoll:      parseDuration("LAUNCHPAD_TIMEOUT_REGISTER_POLL", 30*time.Second),
		RegisterMax:       parseDuration("LAUNCHPAD_TIMEOUT_REGISTER", 10*time.Minute),
		LockTTL:           parseDuration("LAUNCHPAD_LOCK_TTL", 2*time.Minute),
	}
}

// parseDuration parses a duration from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil || d < 0 {
		return defaultVal
	}

	return d
}

// parseInt parses an integer from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	i, err := strconv.Atoi(val)
	if err != nil || i < 0 {
		return defaultVal
	}

	return i
}
