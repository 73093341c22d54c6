package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	s, err := Load(NewViper())
	require.NoError(t, err)

	assert.Equal(t, DefaultStateDir, s.StateDir)
	assert.Equal(t, StoreFile, s.Store)
	assert.Equal(t, ".launchpad/provision_jobs", s.JobsDir())
	assert.Equal(t, ".launchpad/launchpad.db", s.DatabasePath())
}

func TestLoad_ProviderEnvNames(t *testing.T) {
	t.Setenv("CLOUDFLARE_API_TOKEN", "cf-token")
	t.Setenv("COOLIFY_URL", "https://coolify.example.com")
	t.Setenv("LAUNCHPAD_COOLIFY_TOKEN", "prefixed")
	t.Setenv("LAUNCHPAD_STATE_DIR", "/var/lib/launchpad")

	s, err := Load(NewViper())
	require.NoError(t, err)

	assert.Equal(t, "cf-token", s.CloudflareToken)
	assert.Equal(t, "https://coolify.example.com", s.CoolifyURL)
	assert.Equal(t, "prefixed", s.CoolifyToken)
	assert.Equal(t, "/var/lib/launchpad", s.StateDir)
	assert.NoError(t, s.RequireCloudflare())
	assert.NoError(t, s.RequireCoolify())
}

func TestLoad_FlagOverride(t *testing.T) {
	v := NewViper()
	v.Set("store", StoreSQLite)

	s, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, StoreSQLite, s.Store)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		s       Settings
		wantErr string
	}{
		{"file", Settings{Store: StoreFile}, ""},
		{"s3 without bucket", Settings{Store: StoreS3}, "requires s3_bucket"},
		{"s3 with bucket", Settings{Store: StoreS3, S3Bucket: "jobs"}, ""},
		{"unknown store", Settings{Store: "etcd"}, "unknown store"},
		{"bad log format", Settings{Store: StoreFile, LogFormat: "xml"}, "unknown log format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.s.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestRequireCoolify_ListsMissing(t *testing.T) {
	s := &Settings{}
	err := s.RequireCoolify()
	assert.ErrorIs(t, err, ErrMissingCredentials)
	assert.ErrorContains(t, err, "COOLIFY_URL, COOLIFY_TOKEN")
	assert.ErrorIs(t, s.RequireCloudflare(), ErrMissingCredentials)
}
