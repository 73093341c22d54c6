package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every launchpad environment variable.
const EnvPrefix = "LAUNCHPAD"

// Job-store backends.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreS3     = "s3"
)

// DefaultStateDir is used when no state directory is configured.
const DefaultStateDir = ".launchpad"

// ErrMissingCredentials is returned when a control plane is used without
// its credentials.
var ErrMissingCredentials = errors.New("missing credentials")

// Settings is the runtime configuration of one process.
type Settings struct {
	CloudflareToken     string `mapstructure:"cloudflare_api_token"`
	CloudflareAccountID string `mapstructure:"cloudflare_account_id"`

	CoolifyURL         string `mapstructure:"coolify_url"`
	CoolifyToken       string `mapstructure:"coolify_token"`
	CoolifyServerUUID  string `mapstructure:"coolify_server_uuid"`
	CoolifyProjectUUID string `mapstructure:"coolify_project_uuid"`

	StateDir     string   `mapstructure:"state_dir"`
	Store        string   `mapstructure:"store"`
	TemplateDirs []string `mapstructure:"template_dirs"`

	S3Bucket    string `mapstructure:"s3_bucket"`
	S3Prefix    string `mapstructure:"s3_prefix"`
	S3Endpoint  string `mapstructure:"s3_endpoint"`
	S3Region    string `mapstructure:"s3_region"`
	S3AccessKey string `mapstructure:"s3_access_key"`
	S3SecretKey string `mapstructure:"s3_secret_key"`

	LogFormat   string `mapstructure:"log_format"`
	MetricsFile string `mapstructure:"metrics_file"`
}

// providerEnv maps settings keys to the unprefixed variables providers
// document. The LAUNCHPAD_ form is accepted as well.
var providerEnv = map[string]string{
	"cloudflare_api_token":  "CLOUDFLARE_API_TOKEN",
	"cloudflare_account_id": "CLOUDFLARE_ACCOUNT_ID",
	"coolify_url":           "COOLIFY_URL",
	"coolify_token":         "COOLIFY_TOKEN",
	"coolify_server_uuid":   "COOLIFY_SERVER_UUID",
	"coolify_project_uuid":  "COOLIFY_PROJECT_UUID",
	"s3_access_key":         "AWS_ACCESS_KEY_ID",
	"s3_secret_key":         "AWS_SECRET_ACCESS_KEY",
	"s3_region":             "AWS_REGION",
}

// NewViper returns a viper instance with launchpad's env binding and
// defaults. Commands bind their flags onto it.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for key, env := range providerEnv {
		_ = v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(key), env)
	}
	for _, key := range []string{"s3_bucket", "s3_prefix", "s3_endpoint", "template_dirs", "metrics_file"} {
		_ = v.BindEnv(key)
	}

	v.SetDefault("state_dir", DefaultStateDir)
	v.SetDefault("store", StoreFile)
	v.SetDefault("log_format", "text")
	v.SetDefault("s3_prefix", "launchpad/")
	v.SetDefault("s3_region", "us-east-1")
	return v
}

// Load decodes settings from v and checks the store selection.
func Load(v *viper.Viper) (*Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks values that are required regardless of the command.
func (s *Settings) Validate() error {
	switch s.Store {
	case StoreFile, StoreSQLite:
	case StoreS3:
		if s.S3Bucket == "" {
			return fmt.Errorf("store %q requires s3_bucket", s.Store)
		}
	default:
		return fmt.Errorf("unknown store %q (want %s, %s or %s)", s.Store, StoreFile, StoreSQLite, StoreS3)
	}
	switch s.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q (want text or json)", s.LogFormat)
	}
	return nil
}

// RequireCloudflare reports missing Cloudflare credentials.
func (s *Settings) RequireCloudflare() error {
	if s.CloudflareToken == "" {
		return fmt.Errorf("%w: CLOUDFLARE_API_TOKEN is not set", ErrMissingCredentials)
	}
	return nil
}

// RequireCoolify reports missing Coolify credentials.
func (s *Settings) RequireCoolify() error {
	var missing []string
	if s.CoolifyURL == "" {
		missing = append(missing, "COOLIFY_URL")
	}
	if s.CoolifyToken == "" {
		missing = append(missing, "COOLIFY_TOKEN")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s not set", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return nil
}

// JobsDir is the directory holding provisioning job snapshots.
func (s *Settings) JobsDir() string {
	return filepath.Join(s.StateDir, "provision_jobs")
}

// DatabasePath is the SQLite job database.
func (s *Settings) DatabasePath() string {
	return filepath.Join(s.StateDir, "launchpad.db")
}
