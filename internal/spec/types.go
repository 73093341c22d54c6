package spec

// Kind is the workload kind of a spec.
type Kind string

// Supported kinds.
const (
	KindService Kind = "service"
	KindWorker  Kind = "worker"
)

// DefaultHealthPath is used when a health check names no path.
const DefaultHealthPath = "/health"

// Spec is a declarative deployment specification.
type Spec struct {
	ID         string            `json:"id"`
	Kind       Kind              `json:"kind"`
	ExposeHTTP *bool             `json:"expose_http,omitempty"`
	Domain     string            `json:"domain,omitempty"`
	Template   string            `json:"template"`
	Env        map[string]string `json:"env,omitempty"`
	Secrets    SecretsPolicy     `json:"secrets"`
	Resources  Resources         `json:"resources"`

	HealthCheck    *HealthCheck    `json:"healthcheck,omitempty"`
	Volumes        []Volume        `json:"volumes,omitempty"`
	DNS            []DNSRecord     `json:"dns,omitempty"`
	Backup         Backup          `json:"backup"`
	Postconditions []Postcondition `json:"postconditions,omitempty"`
	Rollback       RollbackPolicy  `json:"rollback"`

	raw map[string]interface{}
}

// SecretsPolicy lists secrets that must resolve and secrets that may be
// synthesized when absent.
type SecretsPolicy struct {
	Required []string `json:"required,omitempty"`
	Generate []string `json:"generate,omitempty"`
}

// Resources are container limits.
type Resources struct {
	CPU    string `json:"cpu,omitempty"`
	Memory string `json:"memory,omitempty"`
}

// HealthCheck configures the endpoint probed after deployment.
type HealthCheck struct {
	Path     string `json:"path,omitempty"`
	Interval string `json:"interval,omitempty"`
}

// Volume is a persistent mount.
type Volume struct {
	Name      string `json:"name"`
	MountPath string `json:"mount_path"`
}

// DNSRecord is an extra record created in the domain's zone.
type DNSRecord struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Backup is the backup policy handed to the platform.
type Backup struct {
	Enabled   bool   `json:"enabled,omitempty"`
	Schedule  string `json:"schedule,omitempty"`
	Retention int    `json:"retention,omitempty"`
}

// Postcondition is a named externally observable check.
type Postcondition struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	URL          string `json:"url,omitempty"`
	ExpectStatus int    `json:"expect_status,omitempty"`
	Host         string `json:"host,omitempty"`
	Port         int    `json:"port,omitempty"`
	ExpectIP     string `json:"expect_ip,omitempty"`
	Attempts     int    `json:"attempts,omitempty"`
}

// RollbackPolicy controls whether a failed verification undoes the run.
// Automatic defaults to true when unset.
type RollbackPolicy struct {
	Automatic *bool `json:"automatic,omitempty"`
}

// AutomaticRollback reports the effective rollback policy.
func (s *Spec) AutomaticRollback() bool {
	if s.Rollback.Automatic == nil {
		return true
	}
	return *s.Rollback.Automatic
}

// ExposesHTTP reports whether the workload serves HTTP and therefore needs a
// domain. Services expose HTTP unless expose_http is explicitly false.
func (s *Spec) ExposesHTTP() bool {
	if s.Kind != KindService {
		return false
	}
	return s.ExposeHTTP == nil || *s.ExposeHTTP
}

// HealthPath returns the configured health-check path or the default.
func (s *Spec) HealthPath() string {
	if s.HealthCheck == nil || s.HealthCheck.Path == "" {
		return DefaultHealthPath
	}
	return s.HealthCheck.Path
}
