package deployment

import (
	"time"

	"github.com/google/uuid"

	"github.com/imamik/launchpad/internal/spec"
)

// JobState is a state of the provisioning saga.
type JobState string

// Saga states in order. The STEP0_DOMAIN_* pair only occurs for jobs that
// purchase their domain.
const (
	JobInit                    JobState = "INIT"
	JobZoneCreated             JobState = "STEP0_CF_ZONE_CREATED"
	JobDomainRegisterRequested JobState = "STEP0_DOMAIN_REGISTER_REQUESTED"
	JobDomainRegistered        JobState = "STEP0_DOMAIN_REGISTERED"
	JobDNSRecordsUpserted      JobState = "STEP1_DNS_RECORDS_UPSERTED"
	JobZoneStatusSnapshot      JobState = "STEP1_CF_STATUS_SNAPSHOT"
	JobGateWaitZoneActive      JobState = "GATE_WAIT_CF_ACTIVE"
	JobAppCreateRequested      JobState = "STEP2_COOLIFY_CREATE_REQUESTED"
	JobAppCreated              JobState = "STEP2_COOLIFY_CREATED"
	JobDeployRequested         JobState = "STEP2_COOLIFY_DEPLOY_REQUESTED"
	JobDeployRunning           JobState = "STEP2_COOLIFY_DEPLOY_RUNNING"
	JobDeploySucceeded         JobState = "STEP2_COOLIFY_DEPLOY_SUCCEEDED"
	JobHTTPVerified            JobState = "STEP2_HTTP_VERIFIED"
	JobComplete                JobState = "COMPLETE"
	JobFailedRetryable         JobState = "FAILED_RETRYABLE"
	JobFailedTerminal          JobState = "FAILED_TERMINAL"
)

// Terminal reports whether the saga stops in s without operator action.
func (s JobState) Terminal() bool {
	return s == JobComplete || s == JobFailedTerminal
}

// Failed reports whether s is one of the failure states.
func (s JobState) Failed() bool {
	return s == JobFailedRetryable || s == JobFailedTerminal
}

// ProvisionJob is the persisted record of one saga run for a domain. It is
// written in full after every state transition.
type ProvisionJob struct {
	ID     string   `yaml:"id" json:"id"`
	Domain string   `yaml:"domain" json:"domain"`
	State  JobState `yaml:"state" json:"state"`
	// ResumeState is where a FAILED_RETRYABLE job re-enters the saga.
	ResumeState JobState `yaml:"resume_state,omitempty" json:"resume_state,omitempty"`

	// RegisterDomain is set when the domain must be purchased first.
	RegisterDomain    bool     `yaml:"register_domain" json:"register_domain"`
	RegistrationYears int      `yaml:"registration_years,omitempty" json:"registration_years,omitempty"`
	Contact           *Contact `yaml:"contact,omitempty" json:"-"`

	AppName         string           `yaml:"app_name" json:"app_name"`
	Records         []spec.DNSRecord `yaml:"records,omitempty" json:"records,omitempty"`
	CredentialNames []string         `yaml:"credential_names,omitempty" json:"credential_names,omitempty"`

	CreatedAt time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt time.Time `yaml:"updated_at" json:"updated_at"`

	Outputs StepOutputs     `yaml:"outputs" json:"outputs"`
	Failure *JobFailure     `yaml:"failure,omitempty" json:"failure,omitempty"`
	History []JobTransition `yaml:"history,omitempty" json:"history,omitempty"`
}

// StepOutputs holds everything a completed step produced. A step whose
// output is present is not repeated on resume.
type StepOutputs struct {
	ZoneID      string   `yaml:"zone_id,omitempty" json:"zone_id,omitempty"`
	Nameservers []string `yaml:"nameservers,omitempty" json:"nameservers,omitempty"`

	RegistrarDomainID string `yaml:"registrar_domain_id,omitempty" json:"registrar_domain_id,omitempty"`
	RegistrarOrderID  string `yaml:"registrar_order_id,omitempty" json:"registrar_order_id,omitempty"`

	// DNSRecordIDs maps "<type> <name>" to the provider record id.
	DNSRecordIDs map[string]string `yaml:"dns_record_ids,omitempty" json:"dns_record_ids,omitempty"`
	ZoneStatus   string            `yaml:"zone_status,omitempty" json:"zone_status,omitempty"`

	GeneratedCredentials map[string]string `yaml:"generated_credentials,omitempty" json:"-"`

	ApplicationID string `yaml:"application_id,omitempty" json:"application_id,omitempty"`
	DeploymentID  string `yaml:"deployment_id,omitempty" json:"deployment_id,omitempty"`
	DeployStatus  string `yaml:"deploy_status,omitempty" json:"deploy_status,omitempty"`

	DeployRetries     int  `yaml:"deploy_retries" json:"deploy_retries"`
	DegradedPolls     int  `yaml:"degraded_polls" json:"degraded_polls"`
	FallbackAttempted bool `yaml:"fallback_attempted" json:"fallback_attempted"`

	HTTPWarning string `yaml:"http_warning,omitempty" json:"http_warning,omitempty"`
}

// JobFailure describes why a job stopped.
type JobFailure struct {
	State     JobState  `yaml:"state" json:"state"`
	Message   string    `yaml:"message" json:"message"`
	Retryable bool      `yaml:"retryable" json:"retryable"`
	At        time.Time `yaml:"at" json:"at"`
}

// JobTransition is one recorded saga state change.
type JobTransition struct {
	From JobState  `yaml:"from" json:"from"`
	To   JobState  `yaml:"to" json:"to"`
	At   time.Time `yaml:"at" json:"at"`
}

// NewProvisionJob creates a job in INIT for domain.
func NewProvisionJob(domain, appName string, registerDomain bool, now time.Time) *ProvisionJob {
	return &ProvisionJob{
		ID:             uuid.NewString(),
		Domain:         domain,
		State:          JobInit,
		RegisterDomain: registerDomain,
		AppName:        appName,
		CreatedAt:      now.UTC(),
		UpdatedAt:      now.UTC(),
	}
}
