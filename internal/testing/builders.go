package testing

import "github.com/imamik/launchpad/internal/spec"

// SpecBuilder builds deployment specs for tests.
type SpecBuilder struct {
	s spec.Spec
}

// NewSpecBuilder starts from the canonical service spec: my-api on
// api.example.com from the python-api template requiring API_KEY.
func NewSpecBuilder() *SpecBuilder {
	return &SpecBuilder{s: spec.Spec{
		ID:       "my-api",
		Kind:     spec.KindService,
		Domain:   "api.example.com",
		Template: "python-api",
		Secrets:  spec.SecretsPolicy{Required: []string{"API_KEY"}},
	}}
}

// WithID sets the spec id.
func (b *SpecBuilder) WithID(id string) *SpecBuilder {
	b.s.ID = id
	return b
}

// WithDomain sets the domain.
func (b *SpecBuilder) WithDomain(domain string) *SpecBuilder {
	b.s.Domain = domain
	return b
}

// WithKind sets the kind.
func (b *SpecBuilder) WithKind(kind spec.Kind) *SpecBuilder {
	b.s.Kind = kind
	return b
}

// WithEnv sets one environment variable.
func (b *SpecBuilder) WithEnv(key, value string) *SpecBuilder {
	if b.s.Env == nil {
		b.s.Env = map[string]string{}
	}
	b.s.Env[key] = value
	return b
}

// WithSecrets replaces the secrets policy.
func (b *SpecBuilder) WithSecrets(required, generate []string) *SpecBuilder {
	b.s.Secrets = spec.SecretsPolicy{Required: required, Generate: generate}
	return b
}

// WithDNS adds a DNS record.
func (b *SpecBuilder) WithDNS(recordType, name, content string) *SpecBuilder {
	b.s.DNS = append(b.s.DNS, spec.DNSRecord{Type: recordType, Name: name, Content: content})
	return b
}

// WithHealthPath sets the health-check path.
func (b *SpecBuilder) WithHealthPath(path string) *SpecBuilder {
	b.s.HealthCheck = &spec.HealthCheck{Path: path}
	return b
}

// WithAutomaticRollback sets the rollback policy.
func (b *SpecBuilder) WithAutomaticRollback(enabled bool) *SpecBuilder {
	b.s.Rollback.Automatic = &enabled
	return b
}

// WithPostcondition adds a postcondition.
func (b *SpecBuilder) WithPostcondition(p spec.Postcondition) *SpecBuilder {
	b.s.Postconditions = append(b.s.Postconditions, p)
	return b
}

// Build returns a copy of the spec.
func (b *SpecBuilder) Build() *spec.Spec {
	s := b.s
	return &s
}
