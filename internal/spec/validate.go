package spec

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	idPattern     = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
	memoryPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?([kKmMgGtT]i?[bB]?)?$`)
)

const maxIDLength = 63

// ValidDNSTypes are the record types accepted in the dns list.
var ValidDNSTypes = map[string]bool{
	"A":     true,
	"AAAA":  true,
	"CNAME": true,
	"TXT":   true,
	"MX":    true,
}

// Validator checks specs. TemplateDirs are searched for the referenced
// template; when empty the template check is skipped.
type Validator struct {
	TemplateDirs []string
}

// Validate checks s with a Validator that has no template directories.
func Validate(s *Spec) ([]Warning, error) {
	return (&Validator{}).Validate(s)
}

// Validate checks s and returns non-fatal warnings. It may apply defaults
// (the health-check path) to s. The first failed check is returned as a
// *ValidationError.
func (v *Validator) Validate(s *Spec) ([]Warning, error) {
	if s == nil {
		return nil, &ValidationError{Message: "spec is empty"}
	}

	// Domain first: an HTTP service without a domain must fail before
	// anything else is looked at.
	if s.ExposesHTTP() && strings.TrimSpace(s.Domain) == "" {
		return nil, &ValidationError{Field: "domain", Message: "required for a service that exposes HTTP"}
	}

	if err := requireFields(s); err != nil {
		return nil, err
	}

	if len(s.ID) > maxIDLength || !idPattern.MatchString(s.ID) {
		return nil, &ValidationError{
			Field:   "id",
			Message: fmt.Sprintf("%q must be lowercase alphanumerics separated by single hyphens (max %d chars)", s.ID, maxIDLength),
		}
	}

	if s.Kind != KindService && s.Kind != KindWorker {
		return nil, &ValidationError{Field: "kind", Message: fmt.Sprintf("%q must be one of service, worker", s.Kind)}
	}

	var warnings []Warning
	if w := v.checkTemplate(s.Template); w != nil {
		warnings = append(warnings, *w)
	}

	if err := checkSecretsTypes(s.raw); err != nil {
		return nil, err
	}

	if s.HealthCheck != nil {
		if s.HealthCheck.Path == "" {
			s.HealthCheck.Path = DefaultHealthPath
			warnings = append(warnings, Warning{
				Field:   "healthcheck.path",
				Message: fmt.Sprintf("not set, defaulting to %s", DefaultHealthPath),
			})
		}
		if s.HealthCheck.Interval != "" {
			if _, err := time.ParseDuration(s.HealthCheck.Interval); err != nil {
				return nil, &ValidationError{Field: "healthcheck.interval", Message: err.Error()}
			}
		}
	}

	if err := validateResources(s.Resources); err != nil {
		return nil, err
	}
	if err := validateVolumes(s.Volumes); err != nil {
		return nil, err
	}
	if err := validateDNS(s.DNS); err != nil {
		return nil, err
	}

	return warnings, nil
}

func requireFields(s *Spec) error {
	switch {
	case s.ID == "":
		return &ValidationError{Field: "id", Message: "is required"}
	case s.Kind == "":
		return &ValidationError{Field: "kind", Message: "is required"}
	case s.Template == "":
		return &ValidationError{Field: "template", Message: "is required"}
	}
	return nil
}

// checkTemplate returns a warning when the template cannot be found locally.
// Deployment may still proceed against a template resolved elsewhere.
func (v *Validator) checkTemplate(name string) *Warning {
	if len(v.TemplateDirs) == 0 {
		return nil
	}
	for _, dir := range v.TemplateDirs {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return nil
		}
	}
	return &Warning{
		Field:   "template",
		Message: fmt.Sprintf("template %q not found in %s", name, strings.Join(v.TemplateDirs, ", ")),
	}
}

// checkSecretsTypes inspects the raw document, since decoding has already
// dropped mistyped values.
func checkSecretsTypes(raw map[string]interface{}) error {
	value, ok := raw["secrets"]
	if !ok || value == nil {
		return nil
	}

	switch secrets := value.(type) {
	case []interface{}:
		return checkStringList("secrets", secrets)
	case map[string]interface{}:
		for _, key := range []string{"required", "generate"} {
			item, present := secrets[key]
			if !present || item == nil {
				continue
			}
			list, isList := item.([]interface{})
			if !isList {
				return &ValidationError{Field: "secrets." + key, Message: fmt.Sprintf("must be a list, got %T", item)}
			}
			if err := checkStringList("secrets."+key, list); err != nil {
				return err
			}
		}
		return nil
	default:
		return &ValidationError{Field: "secrets", Message: fmt.Sprintf("must be a mapping or a list, got %T", value)}
	}
}

func checkStringList(field string, list []interface{}) error {
	for i, item := range list {
		name, ok := item.(string)
		if !ok || name == "" {
			return &ValidationError{Field: fmt.Sprintf("%s[%d]", field, i), Message: "must be a non-empty string"}
		}
	}
	return nil
}

func validateResources(r Resources) error {
	if r.CPU != "" {
		cpu, err := strconv.ParseFloat(r.CPU, 64)
		if err != nil || cpu <= 0 {
			return &ValidationError{Field: "resources.cpu", Message: fmt.Sprintf("%q must be a positive number", r.CPU)}
		}
	}
	if r.Memory != "" && !memoryPattern.MatchString(r.Memory) {
		return &ValidationError{Field: "resources.memory", Message: fmt.Sprintf("%q is not a size such as 512M or 1Gi", r.Memory)}
	}
	return nil
}

func validateVolumes(volumes []Volume) error {
	seen := make(map[string]bool, len(volumes))
	for i, vol := range volumes {
		if vol.Name == "" {
			return &ValidationError{Field: fmt.Sprintf("volumes[%d].name", i), Message: "is required"}
		}
		if !strings.HasPrefix(vol.MountPath, "/") {
			return &ValidationError{Field: fmt.Sprintf("volumes[%d].mount_path", i), Message: "must be an absolute path"}
		}
		if seen[vol.Name] {
			return &ValidationError{Field: fmt.Sprintf("volumes[%d].name", i), Message: fmt.Sprintf("duplicate volume %q", vol.Name)}
		}
		seen[vol.Name] = true
	}
	return nil
}

func validateDNS(records []DNSRecord) error {
	for i, r := range records {
		if !ValidDNSTypes[strings.ToUpper(r.Type)] {
			return &ValidationError{Field: fmt.Sprintf("dns[%d].type", i), Message: fmt.Sprintf("unsupported record type %q", r.Type)}
		}
		if r.Name == "" || r.Content == "" {
			return &ValidationError{Field: fmt.Sprintf("dns[%d]", i), Message: "name and content are required"}
		}
	}
	return nil
}
