package spec

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"sigs.k8s.io/yaml"
)

// Fingerprint returns a SHA-256 hash of the spec's canonical JSON form.
// Map keys are serialized in sorted order, so two specs with the same
// content produce the same fingerprint regardless of how their source
// documents were ordered.
func Fingerprint(s *Spec) string {
	data, err := json.Marshal(s)
	if err != nil {
		// Spec contains only strings, ints, bools, maps and slices.
		panic(fmt.Sprintf("spec fingerprint: %v", err))
	}
	sum, err := canonicalSum(data)
	if err != nil {
		panic(fmt.Sprintf("spec fingerprint: %v", err))
	}
	return sum
}

// FingerprintYAML hashes a raw YAML document without decoding it into a
// Spec. Unknown keys therefore contribute to the result.
func FingerprintYAML(doc []byte) (string, error) {
	data, err := yaml.YAMLToJSON(doc)
	if err != nil {
		return "", fmt.Errorf("convert yaml: %w", err)
	}
	return canonicalSum(data)
}

func canonicalSum(jsonDoc []byte) (string, error) {
	var generic interface{}
	if err := json.Unmarshal(jsonDoc, &generic); err != nil {
		return "", err
	}
	canonical, err := json.Marshal(generic)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
