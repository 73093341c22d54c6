package spec

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Load reads and decodes a spec file. It does not validate.
func Load(path string) (*Spec, error) {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read spec file: %w", err)
	}

	s, err := Parse(data)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return s, nil
}

// Parse decodes a spec from YAML bytes.
func Parse(data []byte) (*Spec, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}
	if raw == nil {
		return nil, errors.New("empty document")
	}

	var s Spec
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           &s,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(withoutMistypedSecrets(raw)); err != nil {
		return nil, fmt.Errorf("failed to decode spec: %w", err)
	}

	s.raw = raw
	return &s, nil
}

// withoutMistypedSecrets drops secrets lists that are not YAML sequences so
// decoding succeeds and Validate can report the field precisely. Weak typing
// would otherwise turn a scalar into a one-element list.
func withoutMistypedSecrets(raw map[string]interface{}) map[string]interface{} {
	value, present := raw["secrets"]
	if !present {
		return raw
	}

	out := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		out[k] = v
	}

	secrets, ok := value.(map[string]interface{})
	if !ok {
		// A bare list is shorthand for secrets.required.
		if list, isList := value.([]interface{}); isList {
			out["secrets"] = map[string]interface{}{"required": list}
		} else {
			delete(out, "secrets")
		}
		return out
	}

	cleaned := make(map[string]interface{}, len(secrets))
	for k, v := range secrets {
		if _, isList := v.([]interface{}); !isList && (k == "required" || k == "generate") {
			continue
		}
		cleaned[k] = v
	}
	out["secrets"] = cleaned
	return out
}
