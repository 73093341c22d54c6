// Package secrets resolves named secrets for a deployment run.
//
// Resolution order, first match wins: the process environment, the
// project's .env file, then (when allowed) a freshly generated random value.
// Generated values are cached for the lifetime of the Resolver so a run
// sees one value per name; they are only written back to the .env file when
// PersistGenerated is called.
package secrets

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/subosito/gotenv"

	"github.com/imamik/launchpad/internal/spec"
)

// GeneratedLength is the length of synthesized secrets.
const GeneratedLength = 32

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Source says where a resolved value came from.
type Source string

// Sources in resolution order.
const (
	SourceEnv       Source = "env"
	SourceDotenv    Source = "dotenv"
	SourceGenerated Source = "generated"
)

// Resolver resolves secrets for one project directory.
type Resolver struct {
	dotenvPath string
	lookupEnv  func(string) (string, bool)
	generate   func() (string, error)

	loadOnce  sync.Once
	dotenv    map[string]string
	loadErr   error
	mu        sync.Mutex
	generated map[string]string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLookupEnv replaces os.LookupEnv.
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(r *Resolver) { r.lookupEnv = fn }
}

// WithGenerator replaces the random generator.
func WithGenerator(fn func() (string, error)) Option {
	return func(r *Resolver) { r.generate = fn }
}

// NewResolver creates a resolver reading <projectDir>/.env.
func NewResolver(projectDir string, opts ...Option) *Resolver {
	r := &Resolver{
		dotenvPath: filepath.Join(projectDir, ".env"),
		lookupEnv:  os.LookupEnv,
		generate:   Generate,
		generated:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get resolves name. It reports false when the secret is absent and either
// generation is disabled or fails.
func (r *Resolver) Get(name string, generateIfMissing bool) (string, bool) {
	v, _, ok := r.lookup(name, generateIfMissing)
	return v, ok
}

// Lookup is Get that also reports the source of the value.
func (r *Resolver) Lookup(name string, generateIfMissing bool) (string, Source, bool) {
	return r.lookup(name, generateIfMissing)
}

func (r *Resolver) lookup(name string, generateIfMissing bool) (string, Source, bool) {
	if v, ok := r.lookupEnv(name); ok && v != "" {
		return v, SourceEnv, true
	}
	if v, ok := r.fromDotenv(name); ok {
		return v, SourceDotenv, true
	}
	if !generateIfMissing {
		return "", "", false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.generated[name]; ok {
		return v, SourceGenerated, true
	}
	v, err := r.generate()
	if err != nil {
		return "", "", false
	}
	r.generated[name] = v
	return v, SourceGenerated, true
}

// LoadAll resolves every name, generating missing ones.
func (r *Resolver) LoadAll(names []string) map[string]string {
	out := make(map[string]string, len(names))
	for _, name := range names {
		if v, ok := r.Get(name, true); ok {
			out[name] = v
		}
	}
	return out
}

// GetMissing returns the names present in neither the environment nor the
// .env file. It never generates.
func (r *Resolver) GetMissing(names []string) []string {
	var missing []string
	for _, name := range names {
		if _, ok := r.Get(name, false); !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// Resolve applies a spec's secrets policy: required names must resolve
// without generation, generate names may be synthesized.
func (r *Resolver) Resolve(policy spec.SecretsPolicy) (map[string]string, error) {
	if missing := r.GetMissing(policy.Required); len(missing) > 0 {
		return nil, &spec.ValidationError{
			Field:   "secrets.required",
			Message: fmt.Sprintf("missing required secrets: %s", strings.Join(missing, ", ")),
		}
	}

	out := make(map[string]string, len(policy.Required)+len(policy.Generate))
	for _, name := range policy.Required {
		v, _ := r.Get(name, false)
		out[name] = v
	}
	for _, name := range policy.Generate {
		v, ok := r.Get(name, true)
		if !ok {
			return nil, fmt.Errorf("failed to generate secret %s", name)
		}
		out[name] = v
	}
	return out, nil
}

// Generated returns the names generated so far, sorted.
func (r *Resolver) Generated() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.generated))
	for name := range r.generated {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PersistGenerated appends generated values to the .env file so later runs
// resolve the same value. Names already present in the file are skipped.
func (r *Resolver) PersistGenerated() error {
	names := r.Generated()
	if len(names) == 0 {
		return nil
	}

	// #nosec G304
	f, err := os.OpenFile(r.dotenvPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open %s: %w", r.dotenvPath, err)
	}
	defer func() { _ = f.Close() }()

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range names {
		if _, exists := r.dotenv[name]; exists {
			continue
		}
		if _, err := fmt.Fprintf(f, "%s=%s\n", name, r.generated[name]); err != nil {
			return fmt.Errorf("write %s: %w", r.dotenvPath, err)
		}
		if r.dotenv != nil {
			r.dotenv[name] = r.generated[name]
		}
	}
	return nil
}

// Err returns the error from loading the .env file, if any. A missing file
// is not an error.
func (r *Resolver) Err() error {
	r.load()
	return r.loadErr
}

func (r *Resolver) fromDotenv(name string) (string, bool) {
	r.load()
	v, ok := r.dotenv[name]
	return v, ok && v != ""
}

func (r *Resolver) load() {
	r.loadOnce.Do(func() {
		env, err := gotenv.Read(r.dotenvPath)
		if err != nil {
			r.dotenv = map[string]string{}
			if !errors.Is(err, fs.ErrNotExist) {
				r.loadErr = fmt.Errorf("read %s: %w", r.dotenvPath, err)
			}
			return
		}
		r.dotenv = env
	})
}

// Generate returns a cryptographically random alphanumeric string of
// GeneratedLength characters.
func Generate() (string, error) {
	var b strings.Builder
	b.Grow(GeneratedLength)
	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < GeneratedLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate secret: %w", err)
		}
		b.WriteByte(alphabet[n.Int64()])
	}
	return b.String(), nil
}
