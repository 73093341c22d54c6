package handlers

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/imamik/launchpad/internal/secrets"
	"github.com/imamik/launchpad/internal/spec"
)

// SecretsOptions are the flags of the secrets command.
type SecretsOptions struct {
	SpecPath string
	JSON     bool
	Reveal   bool
	Persist  bool
}

// secretEntry represents a single secret for display.
type secretEntry struct {
	Category string `json:"category"`
	Name     string `json:"name"`
	Source   string `json:"source,omitempty"`
	Value    string `json:"value,omitempty"`
	Missing  bool   `json:"missing,omitempty"`
}

// Secrets resolves the spec's secrets and shows where each one came from.
// Required secrets are never generated.
func Secrets(_ context.Context, opts SecretsOptions) error {
	s, err := spec.Load(opts.SpecPath)
	if err != nil {
		return err
	}
	resolver := newResolver(filepath.Dir(opts.SpecPath))
	if err := resolver.Err(); err != nil {
		return err
	}

	entries := collectSecrets(resolver, s.Secrets, opts.Reveal)

	if opts.Persist {
		if err := resolver.PersistGenerated(); err != nil {
			return fmt.Errorf("failed to persist generated secrets: %w", err)
		}
	}

	if opts.JSON {
		return printJSON(entries)
	}
	printSecretsStyled(s.ID, entries, opts.Persist)
	return nil
}

func collectSecrets(resolver *secrets.Resolver, policy spec.SecretsPolicy, reveal bool) []secretEntry {
	entries := make([]secretEntry, 0, len(policy.Required)+len(policy.Generate))
	add := func(category string, names []string, generate bool) {
		for _, name := range names {
			v, source, ok := resolver.Lookup(name, generate)
			e := secretEntry{Category: category, Name: name}
			if !ok {
				e.Missing = true
			} else {
				e.Source = string(source)
				e.Value = mask(v, reveal)
			}
			entries = append(entries, e)
		}
	}
	add("Required", policy.Required, false)
	add("Generated", policy.Generate, true)
	return entries
}

func mask(v string, reveal bool) string {
	if reveal {
		return v
	}
	if len(v) <= 4 {
		return strings.Repeat("*", len(v))
	}
	return v[:2] + strings.Repeat("*", len(v)-4) + v[len(v)-2:]
}

func printSecretsStyled(id string, entries []secretEntry, persisted bool) {
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, titleStyle.Render(fmt.Sprintf("  launchpad secrets: %s", id)))

	if len(entries) == 0 {
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, dimStyle.Render("  The spec declares no secrets."))
		fmt.Fprintln(stdout)
		return
	}

	currentCategory := ""
	for _, e := range entries {
		if e.Category != currentCategory {
			printSection(e.Category)
			currentCategory = e.Category
		}
		if e.Missing {
			fmt.Fprintf(stdout, "    %s %s %s\n", failedStyle.Render(crossMark), nameStyle.Render(fmt.Sprintf("%-24s", e.Name)), failedStyle.Render("missing"))
			continue
		}
		fmt.Fprintf(stdout, "    %s %s %s %s\n", okStyle.Render(checkMark), nameStyle.Render(fmt.Sprintf("%-24s", e.Name)),
			valueStyle.Render(e.Value), dimStyle.Render("("+e.Source+")"))
	}

	fmt.Fprintln(stdout)
	if !persisted {
		for _, e := range entries {
			if e.Source == string(secrets.SourceGenerated) {
				fmt.Fprintln(stdout, dimStyle.Render("  Generated values are not saved. Use --persist to append them to .env."))
				fmt.Fprintln(stdout)
				break
			}
		}
	}
}
