package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/imamik/launchpad/internal/deployment"
	"github.com/imamik/launchpad/internal/orchestrator"
	"github.com/imamik/launchpad/internal/spec"
	"github.com/imamik/launchpad/internal/verify"
)

type reportView struct {
	ID             string          `json:"id"`
	Fingerprint    string          `json:"fingerprint"`
	DryRun         bool            `json:"dry_run"`
	Phase          string          `json:"phase"`
	URL            string          `json:"url,omitempty"`
	Error          string          `json:"error,omitempty"`
	FailedPhase    string          `json:"failed_phase,omitempty"`
	Phases         []string        `json:"phases"`
	Resources      []resourceView  `json:"resources,omitempty"`
	RollbackErrors []string        `json:"rollback_errors,omitempty"`
	ResourcesKept  bool            `json:"resources_kept,omitempty"`
	Warnings       []string        `json:"warnings,omitempty"`
	Checks         []verify.Result `json:"checks,omitempty"`
	DurationMS     int64           `json:"duration_ms"`
}

type resourceView struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type planView struct {
	ID          string       `json:"id"`
	Fingerprint string       `json:"fingerprint"`
	Warnings    []string     `json:"warnings,omitempty"`
	Actions     []actionView `json:"actions"`
}

type actionView struct {
	Phase       string `json:"phase"`
	Description string `json:"description"`
}

func newReportView(r *orchestrator.Report) reportView {
	v := reportView{
		ID:            r.ID,
		Fingerprint:   r.Fingerprint,
		DryRun:        r.DryRun,
		Phase:         string(r.Phase),
		URL:           r.URL,
		ResourcesKept: r.ResourcesKept,
		Checks:        r.Checks,
		DurationMS:    r.Duration.Milliseconds(),
	}
	if r.Err != nil {
		v.Error = r.Err.Err.Error()
		v.FailedPhase = string(r.Err.Phase)
	}
	for _, p := range r.Phases() {
		v.Phases = append(v.Phases, string(p))
	}
	for _, res := range r.Resources {
		v.Resources = append(v.Resources, resourceView{Type: string(res.Type()), ID: res.ID()})
	}
	for _, err := range r.RollbackErrors {
		v.RollbackErrors = append(v.RollbackErrors, err.Error())
	}
	for _, w := range r.Warnings {
		v.Warnings = append(v.Warnings, w.String())
	}
	return v
}

func printReport(r *orchestrator.Report) {
	w := stdout
	title := fmt.Sprintf("  launchpad apply: %s", r.ID)
	if r.DryRun {
		title += " (dry run)"
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, titleStyle.Render(title))
	fmt.Fprintln(w)

	printField("Phase", phaseStyle(r.Phase).Render(string(r.Phase)))
	if r.URL != "" {
		printField("URL", valueStyle.Render(r.URL))
	}
	printField("Fingerprint", dimStyle.Render(shortFingerprint(r.Fingerprint)))
	printField("Duration", dimStyle.Render(r.Duration.Round(time.Millisecond).String()))

	phases := make([]string, 0, len(r.History)+1)
	for _, p := range r.Phases() {
		phases = append(phases, string(p))
	}
	printField("Path", dimStyle.Render(strings.Join(phases, " -> ")))

	if len(r.Warnings) > 0 {
		printSection("Warnings")
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "    %s %s\n", warningStyle.Render(warnMark), warn.String())
		}
	}

	if len(r.Resources) > 0 {
		printSection("Resources")
		mark := okStyle.Render(checkMark)
		if r.Phase == deployment.PhaseRolledBack {
			mark = dimStyle.Render("[--]")
		}
		for _, res := range r.Resources {
			fmt.Fprintf(w, "    %s %-14s %s\n", mark, res.Type(), res.ID())
		}
		if r.ResourcesKept {
			fmt.Fprintf(w, "    %s\n", warningStyle.Render("kept for inspection: automatic rollback is disabled"))
		}
	}

	if len(r.Checks) > 0 {
		printSection("Postconditions")
		for _, c := range r.Checks {
			fmt.Fprintf(w, "    %s %-24s %s\n", checkMarkFor(c.Status), c.Name, dimStyle.Render(c.Message))
		}
	}

	if r.Err != nil {
		printSection("Error")
		fmt.Fprintf(w, "    %s %s\n", failedStyle.Render(crossMark), r.Err.Error())
		for _, err := range r.RollbackErrors {
			fmt.Fprintf(w, "    %s rollback: %v\n", failedStyle.Render(crossMark), err)
		}
	}
	fmt.Fprintln(w)
}

func printPlan(s *spec.Spec, fingerprint string, warnings []spec.Warning, actions []orchestrator.Action) {
	w := stdout
	fmt.Fprintln(w)
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("  launchpad plan: %s", s.ID)))
	fmt.Fprintln(w)
	printField("Fingerprint", dimStyle.Render(shortFingerprint(fingerprint)))

	if len(warnings) > 0 {
		printSection("Warnings")
		for _, warn := range warnings {
			fmt.Fprintf(w, "    %s %s\n", warningStyle.Render(warnMark), warn.String())
		}
	}

	var last deployment.Phase
	for _, a := range actions {
		if a.Phase != last {
			printSection(string(a.Phase))
			last = a.Phase
		}
		fmt.Fprintf(w, "    %s %s\n", dimStyle.Render(pending), a.Description)
	}
	fmt.Fprintln(w)
}

func printSection(name string) {
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, sectionStyle.Render("  "+name))
}

func printField(name, value string) {
	fmt.Fprintf(stdout, "  %s %s\n", nameStyle.Render(fmt.Sprintf("%-12s", name)), value)
}

func phaseStyle(p deployment.Phase) lipgloss.Style {
	switch p {
	case deployment.PhaseComplete:
		return okStyle
	case deployment.PhaseRolledBack:
		return warningStyle
	case deployment.PhaseFailed:
		return failedStyle
	default:
		return valueStyle
	}
}

func checkMarkFor(s verify.Status) string {
	switch s {
	case verify.StatusPass:
		return okStyle.Render(checkMark)
	case verify.StatusFail:
		return failedStyle.Render(crossMark)
	case verify.StatusWarn:
		return warningStyle.Render(warnMark)
	default:
		return dimStyle.Render("[--]")
	}
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
