package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/imamik/launchpad/internal/config"
	"github.com/imamik/launchpad/internal/deployment"
	"github.com/imamik/launchpad/internal/jobstore"
)

// JobsOptions are the flags of the jobs command.
type JobsOptions struct {
	ID     string
	Domain string
	Open   bool
	JSON   bool
}

// Jobs lists provisioning jobs, or shows one job when an id is given.
func Jobs(ctx context.Context, settings *config.Settings, opts JobsOptions) error {
	return withStore(ctx, settings, func(store jobstore.Store) error {
		if opts.ID != "" {
			job, err := store.Get(ctx, opts.ID)
			if err != nil {
				return err
			}
			if opts.JSON {
				return printJSON(job)
			}
			printJob(job)
			return nil
		}

		all, err := store.List(ctx)
		if err != nil {
			return err
		}
		jobs := filterJobs(all, opts)
		if opts.JSON {
			return printJSON(jobs)
		}
		printJobTable(jobs)
		return nil
	})
}

func filterJobs(jobs []*deployment.ProvisionJob, opts JobsOptions) []*deployment.ProvisionJob {
	out := make([]*deployment.ProvisionJob, 0, len(jobs))
	for _, job := range jobs {
		if opts.Domain != "" && !strings.EqualFold(job.Domain, opts.Domain) {
			continue
		}
		if opts.Open && job.State.Terminal() {
			continue
		}
		out = append(out, job)
	}
	return out
}

func printJobTable(jobs []*deployment.ProvisionJob) {
	if len(jobs) == 0 {
		fmt.Fprintln(stdout, "No provisioning jobs.")
		return
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(stdout)
	tw.AppendHeader(table.Row{"ID", "Domain", "State", "Application", "Updated"})
	for _, job := range jobs {
		tw.AppendRow(table.Row{job.ID, job.Domain, job.State, job.Outputs.ApplicationID, job.UpdatedAt.Local().Format(time.DateTime)})
	}
	tw.SetStyle(table.StyleLight)
	tw.Render()
}

func printJob(job *deployment.ProvisionJob) {
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, titleStyle.Render("  launchpad job: "+job.Domain))
	fmt.Fprintln(stdout)
	printField("Job", valueStyle.Render(job.ID))
	printField("State", jobStateStyle(job.State).Render(string(job.State)))

	out := job.Outputs
	if out.ZoneID != "" {
		printField("Zone", valueStyle.Render(out.ZoneID))
	}
	if len(out.Nameservers) > 0 {
		printField("Nameservers", dimStyle.Render(strings.Join(out.Nameservers, ", ")))
	}
	if out.RegistrarOrderID != "" {
		printField("Order", valueStyle.Render(out.RegistrarOrderID))
	}
	if out.ZoneStatus != "" {
		printField("Zone status", valueStyle.Render(out.ZoneStatus))
	}
	if out.ApplicationID != "" {
		printField("Application", valueStyle.Render(out.ApplicationID))
	}
	if out.DeploymentID != "" {
		printField("Deployment", valueStyle.Render(fmt.Sprintf("%s (%s)", out.DeploymentID, out.DeployStatus)))
	}
	if out.DeployRetries > 0 || out.FallbackAttempted {
		printField("Redeploys", warningStyle.Render(fmt.Sprintf("%d, fallback: %t", out.DeployRetries, out.FallbackAttempted)))
	}

	if len(out.DNSRecordIDs) > 0 {
		printSection("DNS records")
		for _, r := range job.Records {
			key := strings.ToUpper(r.Type) + " " + r.Name
			mark := dimStyle.Render(pending)
			if _, ok := out.DNSRecordIDs[key]; ok {
				mark = okStyle.Render(checkMark)
			}
			fmt.Fprintf(stdout, "    %s %-6s %-24s %s\n", mark, r.Type, r.Name, dimStyle.Render(r.Content))
		}
	}

	if out.HTTPWarning != "" {
		printSection("Warnings")
		fmt.Fprintf(stdout, "    %s %s\n", warningStyle.Render(warnMark), out.HTTPWarning)
	}
	if job.Failure != nil {
		printSection("Failure")
		kind := "terminal"
		if job.Failure.Retryable {
			kind = "retryable"
		}
		fmt.Fprintf(stdout, "    %s %s in %s: %s\n", failedStyle.Render(crossMark), kind, job.Failure.State, job.Failure.Message)
	}
	fmt.Fprintln(stdout)
}

func jobStateStyle(s deployment.JobState) lipgloss.Style {
	switch {
	case s == deployment.JobComplete:
		return okStyle
	case s.Failed():
		return failedStyle
	default:
		return warningStyle
	}
}
