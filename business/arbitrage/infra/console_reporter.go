// Package infra contains infrastructure adapters for the arbitrage context.
package infra

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fd1az/crossarb/business/arbitrage/domain"
	"github.com/fd1az/crossarb/pkg/ui"
	"github.com/fd1az/crossarb/pkg/ui/components"
)

// ConsoleReporter implements Reporter for CLI output.
type ConsoleReporter struct {
	out io.Writer

	mu            sync.Mutex
	opportunities *components.OpportunitiesComponent
	stats         components.Stats
}

// NewConsoleReporter creates a ConsoleReporter writing to stdout.
func NewConsoleReporter() *ConsoleReporter {
	return NewConsoleReporterTo(os.Stdout)
}

// NewConsoleReporterTo creates a ConsoleReporter writing to out.
func NewConsoleReporterTo(out io.Writer) *ConsoleReporter {
	return &ConsoleReporter{
		out:           out,
		opportunities: components.NewOpportunitiesComponent(10),
	}
}

// Start initializes the console reporter.
func (r *ConsoleReporter) Start(ctx context.Context) error {
	fmt.Fprintln(r.out, ui.TitleStyle.Render("crossarb started"))
	return nil
}

// ReportOpportunity prints the opportunity with its execution plan.
func (r *ConsoleReporter) ReportOpportunity(ctx context.Context, opp *domain.Opportunity) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stats.Opportunities++
	r.opportunities.Add(components.OpportunityRow{
		Time:        opp.DetectedAt.Format("15:04:05"),
		StartAsset:  opp.StartAsset(),
		Hops:        opp.Cycle.Hops(),
		Path:        opp.Cycle.String(),
		RawPct:      opp.Details.RawProfitPct,
		SlippagePct: opp.Details.SlippagePct,
		ProfitPct:   opp.ProfitPct,
	})

	body := fmt.Sprintf("%s\n", ui.HeaderStyle.Render("ARBITRAGE OPPORTUNITY"))
	body += fmt.Sprintf("ID:        %s\n", opp.ID)
	body += fmt.Sprintf("Detected:  %s\n", opp.DetectedAt.Format(time.RFC3339))
	body += fmt.Sprintf("Cycle:     %s\n", opp.Cycle)
	body += fmt.Sprintf("Raw:       %s\n", ui.Signed(opp.Details.RawProfitPct, ""))
	body += fmt.Sprintf("Slippage:  %s\n", ui.WarningValue.Render(fmt.Sprintf("%.4f%%", opp.Details.SlippagePct)))
	body += fmt.Sprintf("Adjusted:  %s\n", ui.Signed(opp.ProfitPct, ""))
	if opp.Details.TransferTime > 0 {
		body += fmt.Sprintf("Transfers: %s\n", opp.Details.TransferTime)
	}
	body += ui.MutedValue.Render("STEPS")
	for i, s := range opp.Steps {
		body += fmt.Sprintf("\n  %d. %s", i+1, s)
	}

	fmt.Fprintln(r.out, ui.BoxStyle.Render(body))
}

// ReportExecution prints the execution outcome and where funds ended up.
func (r *ConsoleReporter) ReportExecution(ctx context.Context, res *domain.ExecutionResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stats.Executions++
	status := ui.BoldValue.Render(string(res.Status))
	switch res.Status {
	case domain.StatusCompleted:
		r.stats.Completed++
		status = ui.PositiveValue.Render(string(res.Status))
	case domain.StatusPartialFailure:
		r.stats.PartialFailures++
		status = ui.WarningValue.Render(string(res.Status))
	case domain.StatusError:
		r.stats.Errors++
		status = ui.NegativeValue.Render(string(res.Status))
	}

	body := fmt.Sprintf("%s\n", ui.HeaderStyle.Render("EXECUTION"))
	body += fmt.Sprintf("Opportunity: %s\n", res.OpportunityID)
	body += fmt.Sprintf("Status:      %s\n", status)
	body += fmt.Sprintf("Steps:       %d/%d\n", res.StepsExecuted, len(res.StepResults))
	body += fmt.Sprintf("Start:       %s %s\n", res.StartAmount, res.StartAsset)
	body += fmt.Sprintf("Current:     %s %s on %s\n", res.CurrentAmount, res.CurrentAsset, res.CurrentVenue)
	if res.ProfitPct != nil {
		body += fmt.Sprintf("Profit:      %s %s (%s)\n", res.Profit, res.StartAsset, ui.Signed(res.ProfitPct.InexactFloat64(), ""))
	}
	if res.Error != "" {
		body += fmt.Sprintf("Error:       %s\n", ui.NegativeValue.Render(res.Error))
	}
	body += fmt.Sprintf("Duration:    %s", res.Duration())

	fmt.Fprintln(r.out, ui.BoxStyle.Render(body))
}

// Stop prints the session summary.
func (r *ConsoleReporter) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := components.NewStatsComponent()
	stats.Update(r.stats)

	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, r.opportunities.View())
	fmt.Fprintln(r.out, stats.View())
	fmt.Fprintln(r.out, ui.TitleStyle.Render("crossarb stopped"))
	return nil
}
