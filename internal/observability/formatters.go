// Package observability provides formatted output utilities for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jonathan/matchday-agent/internal/ingestion"
	"github.com/jonathan/matchday-agent/internal/period"
	"github.com/jonathan/matchday-agent/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
	// timeLayout is used for every timestamp shown in a box
	timeLayout = "2006-01-02 15:04 MST"
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// printEmpty prints a single-line box
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printEmpty(message string) {
	fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, message)
	fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}

// PrintWindow outputs a resolved period window and whether it is still open.
func (p *Printer) PrintWindow(w period.Window, now time.Time) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Category: %s\n", w.Category))
	sb.WriteString(fmt.Sprintf("Period:   %d\n", w.Sequence))
	sb.WriteString(fmt.Sprintf("Start:    %s\n", w.Start.UTC().Format(timeLayout)))
	sb.WriteString(fmt.Sprintf("End:      %s\n", w.End.UTC().Format("2006-01-02 15:04:05.000 MST")))
	status := "open"
	if w.Closed(now) {
		status = "closed"
	}
	sb.WriteString(fmt.Sprintf("Status:   %s", status))

	p.printBox("PERIOD WINDOW", sb.String())
}

// PrintIngestStats outputs per-category ingestion totals.
func (p *Printer) PrintIngestStats(stats []ingestion.Stats) {
	if len(stats) == 0 {
		return
	}

	var sb strings.Builder
	for _, s := range stats {
		if s.Err != nil {
			sb.WriteString(fmt.Sprintf("⚠ %s: %s\n", s.Category, truncate(s.Err.Error(), 40)))
			continue
		}
		sb.WriteString(fmt.Sprintf("%s: %d fetched, %d new, %d snapshots", s.Category, s.Fetched, s.EventsCreated, s.SnapshotsAppended))
		if s.Skipped > 0 {
			sb.WriteString(fmt.Sprintf(", %d skipped", s.Skipped))
		}
		sb.WriteString("\n")
	}

	p.printBox("INGESTION", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintPendingWork outputs events awaiting enrichment grouped by period.
func (p *Printer) PrintPendingWork(work []types.PeriodWork) {
	if len(work) == 0 {
		p.printEmpty("✅ NO EVENTS AWAITING ENRICHMENT")
		return
	}

	var sb strings.Builder
	for i, w := range work {
		sb.WriteString(fmt.Sprintf("%s period %d (%s)\n",
			w.Period.Category, w.Period.SequenceNumber, w.Period.WindowStart.UTC().Format("Jan 02")))

		count := min(len(w.Events), maxItemsToShow)
		for j := 0; j < count; j++ {
			e := w.Events[j]
			sb.WriteString(fmt.Sprintf("  • %s vs %s  %s\n",
				e.ParticipantA, e.ParticipantB, e.ScheduledTime.UTC().Format("Mon 15:04")))
		}
		if len(w.Events) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(w.Events)-maxItemsToShow))
		}
		if i < len(work)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("PENDING ENRICHMENT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintPendingDeliveries outputs results that have not been delivered yet.
func (p *Printer) PrintPendingDeliveries(deliveries []types.Delivery) {
	if len(deliveries) == 0 {
		p.printEmpty("✅ NO UNDELIVERED RESULTS")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d undelivered:\n\n", len(deliveries)))
	count := min(len(deliveries), maxItemsToShow)
	for i := 0; i < count; i++ {
		d := deliveries[i]
		sb.WriteString(fmt.Sprintf("• %s vs %s\n", d.Event.ParticipantA, d.Event.ParticipantB))
		sb.WriteString(fmt.Sprintf("  %s (%s)\n", d.Result.PredictedOutcome, d.Result.Confidence))
	}
	if len(deliveries) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more", len(deliveries)-maxItemsToShow))
	}

	p.printBox("PENDING DELIVERY", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintEnrichment outputs a generated result for one event.
func (p *Printer) PrintEnrichment(event types.Event, result *types.EnrichmentResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Match:      %s vs %s\n", event.ParticipantA, event.ParticipantB))
	sb.WriteString(fmt.Sprintf("Kickoff:    %s\n", event.ScheduledTime.UTC().Format(timeLayout)))
	sb.WriteString(fmt.Sprintf("Prediction: %s\n", result.PredictedOutcome))
	sb.WriteString(fmt.Sprintf("Confidence: %s\n", result.Confidence))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("%s\n", result.HumanSummary))
	if len(result.SupportingFactors) > 0 {
		sb.WriteString("\nKey factors:\n")
		for _, f := range result.SupportingFactors {
			sb.WriteString(fmt.Sprintf("  • %s\n", truncate(f, 50)))
		}
	}

	p.printBox("ENRICHMENT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRunSummary outputs the totals of a run.
func (p *Printer) PrintRunSummary(s *types.RunSummary) {
	if s == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run:        %s\n", s.RunID))
	sb.WriteString(fmt.Sprintf("Status:     %s\n", s.Status))
	sb.WriteString(fmt.Sprintf("Started:    %s\n", s.StartedAt.UTC().Format(timeLayout)))
	sb.WriteString(fmt.Sprintf("Duration:   %s\n", s.Duration.Round(time.Millisecond)))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Events:     %d processed, %d ok, %d failed\n", s.EventsProcessed, s.Successes, s.Failures))
	sb.WriteString(fmt.Sprintf("Delivery:   %d sent, %d failed\n", s.NotificationsSent, s.DeliveryFailures))
	sb.WriteString(fmt.Sprintf("External:   %d calls, %d cache hits", s.ExternalCalls, s.CacheHits))
	if s.ErrorMessage != "" {
		sb.WriteString(fmt.Sprintf("\n\n⚠ %s", s.ErrorMessage))
	}

	p.printBox("RUN SUMMARY", sb.String())
}

// PrintRunHistory outputs recent runs, newest first.
func (p *Printer) PrintRunHistory(runs []types.RunSummary) {
	if len(runs) == 0 {
		p.printEmpty("NO RUNS RECORDED")
		return
	}

	var sb strings.Builder
	for _, r := range runs {
		marker := "✓"
		if r.Status != types.RunStatusCompleted {
			marker = "✗"
		}
		sb.WriteString(fmt.Sprintf("%s %s  %d ok/%d fail  %d sent\n",
			marker, r.StartedAt.UTC().Format("Jan 02 15:04"), r.Successes, r.Failures, r.NotificationsSent))
	}

	p.printBox("RECENT RUNS", strings.TrimSuffix(sb.String(), "\n"))
}
