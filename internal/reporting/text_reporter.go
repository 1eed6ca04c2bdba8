package reporting

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/xkilldash9x/gauntlet/api/schemas"
)

const bannerWidth = 50

// PrintBanner writes the end-of-run console summary.
func PrintBanner(w io.Writer, summary *schemas.RunSummary, outputPath string) {
	rule := strings.Repeat("=", bannerWidth)
	fmt.Fprintf(w, "\n%s\n", rule)
	fmt.Fprintf(w, "Solved: %d/%d (%s)\n", summary.Summary.Solved, summary.Summary.Total, summary.Summary.SuccessRate)
	fmt.Fprintf(w, "Time: %s\n", summary.Summary.TotalTimeFormatted)
	fmt.Fprintf(w, "Tokens: %d (%s)\n", summary.Performance.EstimatedTokens, summary.Performance.EstimatedCost)
	fmt.Fprintln(w, rule)
	if outputPath != "" {
		fmt.Fprintf(w, "Results: %s\n", outputPath)
	}
}

// TextReporter writes a human readable report: the banner followed by one line per
// slot.
type TextReporter struct {
	mu     sync.Mutex
	writer io.WriteCloser
}

// NewTextReporter takes ownership of writer.
func NewTextReporter(writer io.WriteCloser) *TextReporter {
	return &TextReporter{writer: writer}
}

func (r *TextReporter) Publish(ctx context.Context, summary *schemas.RunSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Run %s", summary.RunID)
	if summary.URL != "" {
		fmt.Fprintf(&b, " against %s", summary.URL)
	}
	fmt.Fprintf(&b, " (%s)\n", summary.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"))
	PrintBanner(&b, summary, "")
	if summary.StopReason != "" {
		fmt.Fprintf(&b, "Stopped: %s\n", summary.StopReason)
	}
	fmt.Fprintf(&b, "Average: %s per challenge\n\n", summary.Summary.AvgPerChallenge)
	for _, rec := range summary.Challenges {
		mark := "✗"
		if rec.Succeeded {
			mark = "✓"
		}
		fmt.Fprintf(&b, "%3d %s %-9s %6dms\n", rec.Ordinal, mark, rec.Strategy, rec.DurationMillis)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := io.WriteString(r.writer, b.String()); err != nil {
		return fmt.Errorf("failed to write text report: %w", err)
	}
	return nil
}

func (r *TextReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writer.Close()
}
