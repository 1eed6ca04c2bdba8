package reporting

import (
	"fmt"
	"io"
	"sync"

	"github.com/xkilldash9x/gauntlet/api/schemas"
)

// progressEvery is how many slots pass between running counts.
const progressEvery = 10

// Progress prints a mark per slot as records arrive, with a running count after
// every tenth slot. It satisfies challenge.Observer.
type Progress struct {
	mu sync.Mutex
	w  io.Writer
}

// NewProgress writes progress marks to w.
func NewProgress(w io.Writer) *Progress {
	return &Progress{w: w}
}

func (p *Progress) OnRecord(rec schemas.ChallengeRecord, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	mark := "✗"
	if rec.Succeeded {
		mark = "✓"
	}
	fmt.Fprint(p.w, mark)
	if rec.Ordinal%progressEvery == 0 {
		fmt.Fprintf(p.w, " %d/%d\n", rec.Ordinal, total)
	}
}

// Finish terminates the progress line and explains an early stop.
func (p *Progress) Finish(metrics schemas.RunMetrics) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch metrics.StopReason {
	case schemas.StopBudgetExceeded:
		fmt.Fprintln(p.w, "\nTimeout reached")
	case schemas.StopCanceled:
		fmt.Fprintln(p.w, "\nInterrupted")
	default:
		if metrics.Processed()%progressEvery != 0 {
			fmt.Fprintln(p.w)
		}
	}
}
