package browser

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// pacer spaces out page mutations. A nil limiter means unlimited.
type pacer struct {
	limiter *rate.Limiter
}

// newPacer allows perSecond mutations per second with a burst of one. Zero or a
// negative rate disables pacing.
func newPacer(perSecond float64) *pacer {
	if perSecond <= 0 {
		return &pacer{}
	}
	return &pacer{limiter: rate.NewLimiter(rate.Limit(perSecond), 1)}
}

// Wait blocks until the next mutation is allowed.
func (p *pacer) Wait(ctx context.Context) error {
	if p == nil || p.limiter == nil {
		return nil
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("action pacing interrupted: %w", err)
	}
	return nil
}
