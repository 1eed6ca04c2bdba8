package reporting

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/gauntlet/api/schemas"
)

// Publish hands summary to every sink concurrently. A failing sink does not stop
// the others; the first error is returned once all have finished.
func Publish(ctx context.Context, summary *schemas.RunSummary, sinks ...schemas.SummarySink) error {
	var g errgroup.Group
	for _, sink := range sinks {
		if sink == nil {
			continue
		}
		g.Go(func() error {
			return sink.Publish(ctx, summary)
		})
	}
	return g.Wait()
}
