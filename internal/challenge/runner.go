package challenge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/gauntlet/api/schemas"
)

// ErrPageLoad is returned by Execute when the challenge page could not be loaded.
var ErrPageLoad = errors.New("challenge page failed to load")

// Observer receives each record as soon as the runner appends it.
type Observer interface {
	OnRecord(rec schemas.ChallengeRecord, total int)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(rec schemas.ChallengeRecord, total int)

func (f ObserverFunc) OnRecord(rec schemas.ChallengeRecord, total int) { f(rec, total) }

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRunnerLogger sets the logger.
func WithRunnerLogger(logger *zap.Logger) RunnerOption {
	return func(r *Runner) { r.logger = logger }
}

// WithObserver registers an observer. Observers are called in registration order.
func WithObserver(o Observer) RunnerOption {
	return func(r *Runner) { r.observers = append(r.observers, o) }
}

// WithStartControl makes Execute click loc after the page loads, if it is visible.
func WithStartControl(loc schemas.Locator) RunnerOption {
	return func(r *Runner) { r.start = &loc }
}

// WithRunnerClock replaces the system clock.
func WithRunnerClock(c Clock) RunnerOption {
	return func(r *Runner) { r.clock = c }
}

// WithRunID fixes the run identifier instead of generating one.
func WithRunID(id string) RunnerOption {
	return func(r *Runner) { r.runID = id }
}

// Runner drives the resolver over a fixed number of slots within a time budget.
// Slots run strictly one after another against a single page.
type Runner struct {
	resolver  *Resolver
	logger    *zap.Logger
	clock     Clock
	observers []Observer
	start     *schemas.Locator
	runID     string
}

// NewRunner creates a Runner around resolver.
func NewRunner(resolver *Resolver, opts ...RunnerOption) *Runner {
	r := &Runner{
		resolver: resolver,
		logger:   zap.NewNop(),
		clock:    SystemClock(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.Named("runner")
	return r
}

// RunChallenges resolves slots 1..n in order. Before each slot it checks the elapsed
// time since the run began and the context; once the budget is spent or ctx is done
// the remaining slots are left out. In-flight slots are never preempted by the budget.
func (r *Runner) RunChallenges(ctx context.Context, page schemas.PageDriver, n int, budget time.Duration) schemas.RunMetrics {
	return r.loop(ctx, page, schemas.NewRunMetrics(r.newRunID(), r.clock.Now()), n, budget)
}

// Execute performs a complete run: load url, press the start control if configured,
// then run n slots. The budget clock starts before the page load. A load failure is
// fatal and produces no metrics.
func (r *Runner) Execute(ctx context.Context, page schemas.PageDriver, url string, n int, budget time.Duration) (schemas.RunMetrics, error) {
	metrics := schemas.NewRunMetrics(r.newRunID(), r.clock.Now())
	logger := r.logger.With(zap.String("run_id", metrics.RunID))

	logger.Info("Loading challenge page.", zap.String("url", url))
	if err := page.LoadPage(ctx, url); err != nil {
		return schemas.RunMetrics{}, fmt.Errorf("%w: %s: %w", ErrPageLoad, url, err)
	}

	if r.start != nil {
		r.pressStart(ctx, page, *r.start, logger)
	}

	return r.loop(ctx, page, metrics, n, budget), nil
}

func (r *Runner) pressStart(ctx context.Context, page schemas.PageDriver, loc schemas.Locator, logger *zap.Logger) {
	visible, err := page.ProbeVisible(ctx, loc)
	if err != nil || !visible {
		logger.Debug("No start control found; continuing.", zap.Stringer("locator", loc), zap.Error(err))
		return
	}
	if err := page.Click(ctx, loc); err != nil {
		logger.Warn("Failed to press start control.", zap.Stringer("locator", loc), zap.Error(err))
	}
}

func (r *Runner) loop(ctx context.Context, page schemas.PageDriver, metrics schemas.RunMetrics, n int, budget time.Duration) schemas.RunMetrics {
	logger := r.logger.With(zap.String("run_id", metrics.RunID))
	reason := schemas.StopCompleted

	for ordinal := 1; ordinal <= n; ordinal++ {
		if ctx.Err() != nil {
			reason = schemas.StopCanceled
			break
		}
		if elapsed := r.clock.Now().Sub(metrics.StartTime); elapsed >= budget {
			logger.Info("Time budget exhausted.",
				zap.Duration("elapsed", elapsed),
				zap.Duration("budget", budget),
				zap.Int("next_ordinal", ordinal))
			reason = schemas.StopBudgetExceeded
			break
		}

		rec, err := r.resolver.Resolve(ctx, ordinal, page)
		if err != nil {
			reason = schemas.StopCanceled
			break
		}
		metrics = metrics.Append(rec)
		logger.Debug("Slot finished.",
			zap.Int("ordinal", rec.Ordinal),
			zap.Stringer("strategy", rec.Strategy),
			zap.Bool("success", rec.Succeeded),
			zap.Int64("duration_ms", rec.DurationMillis))
		for _, o := range r.observers {
			o.OnRecord(rec, n)
		}
	}

	metrics = metrics.Finalize(r.clock.Now(), reason)
	logger.Info("Challenge loop finished.",
		zap.String("reason", string(reason)),
		zap.Int("solved", metrics.SolvedCount),
		zap.Int("failed", metrics.FailedCount),
		zap.Duration("elapsed", metrics.Elapsed()))
	return metrics
}

func (r *Runner) newRunID() string {
	if r.runID != "" {
		return r.runID
	}
	return uuid.NewString()
}
