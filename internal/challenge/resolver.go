// Package challenge implements the heuristic challenge loop: a resolver that picks
// one generic interaction per slot, and a runner that drives it under a time budget.
package challenge

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/gauntlet/api/schemas"
	"github.com/xkilldash9x/gauntlet/internal/config"
)

// ProbeErrorHandler is notified whenever a probe error is treated as not applicable.
type ProbeErrorHandler func(ordinal int, kind schemas.Strategy, err error)

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithResolverLogger sets the logger.
func WithResolverLogger(logger *zap.Logger) ResolverOption {
	return func(r *Resolver) { r.logger = logger }
}

// WithProbeErrorHandler registers a hook for collapsed probe errors.
func WithProbeErrorHandler(h ProbeErrorHandler) ResolverOption {
	return func(r *Resolver) { r.onProbeError = h }
}

// WithResolverClock replaces the system clock.
func WithResolverClock(c Clock) ResolverOption {
	return func(r *Resolver) { r.clock = c }
}

// Resolver resolves a single challenge slot against the current page state.
type Resolver struct {
	logger       *zap.Logger
	clock        Clock
	settleDelay  time.Duration
	strategies   []interaction
	onProbeError ProbeErrorHandler
}

// NewResolver builds a resolver using the selectors and timings in cfg.
func NewResolver(cfg config.ChallengeConfig, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		logger:      zap.NewNop(),
		clock:       SystemClock(),
		settleDelay: cfg.SettleDelay,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.Named("resolver")
	r.strategies = defaultInteractions(cfg, r.logger)
	return r
}

// Resolve waits for the page to settle, then probes strategies in priority order and
// executes the first applicable one. Exactly one strategy is executed per slot and
// strategy failures show up as {None, false}. The error is non-nil only when ctx ends
// during the settle wait; the slot was never attempted and there is no record.
func (r *Resolver) Resolve(ctx context.Context, ordinal int, page schemas.PageDriver) (schemas.ChallengeRecord, error) {
	start := r.clock.Now()
	rec := schemas.ChallengeRecord{Ordinal: ordinal, Strategy: schemas.StrategyNone}

	if err := r.clock.Sleep(ctx, r.settleDelay); err != nil {
		r.logger.Debug("Settle wait interrupted.", zap.Int("ordinal", ordinal), zap.Error(err))
		return schemas.ChallengeRecord{}, err
	}

	for _, s := range r.strategies {
		candidate := s.Probe(ctx, page)
		if candidate.Result == schemas.ProbeError {
			r.collapseProbeError(ordinal, candidate)
			continue
		}
		if !candidate.Applicable() {
			continue
		}

		if err := s.Execute(ctx, page, ordinal); err != nil {
			r.logger.Warn("Strategy action failed.",
				zap.Int("ordinal", ordinal),
				zap.Stringer("strategy", candidate.Kind),
				zap.Error(err))
			rec.DurationMillis = r.elapsedMillis(start)
			return rec, nil
		}
		rec.Strategy = candidate.Kind
		rec.Succeeded = true
		rec.DurationMillis = r.elapsedMillis(start)
		return rec, nil
	}

	// Unreachable while the key press fallback is registered.
	rec.DurationMillis = r.elapsedMillis(start)
	return rec, nil
}

// collapseProbeError is the one place a probe error becomes "not applicable".
func (r *Resolver) collapseProbeError(ordinal int, c schemas.StrategyCandidate) {
	r.logger.Debug("Probe failed; treating strategy as not applicable.",
		zap.Int("ordinal", ordinal),
		zap.Stringer("strategy", c.Kind),
		zap.Error(c.Err))
	if r.onProbeError != nil {
		r.onProbeError(ordinal, c.Kind, c.Err)
	}
}

func (r *Resolver) elapsedMillis(start time.Time) int64 {
	ms := r.clock.Now().Sub(start).Milliseconds()
	if ms < 0 {
		return 0
	}
	return ms
}
