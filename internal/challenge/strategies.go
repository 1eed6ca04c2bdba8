package challenge

import (
	"context"

	"go.uber.org/zap"

	"github.com/xkilldash9x/gauntlet/api/schemas"
	"github.com/xkilldash9x/gauntlet/internal/config"
)

// interaction is one generic way of resolving a challenge slot.
type interaction interface {
	Kind() schemas.Strategy
	Probe(ctx context.Context, page schemas.PageDriver) schemas.StrategyCandidate
	Execute(ctx context.Context, page schemas.PageDriver, ordinal int) error
}

// defaultInteractions returns the strategies in priority order. The order is fixed;
// the resolver never reorders it.
func defaultInteractions(cfg config.ChallengeConfig, logger *zap.Logger) []interaction {
	return []interaction{
		&buttonStrategy{target: schemas.Locator{Query: cfg.Selectors.Button}},
		&textInputStrategy{
			target:      schemas.Locator{Query: cfg.Selectors.TextInput},
			placeholder: cfg.Placeholder,
		},
		&checkboxStrategy{target: schemas.Locator{Query: cfg.Selectors.Checkbox}},
		&selectStrategy{target: schemas.Locator{Query: cfg.Selectors.Select}, index: cfg.SelectIndex},
		&keyPressStrategy{key: cfg.ConfirmKey, logger: logger},
	}
}

// probeLocator maps a visibility probe onto the tri-state probe result.
func probeLocator(ctx context.Context, page schemas.PageDriver, kind schemas.Strategy, loc schemas.Locator) schemas.StrategyCandidate {
	visible, err := page.ProbeVisible(ctx, loc)
	switch {
	case err != nil:
		return schemas.StrategyCandidate{Kind: kind, Result: schemas.ProbeError, Err: err}
	case visible:
		return schemas.StrategyCandidate{Kind: kind, Result: schemas.ProbeApplicable}
	default:
		return schemas.StrategyCandidate{Kind: kind, Result: schemas.ProbeNotApplicable}
	}
}

type buttonStrategy struct {
	target schemas.Locator
}

func (s *buttonStrategy) Kind() schemas.Strategy { return schemas.StrategyButton }

func (s *buttonStrategy) Probe(ctx context.Context, page schemas.PageDriver) schemas.StrategyCandidate {
	return probeLocator(ctx, page, s.Kind(), s.target)
}

func (s *buttonStrategy) Execute(ctx context.Context, page schemas.PageDriver, _ int) error {
	return page.Click(ctx, s.target)
}

type textInputStrategy struct {
	target      schemas.Locator
	placeholder func(ordinal int) string
}

func (s *textInputStrategy) Kind() schemas.Strategy { return schemas.StrategyTextInput }

func (s *textInputStrategy) Probe(ctx context.Context, page schemas.PageDriver) schemas.StrategyCandidate {
	return probeLocator(ctx, page, s.Kind(), s.target)
}

// Execute fills the field and then submits it. A failed fill skips the submit.
func (s *textInputStrategy) Execute(ctx context.Context, page schemas.PageDriver, ordinal int) error {
	if err := page.Fill(ctx, s.target, s.placeholder(ordinal)); err != nil {
		return err
	}
	return page.Submit(ctx, s.target)
}

type checkboxStrategy struct {
	target schemas.Locator
}

func (s *checkboxStrategy) Kind() schemas.Strategy { return schemas.StrategyCheckbox }

func (s *checkboxStrategy) Probe(ctx context.Context, page schemas.PageDriver) schemas.StrategyCandidate {
	return probeLocator(ctx, page, s.Kind(), s.target)
}

func (s *checkboxStrategy) Execute(ctx context.Context, page schemas.PageDriver, _ int) error {
	return page.SetChecked(ctx, s.target, true)
}

type selectStrategy struct {
	target schemas.Locator
	index  int
}

func (s *selectStrategy) Kind() schemas.Strategy { return schemas.StrategySelect }

func (s *selectStrategy) Probe(ctx context.Context, page schemas.PageDriver) schemas.StrategyCandidate {
	return probeLocator(ctx, page, s.Kind(), s.target)
}

func (s *selectStrategy) Execute(ctx context.Context, page schemas.PageDriver, _ int) error {
	return page.SelectOptionByIndex(ctx, s.target, s.index)
}

// keyPressStrategy is the catch-all. It is always applicable and never reports
// failure: a dispatch error is logged and the slot still counts as resolved.
type keyPressStrategy struct {
	key    string
	logger *zap.Logger
}

func (s *keyPressStrategy) Kind() schemas.Strategy { return schemas.StrategyKeyPress }

func (s *keyPressStrategy) Probe(context.Context, schemas.PageDriver) schemas.StrategyCandidate {
	return schemas.StrategyCandidate{Kind: s.Kind(), Result: schemas.ProbeApplicable}
}

func (s *keyPressStrategy) Execute(ctx context.Context, page schemas.PageDriver, ordinal int) error {
	if err := page.PressKey(ctx, s.key); err != nil {
		s.logger.Warn("Key dispatch failed; recording slot as resolved.",
			zap.Int("ordinal", ordinal),
			zap.String("key", s.key),
			zap.Error(err))
	}
	return nil
}
