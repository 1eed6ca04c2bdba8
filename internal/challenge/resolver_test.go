package challenge_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/gauntlet/api/schemas"
	"github.com/xkilldash9x/gauntlet/internal/challenge"
	"github.com/xkilldash9x/gauntlet/internal/mocks"
)

func newTestResolver(t *testing.T, clock *fakeClock, opts ...challenge.ResolverOption) *challenge.Resolver {
	t.Helper()
	opts = append([]challenge.ResolverOption{
		challenge.WithResolverClock(clock),
		challenge.WithResolverLogger(zaptest.NewLogger(t)),
	}, opts...)
	return challenge.NewResolver(defaultChallengeConfig(), opts...)
}

func TestResolve_StrategyPriority(t *testing.T) {
	testCases := []struct {
		name     string
		visible  []string
		expected schemas.Strategy
		action   string
	}{
		{"button beats text input", []string{qButton, qText}, schemas.StrategyButton, "click:" + qButton},
		{"text input beats checkbox", []string{qText, qCheckbox, qSelect}, schemas.StrategyTextInput, "submit:" + qText},
		{"checkbox only", []string{qCheckbox}, schemas.StrategyCheckbox, "check:" + qCheckbox},
		{"select only", []string{qSelect}, schemas.StrategySelect, "select:" + qSelect},
		{"nothing visible falls through to key press", nil, schemas.StrategyKeyPress, "press:Enter"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			clock := newFakeClock()
			page := newFakePage(clock, tc.visible...)
			resolver := newTestResolver(t, clock)

			rec, err := resolver.Resolve(context.Background(), 4, page)
			require.NoError(t, err)

			assert.Equal(t, 4, rec.Ordinal)
			assert.Equal(t, tc.expected, rec.Strategy)
			assert.True(t, rec.Succeeded)
			assert.Contains(t, page.Calls(), tc.action)
		})
	}
}

func TestResolve_TextInputFillsPlaceholderThenSubmits(t *testing.T) {
	clock := newFakeClock()
	page := newFakePage(clock, qText)

	rec, err := newTestResolver(t, clock).Resolve(context.Background(), 12, page)
	require.NoError(t, err)

	require.True(t, rec.Succeeded)
	calls := page.Calls()
	fill := "fill:" + qText + "=test-12"
	submit := "submit:" + qText
	assert.Contains(t, calls, fill)
	assert.Contains(t, calls, submit)
	assert.Less(t, indexOf(calls, fill), indexOf(calls, submit), "fill must happen before submit")
}

func TestResolve_ExactlyOneActionPerSlot(t *testing.T) {
	clock := newFakeClock()
	page := newFakePage(clock, qButton, qText, qCheckbox, qSelect)

	_, err := newTestResolver(t, clock).Resolve(context.Background(), 1, page)
	require.NoError(t, err)

	assert.Equal(t, []string{"probe:" + qButton, "click:" + qButton}, page.Calls(),
		"later strategies are neither probed nor executed once one applies")
}

func TestResolve_ActionErrorFailsSlotWithoutFallback(t *testing.T) {
	page := new(mocks.MockPage)
	button := schemas.Locator{Query: qButton}
	page.On("ProbeVisible", mock.Anything, button).Return(true, nil).Once()
	page.On("Click", mock.Anything, button).Return(errors.New("element detached")).Once()

	clock := newFakeClock()
	rec, err := newTestResolver(t, clock).Resolve(context.Background(), 3, page)
	require.NoError(t, err)

	assert.Equal(t, schemas.ChallengeRecord{Ordinal: 3, Strategy: schemas.StrategyNone, DurationMillis: 400}, rec)
	page.AssertExpectations(t)
	page.AssertNotCalled(t, "ProbeVisible", mock.Anything, schemas.Locator{Query: qText})
	page.AssertNotCalled(t, "PressKey", mock.Anything, mock.Anything)
}

func TestResolve_FailedFillSkipsSubmit(t *testing.T) {
	clock := newFakeClock()
	page := newFakePage(clock, qText)
	page.actionErrs["fill"] = errors.New("input is read-only")

	rec, err := newTestResolver(t, clock).Resolve(context.Background(), 2, page)
	require.NoError(t, err)

	assert.Equal(t, schemas.StrategyNone, rec.Strategy)
	assert.False(t, rec.Succeeded)
	assert.NotContains(t, page.Calls(), "submit:"+qText)
}

func TestResolve_SelectIndexOutOfRangeFailsSlot(t *testing.T) {
	clock := newFakeClock()
	page := newFakePage(clock, qSelect)
	page.actionErrs["select"] = errors.New("option index 1 out of range")

	rec, err := newTestResolver(t, clock).Resolve(context.Background(), 9, page)
	require.NoError(t, err)

	assert.Equal(t, schemas.StrategyNone, rec.Strategy)
	assert.False(t, rec.Succeeded)
}

func TestResolve_KeyPressNeverFails(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	clock := newFakeClock()
	page := newFakePage(clock)
	page.actionErrs["press"] = errors.New("target closed")

	resolver := challenge.NewResolver(defaultChallengeConfig(),
		challenge.WithResolverClock(clock),
		challenge.WithResolverLogger(zap.New(core)))
	rec, err := resolver.Resolve(context.Background(), 30, page)
	require.NoError(t, err)

	assert.Equal(t, schemas.StrategyKeyPress, rec.Strategy)
	assert.True(t, rec.Succeeded)
	assert.Equal(t, []string{"Enter"}, page.pressedKeys)
	require.Equal(t, 1, logs.FilterMessageSnippet("Key dispatch failed").Len(), "the swallowed error is still logged")
}

func TestResolve_ProbeErrorCollapsesToNotApplicable(t *testing.T) {
	clock := newFakeClock()
	page := newFakePage(clock, qButton, qText)
	probeErr := errors.New("execution context was destroyed")
	page.probeErrs[qButton] = probeErr

	type collapsed struct {
		ordinal int
		kind    schemas.Strategy
		err     error
	}
	var seen []collapsed
	resolver := newTestResolver(t, clock, challenge.WithProbeErrorHandler(func(ordinal int, kind schemas.Strategy, err error) {
		seen = append(seen, collapsed{ordinal, kind, err})
	}))

	rec, err := resolver.Resolve(context.Background(), 5, page)
	require.NoError(t, err)

	assert.Equal(t, schemas.StrategyTextInput, rec.Strategy, "the next strategy is tried after a probe error")
	assert.True(t, rec.Succeeded)
	require.Len(t, seen, 1)
	assert.Equal(t, collapsed{5, schemas.StrategyButton, probeErr}, seen[0])
}

func TestResolve_DurationCoversSettleAndAction(t *testing.T) {
	clock := newFakeClock()
	page := newFakePage(clock, qButton)
	page.actionCost = 120 * time.Millisecond

	rec, err := newTestResolver(t, clock).Resolve(context.Background(), 1, page)
	require.NoError(t, err)

	assert.Equal(t, int64(520), rec.DurationMillis)
}

func TestResolve_InterruptedSettleMutatesNothing(t *testing.T) {
	clock := newFakeClock()
	page := newFakePage(clock, qButton)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec, err := newTestResolver(t, clock).Resolve(ctx, 7, page)

	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, rec, "an unattempted slot produces no record")
	assert.Empty(t, page.Calls(), "no probe or mutation after an interrupted settle wait")
}

func TestResolve_SystemClockHonorsSettleDelay(t *testing.T) {
	cfg := defaultChallengeConfig()
	cfg.SettleDelay = 20 * time.Millisecond
	page := newFakePage(nil, qCheckbox)

	start := time.Now()
	rec, err := challenge.NewResolver(cfg).Resolve(context.Background(), 1, page)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	assert.GreaterOrEqual(t, rec.DurationMillis, int64(20))
	assert.Equal(t, schemas.StrategyCheckbox, rec.Strategy)
}

func indexOf(calls []string, want string) int {
	for i, c := range calls {
		if c == want {
			return i
		}
	}
	return -1
}
