package cmd

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/gauntlet/api/schemas"
	"github.com/xkilldash9x/gauntlet/internal/config"
)

func TestHistoryCmd(t *testing.T) {
	t.Run("lists runs newest first", func(t *testing.T) {
		st := new(mockRunStore)
		st.On("ListRuns", mock.Anything, 2).Return([]schemas.RunHistory{
			{RunID: "run-b", Total: 30, Solved: 29, Failed: 1, TotalTimeMs: 12345, StopReason: "completed",
				CompletedAt: time.Date(2025, 10, 26, 12, 0, 0, 0, time.UTC)},
			{RunID: "run-a", Total: 30, Solved: 3, TotalTimeMs: 300000, StopReason: "budget_exceeded",
				CompletedAt: time.Date(2025, 10, 26, 11, 0, 0, 0, time.UTC)},
		}, nil).Once()
		provider := &stubStoreProvider{store: st}

		root, out := newTestRoot(t, dependencies{stores: provider}, "history", "--limit", "2")
		require.NoError(t, root.ExecuteContext(context.Background()))

		lines := out.String()
		assert.Contains(t, lines, "RUN")
		assert.Contains(t, lines, "run-b")
		assert.Contains(t, lines, "2025-10-26 12:00:00")
		assert.Contains(t, lines, "29/30")
		assert.Contains(t, lines, "12.3s")
		assert.Contains(t, lines, "budget_exceeded")
		assert.Less(t, strings.Index(lines, "run-b"), strings.Index(lines, "run-a"))
		assert.Equal(t, 1, provider.cleanups)
		st.AssertExpectations(t)
	})

	t.Run("empty history", func(t *testing.T) {
		st := new(mockRunStore)
		st.On("ListRuns", mock.Anything, 10).Return([]schemas.RunHistory{}, nil).Once()

		root, out := newTestRoot(t, dependencies{stores: &stubStoreProvider{store: st}}, "history")
		require.NoError(t, root.ExecuteContext(context.Background()))
		assert.Equal(t, "No runs recorded.\n", out.String())
	})

	t.Run("store unavailable", func(t *testing.T) {
		dbErr := errors.New("database URL is not configured (GAUNTLET_DATABASE_URL)")
		root, _ := newTestRoot(t, dependencies{stores: &stubStoreProvider{err: dbErr}}, "history")
		err := root.ExecuteContext(context.Background())
		assert.ErrorIs(t, err, dbErr)
	})

	t.Run("query failure", func(t *testing.T) {
		st := new(mockRunStore)
		queryErr := errors.New("relation \"runs\" does not exist")
		st.On("ListRuns", mock.Anything, 10).Return(nil, queryErr).Once()
		provider := &stubStoreProvider{store: st}

		root, _ := newTestRoot(t, dependencies{stores: provider}, "history")
		err := root.ExecuteContext(context.Background())
		assert.ErrorIs(t, err, queryErr)
		assert.Equal(t, 1, provider.cleanups, "cleanup runs on failure too")
	})
}

func TestDefaultStoreProvider_RequiresURL(t *testing.T) {
	cfg := config.NewDefaultConfig()
	_, cleanup, err := NewStoreProvider().Create(context.Background(), cfg)
	require.Error(t, err)
	assert.Nil(t, cleanup)
	assert.Contains(t, err.Error(), "GAUNTLET_DATABASE_URL")
}
