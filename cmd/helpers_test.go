package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/gauntlet/api/schemas"
	"github.com/xkilldash9x/gauntlet/internal/config"
)

// newTestRoot returns an isolated command tree writing to a buffer. The working
// directory is switched to an empty temp dir so no stray config.yaml or .env is read.
func newTestRoot(t *testing.T, deps dependencies, args ...string) (*cobra.Command, *bytes.Buffer) {
	t.Helper()
	t.Chdir(t.TempDir())

	root := newRootCommand(viper.New(), deps)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	return root, &out
}

// mockRunStore implements runStore.
type mockRunStore struct {
	mock.Mock
}

func (m *mockRunStore) Publish(ctx context.Context, summary *schemas.RunSummary) error {
	return m.Called(ctx, summary).Error(0)
}

func (m *mockRunStore) ListRuns(ctx context.Context, limit int) ([]schemas.RunHistory, error) {
	args := m.Called(ctx, limit)
	runs, _ := args.Get(0).([]schemas.RunHistory)
	return runs, args.Error(1)
}

// stubStoreProvider hands out a fixed store or error and counts cleanups.
type stubStoreProvider struct {
	store    runStore
	err      error
	created  int
	cleanups int
}

func (p *stubStoreProvider) Create(context.Context, *config.Config) (runStore, func(), error) {
	p.created++
	if p.err != nil {
		return nil, nil, p.err
	}
	return p.store, func() { p.cleanups++ }, nil
}
