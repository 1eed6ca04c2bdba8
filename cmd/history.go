package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/gauntlet/api/schemas"
	"github.com/xkilldash9x/gauntlet/internal/config"
	"github.com/xkilldash9x/gauntlet/internal/observability"
	"github.com/xkilldash9x/gauntlet/internal/store"
)

// runStore is the persistence surface the commands use.
type runStore interface {
	schemas.SummarySink
	ListRuns(ctx context.Context, limit int) ([]schemas.RunHistory, error)
}

// storeProvider creates a runStore. Tests inject a mock in place of a live database.
type storeProvider interface {
	// Create returns the store, a cleanup function releasing its resources, and an
	// error if the store could not be reached.
	Create(ctx context.Context, cfg *config.Config) (runStore, func(), error)
}

// defaultStoreProvider connects to PostgreSQL.
type defaultStoreProvider struct{}

// NewStoreProvider creates the production store provider.
func NewStoreProvider() storeProvider {
	return &defaultStoreProvider{}
}

func (p *defaultStoreProvider) Create(ctx context.Context, cfg *config.Config) (runStore, func(), error) {
	logger := observability.GetLogger()
	if cfg.Database.URL == "" {
		return nil, nil, fmt.Errorf("database URL is not configured (GAUNTLET_DATABASE_URL)")
	}

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	st, err := store.New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	if err := st.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	cleanup := func() {
		pool.Close()
		logger.Debug("Database connection pool closed.")
	}
	return st, cleanup, nil
}

// newHistoryCmd creates and configures the `history` command.
func newHistoryCmd(provider storeProvider) *cobra.Command {
	var limit int

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Lists previously persisted runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			return runHistory(ctx, observability.GetLogger(), cfg, limit, provider, cmd.OutOrStdout())
		},
	}

	historyCmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of runs to list.")
	return historyCmd
}

// runHistory contains the core, testable logic of the history command.
func runHistory(ctx context.Context, logger *zap.Logger, cfg *config.Config, limit int, provider storeProvider, out io.Writer) error {
	st, cleanup, err := provider.Create(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	if cleanup != nil {
		defer cleanup()
	}

	runs, err := st.ListRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	logger.Debug("Listed runs", zap.Int("count", len(runs)))

	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}

	fmt.Fprintf(out, "%-36s  %-20s  %-7s  %-9s  %-15s\n", "RUN", "COMPLETED", "SOLVED", "TIME", "STOPPED")
	for _, r := range runs {
		fmt.Fprintf(out, "%-36s  %-20s  %-7s  %-9s  %-15s\n",
			r.RunID,
			r.CompletedAt.UTC().Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%d/%d", r.Solved, r.Total),
			fmt.Sprintf("%.1fs", float64(r.TotalTimeMs)/1000),
			r.StopReason,
		)
	}
	return nil
}
