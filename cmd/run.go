package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/gauntlet/api/schemas"
	"github.com/xkilldash9x/gauntlet/internal/browser"
	"github.com/xkilldash9x/gauntlet/internal/challenge"
	"github.com/xkilldash9x/gauntlet/internal/config"
	"github.com/xkilldash9x/gauntlet/internal/observability"
	"github.com/xkilldash9x/gauntlet/internal/reporting"
	"github.com/xkilldash9x/gauntlet/internal/results"
)

const shutdownTimeout = 15 * time.Second

// launcherFactory starts a browser backend.
type launcherFactory func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (schemas.BrowserLauncher, error)

var defaultLauncher launcherFactory = browser.New

// runFlagBindings maps run flags onto their config keys.
var runFlagBindings = map[string]string{
	"slots":    "challenge.slots",
	"timeout":  "challenge.timeout",
	"headless": "browser.headless",
	"driver":   "browser.driver",
	"output":   "output.path",
	"format":   "output.format",
}

// newRunCmd creates and configures the `run` command.
func newRunCmd(v *viper.Viper, deps dependencies) *cobra.Command {
	var persist bool

	runCmd := &cobra.Command{
		Use:   "run [url]",
		Short: "Runs the challenge sequence against a page",
		Long: `Loads the challenge page, presses the start control when present, then resolves
each challenge slot in order until all slots are done or the time budget is spent.
Results are written to the configured output and, with --persist, to the database.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				cfg.Challenge.URL = args[0]
			}
			return runGauntlet(ctx, observability.GetLogger(), cfg, persist, deps, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	flags := runCmd.Flags()
	flags.Int("slots", 0, "Number of challenge slots to attempt. (Overrides config/env)")
	flags.Duration("timeout", 0, "Total time budget for the run, e.g. 5m. (Overrides config/env)")
	flags.Bool("headless", true, "Run the browser without a visible window. (Overrides config/env)")
	flags.String("driver", "", "Browser backend: chromedp or playwright. (Overrides config/env)")
	flags.StringP("output", "o", "", "Output file path for results, or 'stdout'. (Overrides config/env)")
	flags.StringP("format", "f", "", "Format for the results file: json or text. (Overrides config/env)")
	flags.BoolVar(&persist, "persist", false, "Also store the run in the database (requires GAUNTLET_DATABASE_URL).")

	for name, key := range runFlagBindings {
		_ = v.BindPFlag(key, flags.Lookup(name))
	}
	return runCmd
}

// runGauntlet contains the core, testable logic of the run command.
func runGauntlet(
	ctx context.Context,
	logger *zap.Logger,
	cfg *config.Config,
	persist bool,
	deps dependencies,
	out, errOut io.Writer,
) (err error) {
	// Shutdown and result delivery must still happen after an interrupt.
	detached := context.WithoutCancel(ctx)

	launcher, err := deps.launch(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(detached, shutdownTimeout)
		defer cancel()
		if shutdownErr := launcher.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn("Error during browser shutdown", zap.Error(shutdownErr))
		}
	}()

	page, err := launcher.NewPage(ctx)
	if err != nil {
		return fmt.Errorf("failed to open page: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(detached, shutdownTimeout)
		defer cancel()
		if closeErr := page.Close(closeCtx); closeErr != nil {
			logger.Debug("Error closing page", zap.Error(closeErr))
		}
	}()

	// When the results go to stdout they own it; progress and the banner move to stderr.
	console := out
	if displayPath(cfg.Output.Path) == "" {
		console = errOut
	}

	progress := reporting.NewProgress(console)
	resolver := challenge.NewResolver(cfg.Challenge, challenge.WithResolverLogger(logger))
	opts := []challenge.RunnerOption{
		challenge.WithRunnerLogger(logger),
		challenge.WithObserver(progress),
	}
	if loc, ok := cfg.Challenge.StartLocator(); ok {
		opts = append(opts, challenge.WithStartControl(loc))
	}
	runner := challenge.NewRunner(resolver, opts...)

	logger.Info("Starting run",
		zap.String("url", cfg.Challenge.URL),
		zap.Int("slots", cfg.Challenge.Slots),
		zap.Duration("budget", cfg.Challenge.Timeout),
		zap.String("driver", cfg.Browser.Driver),
	)

	metrics, err := runner.Execute(ctx, page, cfg.Challenge.URL, cfg.Challenge.Slots, cfg.Challenge.Timeout)
	if err != nil {
		return fmt.Errorf("run aborted: %w", err)
	}
	progress.Finish(metrics)

	summary := results.Summarize(metrics, cfg.Challenge.Slots, cfg.Challenge.URL, results.CostModelFromConfig(cfg.Metrics))
	if err := deliver(detached, logger, cfg, summary, persist, deps.stores); err != nil {
		return err
	}

	reporting.PrintBanner(console, summary, displayPath(cfg.Output.Path))

	if metrics.StopReason == schemas.StopCanceled {
		return fmt.Errorf("run interrupted after %d slots: %w", metrics.Processed(), context.Canceled)
	}
	return nil
}

// deliver writes summary to the results file and, when persist is set, the store.
// A store that cannot be reached does not keep the results file from being written.
func deliver(
	ctx context.Context,
	logger *zap.Logger,
	cfg *config.Config,
	summary *schemas.RunSummary,
	persist bool,
	stores storeProvider,
) error {
	reporter, err := reporting.New(cfg.Output.Format, cfg.Output.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize reporter: %w", err)
	}
	defer func() {
		if err := reporter.Close(); err != nil {
			logger.Warn("Failed to close reporter cleanly.", zap.Error(err))
		}
	}()

	sinks := []schemas.SummarySink{reporter}
	var storeErr error
	if persist {
		st, cleanup, err := stores.Create(ctx, cfg)
		if err != nil {
			storeErr = fmt.Errorf("failed to initialize store: %w", err)
			logger.Error("Run will not be persisted", zap.Error(err))
		} else {
			if cleanup != nil {
				defer cleanup()
			}
			sinks = append(sinks, st)
		}
	}

	if err := reporting.Publish(ctx, summary, sinks...); err != nil {
		return errors.Join(storeErr, fmt.Errorf("failed to publish results: %w", err))
	}
	logger.Info("Results written", zap.String("run_id", summary.RunID), zap.String("path", cfg.Output.Path))
	return storeErr
}

func displayPath(path string) string {
	if path == "" || path == "stdout" {
		return ""
	}
	return path
}
