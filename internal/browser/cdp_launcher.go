package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/gauntlet/api/schemas"
	"github.com/xkilldash9x/gauntlet/internal/config"
)

// cdpLauncher owns one Chromium process driven over the DevTools protocol.
type cdpLauncher struct {
	logger   *zap.Logger
	cfg      *config.Config
	settings pageSettings

	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	// pages tracks open tabs so Shutdown can wait for them.
	pages sync.WaitGroup
}

func newCDPLauncher(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*cdpLauncher, error) {
	l := &cdpLauncher{
		logger:   logger.Named("chromedp"),
		cfg:      cfg,
		settings: newPageSettings(cfg),
	}

	l.logger.Info("Initializing browser allocator...", zap.Bool("headless", cfg.Browser.Headless))

	// The process outlives the caller's context; Shutdown ends it.
	l.allocCtx, l.allocCancel = chromedp.NewExecAllocator(context.WithoutCancel(ctx), buildAllocatorOptions(cfg.Browser)...)
	l.browserCtx, l.browserCancel = chromedp.NewContext(l.allocCtx,
		chromedp.WithLogf(l.logger.Sugar().Debugf),
		chromedp.WithErrorf(l.logger.Sugar().Debugf))

	// The first Run allocates the process and is tied to the context it gets, so it
	// must not carry a deadline.
	if err := chromedp.Run(l.browserCtx); err != nil {
		l.browserCancel()
		l.allocCancel()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	probeCtx, cancelProbe := context.WithTimeout(l.browserCtx, launchProbeTimeout)
	defer cancelProbe()
	probeCtx, cancelCombined := CombineContext(probeCtx, ctx)
	defer cancelCombined()
	if err := chromedp.Run(probeCtx, chromedp.Navigate("about:blank")); err != nil {
		l.browserCancel()
		l.allocCancel()
		return nil, fmt.Errorf("browser failed to start or respond: %w", err)
	}

	l.logger.Info("Browser launched successfully and is responsive.")
	return l, nil
}

// NewPage opens a new tab.
func (l *cdpLauncher) NewPage(ctx context.Context) (schemas.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tabCtx, tabCancel := chromedp.NewContext(l.browserCtx)

	// Same as the launch: the target is bound to the context of its first Run.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}

	l.pages.Add(1)
	return &cdpPage{
		tabCtx:   tabCtx,
		cancel:   tabCancel,
		settings: l.settings,
		pacer:    newPacer(l.cfg.Browser.ActionRate),
		logger:   l.logger.Named("page"),
		done:     l.pages.Done,
	}, nil
}

// Shutdown waits for open tabs to close, within ctx, and then ends the process.
func (l *cdpLauncher) Shutdown(ctx context.Context) error {
	l.logger.Info("Browser shutdown initiated. Waiting for open pages to close...")

	done := make(chan struct{})
	go func() {
		l.pages.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		l.logger.Warn("Shutdown deadline exceeded. Forcing browser termination.", zap.Error(ctx.Err()))
	}

	l.browserCancel()
	l.allocCancel()
	<-l.allocCtx.Done()
	l.logger.Info("Browser process terminated.")
	return nil
}
