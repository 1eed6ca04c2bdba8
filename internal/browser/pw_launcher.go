package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/gauntlet/api/schemas"
	"github.com/xkilldash9x/gauntlet/internal/config"
)

const (
	playwrightInstallTimeout = 5 * time.Minute
	playwrightLaunchTimeout  = 60 * time.Second
)

// playwrightLauncher owns a playwright driver process and one Chromium instance.
type playwrightLauncher struct {
	logger   *zap.Logger
	cfg      *config.Config
	settings pageSettings

	pw      *playwright.Playwright
	browser playwright.Browser

	pages        sync.WaitGroup
	shutdownOnce sync.Once
}

func newPlaywrightLauncher(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*playwrightLauncher, error) {
	l := &playwrightLauncher{
		logger:   logger.Named("playwright"),
		cfg:      cfg,
		settings: newPageSettings(cfg),
	}

	if cfg.Browser.InstallBrowsers {
		if err := l.ensureInstallation(ctx); err != nil {
			return nil, err
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright driver: %w", err)
	}
	l.pw = pw

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Browser.Headless),
		Args:     playwrightArgs(cfg.Browser),
		Timeout:  playwright.Float(float64(playwrightLaunchTimeout.Milliseconds())),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to launch browser instance: %w", err)
	}
	l.browser = browser

	l.logger.Info("Browser launched successfully.", zap.String("browser_version", browser.Version()))
	return l, nil
}

// ensureInstallation downloads Chromium for playwright. Install blocks without a
// context, so it runs in a goroutine bounded by playwrightInstallTimeout.
func (l *playwrightLauncher) ensureInstallation(ctx context.Context) error {
	l.logger.Info("Verifying Playwright browser installation...")
	installCtx, cancel := context.WithTimeout(ctx, playwrightInstallTimeout)
	defer cancel()

	result := make(chan error, 1)
	go func() {
		result <- playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}})
	}()

	select {
	case err := <-result:
		if err != nil {
			return fmt.Errorf("failed to install playwright browsers: %w", err)
		}
		return nil
	case <-installCtx.Done():
		return fmt.Errorf("timeout waiting for Playwright installation: %w", installCtx.Err())
	}
}

// NewPage opens a new page in its own browser context.
func (l *playwrightLauncher) NewPage(ctx context.Context) (schemas.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts := playwright.BrowserNewPageOptions{}
	if w, h := l.cfg.Browser.Viewport["width"], l.cfg.Browser.Viewport["height"]; w > 0 && h > 0 {
		opts.Viewport = &playwright.Size{Width: w, Height: h}
	}
	page, err := l.browser.NewPage(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	page.SetDefaultTimeout(float64(l.settings.actionTimeout.Milliseconds()))
	page.SetDefaultNavigationTimeout(float64(l.settings.navigationTimeout.Milliseconds()))

	l.pages.Add(1)
	return &playwrightPage{
		page:     page,
		settings: l.settings,
		pacer:    newPacer(l.cfg.Browser.ActionRate),
		logger:   l.logger.Named("page"),
		done:     l.pages.Done,
	}, nil
}

// Shutdown waits for open pages, within ctx, then closes the browser and driver.
func (l *playwrightLauncher) Shutdown(ctx context.Context) error {
	var shutdownErr error
	l.shutdownOnce.Do(func() {
		l.logger.Info("Browser shutdown initiated.")

		done := make(chan struct{})
		go func() {
			l.pages.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			l.logger.Warn("Timeout waiting for pages to close. Proceeding with forceful shutdown.", zap.Error(ctx.Err()))
		}

		if err := l.browser.Close(); err != nil {
			l.logger.Error("Failed to close browser instance.", zap.Error(err))
			shutdownErr = fmt.Errorf("failed to close browser: %w", err)
		}
		if err := l.pw.Stop(); err != nil {
			l.logger.Error("Failed to stop Playwright driver.", zap.Error(err))
			if shutdownErr == nil {
				shutdownErr = fmt.Errorf("failed to stop playwright driver: %w", err)
			}
		}
	})
	return shutdownErr
}
