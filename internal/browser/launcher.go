// Package browser provides the page drivers the challenge loop runs against: a
// chromedp backend (default) and a playwright-go backend.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/gauntlet/api/schemas"
	"github.com/xkilldash9x/gauntlet/internal/config"
)

var (
	// ErrElementNotFound is returned when no element matches a locator.
	ErrElementNotFound = errors.New("element not found")
	// ErrOptionIndexOutOfRange is returned when a select has too few options.
	ErrOptionIndexOutOfRange = errors.New("option index out of range")
	// ErrUnknownKey is returned when a key name cannot be dispatched.
	ErrUnknownKey = errors.New("unknown key")
)

const (
	defaultActionTimeout     = 10 * time.Second
	defaultNavigationTimeout = 60 * time.Second
	launchProbeTimeout       = 30 * time.Second
)

// New starts the browser backend selected by cfg.Browser.Driver.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (schemas.BrowserLauncher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch strings.ToLower(cfg.Browser.Driver) {
	case "", config.DriverChromedp:
		l, err := newCDPLauncher(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return l, nil
	case config.DriverPlaywright:
		l, err := newPlaywrightLauncher(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return l, nil
	default:
		return nil, fmt.Errorf("unsupported browser driver %q", cfg.Browser.Driver)
	}
}

// pageSettings is the per-page configuration shared by both backends.
type pageSettings struct {
	actionTimeout     time.Duration
	navigationTimeout time.Duration
	postLoadWait      time.Duration
	confirmKey        string
}

func newPageSettings(cfg *config.Config) pageSettings {
	s := pageSettings{
		actionTimeout:     cfg.Browser.ActionTimeout,
		navigationTimeout: cfg.Network.NavigationTimeout,
		postLoadWait:      cfg.Network.PostLoadWait,
		confirmKey:        cfg.Challenge.ConfirmKey,
	}
	if s.actionTimeout <= 0 {
		s.actionTimeout = defaultActionTimeout
	}
	if s.navigationTimeout <= 0 {
		s.navigationTimeout = defaultNavigationTimeout
	}
	if s.confirmKey == "" {
		s.confirmKey = "Enter"
	}
	return s
}
