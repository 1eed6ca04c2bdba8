package schemas

import (
	"context"
)

// Locator addresses the first element, in document order, that matches Query and,
// when HasText is set, whose text content contains HasText.
type Locator struct {
	Query   string `json:"query" mapstructure:"query" yaml:"query"`
	HasText string `json:"hasText,omitempty" mapstructure:"has_text" yaml:"has_text,omitempty"`
}

func (l Locator) String() string {
	if l.HasText == "" {
		return l.Query
	}
	return l.Query + `:has-text("` + l.HasText + `")`
}

// PageDriver is the set of primitives the challenge loop needs from a live page.
// Every call may block on the rendering layer and every call may fail.
type PageDriver interface {
	// LoadPage navigates to url and waits until the page is ready for interaction.
	LoadPage(ctx context.Context, url string) error
	// ProbeVisible reports whether the element addressed by loc exists and is visible.
	ProbeVisible(ctx context.Context, loc Locator) (bool, error)
	// Click activates the element addressed by loc.
	Click(ctx context.Context, loc Locator) error
	// Fill replaces the value of a text-entry control.
	Fill(ctx context.Context, loc Locator, text string) error
	// Submit presses the confirm key on the element addressed by loc.
	Submit(ctx context.Context, loc Locator) error
	// SetChecked puts a boolean toggle into the requested state.
	SetChecked(ctx context.Context, loc Locator, checked bool) error
	// SelectOptionByIndex chooses the option at index (0-based) of a select control.
	SelectOptionByIndex(ctx context.Context, loc Locator, index int) error
	// PressKey dispatches key to the page without targeting an element.
	PressKey(ctx context.Context, key string) error
}

// Page is a PageDriver bound to one browser tab.
type Page interface {
	PageDriver
	Close(ctx context.Context) error
}

// BrowserLauncher owns a browser process and hands out pages.
type BrowserLauncher interface {
	NewPage(ctx context.Context) (Page, error)
	Shutdown(ctx context.Context) error
}
