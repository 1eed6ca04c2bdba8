package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/gauntlet/api/schemas"
)

// cdpPage drives a single tab. Actions address elements through a temporary
// attribute set by tagScript, so every action works on the first match only.
type cdpPage struct {
	tabCtx   context.Context
	cancel   context.CancelFunc
	settings pageSettings
	pacer    *pacer
	logger   *zap.Logger

	closeOnce sync.Once
	done      func()
}

var _ schemas.Page = (*cdpPage)(nil)

// run executes actions in the tab, bounded by ctx and timeout.
func (p *cdpPage) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := CombineContext(p.tabCtx, ctx)
	defer cancel()
	runCtx, cancelTimeout := context.WithTimeout(runCtx, timeout)
	defer cancelTimeout()
	return chromedp.Run(runCtx, actions...)
}

func (p *cdpPage) LoadPage(ctx context.Context, url string) error {
	actions := []chromedp.Action{
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if err := p.run(ctx, p.settings.navigationTimeout, actions...); err != nil {
		return fmt.Errorf("failed to load %s: %w", url, err)
	}
	if p.settings.postLoadWait > 0 {
		if err := p.run(ctx, p.settings.postLoadWait+p.settings.actionTimeout, chromedp.Sleep(p.settings.postLoadWait)); err != nil {
			return fmt.Errorf("interrupted while waiting for %s to settle: %w", url, err)
		}
	}
	p.logger.Debug("Page loaded.", zap.String("url", url))
	return nil
}

func (p *cdpPage) ProbeVisible(ctx context.Context, loc schemas.Locator) (bool, error) {
	script, err := visibilityScript(loc)
	if err != nil {
		return false, err
	}
	var visible bool
	if err := p.run(ctx, p.settings.actionTimeout, chromedp.Evaluate(script, &visible)); err != nil {
		return false, fmt.Errorf("probe %s: %w", loc, err)
	}
	return visible, nil
}

// tag marks the first match of loc and returns a selector for it.
func (p *cdpPage) tag(ctx context.Context, loc schemas.Locator) (string, error) {
	token := uuid.NewString()
	script, err := tagScript(loc, token)
	if err != nil {
		return "", err
	}
	var found bool
	if err := p.run(ctx, p.settings.actionTimeout, chromedp.Evaluate(script, &found)); err != nil {
		return "", fmt.Errorf("resolve %s: %w", loc, err)
	}
	if !found {
		return "", fmt.Errorf("resolve %s: %w", loc, ErrElementNotFound)
	}
	return targetSelector(token), nil
}

// mutate paces, tags loc and runs the actions built for the tagged selector.
func (p *cdpPage) mutate(ctx context.Context, op string, loc schemas.Locator, build func(sel string) []chromedp.Action) error {
	if err := p.pacer.Wait(ctx); err != nil {
		return err
	}
	sel, err := p.tag(ctx, loc)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := p.run(ctx, p.settings.actionTimeout, build(sel)...); err != nil {
		return fmt.Errorf("%s %s: %w", op, loc, err)
	}
	return nil
}

func (p *cdpPage) Click(ctx context.Context, loc schemas.Locator) error {
	return p.mutate(ctx, "click", loc, func(sel string) []chromedp.Action {
		return []chromedp.Action{chromedp.Click(sel, chromedp.ByQuery)}
	})
}

func (p *cdpPage) Fill(ctx context.Context, loc schemas.Locator, text string) error {
	return p.mutate(ctx, "fill", loc, func(sel string) []chromedp.Action {
		return []chromedp.Action{
			chromedp.Focus(sel, chromedp.ByQuery),
			chromedp.SetValue(sel, "", chromedp.ByQuery),
			chromedp.SendKeys(sel, text, chromedp.ByQuery),
		}
	})
}

func (p *cdpPage) Submit(ctx context.Context, loc schemas.Locator) error {
	return p.mutate(ctx, "submit", loc, func(sel string) []chromedp.Action {
		return []chromedp.Action{chromedp.SendKeys(sel, sendKeysSequence(p.settings.confirmKey), chromedp.ByQuery)}
	})
}

func (p *cdpPage) SetChecked(ctx context.Context, loc schemas.Locator, checked bool) error {
	return p.mutate(ctx, "set checked", loc, func(sel string) []chromedp.Action {
		return []chromedp.Action{chromedp.ActionFunc(func(ctx context.Context) error {
			script, err := checkedScript(sel)
			if err != nil {
				return err
			}
			var current bool
			if err := chromedp.Evaluate(script, &current).Do(ctx); err != nil {
				return err
			}
			if current == checked {
				return nil
			}
			return chromedp.Click(sel, chromedp.ByQuery).Do(ctx)
		})}
	})
}

func (p *cdpPage) SelectOptionByIndex(ctx context.Context, loc schemas.Locator, index int) error {
	var res selectResult
	err := p.mutate(ctx, "select", loc, func(sel string) []chromedp.Action {
		script, err := selectByIndexScript(sel, index)
		if err != nil {
			return []chromedp.Action{chromedp.ActionFunc(func(context.Context) error { return err })}
		}
		return []chromedp.Action{chromedp.Evaluate(script, &res)}
	})
	if err != nil {
		return err
	}
	if !res.Found {
		return fmt.Errorf("select %s: %w", loc, ErrElementNotFound)
	}
	if !res.Selected {
		return fmt.Errorf("select %s: index %d of %d options: %w", loc, index, res.Options, ErrOptionIndexOutOfRange)
	}
	return nil
}

// PressKey dispatches a key down/up pair to whatever has focus.
func (p *cdpPage) PressKey(ctx context.Context, key string) error {
	def, ok := lookupKey(key)
	if !ok {
		return fmt.Errorf("press %q: %w", key, ErrUnknownKey)
	}
	if err := p.pacer.Wait(ctx); err != nil {
		return err
	}
	dispatch := chromedp.ActionFunc(func(ctx context.Context) error {
		down := input.DispatchKeyEvent(input.KeyDown).
			WithKey(def.Key).
			WithCode(def.Code).
			WithWindowsVirtualKeyCode(def.KeyCode).
			WithNativeVirtualKeyCode(def.KeyCode)
		if def.Text != "" {
			down = down.WithText(def.Text).WithUnmodifiedText(def.Text)
		}
		if err := down.Do(ctx); err != nil {
			return err
		}
		return input.DispatchKeyEvent(input.KeyUp).
			WithKey(def.Key).
			WithCode(def.Code).
			WithWindowsVirtualKeyCode(def.KeyCode).
			WithNativeVirtualKeyCode(def.KeyCode).
			Do(ctx)
	})
	if err := p.run(ctx, p.settings.actionTimeout, dispatch); err != nil {
		return fmt.Errorf("press %q: %w", key, err)
	}
	return nil
}

// Close closes the tab. It is safe to call more than once.
func (p *cdpPage) Close(_ context.Context) error {
	var err error
	p.closeOnce.Do(func() {
		if cerr := chromedp.Cancel(p.tabCtx); cerr != nil && !errors.Is(cerr, context.Canceled) {
			err = fmt.Errorf("failed to close tab: %w", cerr)
		}
		p.cancel()
		if p.done != nil {
			p.done()
		}
	})
	return err
}
