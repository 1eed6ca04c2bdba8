package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/gauntlet/api/schemas"
)

// playwrightPage adapts a playwright page to schemas.Page. Playwright calls take no
// context, so ctx is checked before each call and timeouts come from the page
// defaults set at creation.
type playwrightPage struct {
	page     playwright.Page
	settings pageSettings
	pacer    *pacer
	logger   *zap.Logger

	closeOnce sync.Once
	done      func()
}

var _ schemas.Page = (*playwrightPage)(nil)

func (p *playwrightPage) locate(loc schemas.Locator) playwright.Locator {
	var opts []playwright.PageLocatorOptions
	if loc.HasText != "" {
		opts = append(opts, playwright.PageLocatorOptions{HasText: loc.HasText})
	}
	return p.page.Locator(loc.Query, opts...).First()
}

// begin checks ctx and waits for the pacer before a mutation.
func (p *playwrightPage) begin(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.pacer.Wait(ctx)
}

func (p *playwrightPage) LoadPage(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(float64(p.settings.navigationTimeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", url, err)
	}
	if err := p.locate(schemas.Locator{Query: "body"}).WaitFor(); err != nil {
		return fmt.Errorf("failed to load %s: %w", url, err)
	}
	if p.settings.postLoadWait > 0 {
		p.page.WaitForTimeout(float64(p.settings.postLoadWait.Milliseconds()))
	}
	p.logger.Debug("Page loaded.", zap.String("url", url))
	return nil
}

func (p *playwrightPage) ProbeVisible(ctx context.Context, loc schemas.Locator) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	visible, err := p.locate(loc).IsVisible()
	if err != nil {
		return false, fmt.Errorf("probe %s: %w", loc, err)
	}
	return visible, nil
}

func (p *playwrightPage) Click(ctx context.Context, loc schemas.Locator) error {
	if err := p.begin(ctx); err != nil {
		return err
	}
	if err := p.locate(loc).Click(); err != nil {
		return fmt.Errorf("click %s: %w", loc, err)
	}
	return nil
}

func (p *playwrightPage) Fill(ctx context.Context, loc schemas.Locator, text string) error {
	if err := p.begin(ctx); err != nil {
		return err
	}
	if err := p.locate(loc).Fill(text); err != nil {
		return fmt.Errorf("fill %s: %w", loc, err)
	}
	return nil
}

func (p *playwrightPage) Submit(ctx context.Context, loc schemas.Locator) error {
	if err := p.begin(ctx); err != nil {
		return err
	}
	if err := p.locate(loc).Press(p.settings.confirmKey); err != nil {
		return fmt.Errorf("submit %s: %w", loc, err)
	}
	return nil
}

func (p *playwrightPage) SetChecked(ctx context.Context, loc schemas.Locator, checked bool) error {
	if err := p.begin(ctx); err != nil {
		return err
	}
	if err := p.locate(loc).SetChecked(checked); err != nil {
		return fmt.Errorf("set checked %s: %w", loc, err)
	}
	return nil
}

func (p *playwrightPage) SelectOptionByIndex(ctx context.Context, loc schemas.Locator, index int) error {
	if err := p.begin(ctx); err != nil {
		return err
	}
	target := p.locate(loc)
	count, err := target.Locator("option").Count()
	if err != nil {
		return fmt.Errorf("select %s: %w", loc, err)
	}
	if count <= index {
		return fmt.Errorf("select %s: index %d of %d options: %w", loc, index, count, ErrOptionIndexOutOfRange)
	}
	if _, err := target.SelectOption(playwright.SelectOptionValues{Indexes: &[]int{index}}); err != nil {
		return fmt.Errorf("select %s: %w", loc, err)
	}
	return nil
}

func (p *playwrightPage) PressKey(ctx context.Context, key string) error {
	if err := p.begin(ctx); err != nil {
		return err
	}
	if err := p.page.Keyboard().Press(key); err != nil {
		return fmt.Errorf("press %q: %w", key, err)
	}
	return nil
}

// Close closes the page. It is safe to call more than once.
func (p *playwrightPage) Close(_ context.Context) error {
	var err error
	p.closeOnce.Do(func() {
		if cerr := p.page.Close(); cerr != nil {
			err = fmt.Errorf("failed to close page: %w", cerr)
		}
		if p.done != nil {
			p.done()
		}
	})
	return err
}
