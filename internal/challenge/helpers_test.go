package challenge_test

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/xkilldash9x/gauntlet/api/schemas"
	"github.com/xkilldash9x/gauntlet/internal/config"
)

// fakeClock only moves when something sleeps or acts.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps int
	// beforeSleep, when set, runs at the start of every Sleep with its 1-based count.
	beforeSleep func(n int)
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 10, 26, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.sleeps++
	n, hook := c.sleeps, c.beforeSleep
	c.mu.Unlock()
	if hook != nil {
		hook(n)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	c.Advance(d)
	return nil
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakePage is a scripted PageDriver. Controls are keyed by their CSS query.
type fakePage struct {
	mu          sync.Mutex
	clock       *fakeClock
	loadCost    time.Duration
	actionCost  time.Duration
	loadErr     error
	visible     map[string]bool
	probeErrs   map[string]error
	actionErrs  map[string]error
	calls       []string
	pressedKeys []string
}

func newFakePage(clock *fakeClock, visibleQueries ...string) *fakePage {
	p := &fakePage{
		clock:      clock,
		visible:    map[string]bool{},
		probeErrs:  map[string]error{},
		actionErrs: map[string]error{},
	}
	for _, q := range visibleQueries {
		p.visible[q] = true
	}
	return p
}

func (p *fakePage) record(call string) {
	p.mu.Lock()
	p.calls = append(p.calls, call)
	p.mu.Unlock()
}

func (p *fakePage) act(call string, cost time.Duration) error {
	p.record(call)
	if p.clock != nil {
		p.clock.Advance(cost)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	method, _, _ := strings.Cut(call, ":")
	return p.actionErrs[method]
}

func (p *fakePage) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func (p *fakePage) LoadPage(_ context.Context, url string) error {
	p.record("load:" + url)
	if p.clock != nil {
		p.clock.Advance(p.loadCost)
	}
	return p.loadErr
}

func (p *fakePage) ProbeVisible(_ context.Context, loc schemas.Locator) (bool, error) {
	p.record("probe:" + loc.String())
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.probeErrs[loc.Query]; err != nil {
		return false, err
	}
	return p.visible[loc.Query], nil
}

func (p *fakePage) Click(_ context.Context, loc schemas.Locator) error {
	return p.act("click:"+loc.String(), p.actionCost)
}

func (p *fakePage) Fill(_ context.Context, loc schemas.Locator, text string) error {
	return p.act("fill:"+loc.String()+"="+text, p.actionCost)
}

func (p *fakePage) Submit(_ context.Context, loc schemas.Locator) error {
	return p.act("submit:"+loc.String(), p.actionCost)
}

func (p *fakePage) SetChecked(_ context.Context, loc schemas.Locator, _ bool) error {
	return p.act("check:"+loc.String(), p.actionCost)
}

func (p *fakePage) SelectOptionByIndex(_ context.Context, loc schemas.Locator, _ int) error {
	return p.act("select:"+loc.String(), p.actionCost)
}

func (p *fakePage) PressKey(_ context.Context, key string) error {
	p.mu.Lock()
	p.pressedKeys = append(p.pressedKeys, key)
	p.mu.Unlock()
	return p.act("press:"+key, p.actionCost)
}

// defaultChallengeConfig returns the production defaults.
func defaultChallengeConfig() config.ChallengeConfig {
	return config.NewDefaultConfig().Challenge
}

const (
	qButton   = "button:not([disabled])"
	qText     = `input[type="text"]`
	qCheckbox = `input[type="checkbox"]`
	qSelect   = "select"
)
