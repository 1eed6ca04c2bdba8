package browser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/gauntlet/api/schemas"
	"github.com/xkilldash9x/gauntlet/internal/config"
)

const fixturePage = `<!doctype html>
<html><body>
<button id="start">START</button>
<button id="disabled" disabled>Disabled</button>
<button id="hidden" style="display:none">Hidden</button>
<input type="text" id="answer">
<input type="checkbox" id="agree">
<select id="single"><option>only</option></select>
<select id="pick"><option>a</option><option>b</option></select>
<div id="log"></div>
<script>
  const log = (m) => { document.getElementById("log").textContent += m + ";"; };
  document.getElementById("start").addEventListener("click", () => log("start"));
  document.getElementById("answer").addEventListener("keydown", (e) => { if (e.key === "Enter") log("submit:" + e.target.value); });
  document.getElementById("pick").addEventListener("change", (e) => log("pick:" + e.target.selectedIndex));
  document.addEventListener("keyup", (e) => { if (e.key === "Enter") log("enter"); });
</script>
</body></html>`

// serveFixture serves fixturePage for the lifetime of the test and returns its URL.
func serveFixture(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(fixturePage))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func fixtureConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.Network.PostLoadWait = 0
	cfg.Browser.ActionTimeout = 5 * time.Second
	return cfg
}

// newTestCDPPage launches Chromium against a fixture server, skipping when no
// browser is available.
func newTestCDPPage(t *testing.T) (schemas.Page, string) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser integration test in short mode")
	}

	url := serveFixture(t)
	cfg := fixtureConfig()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	t.Cleanup(cancel)

	launcher, err := New(ctx, cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Skipf("chromium not available: %v", err)
	}
	t.Cleanup(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = launcher.Shutdown(shutdownCtx)
	})

	page, err := launcher.NewPage(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = page.Close(context.Background()) })

	require.NoError(t, page.LoadPage(ctx, url))
	return page, url
}

func readLog(t *testing.T, page schemas.Page) string {
	t.Helper()
	cp, ok := page.(*cdpPage)
	require.True(t, ok)
	var text string
	require.NoError(t, cp.run(context.Background(), 5*time.Second, chromedp.Text("#log", &text, chromedp.ByQuery)))
	return text
}

func TestCDPPage_Integration(t *testing.T) {
	page, _ := newTestCDPPage(t)
	ctx := context.Background()

	t.Run("visibility", func(t *testing.T) {
		visible, err := page.ProbeVisible(ctx, schemas.Locator{Query: "button", HasText: "START"})
		require.NoError(t, err)
		assert.True(t, visible)

		visible, err = page.ProbeVisible(ctx, schemas.Locator{Query: "#hidden"})
		require.NoError(t, err)
		assert.False(t, visible)

		visible, err = page.ProbeVisible(ctx, schemas.Locator{Query: "textarea"})
		require.NoError(t, err)
		assert.False(t, visible, "a missing element is not visible")
	})

	t.Run("click first match with text", func(t *testing.T) {
		require.NoError(t, page.Click(ctx, schemas.Locator{Query: "button", HasText: "START"}))
		assert.Contains(t, readLog(t, page), "start;")
	})

	t.Run("fill and submit", func(t *testing.T) {
		loc := schemas.Locator{Query: `input[type="text"]`}
		require.NoError(t, page.Fill(ctx, loc, "test-3"))
		require.NoError(t, page.Submit(ctx, loc))
		assert.Contains(t, readLog(t, page), "submit:test-3;")
	})

	t.Run("select by index", func(t *testing.T) {
		require.NoError(t, page.SelectOptionByIndex(ctx, schemas.Locator{Query: "#pick"}, 1))
		assert.Contains(t, readLog(t, page), "pick:1;")

		err := page.SelectOptionByIndex(ctx, schemas.Locator{Query: "#single"}, 1)
		assert.ErrorIs(t, err, ErrOptionIndexOutOfRange)
	})

	t.Run("set checked is idempotent", func(t *testing.T) {
		loc := schemas.Locator{Query: `input[type="checkbox"]`}
		require.NoError(t, page.SetChecked(ctx, loc, true))
		require.NoError(t, page.SetChecked(ctx, loc, true))

		cp := page.(*cdpPage)
		var checked bool
		require.NoError(t, cp.run(ctx, 5*time.Second, chromedp.Evaluate(`document.getElementById("agree").checked`, &checked)))
		assert.True(t, checked)
	})

	t.Run("press key without a target", func(t *testing.T) {
		require.NoError(t, page.PressKey(ctx, "Enter"))
		assert.Contains(t, readLog(t, page), "enter;")
		assert.ErrorIs(t, page.PressKey(ctx, "Hyper"), ErrUnknownKey)
	})

	t.Run("missing element", func(t *testing.T) {
		err := page.Click(ctx, schemas.Locator{Query: "textarea"})
		assert.ErrorIs(t, err, ErrElementNotFound)
	})
}

func TestNew_UnsupportedDriver(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Browser.Driver = "lynx"
	_, err := New(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported browser driver")
}

func TestNewPageSettingsDefaults(t *testing.T) {
	s := newPageSettings(&config.Config{})
	assert.Equal(t, defaultActionTimeout, s.actionTimeout)
	assert.Equal(t, defaultNavigationTimeout, s.navigationTimeout)
	assert.Equal(t, "Enter", s.confirmKey)
}
