package browser

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/chromedp/chromedp"

	"github.com/xkilldash9x/gauntlet/internal/config"
)

// launchFlag is a Chromium command line switch. Value is either a bool or a string.
type launchFlag struct {
	Name  string
	Value interface{}
}

// Arg renders the flag for drivers that take raw arguments. False booleans render
// as the empty string.
func (f launchFlag) Arg() string {
	switch v := f.Value.(type) {
	case bool:
		if !v {
			return ""
		}
		return "--" + f.Name
	default:
		return fmt.Sprintf("--%s=%v", f.Name, v)
	}
}

// launchFlags derives the Chromium switches from the browser configuration. Both
// backends launch Chromium with the same switches.
func launchFlags(cfg config.BrowserConfig) []launchFlag {
	flags := []launchFlag{
		{"headless", cfg.Headless},
		{"disable-gpu", cfg.Headless},
		{"disable-extensions", true},
		{"disable-blink-features", "AutomationControlled"},
		{"mute-audio", true},
	}

	if cfg.IgnoreTLSErrors {
		flags = append(flags,
			launchFlag{"ignore-certificate-errors", true},
			launchFlag{"allow-insecure-localhost", true},
		)
	}
	if cfg.DisableCache {
		flags = append(flags,
			launchFlag{"disk-cache-size", "1"},
			launchFlag{"media-cache-size", "1"},
			launchFlag{"disable-cache", true},
		)
	}
	if w, h := cfg.Viewport["width"], cfg.Viewport["height"]; w > 0 && h > 0 {
		flags = append(flags, launchFlag{"window-size", fmt.Sprintf("%d,%d", w, h)})
	}

	// Containers usually lack the user namespaces the sandbox needs.
	if runtime.GOOS == "linux" {
		flags = append(flags,
			launchFlag{"no-sandbox", true},
			launchFlag{"disable-dev-shm-usage", true},
			launchFlag{"disable-setuid-sandbox", true},
		)
	}

	for _, arg := range cfg.Args {
		name, value, hasValue := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		if name == "" {
			continue
		}
		if hasValue {
			flags = append(flags, launchFlag{name, value})
		} else {
			flags = append(flags, launchFlag{name, true})
		}
	}
	return flags
}

// buildAllocatorOptions assembles the chromedp exec allocator options, dropping the
// default "enable-automation" switch.
func buildAllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	var opts []chromedp.ExecAllocatorOption
	for _, opt := range chromedp.DefaultExecAllocatorOptions {
		opts = append(opts, opt)
	}
	opts = append(opts, chromedp.Flag("enable-automation", false))

	for _, f := range launchFlags(cfg) {
		opts = append(opts, chromedp.Flag(f.Name, f.Value))
	}
	if w, h := cfg.Viewport["width"], cfg.Viewport["height"]; w > 0 && h > 0 {
		opts = append(opts, chromedp.WindowSize(w, h))
	}
	return opts
}

// playwrightArgs renders the switches playwright does not already manage.
func playwrightArgs(cfg config.BrowserConfig) []string {
	var args []string
	for _, f := range launchFlags(cfg) {
		if f.Name == "headless" {
			continue
		}
		if arg := f.Arg(); arg != "" {
			args = append(args, arg)
		}
	}
	return args
}
