// internal/browser/context_utils.go
package browser

import (
	"context"
)

// CombineContext returns a context that carries the values of primary and is
// canceled when either primary or secondary is done. chromedp needs the tab values
// from primary while the caller's deadline lives on secondary.
func CombineContext(primary, secondary context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(primary)
	stop := context.AfterFunc(secondary, cancel)
	return combined, func() {
		stop()
		cancel()
	}
}
