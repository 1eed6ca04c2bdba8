package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacer(t *testing.T) {
	t.Run("disabled pacer never blocks", func(t *testing.T) {
		p := newPacer(0)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		for i := 0; i < 100; i++ {
			require.NoError(t, p.Wait(ctx))
		}
		var nilPacer *pacer
		assert.NoError(t, nilPacer.Wait(context.Background()))
	})

	t.Run("limits mutations per second", func(t *testing.T) {
		p := newPacer(20) // one token every 50ms
		start := time.Now()
		for i := 0; i < 3; i++ {
			require.NoError(t, p.Wait(context.Background()))
		}
		// The first token is available immediately, the next two take ~100ms.
		assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
	})

	t.Run("honors cancellation", func(t *testing.T) {
		p := newPacer(0.001)
		require.NoError(t, p.Wait(context.Background()), "burst token")

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		err := p.Wait(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "action pacing interrupted")
	})
}
