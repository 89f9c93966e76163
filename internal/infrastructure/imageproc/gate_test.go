package imageproc_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcos-nsantos/menu-media-backend/internal/infrastructure/imageproc"
)

func TestGate_Do(t *testing.T) {
	t.Run("never runs more than slots at once", func(t *testing.T) {
		gate := imageproc.NewGate(2)
		var current, peak atomic.Int64
		var wg sync.WaitGroup

		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := gate.Do(context.Background(), func() error {
					n := current.Add(1)
					for {
						p := peak.Load()
						if n <= p || peak.CompareAndSwap(p, n) {
							break
						}
					}
					time.Sleep(10 * time.Millisecond)
					current.Add(-1)
					return nil
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		assert.LessOrEqual(t, peak.Load(), int64(2))
		assert.Equal(t, 0, gate.InFlight())
	})

	t.Run("queued caller gives up when its context ends", func(t *testing.T) {
		gate := imageproc.NewGate(1)
		release := make(chan struct{})
		started := make(chan struct{})

		go func() {
			_ = gate.Do(context.Background(), func() error {
				close(started)
				<-release
				return nil
			})
		}()
		<-started

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		ran := false
		err := gate.Do(ctx, func() error {
			ran = true
			return nil
		})
		close(release)

		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.False(t, ran)
	})

	t.Run("recovers a panic as an error", func(t *testing.T) {
		gate := imageproc.NewGate(1)

		err := gate.Do(context.Background(), func() error {
			panic("decoder blew up")
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "decoder blew up")

		err = gate.Do(context.Background(), func() error { return nil })
		assert.NoError(t, err)
	})

	t.Run("clamps slots to one", func(t *testing.T) {
		assert.Equal(t, 1, imageproc.NewGate(0).Slots())
	})
}
