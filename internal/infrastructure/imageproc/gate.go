package imageproc

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Gate admits at most Slots concurrent transforms. Callers beyond that queue
// in FIFO order until a slot frees or their context ends.
type Gate struct {
	sem      *semaphore.Weighted
	slots    int
	inFlight atomic.Int64
	waiting  atomic.Int64
}

func NewGate(slots int) *Gate {
	if slots < 1 {
		slots = 1
	}
	return &Gate{
		sem:   semaphore.NewWeighted(int64(slots)),
		slots: slots,
	}
}

// Do runs fn while holding a slot. A panic inside fn is returned as an error.
func (g *Gate) Do(ctx context.Context, fn func() error) (err error) {
	g.waiting.Add(1)
	acquireErr := g.sem.Acquire(ctx, 1)
	g.waiting.Add(-1)
	if acquireErr != nil {
		return fmt.Errorf("waiting for transform slot: %w", acquireErr)
	}
	defer g.sem.Release(1)

	g.inFlight.Add(1)
	defer g.inFlight.Add(-1)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transform panicked: %v", r)
		}
	}()

	return fn()
}

func (g *Gate) Slots() int {
	return g.slots
}

func (g *Gate) InFlight() int {
	return int(g.inFlight.Load())
}

func (g *Gate) Waiting() int {
	return int(g.waiting.Load())
}
