package resample

import (
	"context"
	"log"
	"time"
)

// Finalizer is a periodic sweeper that archives minute bars whose wall-clock
// minute has elapsed even if no closing tick arrives. Without it, a symbol
// that goes quiet would hold its last bar open forever.
type Finalizer struct {
	engine        *Engine
	checkInterval time.Duration

	// now is the clock source; overridable in tests.
	now func() time.Time
}

// NewFinalizer creates a finalizer sweeping at checkInterval
// (default 1 second when zero).
func NewFinalizer(engine *Engine, checkInterval time.Duration) *Finalizer {
	if checkInterval <= 0 {
		checkInterval = time.Second
	}
	return &Finalizer{
		engine:        engine,
		checkInterval: checkInterval,
		now:           time.Now,
	}
}

// Run sweeps until ctx is cancelled.
func (f *Finalizer) Run(ctx context.Context) {
	log.Println("[finalizer] started")
	ticker := time.NewTicker(f.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[finalizer] stopped")
			return
		case <-ticker.C:
			f.Sweep()
		}
	}
}

// Sweep runs one finalization pass and returns the bars it archived.
func (f *Finalizer) Sweep() int {
	return len(f.engine.sweepMinuteBars(f.now().UTC()))
}
