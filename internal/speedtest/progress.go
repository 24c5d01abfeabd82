package speedtest

import (
	"context"
	"sync"
	"sync/atomic"

	"netsonic/internal/models"
)

// reporter serializes progress events for a single run. Within a phase the
// reported value never decreases, and once the run context is done nothing
// more is emitted.
type reporter struct {
	mu      sync.Mutex
	ctx     context.Context
	fn      func(models.TestProgress)
	phase   models.Phase
	last    float64
	stopped atomic.Bool
}

func newReporter(ctx context.Context, fn func(models.TestProgress)) *reporter {
	return &reporter{ctx: ctx, fn: fn}
}

// start opens a phase at 0
func (r *reporter) start(phase models.Phase) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phase = phase
	r.last = 0
	r.emit(models.TestProgress{Phase: phase})
}

// update reports progress within the current phase
func (r *reporter) update(progress, speedMbps float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	progress = min(max(progress, 0), 100)
	if r.phase.Active() && progress < 1 {
		progress = 1
	}
	if progress < r.last {
		progress = r.last
	}
	r.last = progress
	r.emit(models.TestProgress{Phase: r.phase, Progress: progress, CurrentSpeedMbps: max(speedMbps, 0)})
}

// finish closes the current phase at 100
func (r *reporter) finish(speedMbps float64) {
	r.update(100, speedMbps)
}

// complete reports the terminal event
func (r *reporter) complete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phase = models.PhaseComplete
	r.last = 100
	r.emit(models.TestProgress{Phase: models.PhaseComplete, Progress: 100})
}

// stop suppresses all further events. It does not take the lock so that a
// callback may cancel the run.
func (r *reporter) stop() {
	r.stopped.Store(true)
}

// emit must be called with mu held
func (r *reporter) emit(p models.TestProgress) {
	if r.fn == nil || r.stopped.Load() || r.ctx.Err() != nil {
		return
	}
	r.fn(p)
}
