package speedtest

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// failureBackoff keeps a worker from spinning on fast failures such as a
// refused connection
const failureBackoff = 50 * time.Millisecond

// sampler is the shared sample list of a throughput phase
type sampler struct {
	mu      sync.Mutex
	samples []float64
	last    float64
}

func (s *sampler) add(mbps float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = append(s.samples, mbps)
	s.last = mbps
}

func (s *sampler) snapshot() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]float64, len(s.samples))
	copy(out, s.samples)
	return out
}

func (s *sampler) latest() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// runWindow keeps up to workers requests in flight until TestDuration has
// elapsed, then waits for every request and progress goroutine to return.
// Progress follows elapsed time and stays below 100 until the caller closes
// the phase.
func (e *Engine) runWindow(ctx context.Context, rep *reporter, workers int, s *sampler, once func(ctx context.Context) error) {
	phaseCtx, cancel := context.WithTimeout(ctx, e.opts.TestDuration)
	defer cancel()

	start := time.Now()
	report := func() {
		pct := float64(time.Since(start)) / float64(e.opts.TestDuration) * 100
		rep.update(min(pct, 99), s.latest())
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(progressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-phaseCtx.Done():
				return
			case <-ticker.C:
				report()
			}
		}
	}()

	sem := semaphore.NewWeighted(int64(workers))
	for {
		if err := sem.Acquire(phaseCtx, 1); err != nil {
			break
		}
		if phaseCtx.Err() != nil {
			sem.Release(1)
			break
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			if err := once(phaseCtx); err != nil && !errors.Is(err, errDiscarded) {
				select {
				case <-phaseCtx.Done():
				case <-time.After(failureBackoff):
				}
			}
			report()
		}()
	}

	wg.Wait()
}
