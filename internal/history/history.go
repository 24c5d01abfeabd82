// Package history keeps the most recent results in memory, newest first.
package history

import (
	"sync"

	"netsonic/internal/models"
)

// DefaultCapacity is the number of results kept
const DefaultCapacity = 10

// History is a bounded, most-recent-first list of results
type History struct {
	mu    sync.RWMutex
	cap   int
	items []models.SpeedTestResult
}

// New creates a History holding at most capacity results
func New(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &History{cap: capacity, items: make([]models.SpeedTestResult, 0, capacity)}
}

// Add prepends a result, dropping the oldest when full
func (h *History) Add(r models.SpeedTestResult) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.items) < h.cap {
		h.items = append(h.items, models.SpeedTestResult{})
	}
	copy(h.items[1:], h.items[:len(h.items)-1])
	h.items[0] = r
}

// Load replaces the contents with results ordered newest first, for example
// those read back from the result store
func (h *History) Load(results []models.SpeedTestResult) {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := min(len(results), h.cap)
	h.items = h.items[:0]
	h.items = append(h.items, results[:n]...)
}

// Items returns a copy of the results, newest first
func (h *History) Items() []models.SpeedTestResult {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]models.SpeedTestResult, len(h.items))
	copy(out, h.items)
	return out
}

// Latest returns the newest result
func (h *History) Latest() (models.SpeedTestResult, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.items) == 0 {
		return models.SpeedTestResult{}, false
	}
	return h.items[0], true
}

// Len returns the number of stored results
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.items)
}

// Cap returns the capacity
func (h *History) Cap() int {
	return h.cap
}
