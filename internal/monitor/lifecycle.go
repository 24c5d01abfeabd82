package monitor

import (
	"log"
	"time"

	"netsonic/internal/logging"
)

const maintenanceInterval = time.Hour

// every runs fn once right away and then on each tick until the monitor stops.
// A run that overlaps several ticks does not queue extra runs.
func (m *Monitor) every(interval time.Duration, fn func()) {
	defer m.wg.Done()

	fn()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			if m.ctx.Err() != nil {
				return
			}
			fn()
		}
	}
}

// maintain rolls results up into daily stats and enforces retention
func (m *Monitor) maintain() {
	start := time.Now()
	if err := m.store.ArchiveOldData(m.config.Storage.Retention); err != nil {
		log.Printf("Failed to archive old data: %v", err)
		return
	}
	logging.Debugf("Maintenance done in %v, keeping the newest %d results", time.Since(start), m.config.Storage.Retention)
}
