package monitor

import (
	"errors"
	"log"

	"netsonic/internal/speedtest"
)

// performTest executes a single run and sends the result to the results channel
func (m *Monitor) performTest() {
	result, err := m.tester.RunFullTest(m.ctx)
	if err != nil {
		if errors.Is(err, speedtest.ErrTestAborted) {
			return
		}
		log.Printf("Failed to run speed test: %v", err)
		return
	}

	select {
	case m.results <- result:
	default:
		log.Printf("Result channel full, dropping result %s", result.ID)
	}
}

// processResults checks and stores results from the results channel
func (m *Monitor) processResults() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		case result := <-m.results:
			if err := speedtest.CheckPlausible(result, m.config.Client.MaxPlausibleMbps); err != nil {
				log.Printf("Discarding result %s: %v", result.ID, err)
				continue
			}
			if err := m.store.SaveResult(result); err != nil {
				log.Printf("Failed to save result: %v", err)
			}
			if m.history != nil {
				m.history.Add(result)
			}
			if m.onResult != nil {
				m.onResult(result)
			}
		}
	}
}
