package monitor

import (
	"context"
	"log"
	"sync"

	"netsonic/internal/config"
	"netsonic/internal/history"
	"netsonic/internal/models"
)

// Store is the persistence the monitor writes to
type Store interface {
	SaveResult(result models.SpeedTestResult) error
	ArchiveOldData(keep int) error
}

// Monitor runs full speed tests on a schedule and stores the results
type Monitor struct {
	config   config.Config
	tester   models.Tester
	store    Store
	history  *history.History
	onResult func(models.SpeedTestResult)
	results  chan models.SpeedTestResult
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
}

// New creates a new Monitor. hist may be nil.
func New(cfg config.Config, tester models.Tester, store Store, hist *history.History) *Monitor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Monitor{
		config:  cfg,
		tester:  tester,
		store:   store,
		history: hist,
		results: make(chan models.SpeedTestResult, 16),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// OnResult registers a callback for every accepted result
func (m *Monitor) OnResult(fn func(models.SpeedTestResult)) {
	m.onResult = fn
}

// Start begins the monitoring process
func (m *Monitor) Start() error {
	log.Printf("Starting monitor against %s", m.config.Client.ServerURL)

	// Start result processor
	m.wg.Add(1)
	go m.processResults()

	m.wg.Add(1)
	go m.every(m.config.Monitor.Interval, m.performTest)

	m.wg.Add(1)
	go m.every(maintenanceInterval, m.maintain)

	log.Printf("Monitor started. Running a speed test every %v", m.config.Monitor.Interval)
	return nil
}

// Stop gracefully stops the monitor, aborting a test in progress
func (m *Monitor) Stop() {
	log.Println("Stopping monitor...")
	m.cancel()
	m.tester.Cancel()
}

// Wait blocks until all goroutines finish
func (m *Monitor) Wait() {
	m.wg.Wait()
	log.Println("Monitor stopped")
}
