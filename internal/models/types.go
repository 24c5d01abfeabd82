package models

import (
	"context"
	"time"
)

// ResultStore defines operations for result persistence
type ResultStore interface {
	SaveResult(result SpeedTestResult) error
	GetRecent(limit int) ([]SpeedTestResult, error)
	GetSince(since time.Duration) ([]SpeedTestResult, error)
	GetSummary(since time.Duration) (Summary, error)
	Prune(keep int) (int64, error)
	Close() error
}

// Tester runs a complete speed test
type Tester interface {
	RunFullTest(ctx context.Context) (SpeedTestResult, error)
	Cancel()
}

// Monitor interface defines the monitoring lifecycle
type Monitor interface {
	Start() error
	Stop()
	Wait()
}

// WebServer interface defines web server operations
type WebServer interface {
	Start() error
	Stop(ctx context.Context) error
}

// ReportGenerator interface defines report generation operations
type ReportGenerator interface {
	GenerateReport(outputDir string) (string, error)
}
