package speedtest

import (
	"errors"
	"fmt"
	"math"

	"netsonic/internal/models"
)

var (
	// ErrTestAborted is returned when the run was cancelled by the caller
	ErrTestAborted = errors.New("speed test aborted")
	// ErrTestFailed is returned when every latency probe failed
	ErrTestFailed = errors.New("speed test failed")
	// ErrAlreadyRunning is returned when RunFullTest is called during a run
	ErrAlreadyRunning = errors.New("speed test already running")
	// ErrImplausibleResult marks results outside physical limits
	ErrImplausibleResult = errors.New("implausible speed test result")
)

// DefaultMaxPlausibleMbps is the default sanity limit for throughput
const DefaultMaxPlausibleMbps = 10000.0

// CheckPlausible rejects results no real link could produce. maxMbps <= 0
// selects DefaultMaxPlausibleMbps.
func CheckPlausible(r models.SpeedTestResult, maxMbps float64) error {
	if maxMbps <= 0 {
		maxMbps = DefaultMaxPlausibleMbps
	}

	checks := []struct {
		name  string
		value float64
		limit float64
	}{
		{"download", r.DownloadMbps, maxMbps},
		{"upload", r.UploadMbps, maxMbps},
		{"ping", r.PingMs, math.Inf(1)},
		{"jitter", r.JitterMs, math.Inf(1)},
	}
	for _, c := range checks {
		if math.IsNaN(c.value) || math.IsInf(c.value, 0) || c.value < 0 {
			return fmt.Errorf("%w: %s is %v", ErrImplausibleResult, c.name, c.value)
		}
		if c.value > c.limit {
			return fmt.Errorf("%w: %s %.2f Mbps exceeds %.0f Mbps", ErrImplausibleResult, c.name, c.value, c.limit)
		}
	}
	return nil
}
