package speedtest

import (
	"context"
	"net/http"
	"time"

	"netsonic/internal/browser"
	"netsonic/internal/calibration"
	"netsonic/internal/isp"
	"netsonic/internal/models"
	"netsonic/internal/netinfo"
	"netsonic/internal/payload"
)

// Defaults for Options
const (
	DefaultBaseURL              = "http://localhost:8080/api"
	DefaultDownloadSize         = 1 * payload.MiB
	DefaultParallel             = 4
	DefaultUploadParallel       = 2
	DefaultTestDuration         = 8 * time.Second
	DefaultPingCount            = 10
	DefaultRequestTimeout       = 10 * time.Second
	DefaultMinSampleDuration    = 5 * time.Millisecond
	DefaultFallbackDownloadMbps = 1.0
	DefaultFallbackUploadMbps   = 0.5
)

// Payload adaptation bounds
const (
	minDownloadSize = 64 * payload.KiB
	maxDownloadSize = payload.MaxSize

	initialUploadSize      = 256 * payload.KiB
	minUploadSize          = 64 * payload.KiB
	maxUploadSizeBroadband = 8 * payload.MiB
	maxUploadSizeMobile    = 2 * payload.MiB

	// a download finishing faster than this is evidence of a fast link
	growThreshold = 500 * time.Millisecond
	// consecutive download failures before the payload shrinks
	downloadShrinkAfter = 2
	// consecutive upload successes before the payload grows
	uploadGrowAfter = 3

	progressInterval = 100 * time.Millisecond
)

// ISPResolver resolves connection metadata. It must not fail.
type ISPResolver interface {
	Resolve(ctx context.Context) isp.Info
}

// Options configures an Engine. It is copied at construction.
type Options struct {
	BaseURL              string
	DownloadSize         int
	Parallel             int
	UploadParallel       int
	TestDuration         time.Duration
	PingCount            int
	RequestTimeout       time.Duration
	MinSampleDuration    time.Duration
	FallbackDownloadMbps float64
	FallbackUploadMbps   float64
	UserAgent            string

	HTTPClient *http.Client
	Profile    browser.Profile
	// Connection overrides platform detection when set
	Connection  *netinfo.Connection
	Calibration *calibration.Model
	Resolver    ISPResolver

	// OnProgress is called synchronously for every progress event and must not block
	OnProgress func(models.TestProgress)
}

func (o Options) withDefaults() Options {
	if o.BaseURL == "" {
		o.BaseURL = DefaultBaseURL
	}
	if o.DownloadSize <= 0 {
		o.DownloadSize = DefaultDownloadSize
	}
	o.DownloadSize = min(max(o.DownloadSize, minDownloadSize), maxDownloadSize)
	if o.Parallel <= 0 {
		o.Parallel = DefaultParallel
	}
	if o.UploadParallel <= 0 {
		o.UploadParallel = DefaultUploadParallel
	}
	if o.TestDuration <= 0 {
		o.TestDuration = DefaultTestDuration
	}
	if o.PingCount <= 0 {
		o.PingCount = DefaultPingCount
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = DefaultRequestTimeout
	}
	if o.MinSampleDuration <= 0 {
		o.MinSampleDuration = DefaultMinSampleDuration
	}
	if o.FallbackDownloadMbps <= 0 {
		o.FallbackDownloadMbps = DefaultFallbackDownloadMbps
	}
	if o.FallbackUploadMbps <= 0 {
		o.FallbackUploadMbps = DefaultFallbackUploadMbps
	}
	if o.Calibration == nil {
		o.Calibration = calibration.Default()
	}
	return o
}

// transferTimeout bounds a single throughput request. It is at most half the
// phase window, so a stalled transfer counts as a failed request.
func (o Options) transferTimeout() time.Duration {
	return min(o.RequestTimeout, o.TestDuration/2)
}
