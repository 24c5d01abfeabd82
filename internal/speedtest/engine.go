// Package speedtest measures latency, jitter and throughput against a
// NET-SONIC server over plain HTTP.
package speedtest

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"netsonic/internal/browser"
	"netsonic/internal/calibration"
	"netsonic/internal/isp"
	"netsonic/internal/logging"
	"netsonic/internal/models"
	"netsonic/internal/netinfo"
	"netsonic/internal/payload"
)

// Engine runs speed tests. One run may be active at a time.
type Engine struct {
	opts     Options
	client   *http.Client
	strategy browser.BodyConsumptionStrategy
	conn     netinfo.Connection
	resolver ISPResolver
	payloads *payload.Cache
	nonce    atomic.Uint64

	running atomic.Bool
	mu      sync.Mutex
	cancel  context.CancelFunc
	rep     *reporter
}

// New creates an Engine. The connection class is detected once here unless
// opts.Connection is set.
func New(opts Options) *Engine {
	opts = opts.withDefaults()

	client := opts.HTTPClient
	if client == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.MaxIdleConnsPerHost = opts.Parallel + 2
		client = &http.Client{Transport: transport}
	}

	var conn netinfo.Connection
	if opts.Connection != nil {
		conn = *opts.Connection
	} else {
		conn = netinfo.Detect(opts.Profile)
	}

	resolver := opts.Resolver
	if resolver == nil {
		resolver = isp.NewResolver(nil, isp.NewSameOrigin(opts.BaseURL, client), isp.NewIPAPICom(client))
	}

	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")

	return &Engine{
		opts:     opts,
		client:   client,
		strategy: browser.StrategyFor(opts.Profile),
		conn:     conn,
		resolver: resolver,
		payloads: payload.NewCache(),
	}
}

// Connection returns the connection classification used for the run
func (e *Engine) Connection() netinfo.Connection {
	return e.conn
}

// Running reports whether a test is in progress
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Cancel aborts the active run. It is safe to call from OnProgress. No event
// is emitted once the run context is observed done, though a callback already
// in progress on another goroutine may still complete after Cancel returns.
func (e *Engine) Cancel() {
	e.mu.Lock()
	cancel, rep := e.cancel, e.rep
	e.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	rep.stop()
	logging.Infof("Speed test cancelled")
}

// RunFullTest measures ping, jitter, download and upload, resolves the ISP
// and returns the calibrated result.
func (e *Engine) RunFullTest(ctx context.Context) (models.SpeedTestResult, error) {
	if !e.running.CompareAndSwap(false, true) {
		return models.SpeedTestResult{}, ErrAlreadyRunning
	}
	defer e.running.Store(false)

	runCtx, cancel := context.WithCancel(ctx)
	rep := newReporter(runCtx, e.opts.OnProgress)

	e.mu.Lock()
	e.cancel, e.rep = cancel, rep
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.cancel, e.rep = nil, nil
		e.mu.Unlock()
		cancel()
	}()

	result, err := e.run(runCtx, rep)
	if runCtx.Err() != nil {
		rep.stop()
		return models.SpeedTestResult{}, ErrTestAborted
	}
	if err != nil {
		return models.SpeedTestResult{}, err
	}
	return result, nil
}

func (e *Engine) run(ctx context.Context, rep *reporter) (models.SpeedTestResult, error) {
	logging.Infof("Starting speed test against %s (%s connection)", e.opts.BaseURL, e.conn.Label())

	rep.start(models.PhasePing)
	ping, err := e.measurePing(ctx, rep, 0, 50)
	if err != nil {
		return models.SpeedTestResult{}, err
	}
	jitter, err := e.measureJitter(ctx, rep, 50, 100)
	if err != nil {
		return models.SpeedTestResult{}, err
	}
	rep.finish(0)
	logging.Infof("Ping %.1f ms, jitter %.1f ms", ping, jitter)

	rep.start(models.PhaseDownload)
	rawDown, err := e.measureDownload(ctx, rep)
	if err != nil {
		return models.SpeedTestResult{}, err
	}
	rep.finish(rawDown)

	rep.start(models.PhaseUpload)
	rawUp, err := e.measureUpload(ctx, rep)
	if err != nil {
		return models.SpeedTestResult{}, err
	}
	rep.finish(rawUp)

	info := e.resolver.Resolve(ctx)
	if ctx.Err() != nil {
		return models.SpeedTestResult{}, ctx.Err()
	}

	class := e.conn.Class
	result := models.SpeedTestResult{
		ID:              uuid.NewString(),
		Timestamp:       time.Now(),
		DownloadMbps:    e.opts.Calibration.Apply(rawDown, class, calibration.Download),
		UploadMbps:      e.opts.Calibration.Apply(rawUp, class, calibration.Upload),
		RawDownloadMbps: rawDown,
		RawUploadMbps:   rawUp,
		PingMs:          ping,
		JitterMs:        jitter,
		ISP:             info.ISP,
		ConnectionType:  e.conn.Label(),
	}

	rep.complete()
	logging.Infof("Speed test complete: download %.2f Mbps (raw %.2f), upload %.2f Mbps (raw %.2f)",
		result.DownloadMbps, rawDown, result.UploadMbps, rawUp)
	return result, nil
}

// MbpsFrom converts a byte count transferred in elapsed time to megabits per second
func MbpsFrom(bytes int64, elapsed time.Duration) float64 {
	if bytes <= 0 || elapsed <= 0 {
		return 0
	}
	return float64(bytes) * 8 / elapsed.Seconds() / 1e6
}

// url builds a cache-busted endpoint URL
func (e *Engine) url(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s%st=%d-%d", e.opts.BaseURL, path, sep, time.Now().UnixNano(), e.nonce.Add(1))
}

func (e *Engine) newRequest(ctx context.Context, method, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-store")
	req.Header.Set("Pragma", "no-cache")
	if e.opts.UserAgent != "" {
		req.Header.Set("User-Agent", e.opts.UserAgent)
	}
	return req, nil
}
