package speedtest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"netsonic/internal/logging"
	"netsonic/internal/stats"
)

// errDiscarded marks a completed request whose sample was not usable
var errDiscarded = errors.New("sample discarded")

// downloadSize adapts the requested payload size across concurrent requests
type downloadSize struct {
	mu       sync.Mutex
	size     int
	failures int
}

func (d *downloadSize) current() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.size
}

// completed grows the payload when the transfer finished quickly
func (d *downloadSize) completed(elapsed time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures = 0
	if elapsed < growThreshold && d.size < maxDownloadSize {
		d.size = min(d.size*2, maxDownloadSize)
	}
}

// failed shrinks the payload after consecutive failures
func (d *downloadSize) failed() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures++
	if d.failures >= downloadShrinkAfter {
		d.size = max(d.size/2, minDownloadSize)
		d.failures = 0
	}
}

// measureDownload returns the trimmed mean of raw download samples in Mbps
func (e *Engine) measureDownload(ctx context.Context, rep *reporter) (float64, error) {
	size := &downloadSize{size: e.opts.DownloadSize}
	s := &sampler{}

	e.runWindow(ctx, rep, e.opts.Parallel, s, func(phaseCtx context.Context) error {
		err := e.downloadOnce(phaseCtx, size, s)
		if err != nil && phaseCtx.Err() == nil && !errors.Is(err, errDiscarded) {
			logging.Debugf("Download request failed: %v", err)
		}
		return err
	})

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	samples := s.snapshot()
	if len(samples) == 0 {
		logging.Warnf("No download samples collected, using fallback of %.2f Mbps", e.opts.FallbackDownloadMbps)
		return e.opts.FallbackDownloadMbps, nil
	}
	speed := stats.TrimmedMean(samples)
	logging.Infof("Download: %.2f Mbps raw from %d samples (payload %d bytes)", speed, len(samples), size.current())
	return speed, nil
}

func (e *Engine) downloadOnce(ctx context.Context, size *downloadSize, s *sampler) error {
	n := size.current()

	reqCtx, cancel := context.WithTimeout(ctx, e.opts.transferTimeout())
	defer cancel()

	req, err := e.newRequest(reqCtx, http.MethodGet, e.url(fmt.Sprintf("/download/%d", n)))
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		return e.downloadFailed(ctx, size, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return e.downloadFailed(ctx, size, fmt.Errorf("download responded with status: %d", resp.StatusCode))
	}

	received, err := e.strategy.Consume(resp.Body)
	elapsed := time.Since(start)
	if err != nil {
		return e.downloadFailed(ctx, size, fmt.Errorf("failed to read body after %d bytes: %w", received, err))
	}

	size.completed(elapsed)
	if elapsed < e.opts.MinSampleDuration {
		logging.Debugf("Discarding download sample of %d bytes in %v", received, elapsed)
		return errDiscarded
	}

	s.add(MbpsFrom(received, elapsed))
	return nil
}

// downloadFailed counts a failure unless the phase window or the run ended
func (e *Engine) downloadFailed(ctx context.Context, size *downloadSize, err error) error {
	if ctx.Err() == nil {
		size.failed()
	}
	return err
}
