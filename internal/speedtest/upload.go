package speedtest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"netsonic/internal/logging"
	"netsonic/internal/netinfo"
	"netsonic/internal/stats"
)

// uploadResponse is the server's acknowledgement of an upload
type uploadResponse struct {
	Received int64 `json:"received"`
	Success  bool  `json:"success"`
}

// uploadSize adapts the upload payload: grow after a streak of successes,
// shrink after any failure
type uploadSize struct {
	mu      sync.Mutex
	size    int
	maxSize int
	streak  int
}

func (u *uploadSize) current() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.size
}

func (u *uploadSize) succeeded() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.streak++
	if u.streak >= uploadGrowAfter {
		u.size = min(u.size*2, u.maxSize)
		u.streak = 0
	}
}

func (u *uploadSize) failed() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.streak = 0
	u.size = max(u.size/2, minUploadSize)
}

// uploadLimits returns concurrency and maximum payload for the connection class
func (e *Engine) uploadLimits() (int, int) {
	if e.conn.Class == netinfo.Mobile {
		return 1, maxUploadSizeMobile
	}
	return e.opts.UploadParallel, maxUploadSizeBroadband
}

// measureUpload returns the trimmed mean of raw upload samples in Mbps
func (e *Engine) measureUpload(ctx context.Context, rep *reporter) (float64, error) {
	workers, maxSize := e.uploadLimits()
	size := &uploadSize{size: min(initialUploadSize, maxSize), maxSize: maxSize}
	s := &sampler{}

	e.runWindow(ctx, rep, workers, s, func(phaseCtx context.Context) error {
		err := e.uploadOnce(phaseCtx, size, s)
		if err != nil && phaseCtx.Err() == nil && !errors.Is(err, errDiscarded) {
			logging.Debugf("Upload request failed: %v", err)
		}
		return err
	})

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	samples := s.snapshot()
	if len(samples) == 0 {
		logging.Warnf("No upload samples collected, using fallback of %.2f Mbps", e.opts.FallbackUploadMbps)
		return e.opts.FallbackUploadMbps, nil
	}
	speed := stats.TrimmedMean(samples)
	logging.Infof("Upload: %.2f Mbps raw from %d samples (%d streams)", speed, len(samples), workers)
	return speed, nil
}

func (e *Engine) uploadOnce(ctx context.Context, size *uploadSize, s *sampler) error {
	n := size.current()
	body := e.payloads.Get(n)

	reqCtx, cancel := context.WithTimeout(ctx, e.opts.transferTimeout())
	defer cancel()

	req, err := e.newRequest(reqCtx, http.MethodPost, e.url("/upload"))
	if err != nil {
		return err
	}
	req.Body = io.NopCloser(bytes.NewReader(body))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	req.ContentLength = int64(len(body))
	req.Header.Set("Content-Type", "application/octet-stream")

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		return e.uploadFailed(ctx, size, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return e.uploadFailed(ctx, size, fmt.Errorf("upload responded with status: %d", resp.StatusCode))
	}

	var ack uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return e.uploadFailed(ctx, size, fmt.Errorf("failed to decode upload response: %w", err))
	}
	elapsed := time.Since(start)

	// a short acknowledgement is dropped from the samples rather than recorded as zero
	if !ack.Success || ack.Received != int64(len(body)) {
		return e.uploadFailed(ctx, size, fmt.Errorf("server received %d of %d bytes", ack.Received, len(body)))
	}

	size.succeeded()
	if elapsed < e.opts.MinSampleDuration {
		logging.Debugf("Discarding upload sample of %d bytes in %v", len(body), elapsed)
		return errDiscarded
	}

	s.add(MbpsFrom(int64(len(body)), elapsed))
	return nil
}

func (e *Engine) uploadFailed(ctx context.Context, size *uploadSize, err error) error {
	if ctx.Err() == nil {
		size.failed()
	}
	return err
}
