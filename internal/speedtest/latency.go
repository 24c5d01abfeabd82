package speedtest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"netsonic/internal/logging"
	"netsonic/internal/stats"
)

// measurePing returns the mean round trip in milliseconds after dropping the
// single fastest and slowest samples. It fails only when every probe failed.
func (e *Engine) measurePing(ctx context.Context, rep *reporter, from, to float64) (float64, error) {
	samples, err := e.probeSequence(ctx, rep, from, to)
	if err != nil {
		return 0, err
	}
	if len(samples) == 0 {
		return 0, fmt.Errorf("%w: all %d ping requests failed", ErrTestFailed, e.opts.PingCount)
	}
	if len(samples) > 4 {
		samples = stats.TrimExtremes(samples)
	}
	return stats.Mean(samples), nil
}

// measureJitter repeats the probe sequence and averages the differences
// between consecutive samples
func (e *Engine) measureJitter(ctx context.Context, rep *reporter, from, to float64) (float64, error) {
	samples, err := e.probeSequence(ctx, rep, from, to)
	if err != nil {
		return 0, err
	}
	return stats.Jitter(samples), nil
}

// probeSequence issues PingCount sequential probes and reports progress
// across [from, to]. Failed probes are left out; the error is non-nil only
// when the run context ends.
func (e *Engine) probeSequence(ctx context.Context, rep *reporter, from, to float64) ([]float64, error) {
	n := e.opts.PingCount
	samples := make([]float64, 0, n)

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rtt, err := e.probe(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logging.Debugf("Ping probe %d failed: %v", i+1, err)
		} else {
			samples = append(samples, float64(rtt)/float64(time.Millisecond))
		}

		rep.update(from+(to-from)*float64(i+1)/float64(n), 0)
	}
	return samples, nil
}

// probe times one HEAD request to /ping
func (e *Engine) probe(ctx context.Context) (time.Duration, error) {
	reqCtx, cancel := context.WithTimeout(ctx, e.opts.RequestTimeout)
	defer cancel()

	req, err := e.newRequest(reqCtx, http.MethodHead, e.url("/ping"))
	if err != nil {
		return 0, err
	}

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		return 0, err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	elapsed := time.Since(start)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("ping responded with status: %d", resp.StatusCode)
	}
	return elapsed, nil
}
