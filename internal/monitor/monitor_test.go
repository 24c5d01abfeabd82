package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"netsonic/internal/config"
	"netsonic/internal/history"
	"netsonic/internal/models"
	"netsonic/internal/speedtest"
)

type fakeTester struct {
	mu      sync.Mutex
	results []models.SpeedTestResult
	errs    []error
	calls   int
	cancels atomic.Int32
}

func (f *fakeTester) RunFullTest(ctx context.Context) (models.SpeedTestResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return models.SpeedTestResult{}, f.errs[i]
	}
	if i < len(f.results) {
		return f.results[i], nil
	}
	return models.SpeedTestResult{ID: "steady", DownloadMbps: 50, UploadMbps: 10, Timestamp: time.Now()}, nil
}

func (f *fakeTester) Cancel() { f.cancels.Add(1) }

type fakeStore struct {
	mu       sync.Mutex
	saved    []models.SpeedTestResult
	archived []int
}

func (f *fakeStore) SaveResult(r models.SpeedTestResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, r)
	return nil
}

func (f *fakeStore) ArchiveOldData(keep int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.archived = append(f.archived, keep)
	return nil
}

func (f *fakeStore) snapshot() ([]models.SpeedTestResult, []int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.SpeedTestResult(nil), f.saved...), append([]int(nil), f.archived...)
}

var _ models.Monitor = (*Monitor)(nil)

func TestMonitorStoresPlausibleResults(t *testing.T) {
	cfg := config.Default()
	cfg.Monitor.Interval = 10 * time.Millisecond

	tester := &fakeTester{
		results: []models.SpeedTestResult{
			{ID: "first", DownloadMbps: 95, UploadMbps: 20},
			{ID: "absurd", DownloadMbps: 50000, UploadMbps: 20},
			{},
			{ID: "third", DownloadMbps: 90, UploadMbps: 19},
		},
		errs: []error{nil, nil, speedtest.ErrTestFailed},
	}
	store := &fakeStore{}
	hist := history.New(5)

	var seen atomic.Int32
	m := New(cfg, tester, store, hist)
	m.OnResult(func(models.SpeedTestResult) { seen.Add(1) })
	if err := m.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		saved, _ := store.snapshot()
		if len(saved) >= 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for results, saved %d", len(saved))
		}
		time.Sleep(5 * time.Millisecond)
	}

	m.Stop()
	m.Wait()

	saved, archived := store.snapshot()
	if saved[0].ID != "first" || saved[1].ID != "third" {
		t.Errorf("unexpected stored order: %s, %s", saved[0].ID, saved[1].ID)
	}
	for _, r := range saved {
		if r.ID == "absurd" {
			t.Error("implausible result was stored")
		}
	}
	if len(archived) == 0 || archived[0] != cfg.Storage.Retention {
		t.Errorf("expected maintenance with retention %d, got %v", cfg.Storage.Retention, archived)
	}
	if hist.Len() == 0 {
		t.Error("history not updated")
	}
	if int(seen.Load()) < len(saved) {
		t.Errorf("callback saw %d results, stored %d", seen.Load(), len(saved))
	}
	if tester.cancels.Load() == 0 {
		t.Error("Stop should cancel a running test")
	}
}

func TestMonitorIgnoresAbortedRuns(t *testing.T) {
	cfg := config.Default()
	cfg.Monitor.Interval = time.Hour

	tester := &fakeTester{errs: []error{speedtest.ErrTestAborted}}
	store := &fakeStore{}

	m := New(cfg, tester, store, nil)
	m.Start()
	time.Sleep(20 * time.Millisecond)
	m.Stop()
	m.Wait()

	if saved, _ := store.snapshot(); len(saved) != 0 {
		t.Errorf("aborted run produced %d stored results", len(saved))
	}
}
