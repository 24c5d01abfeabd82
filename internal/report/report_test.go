package report

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"netsonic/internal/models"
)

type fakeSource struct {
	results []models.SpeedTestResult
	err     error
}

func (f fakeSource) GetSince(time.Duration) ([]models.SpeedTestResult, error) {
	return f.results, f.err
}

func (f fakeSource) GetSummary(time.Duration) (models.Summary, error) {
	if f.err != nil {
		return models.Summary{}, f.err
	}
	s := models.Summary{Runs: len(f.results)}
	for _, r := range f.results {
		s.AvgDownloadMbps += r.DownloadMbps / float64(len(f.results))
		s.AvgUploadMbps += r.UploadMbps / float64(len(f.results))
	}
	return s, nil
}

func TestFormatSpeed(t *testing.T) {
	tests := []struct {
		mbps     float64
		expected string
	}{
		{0.5, "500 Kbps"},
		{0.0504, "50 Kbps"},
		{1, "1.0 Mbps"},
		{93.27, "93.3 Mbps"},
		{1000, "1000.0 Mbps"},
	}
	for _, tt := range tests {
		if got := FormatSpeed(tt.mbps); got != tt.expected {
			t.Errorf("FormatSpeed(%v) = %q, want %q", tt.mbps, got, tt.expected)
		}
	}

	if got := FormatMilliseconds(12.345); got != "12.3 ms" {
		t.Errorf("FormatMilliseconds = %q", got)
	}
}

func TestRate(t *testing.T) {
	tests := []struct {
		mbps     float64
		expected string
	}{
		{0.3, "Very Slow"},
		{1, "Slow"},
		{4.99, "Slow"},
		{5, "Moderate"},
		{24, "Moderate"},
		{25, "Fast"},
		{99.9, "Fast"},
		{100, "Very Fast"},
		{940, "Very Fast"},
	}
	for _, tt := range tests {
		if got := Rate(tt.mbps).Label; got != tt.expected {
			t.Errorf("Rate(%v) = %q, want %q", tt.mbps, got, tt.expected)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	if got := sanitizeFilename("localhost:8080/api"); got != "localhost_8080_api" {
		t.Errorf("sanitizeFilename = %q", got)
	}
}

func testResults() []models.SpeedTestResult {
	base := time.Now().Add(-3 * time.Hour)
	var results []models.SpeedTestResult
	for i := 0; i < 12; i++ {
		isp := "Example Fibre"
		if i%3 == 0 {
			isp = "Example Mobile"
		}
		results = append(results, models.SpeedTestResult{
			ID:             "run",
			Timestamp:      base.Add(time.Duration(i) * 15 * time.Minute),
			DownloadMbps:   80 + float64(i*3),
			UploadMbps:     20 + float64(i),
			PingMs:         12 + float64(i%4),
			JitterMs:       1 + float64(i%3),
			ISP:            isp,
			ConnectionType: "wifi",
		})
	}
	return results
}

func TestGenerateReport(t *testing.T) {
	if testing.Short() {
		t.Skip("renders PNG charts")
	}

	out := t.TempDir()
	g := NewGenerator(fakeSource{results: testResults()}, 24).WithLabel("localhost:8080")

	dir, err := g.GenerateReport(out)
	if err != nil {
		t.Fatalf("GenerateReport failed: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(dir), "speed_report_localhost_8080_") {
		t.Errorf("unexpected report directory %s", dir)
	}

	for _, name := range []string{"throughput.png", "latency.png", "isp_comparison.png", "summary.txt"} {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			t.Errorf("missing %s: %v", name, err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("%s is empty", name)
		}
	}

	summary, err := os.ReadFile(filepath.Join(dir, "summary.txt"))
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	for _, want := range []string{"Total Runs: 12", "Rating:   Fast", "Example Mobile", "INDIVIDUAL RUNS"} {
		if !strings.Contains(string(summary), want) {
			t.Errorf("summary.txt missing %q", want)
		}
	}
}

func TestGenerateReportWithoutData(t *testing.T) {
	g := NewGenerator(fakeSource{}, 0)
	dir, err := g.GenerateReport(t.TempDir())
	if err != nil {
		t.Fatalf("GenerateReport failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "throughput.png")); !os.IsNotExist(err) {
		t.Error("throughput chart should be skipped without data")
	}
	summary, _ := os.ReadFile(filepath.Join(dir, "summary.txt"))
	if !strings.Contains(string(summary), "No speed tests recorded") {
		t.Errorf("unexpected summary:\n%s", summary)
	}
}

func TestGenerateReportStoreError(t *testing.T) {
	g := NewGenerator(fakeSource{err: errors.New("database is locked")}, 24)
	if _, err := g.GenerateReport(t.TempDir()); err == nil {
		t.Error("expected error when the store fails")
	}
}
