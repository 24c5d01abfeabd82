package report

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"netsonic/internal/models"
)

// Source is the subset of the result store reports read from
type Source interface {
	GetSince(since time.Duration) ([]models.SpeedTestResult, error)
	GetSummary(since time.Duration) (models.Summary, error)
}

// Generator creates static images and a text summary of stored results
type Generator struct {
	store Source
	hours int
	label string
}

// NewGenerator creates a new report generator covering the last hours
func NewGenerator(store Source, hours int) *Generator {
	if hours <= 0 {
		hours = 24
	}
	return &Generator{store: store, hours: hours}
}

// WithLabel adds a label, such as the server address, to the report directory name
func (g *Generator) WithLabel(label string) *Generator {
	g.label = label
	return g
}

// GenerateReport writes charts and summary.txt into a timestamped directory
// under outputDir and returns that directory
func (g *Generator) GenerateReport(outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	name := fmt.Sprintf("speed_report_%s", timestamp)
	if g.label != "" {
		name = fmt.Sprintf("speed_report_%s_%s", sanitizeFilename(g.label), timestamp)
	}
	reportDir := filepath.Join(outputDir, name)
	if err := os.MkdirAll(reportDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	period := time.Duration(g.hours) * time.Hour
	results, err := g.store.GetSince(period)
	if err != nil {
		return "", fmt.Errorf("failed to load results: %w", err)
	}

	// Generate various charts
	if err := g.generateThroughputChart(reportDir, results); err != nil {
		log.Printf("Failed to generate throughput chart: %v", err)
	}

	if err := g.generateLatencyChart(reportDir, results); err != nil {
		log.Printf("Failed to generate latency chart: %v", err)
	}

	if err := g.generateISPChart(reportDir, results); err != nil {
		log.Printf("Failed to generate ISP chart: %v", err)
	}

	if err := g.generateTextReport(reportDir, results); err != nil {
		return "", fmt.Errorf("failed to generate text report: %w", err)
	}

	log.Printf("Report generated in: %s", reportDir)
	return reportDir, nil
}
