package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"netsonic/internal/models"
	"netsonic/internal/stats"
)

func (g *Generator) generateTextReport(outputDir string, results []models.SpeedTestResult) error {
	filename := filepath.Join(outputDir, "summary.txt")
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	fmt.Fprintf(file, "NET-SONIC Speed Test Report\n")
	fmt.Fprintf(file, "Generated: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(file, "Period: Last %d hours\n\n", g.hours)
	fmt.Fprintln(file, strings.Repeat("=", 60))

	summary, err := g.store.GetSummary(time.Duration(g.hours) * time.Hour)
	if err != nil {
		return err
	}

	fmt.Fprintln(file, "\nOVERALL STATISTICS")

	if summary.Runs == 0 {
		fmt.Fprintln(file, "No speed tests recorded in this period.")
	} else {
		rating := Rate(summary.AvgDownloadMbps)
		fmt.Fprintf(file, "Total Runs: %d\n", summary.Runs)
		fmt.Fprintf(file, "  Download: avg %s, min %s, max %s\n",
			FormatSpeed(summary.AvgDownloadMbps), FormatSpeed(summary.MinDownloadMbps), FormatSpeed(summary.MaxDownloadMbps))
		fmt.Fprintf(file, "  Upload:   avg %s, min %s, max %s\n",
			FormatSpeed(summary.AvgUploadMbps), FormatSpeed(summary.MinUploadMbps), FormatSpeed(summary.MaxUploadMbps))
		fmt.Fprintf(file, "  Ping:     avg %s\n", FormatMilliseconds(summary.AvgPingMs))
		fmt.Fprintf(file, "  Jitter:   avg %s\n", FormatMilliseconds(summary.AvgJitterMs))
		fmt.Fprintf(file, "  Rating:   %s (%s)\n", rating.Label, rating.Description)

		if len(results) > 2 {
			downloads := make([]float64, len(results))
			for i, r := range results {
				downloads[i] = r.DownloadMbps
			}
			fmt.Fprintf(file, "  Trimmed download mean: %s\n", FormatSpeed(stats.TrimmedMean(downloads)))
		}
	}
	fmt.Fprintln(file)
	fmt.Fprintln(file, strings.Repeat("=", 60))

	fmt.Fprintln(file, "\nINDIVIDUAL RUNS")
	for i := len(results) - 1; i >= 0; i-- {
		r := results[i]
		fmt.Fprintf(file, "%s  down %-12s up %-12s ping %-10s jitter %-10s %s",
			r.Timestamp.Local().Format("2006-01-02 15:04:05"),
			FormatSpeed(r.DownloadMbps), FormatSpeed(r.UploadMbps),
			FormatMilliseconds(r.PingMs), FormatMilliseconds(r.JitterMs), r.ConnectionType)
		if r.ISP != "" {
			fmt.Fprintf(file, " (%s)", r.ISP)
		}
		fmt.Fprintln(file)
	}
	if len(results) == 0 {
		fmt.Fprintln(file, "None.")
	}

	fmt.Fprintln(file, strings.Repeat("=", 60))
	fmt.Fprintln(file, "\nDownload and upload figures are calibrated; raw values are kept in the database.")
	fmt.Fprintln(file, "Charts are available in the accompanying files.")

	return nil
}
