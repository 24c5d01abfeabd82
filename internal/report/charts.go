package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"netsonic/internal/models"
)

// errNotEnoughData is returned when a time series chart would have a zero range
var errNotEnoughData = errors.New("at least two results are needed for a chart")

var gridStyle = chart.Style{
	StrokeColor: drawing.Color{R: 200, G: 200, B: 200, A: 255},
	StrokeWidth: 1.0,
}

func axisStyle() chart.Style {
	return chart.Style{
		StrokeColor: drawing.ColorBlack,
		FontSize:    10,
	}
}

func timeChart(title, yName string, series []chart.Series) chart.Chart {
	graph := chart.Chart{
		Title: title,
		TitleStyle: chart.Style{
			FontSize: 16,
		},
		Background: chart.Style{
			Padding: chart.Box{
				Top:    20,
				Left:   20,
				Right:  20,
				Bottom: 20,
			},
		},
		Width:  1200,
		Height: 400,
		XAxis: chart.XAxis{
			Name: "Time",
			NameStyle: chart.Style{
				FontSize: 12,
			},
			Style:          axisStyle(),
			ValueFormatter: chart.TimeMinuteValueFormatter,
		},
		YAxis: chart.YAxis{
			Name: yName,
			NameStyle: chart.Style{
				FontSize: 12,
			},
			Style:          axisStyle(),
			GridMajorStyle: gridStyle,
		},
		Series: series,
	}

	graph.Elements = []chart.Renderable{
		chart.Legend(&graph),
	}
	return graph
}

func timeSeries(name string, color int, ts []time.Time, values []float64) chart.TimeSeries {
	return chart.TimeSeries{
		Name: name,
		Style: chart.Style{
			StrokeColor: chart.GetDefaultColor(color),
			StrokeWidth: 2,
		},
		XValues: ts,
		YValues: values,
	}
}

// withMovingAverage adds a dashed SMA for long series
func withMovingAverage(series []chart.Series, base chart.TimeSeries, color int) []chart.Series {
	if len(base.YValues) <= 10 {
		return series
	}
	return append(series, chart.SMASeries{
		Name: base.Name + " avg",
		Style: chart.Style{
			StrokeColor:     chart.GetDefaultColor(color),
			StrokeWidth:     2,
			StrokeDashArray: []float64{5, 5},
		},
		InnerSeries: base,
		Period:      10,
	})
}

func (g *Generator) generateThroughputChart(outputDir string, results []models.SpeedTestResult) error {
	if len(results) < 2 {
		return errNotEnoughData
	}

	timestamps := make([]time.Time, len(results))
	down := make([]float64, len(results))
	up := make([]float64, len(results))
	for i, r := range results {
		timestamps[i] = r.Timestamp
		down[i] = r.DownloadMbps
		up[i] = r.UploadMbps
	}

	downSeries := timeSeries("Download", 0, timestamps, down)
	upSeries := timeSeries("Upload", 1, timestamps, up)
	series := []chart.Series{downSeries, upSeries}
	series = withMovingAverage(series, downSeries, 2)

	graph := timeChart(fmt.Sprintf("Throughput - last %d hours", g.hours), "Speed (Mbps)", series)
	return writeChart(filepath.Join(outputDir, "throughput.png"), graph)
}

func (g *Generator) generateLatencyChart(outputDir string, results []models.SpeedTestResult) error {
	if len(results) < 2 {
		return errNotEnoughData
	}

	timestamps := make([]time.Time, len(results))
	ping := make([]float64, len(results))
	jitter := make([]float64, len(results))
	for i, r := range results {
		timestamps[i] = r.Timestamp
		ping[i] = r.PingMs
		jitter[i] = r.JitterMs
	}

	pingSeries := timeSeries("Ping", 0, timestamps, ping)
	series := []chart.Series{pingSeries, timeSeries("Jitter", 1, timestamps, jitter)}
	series = withMovingAverage(series, pingSeries, 2)

	graph := timeChart("Network Latency", "Latency (ms)", series)
	return writeChart(filepath.Join(outputDir, "latency.png"), graph)
}

// generateISPChart compares average download per ISP when results span
// more than one provider
func (g *Generator) generateISPChart(outputDir string, results []models.SpeedTestResult) error {
	totals := make(map[string]float64)
	counts := make(map[string]int)
	for _, r := range results {
		name := r.ISP
		if name == "" {
			name = "Unknown"
		}
		totals[name] += r.DownloadMbps
		counts[name]++
	}
	if len(totals) < 2 {
		return nil
	}

	names := make([]string, 0, len(totals))
	for name := range totals {
		names = append(names, name)
	}
	sort.Strings(names)

	var values []chart.Value
	for _, name := range names {
		values = append(values, chart.Value{
			Label: name,
			Value: totals[name] / float64(counts[name]),
		})
	}

	graph := chart.BarChart{
		Title: "Average Download by ISP",
		TitleStyle: chart.Style{
			FontSize: 16,
		},
		Background: chart.Style{
			Padding: chart.Box{
				Top:    20,
				Left:   20,
				Right:  20,
				Bottom: 20,
			},
		},
		Width:    1200,
		Height:   400,
		Bars:     values,
		BarWidth: 40,
	}

	filename := filepath.Join(outputDir, "isp_comparison.png")
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func writeChart(filename string, graph chart.Chart) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}

	if err := graph.Render(chart.PNG, file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
