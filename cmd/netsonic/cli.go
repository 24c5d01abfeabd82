package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/manifoldco/promptui"

	"netsonic/internal/models"
	"netsonic/internal/netinfo"
	"netsonic/internal/report"
)

const barWidth = 30

// printer renders progress and results. In quiet mode only warnings are shown.
type printer struct {
	w      io.Writer
	quiet  bool
	green  *color.Color
	cyan   *color.Color
	yellow *color.Color
	red    *color.Color

	mu     sync.Mutex
	phase  models.Phase
	inLine bool
}

func newPrinter(quiet bool) *printer {
	return &printer{
		w:      os.Stdout,
		quiet:  quiet,
		green:  color.New(color.FgHiGreen, color.Bold),
		cyan:   color.New(color.FgHiCyan),
		yellow: color.New(color.FgHiYellow),
		red:    color.New(color.FgHiRed),
	}
}

func (p *printer) starting(server string, conn netinfo.Connection) {
	if p.quiet {
		return
	}
	p.cyan.Fprintf(p.w, "  NET-SONIC speed test against %s\n", server)
	fmt.Fprintf(p.w, "  Connection: %s (%s)\n\n", conn.Label(), conn.Class)
}

// progress is the engine callback. It redraws a single line per phase.
func (p *printer) progress(ev models.TestProgress) {
	if p.quiet {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if ev.Phase == models.PhaseComplete {
		p.finishLine()
		return
	}
	if ev.Phase != p.phase {
		p.finishLine()
		p.phase = ev.Phase
	}

	filled := int(ev.Progress / 100 * barWidth)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
	line := fmt.Sprintf("\r  %-9s %s %3.0f%%", phaseTitle(ev.Phase), bar, ev.Progress)
	if ev.CurrentSpeedMbps > 0 {
		line += "  " + report.FormatSpeed(ev.CurrentSpeedMbps) + "   "
	}
	fmt.Fprint(p.w, line)
	p.inLine = true
}

func (p *printer) finishLine() {
	if p.inLine {
		fmt.Fprintln(p.w)
		p.inLine = false
	}
}

// endProgress terminates a progress line left open by an aborted run
func (p *printer) endProgress() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finishLine()
	p.phase = models.PhaseIdle
}

func phaseTitle(phase models.Phase) string {
	switch phase {
	case models.PhasePing:
		return "Ping"
	case models.PhaseDownload:
		return "Download"
	case models.PhaseUpload:
		return "Upload"
	default:
		return phase.String()
	}
}

func (p *printer) cancelled() {
	p.yellow.Fprintln(p.w, "\n  Test cancelled")
}

func (p *printer) warn(format string, args ...any) {
	p.yellow.Fprintf(os.Stderr, "  "+format+"\n", args...)
}

func (p *printer) info(format string, args ...any) {
	p.green.Fprintf(p.w, "  "+format+"\n", args...)
}

func (p *printer) ratingColor(mbps float64) *color.Color {
	switch report.Rate(mbps).Label {
	case "Very Slow", "Slow":
		return p.red
	case "Moderate":
		return p.yellow
	default:
		return p.green
	}
}

func (p *printer) result(r models.SpeedTestResult) {
	rating := report.Rate(r.DownloadMbps)

	fmt.Fprintln(p.w)
	p.cyan.Fprintln(p.w, "  ═══ Results ═══")
	fmt.Fprintf(p.w, "  Download:    %s (raw %s)\n", report.FormatSpeed(r.DownloadMbps), report.FormatSpeed(r.RawDownloadMbps))
	fmt.Fprintf(p.w, "  Upload:      %s (raw %s)\n", report.FormatSpeed(r.UploadMbps), report.FormatSpeed(r.RawUploadMbps))
	fmt.Fprintf(p.w, "  Ping:        %s\n", report.FormatMilliseconds(r.PingMs))
	fmt.Fprintf(p.w, "  Jitter:      %s\n", report.FormatMilliseconds(r.JitterMs))
	fmt.Fprintf(p.w, "  ISP:         %s\n", r.ISP)
	fmt.Fprintf(p.w, "  Connection:  %s\n", r.ConnectionType)
	p.ratingColor(r.DownloadMbps).Fprintf(p.w, "  Rating:      %s - %s\n", rating.Label, rating.Description)
}

func (p *printer) summaryLine(r models.SpeedTestResult) {
	fmt.Fprintf(p.w, "  %s  ", r.Timestamp.Local().Format("2006-01-02 15:04"))
	p.ratingColor(r.DownloadMbps).Fprintf(p.w, "↓ %-12s", report.FormatSpeed(r.DownloadMbps))
	fmt.Fprintf(p.w, " ↑ %-12s ping %-9s jitter %-9s %s\n",
		report.FormatSpeed(r.UploadMbps),
		report.FormatMilliseconds(r.PingMs),
		report.FormatMilliseconds(r.JitterMs),
		r.ISP)
}

func (p *printer) history(items []models.SpeedTestResult) {
	if len(items) == 0 {
		p.yellow.Fprintln(p.w, "  No results yet")
		return
	}
	p.cyan.Fprintf(p.w, "  ═══ Last %d results ═══\n", len(items))
	for _, r := range items {
		p.summaryLine(r)
	}
}

// runMenu shows the interactive menu until the user exits
func (a *app) runMenu() {
	a.out.green.Println("\n  NET-SONIC Speed Test")
	fmt.Println("  ─────────────────────────────")
	fmt.Println()

	for {
		prompt := promptui.Select{
			Label: "What would you like to do?",
			Items: []string{
				"Run speed test",
				"Show history",
				"Generate report",
				"Exit",
			},
		}

		i, _, err := prompt.Run()
		if err != nil {
			return
		}

		fmt.Println()

		switch i {
		case 0:
			if err := a.runOnce(); err != nil {
				a.out.red.Printf("  Error: %v\n", err)
			}
		case 1:
			a.showHistory()
		case 2:
			if err := a.generateReport(); err != nil {
				a.out.red.Printf("  Error: %v\n", err)
			}
		case 3:
			return
		}
		fmt.Println()
	}
}
