package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"netsonic/internal/browser"
	"netsonic/internal/calibration"
	"netsonic/internal/config"
	"netsonic/internal/database"
	"netsonic/internal/history"
	"netsonic/internal/logging"
	"netsonic/internal/models"
	"netsonic/internal/monitor"
	"netsonic/internal/netinfo"
	"netsonic/internal/report"
	"netsonic/internal/speedtest"
)

type app struct {
	cfg     config.Config
	mode    config.ClientMode
	db      *database.DB
	history *history.History
	out     *printer
}

func main() {
	// Parse configuration
	cfg, mode, err := config.ParseClientFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	logging.SetLevel(cfg.LogLevel)

	if mode.WriteConfig {
		if err := config.Save(mode.ConfigPath, cfg); err != nil {
			log.Fatalf("Failed to write configuration: %v", err)
		}
		log.Printf("Configuration written to %s", mode.ConfigPath)
		return
	}

	// Initialize database
	db, err := database.New(cfg.Storage.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := db.InitSchema(); err != nil {
		log.Fatalf("Failed to initialize database schema: %v", err)
	}

	hist := history.New(cfg.Storage.HistoryLimit)
	if recent, err := db.GetRecent(hist.Cap()); err != nil {
		log.Printf("Failed to load history: %v", err)
	} else {
		hist.Load(recent)
	}

	a := &app{cfg: cfg, mode: mode, db: db, history: hist, out: newPrinter(mode.JSON)}

	switch {
	case mode.History:
		a.showHistory()
	case mode.Report:
		err = a.generateReport()
	case mode.Monitor:
		err = a.runMonitor()
	case mode.Interactive:
		a.runMenu()
	default:
		err = a.runOnce()
	}

	if err != nil {
		db.Close()
		log.Fatalf("%v", err)
	}
}

// newEngine builds a speed test engine from the configuration
func (a *app) newEngine(onProgress func(models.TestProgress)) *speedtest.Engine {
	c := a.cfg.Client
	opts := speedtest.Options{
		BaseURL:              c.ServerURL,
		DownloadSize:         c.DownloadSize,
		Parallel:             c.Parallel,
		UploadParallel:       c.UploadParallel,
		TestDuration:         c.TestDuration,
		PingCount:            c.PingCount,
		RequestTimeout:       c.RequestTimeout,
		MinSampleDuration:    c.MinSampleDuration,
		FallbackDownloadMbps: c.FallbackDownloadMbps,
		FallbackUploadMbps:   c.FallbackUploadMbps,
		UserAgent:            c.UserAgent,
		Profile:              browser.Detect(c.UserAgent, ""),
		Calibration:          calibration.New(a.cfg.Calibration),
		OnProgress:           onProgress,
	}

	switch a.mode.Connection {
	case "mobile":
		opts.Connection = &netinfo.Connection{Class: netinfo.Mobile, Type: netinfo.TypeCellular}
	case "broadband":
		opts.Connection = &netinfo.Connection{Class: netinfo.Broadband, Type: netinfo.TypeUnknown}
	}

	return speedtest.New(opts)
}

// runOnce performs one test, interruptible with Ctrl+C
func (a *app) runOnce() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine := a.newEngine(a.out.progress)
	a.out.starting(a.cfg.Client.ServerURL, engine.Connection())

	result, err := engine.RunFullTest(ctx)
	a.out.endProgress()
	if errors.Is(err, speedtest.ErrTestAborted) {
		a.out.cancelled()
		return nil
	}
	if err != nil {
		return fmt.Errorf("speed test failed: %w", err)
	}

	if err := speedtest.CheckPlausible(result, a.cfg.Client.MaxPlausibleMbps); err != nil {
		a.out.warn("Result discarded: %v", err)
		return nil
	}
	a.save(result)

	if a.mode.JSON {
		return printJSON(result)
	}
	a.out.result(result)
	return nil
}

func (a *app) save(result models.SpeedTestResult) {
	a.history.Add(result)
	if err := a.db.SaveResult(result); err != nil {
		log.Printf("Failed to save result: %v", err)
	}
}

func (a *app) showHistory() {
	items := a.history.Items()
	if a.mode.JSON {
		if err := printJSON(items); err != nil {
			log.Printf("Failed to print history: %v", err)
		}
		return
	}
	a.out.history(items)
}

func (a *app) generateReport() error {
	gen := report.NewGenerator(a.db, a.cfg.Storage.ReportHours).WithLabel(serverLabel(a.cfg.Client.ServerURL))
	dir, err := gen.GenerateReport(a.cfg.Storage.ReportDir)
	if err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}
	a.out.info("Report written to %s", dir)
	return nil
}

// runMonitor runs tests on the configured interval until interrupted
func (a *app) runMonitor() error {
	engine := a.newEngine(nil)
	mon := monitor.New(a.cfg, engine, a.db, a.history)
	mon.OnResult(func(r models.SpeedTestResult) {
		if a.mode.JSON {
			if err := printJSON(r); err != nil {
				log.Printf("Failed to print result: %v", err)
			}
			return
		}
		a.out.summaryLine(r)
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := mon.Start(); err != nil {
		return fmt.Errorf("failed to start monitor: %w", err)
	}

	<-sigChan
	log.Println("Shutting down...")
	mon.Stop()
	mon.Wait()
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// serverLabel is the host part of the server URL, used to name reports
func serverLabel(serverURL string) string {
	u, err := url.Parse(serverURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Host
}
