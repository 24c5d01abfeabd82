package main

import (
	"context"
	"embed"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"netsonic/internal/config"
	"netsonic/internal/database"
	"netsonic/internal/isp"
	"netsonic/internal/logging"
	"netsonic/internal/web"
)

//go:embed static/*
var staticFiles embed.FS

func main() {
	// Parse configuration
	cfg, err := config.ParseServerFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	logging.SetLevel(cfg.LogLevel)
	gin.SetMode(gin.ReleaseMode)

	// Initialize database
	db, err := database.New(cfg.Storage.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Initialize schema
	if err := db.InitSchema(); err != nil {
		log.Fatalf("Failed to initialize database schema: %v", err)
	}
	if err := db.ArchiveOldData(cfg.Storage.Retention); err != nil {
		log.Printf("Failed to archive old data: %v", err)
	}

	// Offline ISP lookup is optional
	var enricher isp.Enricher
	geo, err := openGeoIP(cfg.Server.GeoIPPath)
	if err != nil {
		logging.Infof("GeoIP lookup disabled: %v", err)
	} else {
		defer geo.Close()
		enricher = geo
	}

	resolver := isp.DefaultResolver(enricher).WithTimeout(cfg.Server.ISPTimeout)
	webServer := web.New(db, cfg.Server.Port, staticFiles).
		WithISP(resolver, enricher).
		WithHistoryLimit(cfg.Storage.HistoryLimit).
		WithMaxPlausibleMbps(cfg.Client.MaxPlausibleMbps)

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := webServer.Start(); err != nil {
			log.Fatalf("Failed to start web server: %v", err)
		}
	}()

	log.Printf("NET-SONIC server available at http://localhost:%d", cfg.Server.Port)

	<-sigChan
	log.Println("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := webServer.Stop(ctx); err != nil {
		log.Printf("Failed to stop web server: %v", err)
	}
}

func openGeoIP(path string) (*isp.GeoIPEnricher, error) {
	if path != "" {
		return isp.OpenGeoIP(path)
	}
	return isp.OpenDefaultGeoIP()
}
