package config

import (
	"fmt"
	"net/url"
	"time"

	"netsonic/internal/calibration"
	"netsonic/internal/logging"
)

// Config holds all configuration for the NET-SONIC client and server
type Config struct {
	Client      ClientConfig       `yaml:"client" json:"client"`
	Server      ServerConfig       `yaml:"server" json:"server"`
	Storage     StorageConfig      `yaml:"storage" json:"storage"`
	Monitor     MonitorConfig      `yaml:"monitor" json:"monitor"`
	Calibration calibration.Tables `yaml:"calibration" json:"calibration"`
	LogLevel    string             `yaml:"log_level" json:"log_level"`
}

// ClientConfig configures the measurement engine
type ClientConfig struct {
	ServerURL            string        `yaml:"server_url" json:"server_url"`
	DownloadSize         int           `yaml:"download_size" json:"download_size"`
	Parallel             int           `yaml:"parallel" json:"parallel"`
	UploadParallel       int           `yaml:"upload_parallel" json:"upload_parallel"`
	TestDuration         time.Duration `yaml:"test_duration" json:"test_duration"`
	PingCount            int           `yaml:"ping_count" json:"ping_count"`
	RequestTimeout       time.Duration `yaml:"request_timeout" json:"request_timeout"`
	MinSampleDuration    time.Duration `yaml:"min_sample_duration" json:"min_sample_duration"`
	FallbackDownloadMbps float64       `yaml:"fallback_download_mbps" json:"fallback_download_mbps"`
	FallbackUploadMbps   float64       `yaml:"fallback_upload_mbps" json:"fallback_upload_mbps"`
	MaxPlausibleMbps     float64       `yaml:"max_plausible_mbps" json:"max_plausible_mbps"`
	UserAgent            string        `yaml:"user_agent" json:"user_agent"`
}

// ServerConfig configures the application server
type ServerConfig struct {
	Port       int           `yaml:"port" json:"port"`
	GeoIPPath  string        `yaml:"geoip_path" json:"geoip_path"`
	ISPTimeout time.Duration `yaml:"isp_timeout" json:"isp_timeout"`
}

// StorageConfig configures result persistence and reports
type StorageConfig struct {
	DatabasePath string `yaml:"database_path" json:"database_path"`
	HistoryLimit int    `yaml:"history_limit" json:"history_limit"`
	Retention    int    `yaml:"retention" json:"retention"` // stored results kept by maintenance
	ReportDir    string `yaml:"report_dir" json:"report_dir"`
	ReportHours  int    `yaml:"report_hours" json:"report_hours"`
}

// MonitorConfig configures periodic runs
type MonitorConfig struct {
	Interval time.Duration `yaml:"interval" json:"interval"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Client: ClientConfig{
			ServerURL:            "http://localhost:8080/api",
			DownloadSize:         1024 * 1024,
			Parallel:             4,
			UploadParallel:       2,
			TestDuration:         8 * time.Second,
			PingCount:            10,
			RequestTimeout:       10 * time.Second,
			MinSampleDuration:    5 * time.Millisecond,
			FallbackDownloadMbps: 1.0,
			FallbackUploadMbps:   0.5,
			MaxPlausibleMbps:     10000,
			UserAgent:            "netsonic/1.0",
		},
		Server: ServerConfig{
			Port:       8080,
			ISPTimeout: 5 * time.Second,
		},
		Storage: StorageConfig{
			DatabasePath: "netsonic.db",
			HistoryLimit: 10,
			Retention:    1000,
			ReportDir:    "reports",
			ReportHours:  24,
		},
		Monitor: MonitorConfig{
			Interval: 30 * time.Minute,
		},
		Calibration: calibration.DefaultTables(),
		LogLevel:    "info",
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	u, err := url.Parse(c.Client.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server url must be an absolute http(s) URL, got %q", c.Client.ServerURL)
	}
	if c.Client.DownloadSize <= 0 {
		return fmt.Errorf("download size must be positive")
	}
	if c.Client.Parallel <= 0 || c.Client.UploadParallel <= 0 {
		return fmt.Errorf("parallel request counts must be positive")
	}
	if c.Client.TestDuration <= 0 {
		return fmt.Errorf("test duration must be positive")
	}
	if c.Client.PingCount <= 0 {
		return fmt.Errorf("ping count must be positive")
	}
	if c.Client.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}
	if c.Client.MaxPlausibleMbps <= 0 {
		return fmt.Errorf("max plausible speed must be positive")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if c.Storage.DatabasePath == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if c.Storage.HistoryLimit <= 0 {
		return fmt.Errorf("history limit must be positive")
	}
	if c.Storage.Retention < c.Storage.HistoryLimit {
		return fmt.Errorf("retention must be at least the history limit")
	}
	if c.Monitor.Interval < time.Minute {
		return fmt.Errorf("monitor interval must be at least 1m")
	}
	if !logging.ValidLevel(c.LogLevel) {
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	if err := c.Calibration.Validate(); err != nil {
		return err
	}
	return nil
}
