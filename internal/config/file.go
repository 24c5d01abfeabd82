package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"netsonic/internal/calibration"
)

// Load reads the YAML file at path on top of the defaults. A missing file is
// not an error: the defaults are returned.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	mergeWithDefaults(&cfg)
	return cfg, nil
}

// mergeWithDefaults restores zero values that were written out explicitly
func mergeWithDefaults(cfg *Config) {
	defaults := Default()

	if cfg.Client.ServerURL == "" {
		cfg.Client.ServerURL = defaults.Client.ServerURL
	}
	if cfg.Client.DownloadSize == 0 {
		cfg.Client.DownloadSize = defaults.Client.DownloadSize
	}
	if cfg.Client.Parallel == 0 {
		cfg.Client.Parallel = defaults.Client.Parallel
	}
	if cfg.Client.UploadParallel == 0 {
		cfg.Client.UploadParallel = defaults.Client.UploadParallel
	}
	if cfg.Client.TestDuration == 0 {
		cfg.Client.TestDuration = defaults.Client.TestDuration
	}
	if cfg.Client.PingCount == 0 {
		cfg.Client.PingCount = defaults.Client.PingCount
	}
	if cfg.Client.RequestTimeout == 0 {
		cfg.Client.RequestTimeout = defaults.Client.RequestTimeout
	}
	if cfg.Client.MinSampleDuration == 0 {
		cfg.Client.MinSampleDuration = defaults.Client.MinSampleDuration
	}
	if cfg.Client.FallbackDownloadMbps == 0 {
		cfg.Client.FallbackDownloadMbps = defaults.Client.FallbackDownloadMbps
	}
	if cfg.Client.FallbackUploadMbps == 0 {
		cfg.Client.FallbackUploadMbps = defaults.Client.FallbackUploadMbps
	}
	if cfg.Client.MaxPlausibleMbps == 0 {
		cfg.Client.MaxPlausibleMbps = defaults.Client.MaxPlausibleMbps
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaults.Server.Port
	}
	if cfg.Server.ISPTimeout == 0 {
		cfg.Server.ISPTimeout = defaults.Server.ISPTimeout
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = defaults.Storage.DatabasePath
	}
	if cfg.Storage.HistoryLimit == 0 {
		cfg.Storage.HistoryLimit = defaults.Storage.HistoryLimit
	}
	if cfg.Storage.Retention == 0 {
		cfg.Storage.Retention = defaults.Storage.Retention
	}
	if cfg.Storage.ReportDir == "" {
		cfg.Storage.ReportDir = defaults.Storage.ReportDir
	}
	if cfg.Storage.ReportHours == 0 {
		cfg.Storage.ReportHours = defaults.Storage.ReportHours
	}
	if cfg.Monitor.Interval == 0 {
		cfg.Monitor.Interval = defaults.Monitor.Interval
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaults.LogLevel
	}

	// A table without steps or top factor was left empty in the file
	tables := []struct {
		dst *calibration.Table
		def calibration.Table
	}{
		{&cfg.Calibration.Download.Broadband, defaults.Calibration.Download.Broadband},
		{&cfg.Calibration.Download.Mobile, defaults.Calibration.Download.Mobile},
		{&cfg.Calibration.Upload.Broadband, defaults.Calibration.Upload.Broadband},
		{&cfg.Calibration.Upload.Mobile, defaults.Calibration.Upload.Mobile},
	}
	for _, t := range tables {
		if len(t.dst.Steps) == 0 && t.dst.TopFactor == 0 {
			*t.dst = t.def
		}
	}
}

// Save writes the configuration as YAML
func Save(path string, cfg Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
