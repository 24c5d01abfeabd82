package config

import (
	"flag"
	"fmt"
	"time"
)

// DefaultPath is the config file read when -config is not given
const DefaultPath = "netsonic.yaml"

// ClientMode holds command-line only options of the CLI
type ClientMode struct {
	ConfigPath  string
	Interactive bool
	Monitor     bool
	Report      bool
	History     bool
	JSON        bool
	Connection  string // "", "mobile" or "broadband"
	WriteConfig bool
}

// ParseClientFlags parses CLI arguments, loads the config file they name
// and applies the flags that were set on top of it
func ParseClientFlags(args []string) (Config, ClientMode, error) {
	fs := flag.NewFlagSet("netsonic", flag.ContinueOnError)
	defaults := Default()

	var (
		mode     ClientMode
		server   = fs.String("server", defaults.Client.ServerURL, "NET-SONIC API base URL")
		duration = fs.Duration("duration", defaults.Client.TestDuration, "Duration of each throughput phase")
		parallel = fs.Int("parallel", defaults.Client.Parallel, "Concurrent download requests")
		pings    = fs.Int("pings", defaults.Client.PingCount, "Latency probes per sequence")
		dbPath   = fs.String("db", defaults.Storage.DatabasePath, "Database path")
		interval = fs.Duration("interval", defaults.Monitor.Interval, "Interval between runs in monitor mode")
		logLevel = fs.String("log-level", defaults.LogLevel, "Log level (debug, info, warn, error)")
	)
	fs.StringVar(&mode.ConfigPath, "config", DefaultPath, "YAML config file")
	fs.BoolVar(&mode.Interactive, "interactive", false, "Show the interactive menu")
	fs.BoolVar(&mode.Monitor, "monitor", false, "Run tests periodically until interrupted")
	fs.BoolVar(&mode.Report, "report", false, "Generate a report from stored results and exit")
	fs.BoolVar(&mode.History, "history", false, "Print stored results and exit")
	fs.BoolVar(&mode.JSON, "json", false, "Print the result as JSON")
	fs.StringVar(&mode.Connection, "connection", "", "Override connection detection (mobile or broadband)")
	fs.BoolVar(&mode.WriteConfig, "write-config", false, "Write the effective configuration to -config and exit")

	if err := fs.Parse(args); err != nil {
		return Config{}, mode, err
	}

	cfg, err := Load(mode.ConfigPath)
	if err != nil {
		return Config{}, mode, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "server":
			cfg.Client.ServerURL = *server
		case "duration":
			cfg.Client.TestDuration = *duration
		case "parallel":
			cfg.Client.Parallel = *parallel
		case "pings":
			cfg.Client.PingCount = *pings
		case "db":
			cfg.Storage.DatabasePath = *dbPath
		case "interval":
			cfg.Monitor.Interval = *interval
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})

	switch mode.Connection {
	case "", "mobile", "broadband":
	default:
		return Config{}, mode, fmt.Errorf("connection must be mobile or broadband, got %q", mode.Connection)
	}

	return cfg, mode, cfg.Validate()
}

// ParseServerFlags parses server arguments the same way
func ParseServerFlags(args []string) (Config, error) {
	fs := flag.NewFlagSet("netsonic-server", flag.ContinueOnError)
	defaults := Default()

	var (
		configPath = fs.String("config", DefaultPath, "YAML config file")
		port       = fs.Int("port", defaults.Server.Port, "Web server port")
		dbPath     = fs.String("db", defaults.Storage.DatabasePath, "Database path")
		geoip      = fs.String("geoip", "", "GeoLite2-ASN database for offline ISP lookup")
		ispTimeout = fs.Duration("isp-timeout", defaults.Server.ISPTimeout, "Timeout per external ISP provider")
		logLevel   = fs.String("log-level", defaults.LogLevel, "Log level (debug, info, warn, error)")
	)

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg, err := Load(*configPath)
	if err != nil {
		return Config{}, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Server.Port = *port
		case "db":
			cfg.Storage.DatabasePath = *dbPath
		case "geoip":
			cfg.Server.GeoIPPath = *geoip
		case "isp-timeout":
			cfg.Server.ISPTimeout = *ispTimeout
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})

	if cfg.Server.ISPTimeout <= 0 {
		cfg.Server.ISPTimeout = time.Second
	}

	return cfg, cfg.Validate()
}
