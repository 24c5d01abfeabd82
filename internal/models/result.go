package models

import "time"

// SpeedTestResult is the outcome of one completed run. It is a value and is
// never modified once built.
type SpeedTestResult struct {
	ID              string    `json:"id"`
	Timestamp       time.Time `json:"timestamp"`
	DownloadMbps    float64   `json:"download_mbps"` // calibrated
	UploadMbps      float64   `json:"upload_mbps"`   // calibrated
	RawDownloadMbps float64   `json:"raw_download_mbps"`
	RawUploadMbps   float64   `json:"raw_upload_mbps"`
	PingMs          float64   `json:"ping_ms"`
	JitterMs        float64   `json:"jitter_ms"`
	ISP             string    `json:"isp,omitempty"`
	ConnectionType  string    `json:"connection_type,omitempty"`
}

// Summary represents aggregated statistics over stored results
type Summary struct {
	Runs            int       `json:"runs"`
	AvgDownloadMbps float64   `json:"avg_download_mbps"`
	MaxDownloadMbps float64   `json:"max_download_mbps"`
	MinDownloadMbps float64   `json:"min_download_mbps"`
	AvgUploadMbps   float64   `json:"avg_upload_mbps"`
	MaxUploadMbps   float64   `json:"max_upload_mbps"`
	MinUploadMbps   float64   `json:"min_upload_mbps"`
	AvgPingMs       float64   `json:"avg_ping_ms"`
	AvgJitterMs     float64   `json:"avg_jitter_ms"`
	First           time.Time `json:"first"`
	Last            time.Time `json:"last"`
}
