package database

import (
	"database/sql"
	"fmt"
	"time"

	"netsonic/internal/models"
)

const resultColumns = `id, timestamp, download_mbps, upload_mbps, raw_download_mbps, raw_upload_mbps,
        ping_ms, jitter_ms, isp, connection_type`

// SaveResult saves a speed test result to the database
func (db *DB) SaveResult(result models.SpeedTestResult) error {
	query := `
        INSERT INTO speed_results (` + resultColumns + `)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := db.Exec(query,
		result.ID,
		result.Timestamp.UTC(),
		result.DownloadMbps,
		result.UploadMbps,
		result.RawDownloadMbps,
		result.RawUploadMbps,
		result.PingMs,
		result.JitterMs,
		result.ISP,
		result.ConnectionType,
	)
	if err != nil {
		return fmt.Errorf("failed to save result %s: %w", result.ID, err)
	}
	return nil
}

// GetRecent retrieves the most recent results, newest first
func (db *DB) GetRecent(limit int) ([]models.SpeedTestResult, error) {
	query := `
        SELECT ` + resultColumns + `
        FROM speed_results
        ORDER BY timestamp DESC
        LIMIT ?
    `
	return db.queryResults(query, limit)
}

// GetSince retrieves results newer than the given age, oldest first
func (db *DB) GetSince(since time.Duration) ([]models.SpeedTestResult, error) {
	query := `
        SELECT ` + resultColumns + `
        FROM speed_results
        WHERE timestamp > ?
        ORDER BY timestamp ASC
        LIMIT 10000
    `
	return db.queryResults(query, time.Now().Add(-since).UTC())
}

func (db *DB) queryResults(query string, args ...any) ([]models.SpeedTestResult, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []models.SpeedTestResult
	for rows.Next() {
		var r models.SpeedTestResult
		var rawDown, rawUp sql.NullFloat64
		var isp, connType sql.NullString
		err := rows.Scan(&r.ID, &r.Timestamp, &r.DownloadMbps, &r.UploadMbps, &rawDown, &rawUp,
			&r.PingMs, &r.JitterMs, &isp, &connType)
		if err != nil {
			continue
		}
		r.RawDownloadMbps = rawDown.Float64
		r.RawUploadMbps = rawUp.Float64
		r.ISP = isp.String
		r.ConnectionType = connType.String
		results = append(results, r)
	}

	return results, rows.Err()
}

// GetSummary retrieves aggregated statistics over results newer than since
func (db *DB) GetSummary(since time.Duration) (models.Summary, error) {
	query := `
        SELECT
            COUNT(*),
            COALESCE(AVG(download_mbps), 0),
            COALESCE(MAX(download_mbps), 0),
            COALESCE(MIN(download_mbps), 0),
            COALESCE(AVG(upload_mbps), 0),
            COALESCE(MAX(upload_mbps), 0),
            COALESCE(MIN(upload_mbps), 0),
            COALESCE(AVG(ping_ms), 0),
            COALESCE(AVG(jitter_ms), 0)
        FROM speed_results
        WHERE timestamp > ?
    `

	var s models.Summary
	err := db.QueryRow(query, time.Now().Add(-since).UTC()).Scan(&s.Runs,
		&s.AvgDownloadMbps, &s.MaxDownloadMbps, &s.MinDownloadMbps,
		&s.AvgUploadMbps, &s.MaxUploadMbps, &s.MinUploadMbps,
		&s.AvgPingMs, &s.AvgJitterMs)
	if err != nil {
		return models.Summary{}, fmt.Errorf("summary query failed: %w", err)
	}
	if s.Runs == 0 {
		return s, nil
	}

	results, err := db.GetSince(since)
	if err != nil {
		return models.Summary{}, err
	}
	if len(results) > 0 {
		s.First = results[0].Timestamp
		s.Last = results[len(results)-1].Timestamp
	}
	return s, nil
}

// DailyStat is one row of the daily_stats table
type DailyStat struct {
	Date            string  `json:"date"`
	Runs            int     `json:"runs"`
	AvgDownloadMbps float64 `json:"avg_download_mbps"`
	AvgUploadMbps   float64 `json:"avg_upload_mbps"`
	AvgPingMs       float64 `json:"avg_ping_ms"`
	AvgJitterMs     float64 `json:"avg_jitter_ms"`
}

// GetDailyStats retrieves daily averages for the last days, newest first
func (db *DB) GetDailyStats(days int) ([]DailyStat, error) {
	query := `
        SELECT date, runs, avg_download_mbps, avg_upload_mbps, avg_ping_ms, avg_jitter_ms
        FROM daily_stats
        WHERE date > date('now', '-' || ? || ' days')
        ORDER BY date DESC
    `

	rows, err := db.Query(query, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []DailyStat
	for rows.Next() {
		var d DailyStat
		if err := rows.Scan(&d.Date, &d.Runs, &d.AvgDownloadMbps, &d.AvgUploadMbps, &d.AvgPingMs, &d.AvgJitterMs); err != nil {
			continue
		}
		stats = append(stats, d)
	}

	return stats, rows.Err()
}
