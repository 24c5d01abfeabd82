package database

import (
	"time"
)

// AggregateDailyStats rolls the last two full UTC days and today up into
// daily averages. A day already aggregated from more runs is kept, so pruning
// never shrinks a stored day.
func (db *DB) AggregateDailyStats() error {
	query := `
        INSERT INTO daily_stats (date, runs, avg_download_mbps, avg_upload_mbps, avg_ping_ms, avg_jitter_ms)
        SELECT
            substr(timestamp, 1, 10) as day,
            COUNT(*),
            AVG(download_mbps),
            AVG(upload_mbps),
            AVG(ping_ms),
            AVG(jitter_ms)
        FROM speed_results
        WHERE timestamp >= ?
        GROUP BY day
        ON CONFLICT(date) DO UPDATE SET
            runs = excluded.runs,
            avg_download_mbps = excluded.avg_download_mbps,
            avg_upload_mbps = excluded.avg_upload_mbps,
            avg_ping_ms = excluded.avg_ping_ms,
            avg_jitter_ms = excluded.avg_jitter_ms
        WHERE excluded.runs >= daily_stats.runs
    `
	since := time.Now().UTC().Truncate(24 * time.Hour).Add(-48 * time.Hour)
	_, err := db.Exec(query, since)
	return err
}

// Prune keeps the newest keep results and deletes the rest
func (db *DB) Prune(keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := db.Exec(`
        DELETE FROM speed_results
        WHERE id NOT IN (
            SELECT id FROM speed_results ORDER BY timestamp DESC LIMIT ?
        )
    `, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ArchiveOldData aggregates, prunes and cleans up
func (db *DB) ArchiveOldData(keep int) error {
	if err := db.AggregateDailyStats(); err != nil {
		return err
	}

	if _, err := db.Prune(keep); err != nil {
		return err
	}

	// Daily stats older than a year are not reported
	if _, err := db.Exec(`DELETE FROM daily_stats WHERE date < date('now', '-365 days')`); err != nil {
		return err
	}

	// Vacuum to reclaim space (run occasionally)
	if time.Now().Day() == 1 { // Run on first day of month
		_, err := db.Exec("VACUUM")
		return err
	}

	return nil
}
