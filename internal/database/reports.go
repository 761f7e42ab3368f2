package database

import "time"

// GetToday returns today's date as YYYY-MM-DD.
func GetToday() string {
	return time.Now().Format("2006-01-02")
}

// InsertRunReport records the outcome of one pipeline run.
func (db *DB) InsertRunReport(r RunReport) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT INTO run_reports (run_date, stores_crawled, reviews_found, new_reviews,
			replies_posted, replies_skipped)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.RunDate, r.StoresCrawled, r.ReviewsFound, r.NewReviews,
		r.RepliesPosted, r.RepliesSkipped,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetLastRunDate returns the most recent run date, or "" when never run.
func (db *DB) GetLastRunDate() (string, error) {
	var date string
	err := db.conn.QueryRow(
		`SELECT run_date FROM run_reports ORDER BY run_date DESC LIMIT 1`,
	).Scan(&date)
	if err != nil {
		return "", nil //nolint: nilerr
	}
	return date, nil
}

// GetStats returns aggregate counts for the status command and dashboard.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}

	queries := []struct {
		dest  *int
		query string
	}{
		{&s.TotalStores, `SELECT COUNT(*) FROM stores`},
		{&s.ActiveStores, `SELECT COUNT(*) FROM stores WHERE is_active = 1`},
		{&s.TotalReviews, `SELECT COUNT(*) FROM reviews`},
		{&s.ReviewsToday, `SELECT COUNT(*) FROM reviews WHERE date(crawled_at) = date('now')`},
		{&s.PendingReplies, `SELECT COUNT(*) FROM replies WHERE status = 'pending'`},
		{&s.PostedReplies, `SELECT COUNT(*) FROM replies WHERE status = 'posted'`},
		{&s.SkippedReplies, `SELECT COUNT(*) FROM replies WHERE status = 'skipped'`},
		{&s.FailedReplies, `SELECT COUNT(*) FROM replies WHERE status = 'failed'`},
	}
	for _, q := range queries {
		if err := db.conn.QueryRow(q.query).Scan(q.dest); err != nil {
			return nil, err
		}
	}
	return s, nil
}
