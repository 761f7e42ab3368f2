package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS stores (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    platform TEXT NOT NULL,
    store_code TEXT NOT NULL,
    name TEXT NOT NULL,
    reply_guideline TEXT,
    is_active INTEGER DEFAULT 1,
    created_at TEXT DEFAULT (datetime('now')),
    updated_at TEXT DEFAULT (datetime('now')),
    UNIQUE(platform, store_code)
);

CREATE TABLE IF NOT EXISTS reviews (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    store_id INTEGER NOT NULL REFERENCES stores(id),
    dsid TEXT NOT NULL,
    content_hash TEXT NOT NULL,
    rolling_hash TEXT,
    neighbor_hash TEXT,
    page_salt TEXT,
    index_hint INTEGER DEFAULT 0,
    reviewer TEXT,
    review_date TEXT,
    review_text TEXT,
    order_menu TEXT,
    rating REAL DEFAULT 0,
    sub_ratings TEXT,
    image_urls TEXT,
    rating_method TEXT,
    rating_confidence REAL DEFAULT 0,
    crawled_at TEXT DEFAULT (datetime('now')),
    UNIQUE(store_id, content_hash)
);

CREATE TABLE IF NOT EXISTS replies (
    review_id INTEGER PRIMARY KEY REFERENCES reviews(id),
    body TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending'
        CHECK(status IN ('pending', 'posted', 'skipped', 'failed')),
    attempts INTEGER DEFAULT 0,
    last_error TEXT,
    posted_at TEXT,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS run_reports (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_date TEXT NOT NULL,
    stores_crawled INTEGER DEFAULT 0,
    reviews_found INTEGER DEFAULT 0,
    new_reviews INTEGER DEFAULT 0,
    replies_posted INTEGER DEFAULT 0,
    replies_skipped INTEGER DEFAULT 0,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_reviews_store ON reviews(store_id);
CREATE INDEX IF NOT EXISTS idx_reviews_dsid ON reviews(dsid);
CREATE INDEX IF NOT EXISTS idx_replies_status ON replies(status);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
