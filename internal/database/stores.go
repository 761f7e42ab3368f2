package database

import (
	"database/sql"
)

// InsertStore registers a store. Returns the ID on success, 0 if a store
// with the same platform and code already exists.
func (db *DB) InsertStore(platform, storeCode, name string, guideline *string) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT INTO stores (platform, store_code, name, reply_guideline)
		VALUES (?, ?, ?, ?)`,
		platform, storeCode, name, guideline,
	)
	if err != nil {
		// Duplicate (platform, store_code) constraint
		return 0, nil //nolint: nilerr
	}
	return result.LastInsertId()
}

// GetStore returns a store by platform and code, or nil.
func (db *DB) GetStore(platform, storeCode string) (*Store, error) {
	row := db.conn.QueryRow(
		`SELECT id, platform, store_code, name, reply_guideline, is_active, created_at, updated_at
		FROM stores WHERE platform = ? AND store_code = ?`, platform, storeCode,
	)
	return scanStore(row)
}

// GetStoreByID returns a store by ID, or nil.
func (db *DB) GetStoreByID(id int64) (*Store, error) {
	row := db.conn.QueryRow(
		`SELECT id, platform, store_code, name, reply_guideline, is_active, created_at, updated_at
		FROM stores WHERE id = ?`, id,
	)
	return scanStore(row)
}

// GetAllStores returns every registered store.
func (db *DB) GetAllStores() ([]Store, error) {
	return db.queryStores(
		`SELECT id, platform, store_code, name, reply_guideline, is_active, created_at, updated_at
		FROM stores ORDER BY platform, name`,
	)
}

// GetActiveStores returns stores enabled for crawling.
func (db *DB) GetActiveStores() ([]Store, error) {
	return db.queryStores(
		`SELECT id, platform, store_code, name, reply_guideline, is_active, created_at, updated_at
		FROM stores WHERE is_active = 1 ORDER BY platform, name`,
	)
}

// ToggleStore flips a store's active state.
func (db *DB) ToggleStore(id int64) error {
	_, err := db.conn.Exec(
		`UPDATE stores SET is_active = 1 - is_active, updated_at = datetime('now') WHERE id = ?`, id,
	)
	return err
}

// UpdateStoreGuideline replaces a store's reply guideline text.
func (db *DB) UpdateStoreGuideline(id int64, guideline string) error {
	_, err := db.conn.Exec(
		`UPDATE stores SET reply_guideline = ?, updated_at = datetime('now') WHERE id = ?`,
		guideline, id,
	)
	return err
}

// DeleteStore removes a store and everything crawled for it.
func (db *DB) DeleteStore(id int64) error {
	if _, err := db.conn.Exec(
		`DELETE FROM replies WHERE review_id IN (SELECT id FROM reviews WHERE store_id = ?)`, id,
	); err != nil {
		return err
	}
	if _, err := db.conn.Exec(`DELETE FROM reviews WHERE store_id = ?`, id); err != nil {
		return err
	}
	_, err := db.conn.Exec(`DELETE FROM stores WHERE id = ?`, id)
	return err
}

func (db *DB) queryStores(query string, args ...any) ([]Store, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stores []Store
	for rows.Next() {
		var s Store
		var active int
		if err := rows.Scan(&s.ID, &s.Platform, &s.StoreCode, &s.Name,
			&s.ReplyGuideline, &active, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		s.IsActive = active != 0
		stores = append(stores, s)
	}
	return stores, rows.Err()
}

func scanStore(row *sql.Row) (*Store, error) {
	var s Store
	var active int
	err := row.Scan(&s.ID, &s.Platform, &s.StoreCode, &s.Name,
		&s.ReplyGuideline, &active, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.IsActive = active != 0
	return &s, nil
}
