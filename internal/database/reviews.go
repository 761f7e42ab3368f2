package database

import (
	"database/sql"
	"encoding/json"
)

// UpsertReview stores a crawled review. Content identity is the
// (store_id, content_hash) pair: a review seen for the first time is
// inserted and true is returned; a review already known has its positional
// identifiers (dsid, hashes, salt, index hint) refreshed to the latest
// render, since those change between views while the content does not.
func (db *DB) UpsertReview(r *Review) (int64, bool, error) {
	subs := marshalJSON(r.SubRatings)
	imgs := marshalJSON(r.ImageURLs)

	result, err := db.conn.Exec(
		`INSERT INTO reviews (store_id, dsid, content_hash, rolling_hash, neighbor_hash,
			page_salt, index_hint, reviewer, review_date, review_text, order_menu,
			rating, sub_ratings, image_urls, rating_method, rating_confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.StoreID, r.DSID, r.ContentHash, r.RollingHash, r.NeighborHash,
		r.PageSalt, r.IndexHint, r.Reviewer, r.ReviewDate, r.ReviewText, r.OrderMenu,
		r.Rating, subs, imgs, r.RatingMethod, r.RatingConfidence,
	)
	if err == nil {
		id, err := result.LastInsertId()
		return id, true, err
	}

	// Already known: refresh the render-scoped identifiers.
	_, err = db.conn.Exec(
		`UPDATE reviews SET dsid = ?, rolling_hash = ?, neighbor_hash = ?,
			page_salt = ?, index_hint = ?
		WHERE store_id = ? AND content_hash = ?`,
		r.DSID, r.RollingHash, r.NeighborHash, r.PageSalt, r.IndexHint,
		r.StoreID, r.ContentHash,
	)
	if err != nil {
		return 0, false, err
	}

	var id int64
	err = db.conn.QueryRow(
		`SELECT id FROM reviews WHERE store_id = ? AND content_hash = ?`,
		r.StoreID, r.ContentHash,
	).Scan(&id)
	return id, false, err
}

// GetReviewsForStore returns a store's reviews, newest first.
func (db *DB) GetReviewsForStore(storeID int64) ([]Review, error) {
	rows, err := db.conn.Query(
		reviewSelect+` WHERE store_id = ? ORDER BY crawled_at DESC, id DESC`, storeID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReviews(rows)
}

// GetReviewByID returns a single review, or nil.
func (db *DB) GetReviewByID(id int64) (*Review, error) {
	rows, err := db.conn.Query(reviewSelect+` WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reviews, err := scanReviews(rows)
	if err != nil {
		return nil, err
	}
	if len(reviews) == 0 {
		return nil, nil
	}
	return &reviews[0], nil
}

// GetUnansweredReviews returns a store's reviews with no reply queued or
// posted yet, oldest first so replies go out in arrival order.
func (db *DB) GetUnansweredReviews(storeID int64) ([]Review, error) {
	rows, err := db.conn.Query(
		`SELECT r.id, r.store_id, r.dsid, r.content_hash, r.rolling_hash, r.neighbor_hash,
			r.page_salt, r.index_hint, r.reviewer, r.review_date, r.review_text, r.order_menu,
			r.rating, r.sub_ratings, r.image_urls, r.rating_method, r.rating_confidence, r.crawled_at
		FROM reviews r LEFT JOIN replies p ON r.id = p.review_id
		WHERE r.store_id = ? AND p.review_id IS NULL
		ORDER BY r.crawled_at ASC, r.id ASC`, storeID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReviews(rows)
}

const reviewSelect = `SELECT id, store_id, dsid, content_hash, rolling_hash, neighbor_hash,
	page_salt, index_hint, reviewer, review_date, review_text, order_menu,
	rating, sub_ratings, image_urls, rating_method, rating_confidence, crawled_at
	FROM reviews`

func scanReviews(rows *sql.Rows) ([]Review, error) {
	var reviews []Review
	for rows.Next() {
		var r Review
		var subs, imgs *string
		if err := rows.Scan(&r.ID, &r.StoreID, &r.DSID, &r.ContentHash, &r.RollingHash,
			&r.NeighborHash, &r.PageSalt, &r.IndexHint, &r.Reviewer, &r.ReviewDate,
			&r.ReviewText, &r.OrderMenu, &r.Rating, &subs, &imgs,
			&r.RatingMethod, &r.RatingConfidence, &r.CrawledAt); err != nil {
			return nil, err
		}
		unmarshalReviewJSON(&r, subs, imgs)
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

func unmarshalReviewJSON(r *Review, subs, imgs *string) {
	if subs != nil {
		json.Unmarshal([]byte(*subs), &r.SubRatings)
	}
	if imgs != nil {
		json.Unmarshal([]byte(*imgs), &r.ImageURLs)
	}
}

// marshalJSON serializes a value for a nullable TEXT column; empty
// collections store as NULL.
func marshalJSON(v any) *string {
	data, err := json.Marshal(v)
	if err != nil || string(data) == "null" || string(data) == "[]" {
		return nil
	}
	s := string(data)
	return &s
}
