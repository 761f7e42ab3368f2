package database

// QueueReply queues a reply body for a review. Returns false when a reply
// row already exists for the review.
func (db *DB) QueueReply(reviewID int64, body string) (bool, error) {
	_, err := db.conn.Exec(
		`INSERT INTO replies (review_id, body) VALUES (?, ?)`, reviewID, body,
	)
	if err != nil {
		// Duplicate review_id constraint
		return false, nil //nolint: nilerr
	}
	return true, nil
}

// GetPendingReplies returns all pending replies joined with their review and
// store, oldest first.
func (db *DB) GetPendingReplies() ([]PendingReply, error) {
	rows, err := db.conn.Query(
		`SELECT p.review_id, p.body, p.status, p.attempts, p.last_error, p.posted_at, p.created_at,
			r.id, r.store_id, r.dsid, r.content_hash, r.rolling_hash, r.neighbor_hash,
			r.page_salt, r.index_hint, r.reviewer, r.review_date, r.review_text, r.order_menu,
			r.rating, r.sub_ratings, r.image_urls, r.rating_method, r.rating_confidence, r.crawled_at,
			s.id, s.platform, s.store_code, s.name, s.reply_guideline, s.is_active, s.created_at, s.updated_at
		FROM replies p
		JOIN reviews r ON r.id = p.review_id
		JOIN stores s ON s.id = r.store_id
		WHERE p.status = 'pending'
		ORDER BY p.created_at ASC, p.review_id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pending []PendingReply
	for rows.Next() {
		var pr PendingReply
		var subs, imgs *string
		var active int
		if err := rows.Scan(
			&pr.Reply.ReviewID, &pr.Reply.Body, &pr.Reply.Status, &pr.Reply.Attempts,
			&pr.Reply.LastError, &pr.Reply.PostedAt, &pr.Reply.CreatedAt,
			&pr.Review.ID, &pr.Review.StoreID, &pr.Review.DSID, &pr.Review.ContentHash,
			&pr.Review.RollingHash, &pr.Review.NeighborHash, &pr.Review.PageSalt,
			&pr.Review.IndexHint, &pr.Review.Reviewer, &pr.Review.ReviewDate,
			&pr.Review.ReviewText, &pr.Review.OrderMenu, &pr.Review.Rating,
			&subs, &imgs, &pr.Review.RatingMethod, &pr.Review.RatingConfidence,
			&pr.Review.CrawledAt,
			&pr.Store.ID, &pr.Store.Platform, &pr.Store.StoreCode, &pr.Store.Name,
			&pr.Store.ReplyGuideline, &active, &pr.Store.CreatedAt, &pr.Store.UpdatedAt,
		); err != nil {
			return nil, err
		}
		pr.Store.IsActive = active != 0
		unmarshalReviewJSON(&pr.Review, subs, imgs)
		pending = append(pending, pr)
	}
	return pending, rows.Err()
}

// GetRepliesForStore returns all replies for a store's reviews.
func (db *DB) GetRepliesForStore(storeID int64) (map[int64]Reply, error) {
	rows, err := db.conn.Query(
		`SELECT p.review_id, p.body, p.status, p.attempts, p.last_error, p.posted_at, p.created_at
		FROM replies p JOIN reviews r ON r.id = p.review_id
		WHERE r.store_id = ?`, storeID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	replies := make(map[int64]Reply)
	for rows.Next() {
		var p Reply
		if err := rows.Scan(&p.ReviewID, &p.Body, &p.Status, &p.Attempts,
			&p.LastError, &p.PostedAt, &p.CreatedAt); err != nil {
			return nil, err
		}
		replies[p.ReviewID] = p
	}
	return replies, rows.Err()
}

// MarkReplyPosted records a successful post.
func (db *DB) MarkReplyPosted(reviewID int64) error {
	_, err := db.conn.Exec(
		`UPDATE replies SET status = 'posted', attempts = attempts + 1,
			posted_at = datetime('now'), last_error = NULL
		WHERE review_id = ?`, reviewID,
	)
	return err
}

// MarkReplySkipped records that the review could not be re-located and the
// reply was intentionally not posted.
func (db *DB) MarkReplySkipped(reviewID int64, reason string) error {
	_, err := db.conn.Exec(
		`UPDATE replies SET status = 'skipped', attempts = attempts + 1, last_error = ?
		WHERE review_id = ?`, reason, reviewID,
	)
	return err
}

// MarkReplyFailed records a post attempt that errored; the reply stays
// failed until an operator re-queues it.
func (db *DB) MarkReplyFailed(reviewID int64, errMsg string) error {
	_, err := db.conn.Exec(
		`UPDATE replies SET status = 'failed', attempts = attempts + 1, last_error = ?
		WHERE review_id = ?`, errMsg, reviewID,
	)
	return err
}
