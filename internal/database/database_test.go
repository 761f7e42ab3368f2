package database

import (
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func ptr(s string) *string { return &s }

func testReview(storeID int64, contentHash, dsid string) *Review {
	return &Review{
		StoreID:     storeID,
		DSID:        dsid,
		ContentHash: contentHash,
		RollingHash: ptr("roll01"),
		PageSalt:    ptr("salt01"),
		IndexHint:   0,
		Reviewer:    ptr("김**"),
		ReviewDate:  ptr("2025.08.18"),
		ReviewText:  ptr("정말 맛있어요"),
		Rating:      5,
		SubRatings:  []SubRatingRow{{Name: "맛", Value: 5}},
		ImageURLs:   []string{"https://cdn.example.com/a.jpg"},
	}
}

func TestInsertStore(t *testing.T) {
	db := openTestDB(t)
	id, err := db.InsertStore("baemin", "12345", "김밥천국 강남점", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id == 0 {
		t.Error("expected non-zero store ID")
	}
}

func TestInsertDuplicateStore(t *testing.T) {
	db := openTestDB(t)
	db.InsertStore("baemin", "12345", "First", nil)
	id, err := db.InsertStore("baemin", "12345", "Duplicate", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 0 {
		t.Error("expected 0 for duplicate store")
	}

	// Same code on a different platform is a different store.
	id, _ = db.InsertStore("yogiyo", "12345", "Other platform", nil)
	if id == 0 {
		t.Error("expected insert to succeed on different platform")
	}
}

func TestToggleStore(t *testing.T) {
	db := openTestDB(t)
	id, _ := db.InsertStore("baemin", "12345", "Test", nil)

	if err := db.ToggleStore(id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	store, _ := db.GetStoreByID(id)
	if store.IsActive {
		t.Error("expected store inactive after toggle")
	}

	active, _ := db.GetActiveStores()
	if len(active) != 0 {
		t.Errorf("expected 0 active stores, got %d", len(active))
	}
}

func TestUpsertReviewInsertThenRefresh(t *testing.T) {
	db := openTestDB(t)
	sid, _ := db.InsertStore("yogiyo", "111", "Test", nil)

	id, inserted, err := db.UpsertReview(testReview(sid, "hashA", "dsid-one"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !inserted || id == 0 {
		t.Fatal("expected fresh insert")
	}

	// Same content on a later render: new dsid, same row.
	later := testReview(sid, "hashA", "dsid-two")
	later.IndexHint = 3
	id2, inserted2, err := db.UpsertReview(later)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inserted2 {
		t.Error("expected duplicate content to refresh, not insert")
	}
	if id2 != id {
		t.Errorf("expected same row id %d, got %d", id, id2)
	}

	got, _ := db.GetReviewByID(id)
	if got.DSID != "dsid-two" {
		t.Errorf("expected refreshed dsid, got %q", got.DSID)
	}
	if got.IndexHint != 3 {
		t.Errorf("expected refreshed index hint, got %d", got.IndexHint)
	}
	if len(got.SubRatings) != 1 || got.SubRatings[0].Name != "맛" {
		t.Errorf("expected sub-ratings to round-trip, got %v", got.SubRatings)
	}
	if len(got.ImageURLs) != 1 {
		t.Errorf("expected image URLs to round-trip, got %v", got.ImageURLs)
	}
}

func TestGetUnansweredReviews(t *testing.T) {
	db := openTestDB(t)
	sid, _ := db.InsertStore("baemin", "111", "Test", nil)

	a, _, _ := db.UpsertReview(testReview(sid, "hashA", "dsidA"))
	db.UpsertReview(testReview(sid, "hashB", "dsidB"))

	unanswered, err := db.GetUnansweredReviews(sid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(unanswered) != 2 {
		t.Fatalf("expected 2 unanswered, got %d", len(unanswered))
	}

	db.QueueReply(a, "감사합니다!")
	unanswered, _ = db.GetUnansweredReviews(sid)
	if len(unanswered) != 1 {
		t.Errorf("expected 1 unanswered after queueing, got %d", len(unanswered))
	}
}

func TestReplyLifecycle(t *testing.T) {
	db := openTestDB(t)
	sid, _ := db.InsertStore("coupangeats", "222", "Test", nil)
	rid, _, _ := db.UpsertReview(testReview(sid, "hashA", "dsidA"))

	ok, err := db.QueueReply(rid, "감사합니다!")
	if err != nil || !ok {
		t.Fatalf("expected queue to succeed, ok=%v err=%v", ok, err)
	}

	// Double-queue is a no-op.
	ok, _ = db.QueueReply(rid, "다른 내용")
	if ok {
		t.Error("expected duplicate queue to report false")
	}

	pending, _ := db.GetPendingReplies()
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending reply, got %d", len(pending))
	}
	if pending[0].Store.Platform != "coupangeats" {
		t.Errorf("expected store context, got %q", pending[0].Store.Platform)
	}
	if pending[0].Review.DSID != "dsidA" {
		t.Errorf("expected review context, got %q", pending[0].Review.DSID)
	}

	if err := db.MarkReplyPosted(rid); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pending, _ = db.GetPendingReplies()
	if len(pending) != 0 {
		t.Errorf("expected 0 pending after posting, got %d", len(pending))
	}

	replies, _ := db.GetRepliesForStore(sid)
	if replies[rid].Status != "posted" {
		t.Errorf("expected posted status, got %q", replies[rid].Status)
	}
	if replies[rid].Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", replies[rid].Attempts)
	}
}

func TestMarkReplySkipped(t *testing.T) {
	db := openTestDB(t)
	sid, _ := db.InsertStore("yogiyo", "333", "Test", nil)
	rid, _, _ := db.UpsertReview(testReview(sid, "hashA", "dsidA"))
	db.QueueReply(rid, "감사합니다!")

	if err := db.MarkReplySkipped(rid, "review not found on page"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	replies, _ := db.GetRepliesForStore(sid)
	r := replies[rid]
	if r.Status != "skipped" {
		t.Errorf("expected skipped, got %q", r.Status)
	}
	if r.LastError == nil || *r.LastError != "review not found on page" {
		t.Error("expected skip reason recorded")
	}
}

func TestDeleteStoreCascades(t *testing.T) {
	db := openTestDB(t)
	sid, _ := db.InsertStore("baemin", "444", "Test", nil)
	rid, _, _ := db.UpsertReview(testReview(sid, "hashA", "dsidA"))
	db.QueueReply(rid, "감사합니다!")

	if err := db.DeleteStore(sid); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stores, _ := db.GetAllStores()
	if len(stores) != 0 {
		t.Error("expected store removed")
	}
	reviews, _ := db.GetReviewsForStore(sid)
	if len(reviews) != 0 {
		t.Error("expected reviews removed with store")
	}
}

func TestGetStats(t *testing.T) {
	db := openTestDB(t)
	sid, _ := db.InsertStore("baemin", "555", "Test", nil)
	rid, _, _ := db.UpsertReview(testReview(sid, "hashA", "dsidA"))
	db.UpsertReview(testReview(sid, "hashB", "dsidB"))
	db.QueueReply(rid, "감사합니다!")

	stats, err := db.GetStats()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TotalStores != 1 || stats.ActiveStores != 1 {
		t.Errorf("unexpected store counts: %+v", stats)
	}
	if stats.TotalReviews != 2 {
		t.Errorf("expected 2 reviews, got %d", stats.TotalReviews)
	}
	if stats.PendingReplies != 1 {
		t.Errorf("expected 1 pending reply, got %d", stats.PendingReplies)
	}
}

func TestRunReports(t *testing.T) {
	db := openTestDB(t)

	last, _ := db.GetLastRunDate()
	if last != "" {
		t.Errorf("expected empty last run date, got %q", last)
	}

	_, err := db.InsertRunReport(RunReport{
		RunDate: "2025-08-18", StoresCrawled: 2, ReviewsFound: 10, NewReviews: 4,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	last, _ = db.GetLastRunDate()
	if last != "2025-08-18" {
		t.Errorf("expected 2025-08-18, got %q", last)
	}
}
