package crawl

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tomatocup1/reviewsync/internal/config"
	"github.com/tomatocup1/reviewsync/internal/database"
)

// fakeSource returns canned HTML per URL.
type fakeSource struct {
	pages map[string]string
	calls []string
}

func (f *fakeSource) Capture(_ context.Context, url, _ string) (string, error) {
	f.calls = append(f.calls, url)
	html, ok := f.pages[url]
	if !ok {
		return "", fmt.Errorf("no page for %s", url)
	}
	return html, nil
}

func testConfig() *config.Config {
	cfg, _ := config.Default()
	p := cfg.Platforms["baemin"]
	p.ReviewURL = "https://example.test/reviews/{store}"
	p.Selectors = config.Selectors{
		Item:         "li.review-item",
		Reviewer:     ".reviewer-name",
		Date:         ".review-date",
		Text:         ".review-content",
		RatingWidget: ".rating",
	}
	cfg.Platforms["baemin"] = p
	return cfg
}

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func listingPage(reviews ...[2]string) string {
	var b strings.Builder
	b.WriteString("<html><body><ul>")
	for _, r := range reviews {
		fmt.Fprintf(&b, `<li class="review-item">
			<span class="reviewer-name">%s</span>
			<span class="review-date">2025.08.18</span>
			<p class="review-content">%s</p>
			<div class="rating"><svg fill="#FFC600"></svg><svg fill="#FFC600"></svg><svg fill="#FFC600"></svg><svg fill="#FFC600"></svg><svg fill="#CCC"></svg></div>
		</li>`, r[0], r[1])
	}
	b.WriteString("</ul></body></html>")
	return b.String()
}

func TestCrawlStorePersistsReviews(t *testing.T) {
	cfg := testConfig()
	db := openTestDB(t)

	storeID, err := db.InsertStore("baemin", "1001", "테스트 치킨", nil)
	if err != nil {
		t.Fatalf("InsertStore failed: %v", err)
	}
	store, _ := db.GetStoreByID(storeID)

	src := &fakeSource{pages: map[string]string{
		"https://example.test/reviews/1001": listingPage(
			[2]string{"김**", "정말 맛있어요"},
			[2]string{"박**", "별로였어요"},
		),
	}}

	c := NewCrawler(cfg, db, src)
	found, fresh, err := c.CrawlStore(context.Background(), *store)
	if err != nil {
		t.Fatalf("CrawlStore failed: %v", err)
	}
	if found != 2 || fresh != 2 {
		t.Errorf("found=%d fresh=%d, want 2/2", found, fresh)
	}

	rows, err := db.GetReviewsForStore(storeID)
	if err != nil {
		t.Fatalf("GetReviewsForStore failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 stored reviews, got %d", len(rows))
	}
	for _, row := range rows {
		if len(row.DSID) != 16 {
			t.Errorf("dsid %q not 16 chars", row.DSID)
		}
		if row.PageSalt == nil || len(*row.PageSalt) != 12 {
			t.Errorf("page salt missing or wrong length: %v", row.PageSalt)
		}
		if row.Rating != 4 {
			t.Errorf("rating = %v, want 4", row.Rating)
		}
	}
}

func TestCrawlStoreRecrawlIsDuplicate(t *testing.T) {
	cfg := testConfig()
	db := openTestDB(t)

	storeID, _ := db.InsertStore("baemin", "1001", "테스트 치킨", nil)
	store, _ := db.GetStoreByID(storeID)

	src := &fakeSource{pages: map[string]string{
		"https://example.test/reviews/1001": listingPage([2]string{"김**", "정말 맛있어요"}),
	}}

	c := NewCrawler(cfg, db, src)
	if _, fresh, err := c.CrawlStore(context.Background(), *store); err != nil || fresh != 1 {
		t.Fatalf("first crawl: fresh=%d err=%v", fresh, err)
	}
	found, fresh, err := c.CrawlStore(context.Background(), *store)
	if err != nil {
		t.Fatalf("second crawl failed: %v", err)
	}
	if found != 1 || fresh != 0 {
		t.Errorf("second crawl found=%d fresh=%d, want 1/0", found, fresh)
	}

	rows, _ := db.GetReviewsForStore(storeID)
	if len(rows) != 1 {
		t.Errorf("expected 1 row after recrawl, got %d", len(rows))
	}
}

func TestCrawlAllSkipsFailingStore(t *testing.T) {
	cfg := testConfig()
	db := openTestDB(t)

	goodID, _ := db.InsertStore("baemin", "1001", "잘 되는 가게", nil)
	db.InsertStore("baemin", "2002", "안 되는 가게", nil)

	src := &fakeSource{pages: map[string]string{
		"https://example.test/reviews/1001": listingPage([2]string{"김**", "좋아요"}),
	}}

	c := NewCrawler(cfg, db, src)
	r, err := c.CrawlAll(context.Background())
	if err != nil {
		t.Fatalf("CrawlAll failed: %v", err)
	}
	if r.StoresCrawled != 1 {
		t.Errorf("stores crawled = %d, want 1", r.StoresCrawled)
	}
	if len(r.Errors) != 1 {
		t.Errorf("expected 1 store error, got %d", len(r.Errors))
	}
	if r.NewReviews != 1 {
		t.Errorf("new reviews = %d, want 1", r.NewReviews)
	}

	rows, _ := db.GetReviewsForStore(goodID)
	if len(rows) != 1 {
		t.Errorf("expected 1 stored review for good store, got %d", len(rows))
	}
}

func TestCrawlAllSkipsInactiveStores(t *testing.T) {
	cfg := testConfig()
	db := openTestDB(t)

	id, _ := db.InsertStore("baemin", "1001", "휴업 가게", nil)
	if err := db.ToggleStore(id); err != nil {
		t.Fatalf("ToggleStore failed: %v", err)
	}

	src := &fakeSource{pages: map[string]string{}}
	c := NewCrawler(cfg, db, src)
	r, err := c.CrawlAll(context.Background())
	if err != nil {
		t.Fatalf("CrawlAll failed: %v", err)
	}
	if r.StoresCrawled != 0 || len(src.calls) != 0 {
		t.Errorf("inactive store was crawled: result=%+v calls=%v", r, src.calls)
	}
}
