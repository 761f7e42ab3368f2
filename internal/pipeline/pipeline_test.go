package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tomatocup1/reviewsync/internal/browser"
	"github.com/tomatocup1/reviewsync/internal/config"
	"github.com/tomatocup1/reviewsync/internal/database"
)

type fakeBrowser struct {
	pages  map[string]string
	posted []browser.PostRequest
}

func (f *fakeBrowser) Capture(_ context.Context, url, _ string) (string, error) {
	html, ok := f.pages[url]
	if !ok {
		return "", fmt.Errorf("no page for %s", url)
	}
	return html, nil
}

func (f *fakeBrowser) PostReply(_ context.Context, req browser.PostRequest) error {
	f.posted = append(f.posted, req)
	return nil
}

func testConfig() *config.Config {
	cfg, _ := config.Default()
	p := cfg.Platforms["baemin"]
	p.ReviewURL = "https://example.test/reviews/{store}"
	p.Selectors = config.Selectors{
		Item:        "li.review-item",
		Reviewer:    ".reviewer-name",
		Date:        ".review-date",
		Text:        ".review-content",
		ReplyBox:    "textarea.reply",
		ReplySubmit: "button.reply-submit",
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

const listing = `<html><body><ul>
<li class="review-item">
	<span class="reviewer-name">김**</span>
	<span class="review-date">2025.08.18</span>
	<p class="review-content">정말 맛있어요</p>
</li>
<li class="review-item">
	<span class="reviewer-name">박**</span>
	<span class="review-date">어제</span>
	<p class="review-content">배달이 늦었어요</p>
</li>
</ul></body></html>`

func TestRunFullPipeline(t *testing.T) {
	cfg := testConfig()
	db := openTestDB(t)
	if _, err := db.InsertStore("baemin", "1001", "테스트 치킨", nil); err != nil {
		t.Fatalf("InsertStore failed: %v", err)
	}

	br := &fakeBrowser{pages: map[string]string{"https://example.test/reviews/1001": listing}}
	r := New(cfg, db, br).Run(context.Background())

	if r.Failed() {
		t.Fatalf("pipeline failed: %+v", r.Steps)
	}
	if len(r.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(r.Steps))
	}
	if !strings.Contains(r.Steps[0].Summary, "2 new") {
		t.Errorf("crawl summary = %q", r.Steps[0].Summary)
	}
	if !strings.Contains(r.Steps[1].Summary, "Drafted 2") {
		t.Errorf("draft summary = %q", r.Steps[1].Summary)
	}
	if !strings.Contains(r.Steps[2].Summary, "Posted 2") {
		t.Errorf("post summary = %q", r.Steps[2].Summary)
	}
	if len(br.posted) != 2 {
		t.Errorf("expected 2 submissions, got %d", len(br.posted))
	}

	// Run report recorded for today.
	last, err := db.GetLastRunDate()
	if err != nil {
		t.Fatalf("GetLastRunDate failed: %v", err)
	}
	if last != database.GetToday() {
		t.Errorf("last run date = %q, want %q", last, database.GetToday())
	}
}

func TestRunIsIdempotent(t *testing.T) {
	cfg := testConfig()
	db := openTestDB(t)
	db.InsertStore("baemin", "1001", "테스트 치킨", nil)

	br := &fakeBrowser{pages: map[string]string{"https://example.test/reviews/1001": listing}}
	p := New(cfg, db, br)

	if r := p.Run(context.Background()); r.Failed() {
		t.Fatalf("first run failed: %+v", r.Steps)
	}
	r := p.Run(context.Background())
	if r.Failed() {
		t.Fatalf("second run failed: %+v", r.Steps)
	}
	if !strings.Contains(r.Steps[1].Summary, "Drafted 0") {
		t.Errorf("second run draft summary = %q", r.Steps[1].Summary)
	}
	if len(br.posted) != 2 {
		t.Errorf("expected no extra submissions, got %d total", len(br.posted))
	}
}

func TestDryRunTouchesNoPages(t *testing.T) {
	cfg := testConfig()
	db := openTestDB(t)
	db.InsertStore("baemin", "1001", "테스트 치킨", nil)

	br := &fakeBrowser{pages: map[string]string{}}
	r := New(cfg, db, br).DryRun()

	if len(r.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(r.Steps))
	}
	for _, s := range r.Steps {
		if !strings.Contains(s.Summary, "[dry-run]") {
			t.Errorf("step %s missing dry-run marker: %q", s.Name, s.Summary)
		}
	}
	if len(br.posted) != 0 {
		t.Errorf("dry run submitted replies: %d", len(br.posted))
	}
}
