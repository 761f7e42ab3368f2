// Package crawl orchestrates review collection: capture a store's listing
// page, extract the reviews, derive their identifiers and persist them.
package crawl

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/tomatocup1/reviewsync/internal/config"
	"github.com/tomatocup1/reviewsync/internal/database"
	"github.com/tomatocup1/reviewsync/internal/dsid"
	"github.com/tomatocup1/reviewsync/internal/extract"
)

// PageSource produces the rendered HTML of a listing page. Satisfied by
// browser.Browser; tests supply canned pages.
type PageSource interface {
	Capture(ctx context.Context, url, waitSelector string) (string, error)
}

// Result holds the results of a crawl run.
type Result struct {
	StoresCrawled int
	TotalFound    int
	NewReviews    int
	Duplicates    int
	Stores        map[string]int
	Errors        []error
}

// Crawler collects reviews from the configured platforms.
type Crawler struct {
	cfg *config.Config
	db  *database.DB
	src PageSource
}

// NewCrawler creates a crawler over the given page source.
func NewCrawler(cfg *config.Config, db *database.DB, src PageSource) *Crawler {
	return &Crawler{cfg: cfg, db: db, src: src}
}

// CrawlAll crawls every active store. Per-store failures are collected in
// the result, never fatal to the run.
func (c *Crawler) CrawlAll(ctx context.Context) (*Result, error) {
	stores, err := c.db.GetActiveStores()
	if err != nil {
		return nil, fmt.Errorf("loading active stores: %w", err)
	}

	r := &Result{Stores: make(map[string]int)}
	for _, store := range stores {
		if err := ctx.Err(); err != nil {
			return r, err
		}

		found, fresh, err := c.CrawlStore(ctx, store)
		if err != nil {
			log.Printf("crawl failed for %s/%s: %v", store.Platform, store.StoreCode, err)
			r.Errors = append(r.Errors, fmt.Errorf("%s/%s: %w", store.Platform, store.StoreCode, err))
			continue
		}

		r.StoresCrawled++
		r.TotalFound += found
		r.NewReviews += fresh
		r.Duplicates += found - fresh
		r.Stores[store.Name] += fresh
	}

	log.Printf("Crawl complete: %d stores, %d reviews found, %d new, %d duplicates",
		r.StoresCrawled, r.TotalFound, r.NewReviews, r.Duplicates)
	return r, nil
}

// CrawlStore crawls one store and returns (reviews found, new reviews).
func (c *Crawler) CrawlStore(ctx context.Context, store database.Store) (int, int, error) {
	platform, err := c.cfg.GetPlatform(store.Platform)
	if err != nil {
		return 0, 0, err
	}

	url := platform.ReviewPageURL(store.StoreCode)
	log.Printf("Crawling %s store %q (%s)", store.Platform, store.Name, url)

	html, err := c.src.Capture(ctx, url, platform.Selectors.Item)
	if err != nil {
		return 0, 0, fmt.Errorf("capturing listing page: %w", err)
	}

	reviews, err := extract.Reviews(html, platform)
	if err != nil {
		return 0, 0, err
	}

	now := time.Now()
	salt := dsid.DerivePageSalt(url, platform.SortOption, platform.FilterOption, now)
	identified := dsid.Process(reviews, salt, now)

	fresh := 0
	for _, id := range identified {
		row := toReviewRow(store.ID, id, salt)
		if _, isNew, err := c.db.UpsertReview(row); err != nil {
			return len(identified), fresh, fmt.Errorf("storing review %s: %w", id.DSID, err)
		} else if isNew {
			fresh++
		}
	}

	return len(identified), fresh, nil
}

func toReviewRow(storeID int64, id dsid.Identified, salt string) *database.Review {
	row := &database.Review{
		StoreID:          storeID,
		DSID:             id.DSID,
		ContentHash:      id.ContentHash,
		RollingHash:      optional(id.RollingHash),
		NeighborHash:     optional(id.NeighborHash),
		PageSalt:         optional(salt),
		IndexHint:        id.Index,
		Reviewer:         optional(id.Review.Reviewer),
		ReviewDate:       optional(id.Review.Date),
		ReviewText:       optional(id.Review.Text),
		OrderMenu:        optional(id.Review.OrderMenu),
		Rating:           id.Review.Rating,
		ImageURLs:        id.Review.ImageURLs,
		RatingMethod:     optional(id.Review.RatingMethod),
		RatingConfidence: id.Review.RatingConfidence,
	}
	for _, sub := range id.Review.SubRatings {
		row.SubRatings = append(row.SubRatings, database.SubRatingRow{Name: sub.Name, Value: sub.Value})
	}
	return row
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// StoredFromRow rebuilds the similarity-matching snapshot from a persisted
// review row.
func StoredFromRow(r database.Review) dsid.Stored {
	return dsid.Stored{
		Reviewer: deref(r.Reviewer),
		Date:     deref(r.ReviewDate),
		Text:     deref(r.ReviewText),
		Rating:   r.Rating,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
