package reply

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/tomatocup1/reviewsync/internal/browser"
	"github.com/tomatocup1/reviewsync/internal/config"
	"github.com/tomatocup1/reviewsync/internal/crawl"
	"github.com/tomatocup1/reviewsync/internal/database"
	"github.com/tomatocup1/reviewsync/internal/dsid"
	"github.com/tomatocup1/reviewsync/internal/extract"
)

// PageActor captures listing pages and submits replies on them. Satisfied
// by browser.Browser; tests supply fakes.
type PageActor interface {
	Capture(ctx context.Context, url, waitSelector string) (string, error)
	PostReply(ctx context.Context, req browser.PostRequest) error
}

// PostResult holds the results of a posting run.
type PostResult struct {
	Pending int
	Posted  int
	Skipped int
	Failed  int
}

// Poster submits queued replies. Each reply is posted only after its review
// is re-located on the live page; a review that cannot be found is skipped,
// never guessed at.
type Poster struct {
	cfg   *config.Config
	db    *database.DB
	actor PageActor
}

// NewPoster creates a poster over the given page actor.
func NewPoster(cfg *config.Config, db *database.DB, actor PageActor) *Poster {
	return &Poster{cfg: cfg, db: db, actor: actor}
}

// Post processes all pending replies. Listing pages are captured once per
// store and reused across that store's replies.
func (p *Poster) Post(ctx context.Context) (*PostResult, error) {
	pending, err := p.db.GetPendingReplies()
	if err != nil {
		return nil, fmt.Errorf("loading pending replies: %w", err)
	}

	r := &PostResult{Pending: len(pending)}
	pages := make(map[int64]string)

	for _, pr := range pending {
		if err := ctx.Err(); err != nil {
			return r, err
		}

		if err := p.postOne(ctx, pr, pages, r); err != nil {
			log.Printf("posting reply for review %d failed: %v", pr.Review.ID, err)
			r.Failed++
			if markErr := p.db.MarkReplyFailed(pr.Review.ID, err.Error()); markErr != nil {
				log.Printf("marking reply failed: %v", markErr)
			}
		}
	}

	log.Printf("Reply posting complete: %d pending, %d posted, %d skipped, %d failed",
		r.Pending, r.Posted, r.Skipped, r.Failed)
	return r, nil
}

func (p *Poster) postOne(ctx context.Context, pr database.PendingReply, pages map[int64]string, r *PostResult) error {
	platform, err := p.cfg.GetPlatform(pr.Store.Platform)
	if err != nil {
		return err
	}
	url := platform.ReviewPageURL(pr.Store.StoreCode)

	html, ok := pages[pr.Store.ID]
	if !ok {
		html, err = p.actor.Capture(ctx, url, platform.Selectors.Item)
		if err != nil {
			return fmt.Errorf("capturing listing page: %w", err)
		}
		pages[pr.Store.ID] = html
	}

	fresh, err := extract.Reviews(html, platform)
	if err != nil {
		return err
	}

	now := time.Now()
	salt := dsid.DerivePageSalt(url, platform.SortOption, platform.FilterOption, now)
	stored := crawl.StoredFromRow(pr.Review)

	match, found := dsid.FindByDSID(pr.Review.DSID, fresh, &stored, salt, now)
	if !found {
		log.Printf("review %d (%s) not found on current page, skipping", pr.Review.ID, pr.Review.DSID)
		r.Skipped++
		return p.db.MarkReplySkipped(pr.Review.ID, "review not found on current page")
	}
	if match.Tied {
		log.Printf("review %d matched ambiguously at index %d", pr.Review.ID, match.Index)
	}

	err = p.actor.PostReply(ctx, browser.PostRequest{
		URL:          url,
		ItemSelector: platform.Selectors.Item,
		ItemIndex:    match.Index,
		ReplyBox:     platform.Selectors.ReplyBox,
		ReplySubmit:  platform.Selectors.ReplySubmit,
		Body:         pr.Reply.Body,
	})
	if err != nil {
		return fmt.Errorf("submitting reply: %w", err)
	}

	// The DOM changed after submit; force a fresh capture for the next
	// reply on this store.
	delete(pages, pr.Store.ID)

	r.Posted++
	return p.db.MarkReplyPosted(pr.Review.ID)
}
