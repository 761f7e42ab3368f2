// Package pipeline runs the full crawl → draft → post sequence and records
// a run report.
package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/tomatocup1/reviewsync/internal/config"
	"github.com/tomatocup1/reviewsync/internal/crawl"
	"github.com/tomatocup1/reviewsync/internal/database"
	"github.com/tomatocup1/reviewsync/internal/llm"
	"github.com/tomatocup1/reviewsync/internal/reply"
)

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full pipeline run.
type Result struct {
	RunDate string
	Steps   []StepResult
}

// Failed reports whether any step errored.
func (r *Result) Failed() bool {
	for _, s := range r.Steps {
		if s.Err != nil {
			return true
		}
	}
	return false
}

// Browser is the page automation the pipeline drives. Satisfied by
// browser.Browser.
type Browser interface {
	crawl.PageSource
	reply.PageActor
}

// Pipeline orchestrates the 3-step review automation run.
type Pipeline struct {
	cfg      *config.Config
	db       *database.DB
	br       Browser
	provider llm.Provider
}

// New creates a pipeline. The LLM provider is resolved from config; when
// none is reachable, reply drafting uses the template.
func New(cfg *config.Config, db *database.DB, br Browser) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		db:       db,
		br:       br,
		provider: llm.CreateProvider(cfg.Replies),
	}
}

// Run executes the full pipeline and writes the run report.
func (p *Pipeline) Run(ctx context.Context) *Result {
	r := &Result{RunDate: database.GetToday()}
	report := database.RunReport{RunDate: r.RunDate}

	// Step 1: Crawl
	log.Println("Step 1/3: Crawling review pages...")
	crawlRes, err := crawl.NewCrawler(p.cfg, p.db, p.br).CrawlAll(ctx)
	if err != nil {
		r.Steps = append(r.Steps, StepResult{Name: "Crawl", Err: err})
		return r
	}
	report.StoresCrawled = crawlRes.StoresCrawled
	report.ReviewsFound = crawlRes.TotalFound
	report.NewReviews = crawlRes.NewReviews
	r.Steps = append(r.Steps, StepResult{
		Name: "Crawl",
		Summary: fmt.Sprintf("Crawled %d stores: %d reviews found, %d new",
			crawlRes.StoresCrawled, crawlRes.TotalFound, crawlRes.NewReviews),
	})

	// Step 2: Draft replies
	log.Println("Step 2/3: Drafting replies...")
	genRes, err := reply.NewGenerator(p.cfg, p.db, p.provider).Generate(ctx)
	if err != nil {
		r.Steps = append(r.Steps, StepResult{Name: "Draft", Err: err})
		return r
	}
	r.Steps = append(r.Steps, StepResult{
		Name: "Draft",
		Summary: fmt.Sprintf("Drafted %d replies (%d already queued)",
			genRes.Drafted, genRes.AlreadyQueued),
	})

	// Step 3: Post replies
	log.Println("Step 3/3: Posting replies...")
	postRes, err := reply.NewPoster(p.cfg, p.db, p.br).Post(ctx)
	if err != nil {
		r.Steps = append(r.Steps, StepResult{Name: "Post", Err: err})
		return r
	}
	report.RepliesPosted = postRes.Posted
	report.RepliesSkipped = postRes.Skipped
	r.Steps = append(r.Steps, StepResult{
		Name: "Post",
		Summary: fmt.Sprintf("Posted %d replies, %d skipped, %d failed",
			postRes.Posted, postRes.Skipped, postRes.Failed),
	})

	if _, err := p.db.InsertRunReport(report); err != nil {
		log.Printf("recording run report: %v", err)
	}
	return r
}

// DryRun reports what a run would do without touching any page.
func (p *Pipeline) DryRun() *Result {
	r := &Result{RunDate: database.GetToday()}

	stores, _ := p.db.GetActiveStores()
	r.Steps = append(r.Steps, StepResult{
		Name:    "Crawl",
		Summary: fmt.Sprintf("[dry-run] would crawl %d active stores", len(stores)),
	})

	unanswered := 0
	for _, store := range stores {
		reviews, _ := p.db.GetUnansweredReviews(store.ID)
		unanswered += len(reviews)
	}
	r.Steps = append(r.Steps, StepResult{
		Name:    "Draft",
		Summary: fmt.Sprintf("[dry-run] %d unanswered reviews would get drafts", unanswered),
	})

	pending, _ := p.db.GetPendingReplies()
	r.Steps = append(r.Steps, StepResult{
		Name:    "Post",
		Summary: fmt.Sprintf("[dry-run] %d pending replies would be posted", len(pending)),
	})

	return r
}
