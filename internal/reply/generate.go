// Package reply drafts owner replies for unanswered reviews and posts the
// queued ones back to the platform pages.
package reply

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/tomatocup1/reviewsync/internal/config"
	"github.com/tomatocup1/reviewsync/internal/database"
	"github.com/tomatocup1/reviewsync/internal/llm"
)

// GenerateResult holds the results of a drafting run.
type GenerateResult struct {
	Reviewed      int
	Drafted       int
	AlreadyQueued int
	Errors        []error
}

// Generator drafts reply bodies for reviews without one. With an LLM
// provider the draft follows the store's guideline; without one it falls
// back to the configured template.
type Generator struct {
	cfg      *config.Config
	db       *database.DB
	provider llm.Provider
}

// NewGenerator creates a generator. provider may be nil for template-only
// drafting.
func NewGenerator(cfg *config.Config, db *database.DB, provider llm.Provider) *Generator {
	return &Generator{cfg: cfg, db: db, provider: provider}
}

// Generate queues a pending reply for every unanswered review of every
// active store.
func (g *Generator) Generate(ctx context.Context) (*GenerateResult, error) {
	stores, err := g.db.GetActiveStores()
	if err != nil {
		return nil, fmt.Errorf("loading active stores: %w", err)
	}

	r := &GenerateResult{}
	for _, store := range stores {
		reviews, err := g.db.GetUnansweredReviews(store.ID)
		if err != nil {
			r.Errors = append(r.Errors, fmt.Errorf("%s: %w", store.Name, err))
			continue
		}
		r.Reviewed += len(reviews)

		for _, review := range reviews {
			if err := ctx.Err(); err != nil {
				return r, err
			}

			body := g.draft(ctx, store, review)
			queued, err := g.db.QueueReply(review.ID, body)
			if err != nil {
				r.Errors = append(r.Errors, fmt.Errorf("queueing reply for review %d: %w", review.ID, err))
				continue
			}
			if queued {
				r.Drafted++
			} else {
				r.AlreadyQueued++
			}
		}
	}

	log.Printf("Reply drafting complete: %d unanswered, %d drafted, %d already queued",
		r.Reviewed, r.Drafted, r.AlreadyQueued)
	return r, nil
}

// draft produces the reply body. LLM failures fall back to the template so
// a down model never blocks the queue.
func (g *Generator) draft(ctx context.Context, store database.Store, review database.Review) string {
	if g.provider != nil {
		body, err := g.provider.Generate(ctx, buildPrompt(store, review), g.cfg.Replies.MaxTokens)
		if err == nil && strings.TrimSpace(body) != "" {
			return strings.TrimSpace(body)
		}
		if err != nil {
			log.Printf("LLM draft failed for review %d, using template: %v", review.ID, err)
		}
	}
	return g.templateBody(review)
}

func (g *Generator) templateBody(review database.Review) string {
	reviewer := "고객"
	if review.Reviewer != nil && *review.Reviewer != "" {
		reviewer = *review.Reviewer
	}
	return strings.ReplaceAll(g.cfg.Replies.Template, "{reviewer}", reviewer)
}

func buildPrompt(store database.Store, review database.Review) string {
	var b strings.Builder
	b.WriteString("당신은 배달앱 가게 사장님입니다. 아래 리뷰에 대한 답글을 한국어로 작성하세요.\n")
	b.WriteString("답글은 정중하고 진심이 느껴져야 하며, 답글 본문만 출력하세요.\n\n")

	if store.ReplyGuideline != nil && *store.ReplyGuideline != "" {
		fmt.Fprintf(&b, "가게 답글 지침:\n%s\n\n", *store.ReplyGuideline)
	}

	fmt.Fprintf(&b, "가게 이름: %s\n", store.Name)
	if review.Reviewer != nil {
		fmt.Fprintf(&b, "작성자: %s\n", *review.Reviewer)
	}
	if review.Rating > 0 {
		fmt.Fprintf(&b, "별점: %.1f / 5\n", review.Rating)
	}
	if review.OrderMenu != nil && *review.OrderMenu != "" {
		fmt.Fprintf(&b, "주문 메뉴: %s\n", *review.OrderMenu)
	}
	if review.ReviewText != nil && *review.ReviewText != "" {
		fmt.Fprintf(&b, "리뷰 내용:\n%s\n", *review.ReviewText)
	}

	return b.String()
}
