// Package extract turns one captured listing page into an ordered review
// list. Selectors come from platform config; the same walk serves all three
// platforms since only the selectors and star constants differ.
package extract

import (
	"fmt"
	"log"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/tomatocup1/reviewsync/internal/config"
	"github.com/tomatocup1/reviewsync/internal/review"
	"github.com/tomatocup1/reviewsync/internal/stars"
)

// Reviews parses the rendered listing HTML and returns reviews in DOM
// order. The order matters: it feeds the DSID rolling chain, so this must
// be one coherent snapshot, not a merge of partial reads.
//
// A malformed review element (no reviewer and no text) is skipped with a
// log line rather than aborting the page.
func Reviews(html string, p config.Platform) ([]review.Review, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing listing page: %w", err)
	}

	sel := p.Selectors
	scope := doc.Selection
	if sel.List != "" {
		if list := doc.Find(sel.List); list.Length() > 0 {
			scope = list
		}
	}

	starCfg := stars.Config{
		ActiveColor:  p.ActiveColor,
		StarWidthPx:  p.StarWidthPx,
		IconSelector: p.IconSelector,
	}

	var reviews []review.Review
	scope.Find(sel.Item).Each(func(i int, item *goquery.Selection) {
		r := parseReview(item, sel, starCfg, p.HasSubRatings)
		if r.Reviewer == "" && r.Text == "" {
			log.Printf("skipping malformed review element at position %d", i)
			return
		}
		reviews = append(reviews, r)
	})

	return reviews, nil
}

func parseReview(item *goquery.Selection, sel config.Selectors, starCfg stars.Config, hasSubRatings bool) review.Review {
	r := review.Review{
		Reviewer:  text(item, sel.Reviewer),
		Date:      text(item, sel.Date),
		Text:      text(item, sel.Text),
		OrderMenu: text(item, sel.Menu),
	}

	if sel.Images != "" {
		item.Find(sel.Images).Each(func(_ int, img *goquery.Selection) {
			if src, ok := img.Attr("src"); ok && src != "" {
				r.ImageURLs = append(r.ImageURLs, src)
			}
		})
	}

	if sel.RatingWidget != "" {
		res := stars.Extract(item.Find(sel.RatingWidget).First(), starCfg)
		r.RatingMethod = string(res.Method)
		r.RatingConfidence = res.Confidence
		if res.Rating != nil {
			r.Rating = *res.Rating
		}
	}

	if hasSubRatings && sel.SubRatingRow != "" {
		item.Find(sel.SubRatingRow).Each(func(_ int, row *goquery.Selection) {
			name := text(row, sel.SubName)
			if name == "" {
				return
			}
			res := stars.Extract(row, starCfg)
			if res.Rating != nil {
				r.SubRatings = append(r.SubRatings, review.SubRating{Name: name, Value: *res.Rating})
			}
		})
	}

	return r
}

func text(s *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.TrimSpace(s.Find(selector).First().Text())
}
