// Package dsid assigns stable identifiers to reviews on platforms that
// expose no durable review ID, and re-locates a previously seen review on a
// later render of the same listing.
//
// A DSID is derived from a review's content hash plus its neighbor context
// on the page: the rolling hash chain makes identity order-sensitive, so a
// reordered or edited listing produces a detectable mismatch instead of a
// silent wrong match. The identifier is recomputed from the full extracted
// list on every call; it is never read back from the DOM.
package dsid

import (
	"crypto/sha256"
	"encoding/hex"
	"log"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/tomatocup1/reviewsync/internal/fingerprint"
	"github.com/tomatocup1/reviewsync/internal/review"
)

const (
	dsidLen    = 16
	saltLen    = 12
	rollingLen = 32
	windowLen  = 16

	startMarker = "START"
	endMarker   = "END"
	noneMarker  = "NONE"
)

// Identified pairs a review with the identifiers computed for it at one
// position in one render.
type Identified struct {
	Review       review.Review
	Index        int
	DSID         string
	ContentHash  string
	RollingHash  string
	NeighborHash string
	PageSalt     string
}

// MatchMethod says how a stored review was re-located in a fresh list.
type MatchMethod string

const (
	MatchExact   MatchMethod = "exact"
	MatchSimilar MatchMethod = "similar"
)

// Stored holds the persisted fields of a previously crawled review, used by
// the content-similarity fallback when the exact DSID no longer exists.
type Stored struct {
	Reviewer string
	Date     string
	Text     string
	Rating   float64
}

// Match is the result of re-locating a stored review.
type Match struct {
	Review review.Review
	Index  int
	Method MatchMethod
	Score  int  // similarity votes (0 for exact matches)
	Tied   bool // another candidate scored the same; first in order won
}

// DerivePageSalt scopes identifiers to one listing view: same URL, sort, and
// filter on the same calendar day share a salt. Call once per render and
// reuse for every review on that render.
func DerivePageSalt(pageURL, sortOption, filterOption string, now time.Time) string {
	return shortHash(strings.Join([]string{
		pageURL, sortOption, filterOption, now.Format("2006-01-02"),
	}, "|"), saltLen)
}

// Process computes identifiers for an entire ordered listing snapshot in one
// forward pass: all content hashes first, then the left-to-right rolling
// chain, then per-index DSID and neighbor-window hashes. The list must be
// one coherent snapshot in DOM order; sub-ranges cannot be processed alone
// because every DSID depends on its neighbors and the chain before it.
func Process(reviews []review.Review, pageSalt string, now time.Time) []Identified {
	n := len(reviews)
	if n == 0 {
		return nil
	}

	content := make([]string, n)
	for i, r := range reviews {
		content[i] = fingerprint.Fingerprint(r, now)
	}

	rolling := make([]string, n)
	prev := pageSalt
	for i := 0; i < n; i++ {
		rolling[i] = shortHash(prev+"|"+content[i], rollingLen)
		prev = rolling[i]
	}

	out := make([]Identified, n)
	for i := 0; i < n; i++ {
		prevRolling := startMarker
		if i > 0 {
			prevRolling = rolling[i-1]
		}
		nextContent := endMarker
		if i < n-1 {
			nextContent = content[i+1]
		}

		out[i] = Identified{
			Review:       reviews[i],
			Index:        i,
			DSID:         shortHash(strings.Join([]string{content[i], prevRolling, nextContent, pageSalt}, "|"), dsidLen),
			ContentHash:  content[i],
			RollingHash:  rolling[i],
			NeighborHash: neighborHash(content, i, pageSalt),
			PageSalt:     pageSalt,
		}
	}
	return out
}

// neighborHash hashes the five-element content window centered on i, with
// NONE placeholders past the list boundaries.
func neighborHash(content []string, i int, pageSalt string) string {
	window := make([]string, 0, 6)
	for j := i - 2; j <= i+2; j++ {
		if j < 0 || j >= len(content) {
			window = append(window, noneMarker)
		} else {
			window = append(window, content[j])
		}
	}
	window = append(window, pageSalt)
	return shortHash(strings.Join(window, "|"), windowLen)
}

// FindByDSID re-locates a stored review in a freshly extracted listing.
// Exact DSID equality wins; otherwise, when the original record is supplied,
// a content-similarity vote runs: one point each for reviewer-name equality,
// review-text containment in either direction, a similar date, and a rating
// within 0.1. A candidate needs at least 3 of 4. On a tie the first
// candidate in document order wins and the match is flagged as tied.
//
// A false second return is an expected outcome, not an error: callers must
// skip the review rather than risk a duplicate or misdirected reply.
func FindByDSID(targetDSID string, fresh []review.Review, original *Stored, pageSalt string, now time.Time) (Match, bool) {
	ids := Process(fresh, pageSalt, now)

	for _, id := range ids {
		if id.DSID == targetDSID {
			return Match{Review: id.Review, Index: id.Index, Method: MatchExact}, true
		}
	}

	if original == nil {
		return Match{}, false
	}

	best := -1
	bestIdx := -1
	tied := false
	for i, r := range fresh {
		score := similarityScore(*original, r)
		if score > best {
			best = score
			bestIdx = i
			tied = false
		} else if score == best && score >= similarityThreshold {
			tied = true
		}
	}

	if best < similarityThreshold {
		return Match{}, false
	}
	if tied {
		log.Printf("dsid: ambiguous similarity match for %s (score %d), picking index %d", targetDSID, best, bestIdx)
	}
	return Match{Review: fresh[bestIdx], Index: bestIdx, Method: MatchSimilar, Score: best, Tied: tied}, true
}

const similarityThreshold = 3

var (
	digitsPattern    = regexp.MustCompile(`\d+`)
	relativeKeywords = []string{"오늘", "어제", "방금", "전", "today", "yesterday", "ago"}
)

// similarityScore counts how many of the four content criteria a fresh
// review shares with the stored original.
func similarityScore(original Stored, fresh review.Review) int {
	score := 0

	if original.Reviewer != "" && original.Reviewer == fresh.Reviewer {
		score++
	}
	if textContains(original.Text, fresh.Text) {
		score++
	}
	if dateSimilar(original.Date, fresh.Date) {
		score++
	}
	if original.Rating > 0 && fresh.Rating > 0 && math.Abs(original.Rating-fresh.Rating) <= 0.1 {
		score++
	}
	return score
}

func textContains(a, b string) bool {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// dateSimilar accepts exact equality, equality of the digit sequences
// ("2025.08.18" vs "2025-08-18"), or a shared relative-time keyword (both
// still say "전"/"ago"-style phrasing).
func dateSimilar(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}

	da := strings.Join(digitsPattern.FindAllString(a, -1), "")
	db := strings.Join(digitsPattern.FindAllString(b, -1), "")
	if da != "" && da == db {
		return true
	}

	for _, kw := range relativeKeywords {
		if strings.Contains(a, kw) && strings.Contains(b, kw) {
			return true
		}
	}
	return false
}

func shortHash(s string, n int) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:n]
}
