// Package fingerprint canonicalizes a review record into a content hash.
//
// The hash is the foundation of review identity on platforms that expose no
// durable review ID: identical content on the same listing must always hash
// the same, so normalization has to absorb relative-time phrasing, thousands
// separators, emoji and whitespace noise, and image tracking parameters.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"

	"github.com/tomatocup1/reviewsync/internal/review"
)

const dateLayout = "2006.01.02"

var (
	tagPattern       = regexp.MustCompile(`<[^>]*>`)
	thousandsPattern = regexp.MustCompile(`(\d),(\d{3})`)
	spacePattern     = regexp.MustCompile(`\s+`)

	// Relative-time phrasings seen on the three platforms. Korean forms
	// first since that is what the pages actually render.
	minutesAgoPattern = regexp.MustCompile(`(\d+)\s*(?:분\s*전|minutes?\s+ago)`)
	hoursAgoPattern   = regexp.MustCompile(`(\d+)\s*(?:시간\s*전|hours?\s+ago)`)
	daysAgoPattern    = regexp.MustCompile(`(\d+)\s*(?:일\s*전|days?\s+ago)`)
	todayPattern      = regexp.MustCompile(`오늘|방금|today|just now`)
	yesterdayPattern  = regexp.MustCompile(`어제|yesterday`)
)

// Normalize canonicalizes one field: markup stripped, full-width characters
// folded, thousands separators removed, symbol noise dropped, whitespace
// collapsed. Pure; an empty input yields an empty output.
func Normalize(field string) string {
	s := tagPattern.ReplaceAllString(field, " ")
	s = width.Fold.String(norm.NFC.String(s))

	// "1,234" -> "1234"; run twice for separators in long numbers.
	s = thousandsPattern.ReplaceAllString(s, "$1$2")
	s = thousandsPattern.ReplaceAllString(s, "$1$2")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		case r == '.' || r == ':' || r == '%':
			// Kept so dates and "name:value" pairs survive.
			b.WriteRune(r)
		}
	}

	return strings.TrimSpace(spacePattern.ReplaceAllString(b.String(), " "))
}

// NormalizeRelativeTime converts relative phrasings ("14시간 전", "2 days
// ago", "어제") into an absolute YYYY.MM.DD date using the supplied clock.
// Text without a recognized relative phrase passes through unchanged.
func NormalizeRelativeTime(text string, now time.Time) string {
	s := strings.TrimSpace(text)
	if s == "" {
		return s
	}

	if m := minutesAgoPattern.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return now.Add(-time.Duration(n) * time.Minute).Format(dateLayout)
	}
	if m := hoursAgoPattern.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return now.Add(-time.Duration(n) * time.Hour).Format(dateLayout)
	}
	if m := daysAgoPattern.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return now.AddDate(0, 0, -n).Format(dateLayout)
	}
	if yesterdayPattern.MatchString(s) {
		return now.AddDate(0, 0, -1).Format(dateLayout)
	}
	if todayPattern.MatchString(s) {
		return now.Format(dateLayout)
	}
	return s
}

// Fingerprint hashes a review's normalized semantic fields into a hex
// SHA-256 digest. Missing fields are omitted from the canonical string, so
// even an empty record yields a valid (if weak) hash. Pure apart from the
// explicit clock used for relative-time conversion.
func Fingerprint(r review.Review, now time.Time) string {
	parts := make([]string, 0, 6+len(r.SubRatings)+len(r.ImageURLs))

	if v := Normalize(r.Reviewer); v != "" {
		parts = append(parts, v)
	}
	if v := Normalize(NormalizeRelativeTime(r.Date, now)); v != "" {
		parts = append(parts, v)
	}
	if v := Normalize(r.Text); v != "" {
		parts = append(parts, v)
	}
	if v := Normalize(r.OrderMenu); v != "" {
		parts = append(parts, v)
	}
	if r.Rating > 0 {
		parts = append(parts, strconv.FormatFloat(r.Rating, 'f', -1, 64))
	}
	for _, sub := range r.SubRatings {
		parts = append(parts, Normalize(sub.Name)+":"+strconv.FormatFloat(sub.Value, 'f', -1, 64))
	}
	for _, u := range r.ImageURLs {
		parts = append(parts, stripQuery(u))
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// stripQuery drops the query string so CDN tracking parameters don't churn
// the fingerprint between renders.
func stripQuery(rawURL string) string {
	if i := strings.IndexByte(rawURL, '?'); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}
