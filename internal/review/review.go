// Package review defines the record types shared between extraction,
// identification, and persistence.
package review

// SubRating is a named secondary rating (e.g. taste, quantity, delivery).
type SubRating struct {
	Name  string
	Value float64
}

// Review is one review as extracted from a rendered listing page, in the
// order the page presented it. Fields the page did not expose stay empty;
// a zero Rating means rating extraction found nothing.
type Review struct {
	Reviewer   string
	Date       string // as displayed; may be relative ("14시간 전")
	Text       string
	OrderMenu  string
	Rating     float64
	SubRatings []SubRating
	ImageURLs  []string

	// Diagnostics from rating extraction, carried for persistence only.
	RatingMethod     string
	RatingConfidence float64
}
