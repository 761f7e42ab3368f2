package database

// Store is one registered merchant account on one platform.
type Store struct {
	ID             int64
	Platform       string
	StoreCode      string
	Name           string
	ReplyGuideline *string
	IsActive       bool
	CreatedAt      *string
	UpdatedAt      *string
}

// Review is a crawled review row. Identity fields (dsid, hashes, salt) are
// refreshed on every crawl; the content fields are fixed at first insert.
type Review struct {
	ID               int64
	StoreID          int64
	DSID             string
	ContentHash      string
	RollingHash      *string
	NeighborHash     *string
	PageSalt         *string
	IndexHint        int
	Reviewer         *string
	ReviewDate       *string
	ReviewText       *string
	OrderMenu        *string
	Rating           float64
	SubRatings       []SubRatingRow
	ImageURLs        []string
	RatingMethod     *string
	RatingConfidence float64
	CrawledAt        *string
}

// SubRatingRow is the persisted form of a named secondary rating.
type SubRatingRow struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Reply is the reply queued or posted for a review.
type Reply struct {
	ReviewID  int64
	Body      string
	Status    string // pending / posted / skipped / failed
	Attempts  int
	LastError *string
	PostedAt  *string
	CreatedAt *string
}

// PendingReply joins a pending reply with the review and store context the
// poster needs to re-locate the review on the live page.
type PendingReply struct {
	Reply  Reply
	Review Review
	Store  Store
}

// RunReport holds metadata about one pipeline run.
type RunReport struct {
	ID             int64
	RunDate        string
	StoresCrawled  int
	ReviewsFound   int
	NewReviews     int
	RepliesPosted  int
	RepliesSkipped int
}

// Stats contains aggregate database statistics.
type Stats struct {
	TotalStores    int
	ActiveStores   int
	TotalReviews   int
	ReviewsToday   int
	PendingReplies int
	PostedReplies  int
	SkippedReplies int
	FailedReplies  int
}
