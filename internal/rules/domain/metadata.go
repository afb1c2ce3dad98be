package domain

import "time"

// FetchMetadata carries the conditional-request tokens and bookkeeping from
// the last successful fetch. Every field is optional: a zero FetchMetadata
// means "no prior fetch" and results in an unconditional GET.
type FetchMetadata struct {
	ETag               *string    `json:"etag,omitempty"`
	LastModified       *string    `json:"last_modified,omitempty"`
	ContentFingerprint *string    `json:"content_fingerprint,omitempty"`
	LastFetchedAt      *time.Time `json:"last_fetched_at,omitempty"`
}

// FetchResult is the reconciled outcome of one conditional GET against the
// rules feed.
type FetchResult struct {
	// NotModified is true for a 304; RulesText is empty in that case and the
	// caller falls back to its local copy.
	NotModified bool

	// RulesText is the decoded response body for a 200.
	RulesText string

	// ETag and LastModified echo the validator headers of a 200 response.
	// nil when the server omitted the header, so stale-but-valid tokens can
	// be preserved.
	ETag         *string
	LastModified *string
}
