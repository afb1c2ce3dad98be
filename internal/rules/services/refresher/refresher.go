// Package refresher orchestrates the rules refresh cycle: decide whether the
// remote list changed, recompile only when it did, and keep the durable
// records in step.
package refresher

import (
	"context"
	"sync"

	"github.com/rulefeed/rulefeed/internal/rules/common/clock"
	"github.com/rulefeed/rulefeed/internal/rules/common/hashutil"
	"github.com/rulefeed/rulefeed/internal/rules/common/log"
	"github.com/rulefeed/rulefeed/internal/rules/domain"
)

// Refresher drives the refresh cycle. The whole read-modify-write sequence
// runs under one mutex, so concurrent callers serialize and can never
// interleave stale metadata reads with clobbering writes.
type Refresher struct {
	mu       sync.Mutex
	store    CacheStore
	feed     FeedClient
	compiler Compiler
	clock    clock.Clock
	logger   log.Logger
}

// Options configures a Refresher. Store, Feed and Compiler are required;
// Clock and Logger default to the real clock and the global logger.
type Options struct {
	Store    CacheStore
	Feed     FeedClient
	Compiler Compiler
	Clock    clock.Clock
	Logger   log.Logger
}

// New creates a Refresher.
func New(opts Options) *Refresher {
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = log.GetLogger()
	}
	return &Refresher{
		store:    opts.Store,
		feed:     opts.Feed,
		compiler: opts.Compiler,
		clock:    opts.Clock,
		logger:   opts.Logger,
	}
}

// RefreshContentRules performs one full refresh cycle and returns the
// compiled rules paired with the fingerprint of the text they came from.
//
// Recompilation is gated on content: a response whose body fingerprints to
// the value already recorded in the cached artifact reuses that artifact
// untouched, even when the HTTP exchange was a fresh 200.
//
// Cache writes are best-effort: a failed write only costs the next refresh
// its conditional-fetch tokens. Everything else in the error taxonomy
// propagates.
func (r *Refresher) RefreshContentRules(ctx context.Context) (domain.ContentRulesResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.Ready(); err != nil {
		return domain.ContentRulesResult{}, err
	}

	meta, _ := r.store.Metadata()

	fetched, err := r.feed.Fetch(ctx, meta)
	if err != nil {
		return domain.ContentRulesResult{}, err
	}

	var text string
	switch {
	case fetched.NotModified:
		cached, ok := r.store.RawRules()
		if !ok {
			return domain.ContentRulesResult{}, domain.ErrMissingCachedRules
		}
		text = cached
		r.logger.Debug(nil, "Rules feed not modified, using cached text")

	default:
		text = fetched.RulesText
		if err := r.store.PutRawRules(text); err != nil {
			r.logger.Warn(map[string]any{"error": err}, "Failed to cache raw rules")
		}
		// a response that omits a validator keeps the previous one
		if fetched.ETag != nil {
			meta.ETag = fetched.ETag
		}
		if fetched.LastModified != nil {
			meta.LastModified = fetched.LastModified
		}
		if err := r.store.PutMetadata(meta); err != nil {
			r.logger.Warn(map[string]any{"error": err}, "Failed to cache fetch metadata")
		}
	}

	fingerprint := hashutil.FingerprintString(text)

	if artifact, ok := r.store.Artifact(); ok && artifact.SourceFingerprint == fingerprint {
		r.logger.Debug(map[string]any{"fingerprint": fingerprint}, "Rule content unchanged, skipping recompilation")
		return artifact.Result(), nil
	}

	compiled, err := r.compiler.Compile(text)
	if err != nil {
		return domain.ContentRulesResult{}, err
	}

	now := r.clock.Now()
	artifact := domain.RuleArtifact{
		SerializedRules:   compiled.SerializedRules,
		Truncated:         compiled.Truncated,
		SourceFingerprint: fingerprint,
		UpdatedAt:         now,
	}
	if err := r.store.PutArtifact(artifact); err != nil {
		r.logger.Warn(map[string]any{"error": err}, "Failed to cache compiled artifact")
	}

	meta.ContentFingerprint = &fingerprint
	meta.LastFetchedAt = &now
	if err := r.store.PutMetadata(meta); err != nil {
		r.logger.Warn(map[string]any{"error": err}, "Failed to cache fetch metadata")
	}

	r.logger.Info(map[string]any{
		"fingerprint": fingerprint,
		"truncated":   compiled.Truncated,
	}, "Recompiled content rules")
	return artifact.Result(), nil
}

// LoadCachedContentRules returns the compiled artifact from cache without
// touching the network or the compiler.
func (r *Refresher) LoadCachedContentRules() (domain.ContentRulesResult, bool) {
	artifact, ok := r.store.Artifact()
	if !ok {
		return domain.ContentRulesResult{}, false
	}
	return artifact.Result(), true
}

// LoadCachedFilterList returns the raw rules text from cache.
func (r *Refresher) LoadCachedFilterList() (string, bool) {
	return r.store.RawRules()
}
