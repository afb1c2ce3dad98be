// Package engine answers the per-request blocking question against a
// compiled rule set.
package engine

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/rulefeed/rulefeed/internal/rules/common/log"
	"github.com/rulefeed/rulefeed/internal/rules/domain"
	"github.com/rulefeed/rulefeed/internal/rules/repos/ruleset"
)

// Matcher is what the engine needs from a compiled rule set.
type Matcher interface {
	Match(url, requestHost, sourceHost string, thirdParty bool, rt domain.ResourceType) domain.MatchResult
}

// Engine wraps one compiled rule set. It is immutable after construction and
// safe for concurrent use.
type Engine struct {
	rules  Matcher
	cache  DecisionCache
	logger log.Logger
}

// Options configures an Engine. Exactly one of RawRules and SerializedRules
// must be set: RawRules compiles at construction, SerializedRules rehydrates
// a previously compiled artifact.
type Options struct {
	RawRules        string
	SerializedRules string

	// CacheSize caps the memoized verdicts; zero or negative disables the
	// cache.
	CacheSize int

	Logger log.Logger
}

// New builds an Engine, compiling its rules up front. Compile failures
// surface as *domain.CompileError. The first construction in a process also
// registers the default domain resolver with the matching engine; later
// constructions observe the registration and skip it.
func New(opts Options) (*Engine, error) {
	if opts.Logger == nil {
		opts.Logger = log.GetLogger()
	}

	ruleset.EnsureDomainResolver()

	serialized := opts.SerializedRules
	if serialized == "" {
		compiled, err := ruleset.Compile(opts.RawRules)
		if err != nil {
			return nil, err
		}
		serialized = compiled.SerializedRules
	}
	rules, err := ruleset.New(serialized)
	if err != nil {
		return nil, err
	}

	cache, err := newDecisionCache(opts.CacheSize)
	if err != nil {
		return nil, err
	}

	opts.Logger.Debug(map[string]any{"rules": rules.Len()}, "Decision engine ready")
	return &Engine{rules: rules, cache: cache, logger: opts.Logger}, nil
}

// ShouldBlock decides whether the request should be blocked.
//
// Requests with an inline scheme (data:, blob:) never block, nor do requests
// where either URL lacks a resolvable host. Party classification is exact
// host inequality with no suffix normalization. First-party requests are
// only blockable in aggressive mode. When the matcher runs, an exception
// match always overrides a blocking match.
func (e *Engine) ShouldBlock(requestURL, sourceURL string, rt domain.ResourceType, aggressive bool) bool {
	reqURL, err := url.Parse(requestURL)
	if err != nil {
		return false
	}
	if isInlineScheme(reqURL.Scheme) {
		return false
	}

	requestHost := reqURL.Hostname()
	srcURL, err := url.Parse(sourceURL)
	if err != nil {
		return false
	}
	sourceHost := srcURL.Hostname()
	if requestHost == "" || sourceHost == "" {
		return false
	}

	thirdParty := requestHost != sourceHost
	if !aggressive && !thirdParty {
		return false
	}

	key := decisionKey(requestURL, sourceHost, rt, aggressive)
	if blocked, ok := e.cache.Get(key); ok {
		return blocked
	}

	res := e.rules.Match(requestURL, requestHost, sourceHost, thirdParty, rt)
	blocked := res.Blocked()
	e.cache.Put(key, blocked)
	return blocked
}

// CacheStats exposes the decision cache counters.
func (e *Engine) CacheStats() (hits, misses, evictions uint64) {
	return e.cache.Stats()
}

// isInlineScheme reports schemes whose payload is embedded in the URL itself
// and never touches the network.
func isInlineScheme(scheme string) bool {
	switch strings.ToLower(scheme) {
	case "data", "blob", "about":
		return true
	default:
		return false
	}
}

func decisionKey(requestURL, sourceHost string, rt domain.ResourceType, aggressive bool) string {
	return fmt.Sprintf("%s\x00%s\x00%s\x00%t", requestURL, sourceHost, rt, aggressive)
}
