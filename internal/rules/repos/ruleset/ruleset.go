// Package ruleset implements the filter-list matching engine: it compiles
// adblock-syntax rule text into a serializable rule list and answers match
// queries against an indexed, immutable rule set.
package ruleset

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"

	"github.com/rulefeed/rulefeed/internal/rules/domain"
)

// indexFPRate is the target false-positive rate for the host index filter.
// A false positive only costs one map lookup.
const indexFPRate = 0.01

// RuleSet is a compiled, immutable rule set. It is safe for concurrent use.
type RuleSet struct {
	// byHost indexes host-anchored rules by their anchor host.
	byHost map[string][]rule

	// hostIndex pre-screens byHost lookups: a definite negative for every
	// label suffix of a request host means no anchored rule can match.
	hostIndex *bloom.BloomFilter

	// generic holds the (usually few) rules without a host anchor.
	generic []rule

	count int
}

// New rebuilds a RuleSet from its serialized form. Failures are reported as
// *domain.CompileError since a serialized set that cannot be decoded is
// equivalent to uncompilable input.
func New(serialized string) (*RuleSet, error) {
	var rules []rule
	if err := json.Unmarshal([]byte(serialized), &rules); err != nil {
		return nil, &domain.CompileError{Err: fmt.Errorf("decode serialized rules: %w", err)}
	}
	return build(rules), nil
}

func build(rules []rule) *RuleSet {
	rs := &RuleSet{
		byHost: make(map[string][]rule),
		count:  len(rules),
	}
	for _, r := range rules {
		if r.HostAnchor {
			host := anchorHost(r.Pattern)
			rs.byHost[host] = append(rs.byHost[host], r)
		} else {
			rs.generic = append(rs.generic, r)
		}
	}

	n := uint(len(rs.byHost))
	if n == 0 {
		n = 1
	}
	rs.hostIndex = bloom.NewWithEstimates(n, indexFPRate)
	for host := range rs.byHost {
		rs.hostIndex.AddString(host)
	}
	return rs
}

// Len returns the number of rules in the set.
func (rs *RuleSet) Len() int { return rs.count }

// Match evaluates every applicable rule for the request and reports whether
// a blocking and/or an exception rule matched. Evaluation stops early once
// both kinds have been seen.
func (rs *RuleSet) Match(url, requestHost, sourceHost string, thirdParty bool, rt domain.ResourceType) domain.MatchResult {
	var res domain.MatchResult

	requestHost = canonicalHost(requestHost)
	for _, anchor := range hostSuffixes(requestHost) {
		if !rs.hostIndex.TestString(anchor) {
			continue
		}
		for i := range rs.byHost[anchor] {
			r := &rs.byHost[anchor][i]
			if rs.apply(r, &res, url, requestHost, sourceHost, thirdParty, rt) {
				return res
			}
		}
	}

	for i := range rs.generic {
		if rs.apply(&rs.generic[i], &res, url, requestHost, sourceHost, thirdParty, rt) {
			return res
		}
	}
	return res
}

// apply folds one rule into the running result, returning true when both
// outcomes are settled and matching can stop.
func (rs *RuleSet) apply(r *rule, res *domain.MatchResult, url, requestHost, sourceHost string, thirdParty bool, rt domain.ResourceType) bool {
	if r.Exception {
		if !res.MatchedException && r.match(url, requestHost, sourceHost, thirdParty, rt) {
			res.MatchedException = true
		}
	} else {
		if !res.MatchedBlocking && r.match(url, requestHost, sourceHost, thirdParty, rt) {
			res.MatchedBlocking = true
		}
	}
	return res.MatchedBlocking && res.MatchedException
}

// hostSuffixes lists the label suffixes of host from most specific to apex:
// "a.b.example.com" yields itself, "b.example.com", "example.com", "com".
func hostSuffixes(host string) []string {
	if host == "" {
		return nil
	}
	suffixes := []string{host}
	for {
		idx := strings.IndexByte(host, '.')
		if idx < 0 {
			break
		}
		host = host[idx+1:]
		if host == "" {
			break
		}
		suffixes = append(suffixes, host)
	}
	return suffixes
}
