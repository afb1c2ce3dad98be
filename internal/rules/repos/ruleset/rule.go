package ruleset

import (
	"fmt"
	"strings"

	"github.com/rulefeed/rulefeed/internal/rules/domain"
)

// party restricts a rule to one side of the third-party boundary.
type party uint8

const (
	partyAny party = iota
	partyThird
	partyFirst
)

// rule is one parsed filter-list entry in its serializable form.
type rule struct {
	// Pattern is the match pattern with any ^ separators preserved. For
	// host-anchored rules the leading || is already stripped.
	Pattern string `json:"pattern"`

	// HostAnchor marks a ||-rule: Pattern begins with a hostname and matches
	// that host and its subdomains.
	HostAnchor bool `json:"host_anchor,omitempty"`

	// Exception marks an @@-rule, which exempts rather than blocks.
	Exception bool `json:"exception,omitempty"`

	// Types is a resource-type bitmask; zero applies to every type.
	Types uint32 `json:"types,omitempty"`

	// Party limits the rule to third- or first-party requests.
	Party party `json:"party,omitempty"`

	// Domains/ExcludedDomains come from the domain= modifier and constrain
	// which source sites the rule applies on.
	Domains         []string `json:"domains,omitempty"`
	ExcludedDomains []string `json:"excluded_domains,omitempty"`
}

// parseRule parses a single non-comment filter-list line.
func parseRule(line string) (rule, error) {
	var r rule

	body := line
	if strings.HasPrefix(body, "@@") {
		r.Exception = true
		body = body[2:]
	}

	// Options follow the last $ when one is present. A $ inside the pattern
	// itself is not supported syntax for this engine.
	if idx := strings.LastIndexByte(body, '$'); idx >= 0 {
		opts := body[idx+1:]
		body = body[:idx]
		if err := r.applyOptions(opts); err != nil {
			return rule{}, err
		}
	}

	if strings.HasPrefix(body, "||") {
		r.HostAnchor = true
		body = body[2:]
	}

	if strings.ContainsRune(body, '*') {
		return rule{}, fmt.Errorf("wildcard patterns are not supported: %q", line)
	}
	if body == "" || body == "^" {
		return rule{}, fmt.Errorf("empty pattern: %q", line)
	}
	if r.HostAnchor && anchorHost(body) == "" {
		return rule{}, fmt.Errorf("host-anchored rule without host: %q", line)
	}

	r.Pattern = body
	return r, nil
}

// applyOptions parses a comma-separated $-modifier list.
func (r *rule) applyOptions(opts string) error {
	for _, opt := range strings.Split(opts, ",") {
		opt = strings.TrimSpace(opt)
		switch {
		case opt == "":
			return fmt.Errorf("empty option")
		case opt == "third-party" || opt == "3p":
			r.Party = partyThird
		case opt == "~third-party" || opt == "first-party" || opt == "1p":
			r.Party = partyFirst
		case strings.HasPrefix(opt, "domain="):
			for _, d := range strings.Split(opt[len("domain="):], "|") {
				d = canonicalHost(d)
				if d == "" {
					continue
				}
				if strings.HasPrefix(d, "~") {
					r.ExcludedDomains = append(r.ExcludedDomains, d[1:])
				} else {
					r.Domains = append(r.Domains, d)
				}
			}
		default:
			rt, err := domain.ParseResourceType(opt)
			if err != nil {
				return fmt.Errorf("unsupported option %q", opt)
			}
			r.Types |= rt.Bit()
		}
	}
	return nil
}

// anchorHost returns the hostname portion of a host-anchored pattern: the
// prefix up to the first separator.
func anchorHost(pattern string) string {
	end := strings.IndexAny(pattern, "/^:?")
	if end < 0 {
		end = len(pattern)
	}
	return canonicalHost(pattern[:end])
}

// match reports whether the rule applies to the request.
func (r *rule) match(url, requestHost, sourceHost string, thirdParty bool, rt domain.ResourceType) bool {
	if r.Types != 0 && r.Types&rt.Bit() == 0 {
		return false
	}
	switch r.Party {
	case partyThird:
		if !thirdParty {
			return false
		}
	case partyFirst:
		if thirdParty {
			return false
		}
	}
	if !r.sourceAllowed(sourceHost) {
		return false
	}
	if r.HostAnchor {
		return matchHostAnchored(url, requestHost, r.Pattern)
	}
	return matchPattern(url, r.Pattern)
}

// sourceAllowed applies the domain= constraints against the initiating site.
func (r *rule) sourceAllowed(sourceHost string) bool {
	if len(r.Domains) == 0 && len(r.ExcludedDomains) == 0 {
		return true
	}
	for _, d := range r.ExcludedDomains {
		if hostWithin(sourceHost, d) {
			return false
		}
	}
	if len(r.Domains) == 0 {
		return true
	}
	for _, d := range r.Domains {
		if hostWithin(sourceHost, d) {
			return true
		}
	}
	return false
}

// hostWithin reports whether host is domain or a subdomain of it, either
// directly or through its resolved apex.
func hostWithin(host, domainName string) bool {
	host = canonicalHost(host)
	if host == domainName || strings.HasSuffix(host, "."+domainName) {
		return true
	}
	return apexDomain(host) == domainName
}

// matchHostAnchored matches a ||-pattern: the host part must cover the
// request host at a label boundary, and the remainder must match the URL
// immediately after the host.
func matchHostAnchored(url, requestHost, pattern string) bool {
	host := anchorHost(pattern)
	requestHost = canonicalHost(requestHost)
	if requestHost != host && !strings.HasSuffix(requestHost, "."+host) {
		return false
	}

	rest := pattern[len(host):]
	if rest == "" {
		return true
	}
	return matchSeparators(urlTail(url), rest)
}

// urlTail returns the URL portion following the authority: path, query and
// fragment. Empty for a bare-host URL.
func urlTail(url string) string {
	rest := url
	if idx := strings.Index(rest, "://"); idx >= 0 {
		rest = rest[idx+3:]
	}
	if idx := strings.IndexAny(rest, "/?#"); idx >= 0 {
		return rest[idx:]
	}
	return ""
}

// matchPattern looks for the pattern anywhere in the URL, honoring ^
// separator placeholders.
func matchPattern(url, pattern string) bool {
	for i := 0; i <= len(url); i++ {
		if matchSeparators(url[i:], pattern) {
			return true
		}
	}
	return false
}

// matchSeparators matches pattern against a prefix of s. A ^ matches one
// separator character, or the end of s when the ^ ends the pattern.
func matchSeparators(s, pattern string) bool {
	for i := 0; i < len(pattern); i++ {
		p := pattern[i]
		if p == '^' {
			if len(s) == 0 {
				return i == len(pattern)-1
			}
			if !isSeparator(s[0]) {
				return false
			}
			s = s[1:]
			continue
		}
		if len(s) == 0 || s[0] != p {
			return false
		}
		s = s[1:]
	}
	return true
}

// isSeparator implements the filter-list separator class: anything that is
// not a letter, digit, or one of "_-.%".
func isSeparator(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return false
	case c == '_' || c == '-' || c == '.' || c == '%':
		return false
	default:
		return true
	}
}
