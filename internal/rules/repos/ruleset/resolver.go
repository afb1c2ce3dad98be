package ruleset

import (
	"strings"
	"sync/atomic"

	"golang.org/x/net/publicsuffix"
)

// DomainResolver maps a hostname to its registrable apex domain. The matching
// engine consults it when evaluating domain= modifiers.
type DomainResolver interface {
	ApexDomain(host string) string
}

type resolverHolder struct {
	r DomainResolver
}

// Resolver registration is process-lifetime state with no teardown: the first
// registration wins, every later attempt is a no-op.
var (
	resolverRegistered atomic.Bool
	activeResolver     atomic.Pointer[resolverHolder]
)

// RegisterDomainResolver installs r as the process-wide domain resolver.
// It returns true only for the call that performed the registration.
func RegisterDomainResolver(r DomainResolver) bool {
	if r == nil {
		return false
	}
	if !resolverRegistered.CompareAndSwap(false, true) {
		return false
	}
	activeResolver.Store(&resolverHolder{r: r})
	return true
}

// EnsureDomainResolver installs the publicsuffix-backed default unless a
// resolver was already registered. Engine construction calls this, so the
// guarantee holds regardless of how many engines a process builds.
func EnsureDomainResolver() {
	RegisterDomainResolver(PublicSuffixResolver{})
}

// apexDomain resolves through the registered resolver, falling back to the
// host itself during the brief window before registration completes.
func apexDomain(host string) string {
	if h := activeResolver.Load(); h != nil {
		return h.r.ApexDomain(host)
	}
	return host
}

// resetDomainResolver clears registration state. Test use only.
func resetDomainResolver() {
	activeResolver.Store(nil)
	resolverRegistered.Store(false)
}

// PublicSuffixResolver derives apex domains from the public suffix list.
type PublicSuffixResolver struct{}

func (PublicSuffixResolver) ApexDomain(host string) string {
	host = canonicalHost(host)
	apex, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return apex
}

// canonicalHost lowercases and strips surrounding whitespace and trailing
// dots so hosts compare consistently.
func canonicalHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	for strings.HasSuffix(host, ".") {
		host = strings.TrimSuffix(host, ".")
	}
	return host
}
