package ruleset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rulefeed/rulefeed/internal/rules/domain"
)

func compileSet(t *testing.T, raw string) *RuleSet {
	t.Helper()
	compiled, err := Compile(raw)
	require.NoError(t, err)
	rs, err := New(compiled.SerializedRules)
	require.NoError(t, err)
	return rs
}

func TestMatchBlockingAndException(t *testing.T) {
	rs := compileSet(t, "||example.com^\n@@||example.com/allow^$document\n")

	// blocking rule only
	res := rs.Match("https://example.com/x", "example.com", "other.com", true, domain.ResourceScript)
	assert.True(t, res.MatchedBlocking)
	assert.False(t, res.MatchedException)
	assert.True(t, res.Blocked())

	// both match, exception wins
	res = rs.Match("https://example.com/allow", "example.com", "other.com", true, domain.ResourceDocument)
	assert.True(t, res.MatchedBlocking)
	assert.True(t, res.MatchedException)
	assert.False(t, res.Blocked())
}

func TestMatchSubdomainAnchors(t *testing.T) {
	rs := compileSet(t, "||example.com^\n")

	res := rs.Match("https://ads.example.com/pixel.gif", "ads.example.com", "other.com", true, domain.ResourceImage)
	assert.True(t, res.MatchedBlocking, "anchor must cover subdomains")

	res = rs.Match("https://example.org/pixel.gif", "example.org", "other.com", true, domain.ResourceImage)
	assert.False(t, res.MatchedBlocking)
}

func TestMatchGenericRules(t *testing.T) {
	rs := compileSet(t, "/banner/ads/\n")

	res := rs.Match("https://cdn.net/banner/ads/1.gif", "cdn.net", "site.com", true, domain.ResourceImage)
	assert.True(t, res.MatchedBlocking)

	res = rs.Match("https://cdn.net/content/1.gif", "cdn.net", "site.com", true, domain.ResourceImage)
	assert.False(t, res.MatchedBlocking)
}

func TestMatchTypeAndPartyModifiers(t *testing.T) {
	rs := compileSet(t, "||tracker.net^$script,third-party\n")

	res := rs.Match("https://tracker.net/t.js", "tracker.net", "example.com", true, domain.ResourceScript)
	assert.True(t, res.Blocked())

	res = rs.Match("https://tracker.net/t.gif", "tracker.net", "example.com", true, domain.ResourceImage)
	assert.False(t, res.Blocked())

	res = rs.Match("https://tracker.net/t.js", "tracker.net", "tracker.net", false, domain.ResourceScript)
	assert.False(t, res.Blocked())
}

func TestMatchEmptySet(t *testing.T) {
	rs := compileSet(t, "")
	res := rs.Match("https://example.com/x", "example.com", "other.com", true, domain.ResourceScript)
	assert.Equal(t, domain.MatchResult{}, res)
}

func TestHostSuffixes(t *testing.T) {
	assert.Equal(t,
		[]string{"a.b.example.com", "b.example.com", "example.com", "com"},
		hostSuffixes("a.b.example.com"))
	assert.Equal(t, []string{"localhost"}, hostSuffixes("localhost"))
	assert.Nil(t, hostSuffixes(""))
}

func TestSerializedRoundTripPreservesMatching(t *testing.T) {
	raw := "||example.com^\n@@||example.com/allow^$document\n||tracker.net^$third-party\n"
	compiled, err := Compile(raw)
	require.NoError(t, err)

	first, err := New(compiled.SerializedRules)
	require.NoError(t, err)
	second, err := New(compiled.SerializedRules)
	require.NoError(t, err)

	for _, tc := range []struct {
		url, host, source string
		third             bool
		rt                domain.ResourceType
	}{
		{"https://example.com/x", "example.com", "other.com", true, domain.ResourceScript},
		{"https://example.com/allow", "example.com", "other.com", true, domain.ResourceDocument},
		{"https://tracker.net/t.js", "tracker.net", "tracker.net", false, domain.ResourceScript},
	} {
		a := first.Match(tc.url, tc.host, tc.source, tc.third, tc.rt)
		b := second.Match(tc.url, tc.host, tc.source, tc.third, tc.rt)
		assert.Equal(t, a, b)
	}
}
