package ruleset

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rulefeed/rulefeed/internal/rules/domain"
)

func TestCompileSkipsCommentsAndBlanks(t *testing.T) {
	raw := strings.Join([]string{
		"[Adblock Plus 2.0]",
		"! Title: test list",
		"",
		"||example.com^",
		"# a hosts-style comment",
		"@@||example.com/allow^$document",
	}, "\n")

	compiled, err := Compile(raw)
	require.NoError(t, err)
	assert.False(t, compiled.Truncated)

	rs, err := New(compiled.SerializedRules)
	require.NoError(t, err)
	assert.Equal(t, 2, rs.Len())
}

func TestCompileDropsUnparsableRules(t *testing.T) {
	raw := "||example.com^\n||bad.*.wildcard^\n||tracker.net^$popunder\n"

	compiled, err := Compile(raw)
	require.NoError(t, err, "individually bad rules are dropped, not fatal")

	rs, err := New(compiled.SerializedRules)
	require.NoError(t, err)
	assert.Equal(t, 1, rs.Len())
}

func TestCompileFailsWhenNothingUsable(t *testing.T) {
	_, err := Compile("||*^\n||also.*.bad^\n")
	require.Error(t, err)
	var ce *domain.CompileError
	assert.True(t, errors.As(err, &ce))
}

func TestCompileEmptyInput(t *testing.T) {
	compiled, err := Compile("")
	require.NoError(t, err)
	assert.False(t, compiled.Truncated)

	rs, err := New(compiled.SerializedRules)
	require.NoError(t, err)
	assert.Equal(t, 0, rs.Len())
}

func TestCompileTruncatesAtCap(t *testing.T) {
	var b strings.Builder
	for _, host := range []string{"a.com", "b.com", "c.com", "d.com"} {
		b.WriteString("||" + host + "^\n")
	}

	compiled, err := compileCapped(b.String(), 3)
	require.NoError(t, err)
	assert.True(t, compiled.Truncated)

	rs, err := New(compiled.SerializedRules)
	require.NoError(t, err)
	assert.Equal(t, 3, rs.Len())

	// under the cap the flag stays clear
	compiled, err = compileCapped(b.String(), 4)
	require.NoError(t, err)
	assert.False(t, compiled.Truncated)
}

func TestCompileIsDeterministic(t *testing.T) {
	raw := "||example.com^\n@@||example.com/allow^$document\n/banner/ads/\n"
	a, err := Compile(raw)
	require.NoError(t, err)
	b, err := Compile(raw)
	require.NoError(t, err)
	assert.Equal(t, a.SerializedRules, b.SerializedRules)
}

func TestNewRejectsGarbage(t *testing.T) {
	_, err := New("{not a rule list")
	require.Error(t, err)
	var ce *domain.CompileError
	assert.True(t, errors.As(err, &ce))
}
