package ruleset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/rulefeed/rulefeed/internal/rules/domain"
)

// maxCompiledRules caps how many rules a single compile keeps. Input beyond
// the cap is dropped and reported via the Truncated flag.
const maxCompiledRules = 150_000

// ignoreLineRegex matches comments and [Adblock Plus 2.0]-style headers.
var ignoreLineRegex = regexp.MustCompile(`^(?:!|\[|#([^#%]|$))`)

// Compile parses raw filter-list text into its serializable compiled form.
// Comment lines are skipped; individually unparsable rules are dropped. The
// compile fails with *domain.CompileError only when the input contains rule
// lines but none of them are usable.
func Compile(rawText string) (domain.CompiledRules, error) {
	return compileCapped(rawText, maxCompiledRules)
}

func compileCapped(rawText string, limit int) (domain.CompiledRules, error) {
	var rules []rule
	var seen, rejected int
	truncated := false

	scanner := bufio.NewScanner(strings.NewReader(rawText))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || ignoreLineRegex.MatchString(line) {
			continue
		}
		seen++
		if len(rules) >= limit {
			truncated = true
			continue
		}
		r, err := parseRule(line)
		if err != nil {
			rejected++
			continue
		}
		rules = append(rules, r)
	}
	if err := scanner.Err(); err != nil {
		return domain.CompiledRules{}, &domain.CompileError{Err: fmt.Errorf("scan rules: %w", err)}
	}

	if seen > 0 && len(rules) == 0 {
		return domain.CompiledRules{}, &domain.CompileError{
			Err: fmt.Errorf("no usable rules: all %d rule lines rejected", rejected),
		}
	}

	serialized, err := json.Marshal(rules)
	if err != nil {
		return domain.CompiledRules{}, &domain.CompileError{Err: fmt.Errorf("serialize rules: %w", err)}
	}

	return domain.CompiledRules{
		SerializedRules: string(serialized),
		Truncated:       truncated,
	}, nil
}
