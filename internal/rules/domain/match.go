package domain

// MatchResult is the per-request outcome of consulting the compiled rule set.
// Exception matches always override blocking matches.
type MatchResult struct {
	MatchedBlocking  bool
	MatchedException bool
}

// Blocked reports the final verdict: a blocking match that no exception rule
// overrode.
func (m MatchResult) Blocked() bool {
	return m.MatchedBlocking && !m.MatchedException
}
