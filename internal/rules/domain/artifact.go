package domain

import "time"

// CompiledRules is what the rule compiler hands back: the serialized form of
// the compiled set plus whether the input was cut off at the compile cap.
type CompiledRules struct {
	SerializedRules string
	Truncated       bool
}

// RuleArtifact is the persisted derivative of one raw rules payload.
//
// Invariant: SourceFingerprint always equals the content fingerprint of the
// raw text the artifact was compiled from. That equality is the sole check
// used to decide whether recompilation can be skipped; the serialized output
// itself is never re-verified.
type RuleArtifact struct {
	SerializedRules   string    `json:"serialized_rules"`
	Truncated         bool      `json:"truncated"`
	SourceFingerprint string    `json:"source_fingerprint"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ContentRulesResult is what a refresh returns to the caller: the compiled
// rules ready for an engine, paired with the fingerprint of the text they
// were derived from.
type ContentRulesResult struct {
	SerializedRules string
	Truncated       bool
	Fingerprint     string
}

// Result converts a stored artifact into the caller-facing result shape.
func (a RuleArtifact) Result() ContentRulesResult {
	return ContentRulesResult{
		SerializedRules: a.SerializedRules,
		Truncated:       a.Truncated,
		Fingerprint:     a.SourceFingerprint,
	}
}
