package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint returns the SHA-256 digest of data as lowercase hex. It is used
// as a cheap equality proxy for large rule-text payloads: two payloads with
// equal fingerprints are treated as identical content.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// FingerprintString is a convenience wrapper for text payloads.
func FingerprintString(s string) string {
	return Fingerprint([]byte(s))
}
