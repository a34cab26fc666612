package token

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// FingerprintPrefix marks a token fingerprint.
const FingerprintPrefix = "sha256:"

const fingerprintLength = 12

// Hash computes the hex encoded SHA-256 hash of a token.
func Hash(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// Fingerprint returns a short, stable identifier of a token that is safe
// to print and log. An empty token has no fingerprint.
func Fingerprint(token string) string {
	if token == "" {
		return ""
	}
	return FingerprintPrefix + Hash(token)[:fingerprintLength]
}

// Equal reports whether two tokens are identical.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
