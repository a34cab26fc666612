// Package token holds helpers for handling API bearer tokens without
// exposing them.
//
// Fingerprint Format:
//
//   - Prefix: sha256: (7 characters)
//   - Body: first 12 hex characters of the SHA-256 hash
//
// Tokens are compared in constant time.
package token
