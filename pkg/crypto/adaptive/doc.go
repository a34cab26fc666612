// Package adaptive provides passphrase-based authenticated encryption for
// small secrets such as the persisted API token.
//
// A sealed value is a self-describing envelope:
//
//	magic "MUL1" | cipher id (1 byte) | salt (16 bytes) | nonce | ciphertext+tag
//
// The key is derived with Argon2id from the passphrase and salt, then
// expanded with HKDF-SHA256 so that one passphrase yields distinct keys for
// distinct purposes. The cipher is chosen per platform: AES-256-GCM where
// the CPU accelerates AES, XChaCha20-Poly1305 otherwise. Open reads the
// cipher id from the envelope, so values move freely between machines.
package adaptive
