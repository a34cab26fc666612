package adaptive

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"runtime"

	"golang.org/x/crypto/chacha20poly1305"
)

// CipherType identifies the cipher algorithm.
type CipherType string

const (
	CipherAESGCM    CipherType = "aes-256-gcm"
	CipherXChaCha20 CipherType = "xchacha20-poly1305"
)

// KeySize is the key length of both ciphers.
const KeySize = 32

var cipherIDs = map[CipherType]byte{
	CipherAESGCM:    1,
	CipherXChaCha20: 2,
}

// Cipher provides authenticated encryption with a random nonce prepended
// to every ciphertext.
type Cipher struct {
	typ  CipherType
	aead cipher.AEAD
}

// NewCipher creates a cipher of the given type from a 32-byte key.
func NewCipher(key []byte, typ CipherType) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("adaptive: key must be %d bytes, got %d", KeySize, len(key))
	}

	var (
		aead cipher.AEAD
		err  error
	)
	switch typ {
	case CipherAESGCM:
		var block cipher.Block
		block, err = aes.NewCipher(key)
		if err == nil {
			aead, err = cipher.NewGCM(block)
		}
	case CipherXChaCha20:
		aead, err = chacha20poly1305.NewX(key)
	default:
		return nil, errors.New("adaptive: unknown cipher type: " + string(typ))
	}
	if err != nil {
		return nil, err
	}

	return &Cipher{typ: typ, aead: aead}, nil
}

// PreferredType returns the cipher best suited to this platform.
func PreferredType() CipherType {
	// crypto/aes is hardware accelerated on these architectures.
	switch runtime.GOARCH {
	case "amd64", "arm64", "s390x", "ppc64le":
		return CipherAESGCM
	default:
		return CipherXChaCha20
	}
}

// Type returns the cipher type.
func (c *Cipher) Type() CipherType {
	return c.typ
}

// Encrypt seals plaintext; the nonce is prepended to the result.
func (c *Cipher) Encrypt(plaintext, additionalData []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return c.aead.Seal(nonce, nonce, plaintext, additionalData), nil
}

// Decrypt opens a value produced by Encrypt.
func (c *Cipher) Decrypt(ciphertext, additionalData []byte) ([]byte, error) {
	if len(ciphertext) < c.aead.NonceSize()+c.aead.Overhead() {
		return nil, ErrCiphertextTooShort
	}
	nonce := ciphertext[:c.aead.NonceSize()]
	return c.aead.Open(nil, nonce, ciphertext[c.aead.NonceSize():], additionalData)
}
