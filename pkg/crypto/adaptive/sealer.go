package adaptive

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
)

var (
	// ErrCiphertextTooShort is returned for truncated input.
	ErrCiphertextTooShort = errors.New("adaptive: ciphertext too short")

	// ErrNotSealed is returned when the input lacks the envelope header.
	ErrNotSealed = errors.New("adaptive: value is not sealed")

	// ErrDecryptionFailed is returned for a wrong passphrase or tampered data.
	ErrDecryptionFailed = errors.New("adaptive: decryption failed, wrong passphrase or corrupted data")

	// ErrEmptyPassphrase is returned when no passphrase was configured.
	ErrEmptyPassphrase = errors.New("adaptive: passphrase is empty")
)

const (
	saltLength = 16

	// Argon2id parameters (RFC 9106 second recommended option, lowered memory).
	argon2Time    = 2
	argon2Memory  = 19 * 1024
	argon2Threads = 1
)

var magic = []byte("MUL1")

// Sealer encrypts small values under a passphrase.
type Sealer struct {
	passphrase []byte
	purpose    string
	typ        CipherType
}

// NewSealer creates a sealer. purpose is bound into key derivation, so a
// value sealed for one purpose cannot be opened as another.
func NewSealer(passphrase, purpose string) (*Sealer, error) {
	if passphrase == "" {
		return nil, ErrEmptyPassphrase
	}
	return &Sealer{
		passphrase: []byte(passphrase),
		purpose:    purpose,
		typ:        PreferredType(),
	}, nil
}

// WithCipher forces a cipher type for new envelopes.
func (s *Sealer) WithCipher(typ CipherType) *Sealer {
	c := *s
	c.typ = typ
	return &c
}

// Seal encrypts plaintext into an envelope.
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("adaptive: generate salt: %w", err)
	}

	c, err := s.cipher(s.typ, salt)
	if err != nil {
		return nil, err
	}

	header := make([]byte, 0, len(magic)+1+saltLength)
	header = append(header, magic...)
	header = append(header, cipherIDs[s.typ])
	header = append(header, salt...)

	sealed, err := c.Encrypt(plaintext, header)
	if err != nil {
		return nil, err
	}
	return append(header, sealed...), nil
}

// Open decrypts an envelope produced by Seal.
func (s *Sealer) Open(envelope []byte) ([]byte, error) {
	headerLen := len(magic) + 1 + saltLength
	if !IsSealed(envelope) {
		return nil, ErrNotSealed
	}
	if len(envelope) < headerLen {
		return nil, ErrCiphertextTooShort
	}

	typ, ok := typeForID(envelope[len(magic)])
	if !ok {
		return nil, fmt.Errorf("adaptive: unknown cipher id %d", envelope[len(magic)])
	}
	salt := envelope[len(magic)+1 : headerLen]

	c, err := s.cipher(typ, salt)
	if err != nil {
		return nil, err
	}

	plaintext, err := c.Decrypt(envelope[headerLen:], envelope[:headerLen])
	if err != nil {
		if errors.Is(err, ErrCiphertextTooShort) {
			return nil, err
		}
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

// IsSealed reports whether data starts with the envelope header.
func IsSealed(data []byte) bool {
	return bytes.HasPrefix(data, magic)
}

func (s *Sealer) cipher(typ CipherType, salt []byte) (*Cipher, error) {
	master := argon2.IDKey(s.passphrase, salt, argon2Time, argon2Memory, argon2Threads, KeySize)

	key := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, salt, []byte(s.purpose)), key); err != nil {
		return nil, fmt.Errorf("adaptive: derive key: %w", err)
	}
	return NewCipher(key, typ)
}

func typeForID(id byte) (CipherType, bool) {
	for typ, v := range cipherIDs {
		if v == id {
			return typ, true
		}
	}
	return "", false
}
