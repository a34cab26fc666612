package domain

import (
	"encoding/json"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Profile is the authenticated user's profile record.
//
// Only the identity fields are interpreted; everything else the server
// sends is kept verbatim.
type Profile map[string]any

// ID returns the numeric user id, or 0 when absent.
func (p Profile) ID() int64 {
	switch v := p["id"].(type) {
	case float64:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	}
	return 0
}

// Username returns the username field.
func (p Profile) Username() string {
	s, _ := p["username"].(string)
	return s
}

// Email returns the email field.
func (p Profile) Email() string {
	s, _ := p["email"].(string)
	return s
}

// DisplayName returns "First Last" when available, else the username.
func (p Profile) DisplayName() string {
	first, _ := p["first_name"].(string)
	last, _ := p["last_name"].(string)
	switch {
	case first != "" && last != "":
		return first + " " + last
	case first != "":
		return first
	}
	return p.Username()
}

// Credential is an opaque bearer token plus the profile it authenticates.
type Credential struct {
	Token    string
	Profile  Profile
	IssuedAt time.Time
}

// NewCredential creates a credential issued now.
func NewCredential(token string, profile Profile) *Credential {
	return &Credential{
		Token:    token,
		Profile:  profile,
		IssuedAt: time.Now(),
	}
}

// ExpiresAt peeks at the "exp" claim when the token is a JWT.
//
// The signature is not verified: the server is the only authority on
// validity, this is only used for display. Opaque tokens report false.
func (c *Credential) ExpiresAt() (time.Time, bool) {
	if c == nil || c.Token == "" {
		return time.Time{}, false
	}

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(c.Token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
