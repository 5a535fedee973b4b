package server

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"
)

const tokenIssuer = "emojichain"

var errInvalidToken = errors.New("invalid session token")

// Tokens issues and verifies the HS256 bearer tokens that bind a client to
// its session.
type Tokens struct {
	key      []byte
	lifetime time.Duration
	now      func() time.Time
}

// NewTokens derives the signing key from secret with HKDF-SHA256, so the
// configured secret is never used as a MAC key directly.
func NewTokens(secret string, lifetime time.Duration) (*Tokens, error) {
	if secret == "" {
		return nil, errors.New("session secret is empty")
	}
	key := make([]byte, 32)
	kdf := hkdf.New(sha256.New, []byte(secret), []byte(tokenIssuer), []byte("session-token v1"))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("deriving token key: %w", err)
	}
	return &Tokens{key: key, lifetime: lifetime, now: time.Now}, nil
}

// Issue returns a signed token for sessionID.
func (t *Tokens) Issue(sessionID string) (string, error) {
	now := t.now()
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   sessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.lifetime)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of token and returns its session ID.
func (t *Tokens) Verify(token string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return t.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", errInvalidToken)
	}
	return claims.Subject, nil
}
