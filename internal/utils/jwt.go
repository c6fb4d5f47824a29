package utils // package utils provides helper functions for token creation and hashing

import (
	"crypto/rand"  // secure random number generation
	"encoding/hex" // hex encoding of random bytes
	"errors"
	"strings"
	"time" // time utilities for generating expirations

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// ErrInvalidAccessToken is returned by ParseAccessToken for any token that
// fails signature, algorithm, expiry or claim checks.
var ErrInvalidAccessToken = errors.New("invalid access token")

// AccessToken represents a signed JWT access token along with its expiry.
// The Token field contains the JWT string.  Exp stores the expiration
// timestamp.  Access tokens are handed out by the magic-link callback and
// sent in the Authorization header when calling protected endpoints.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// NewAccessToken builds and signs an HS256 JWT for a signed-in email
// address.  The subject and the email claim both carry the address; it is
// the caller identity recorded on every token the user issues.
func NewAccessToken(secret, email string, ttlMin int) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub":   email,
		"email": email,
		"exp":   exp.Unix(),
		"iat":   now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies an HS256 token and returns the email identity
// it carries.  Tokens signed with any other algorithm are rejected before
// the key is consulted.
func ParseAccessToken(secret, raw string) (string, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidAccessToken
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return "", ErrInvalidAccessToken
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidAccessToken
	}
	email, _ := claims["email"].(string)
	if email == "" {
		email, _ = claims["sub"].(string)
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", ErrInvalidAccessToken
	}
	return email, nil
}

// NewOpaqueToken returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.  32 bytes (64 hex characters) is
// what download tokens and magic-link tokens use.
func NewOpaqueToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// ShortToken returns a log-safe prefix of a bearer value.
func ShortToken(tok string) string {
	if len(tok) <= 8 {
		return tok
	}
	return tok[:8] + "..."
}
