// Package auth issues and verifies portal access tokens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/ehr/fhirportal/internal/platform/ident"
	"github.com/golang-jwt/jwt/v5"
)

const DefaultTokenTTL = time.Hour

var ErrInvalidToken = errors.New("invalid or expired token")

type Claims struct {
	jwt.RegisteredClaims
	Email       string   `json:"email,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// Principal is the subject a token is issued for.
type Principal struct {
	UserID      string
	Email       string
	Roles       []string
	Permissions []string
}

// TokenIssuer mints HS256 JWTs when it has a signing key and opaque
// prefixed identifiers otherwise.
type TokenIssuer struct {
	key    []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(signingKey, issuer string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenIssuer{key: []byte(signingKey), issuer: issuer, ttl: ttl, now: time.Now}
}

// Signed reports whether tokens are JWTs.
func (t *TokenIssuer) Signed() bool { return len(t.key) > 0 }

// TTL is the access token lifetime.
func (t *TokenIssuer) TTL() time.Duration { return t.ttl }

// Issue returns an access and a refresh token for p.
func (t *TokenIssuer) Issue(p Principal) (access, refresh string, err error) {
	if !t.Signed() {
		return ident.Generate("access-token"), ident.Generate("refresh-token"), nil
	}

	now := t.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        ident.Generate("jti"),
			Subject:   p.UserID,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
		Email:       p.Email,
		Roles:       p.Roles,
		Permissions: p.Permissions,
	}
	access, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
	if err != nil {
		return "", "", fmt.Errorf("sign access token: %w", err)
	}
	return access, ident.Generate("refresh-token"), nil
}

// Verify parses a signed access token.
func (t *TokenIssuer) Verify(token string) (*Claims, error) {
	if !t.Signed() {
		return nil, ErrInvalidToken
	}
	claims := &Claims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return t.key, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

type digestClaims struct {
	jwt.RegisteredClaims
	Digest string `json:"digest"`
}

// SignDigest returns a compact JWS binding digest to subject. Without a
// signing key the digest itself is returned.
func (t *TokenIssuer) SignDigest(subject, digest string) (string, error) {
	if !t.Signed() {
		return digest, nil
	}
	claims := digestClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  subject,
			Issuer:   t.issuer,
			IssuedAt: jwt.NewNumericDate(t.now()),
		},
		Digest: digest,
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
	if err != nil {
		return "", fmt.Errorf("sign digest: %w", err)
	}
	return s, nil
}
