package session

import (
	"errors"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"prismpapers/internal/util"
)

// JWTStore issues and validates stateless HS256 tokens. DeleteSession is a
// no-op; tokens simply expire.
type JWTStore struct {
	secret []byte
	ttl    time.Duration
}

// NewJWTStore builds a stateless JWT session store.
func NewJWTStore(secret string, ttl time.Duration) *JWTStore {
	return &JWTStore{secret: []byte(secret), ttl: ttl}
}

// NewSession creates a signed JWT for the identity ID.
func (s *JWTStore) NewSession(identityID string) (string, error) {
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   identityID,
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		ID:        util.NewID(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// IdentityIDByToken validates a JWT and returns the subject.
func (s *JWTStore) IdentityIDByToken(token string) (string, bool, error) {
	claims := jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuedAt())
	if err != nil || !parsed.Valid {
		return "", false, nil
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", false, errors.New("token subject missing")
	}
	return claims.Subject, true, nil
}

// DeleteSession is a no-op for stateless JWT; provided for interface parity.
func (s *JWTStore) DeleteSession(_ string) error {
	return nil
}
