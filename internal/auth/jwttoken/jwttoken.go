// Package jwttoken issues and validates the HS256 session tokens that
// carry an exam session between face verification and every later call.
package jwttoken

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	middlewareAuth "facegate/pkg/platform/middleware/auth"
)

// DefaultTTL bounds a session to one exam sitting.
const DefaultTTL = 4 * time.Hour

type sessionClaims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Issuer signs and validates session tokens with a shared HMAC key.
type Issuer struct {
	key []byte
	ttl time.Duration
}

func NewIssuer(key []byte, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{key: key, ttl: ttl}
}

// TTL reports the configured session lifetime. Logout uses it to bound
// revocation entries to the token's own expiry.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// Issue mints a token for userID with the given role, returning the signed
// token and its jti for later revocation.
func (i *Issuer) Issue(userID, role string, now time.Time) (token, jti string, err error) {
	jti = uuid.NewString()
	claims := sessionClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return "", "", fmt.Errorf("sign session token: %w", err)
	}
	return token, jti, nil
}

// ValidateToken parses and verifies a token string, satisfying the session
// middleware's TokenValidator.
func (i *Issuer) ValidateToken(tokenString string) (*middlewareAuth.SessionClaims, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims,
		func(*jwt.Token) (any, error) { return i.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, fmt.Errorf("parse session token: %w", err)
	}
	return &middlewareAuth.SessionClaims{
		UserID: claims.UserID,
		Role:   claims.Role,
		JTI:    claims.ID,
	}, nil
}
