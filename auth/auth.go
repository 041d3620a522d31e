// Package auth verifies and issues the bearer tokens that scope every API
// request to an owner. Verification is pure computation: the owner identity
// always comes from the token's subject claim, never from the request.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed, unsigned, or
	// signed with the wrong key or method.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when a token's expiry is in the past.
	ErrExpiredToken = errors.New("token has expired")
)

// Claims is the token payload carried by taskhub credentials.
type Claims struct {
	jwt.RegisteredClaims
}

// Verifier validates and issues HS256 bearer tokens.
type Verifier struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewVerifier creates a Verifier signing and verifying with secret.
func NewVerifier(secret, issuer string, ttl time.Duration) *Verifier {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Verifier{secret: []byte(secret), issuer: issuer, ttl: ttl}
}

// Issue creates a signed token whose subject is ownerID.
func (v *Verifier) Issue(ownerID string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.issuer,
			Subject:   ownerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

// Verify validates tokenString and returns the owner identity from its
// subject claim.
func (v *Verifier) Verify(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
