package state

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Payload captures OAuth state metadata carried through the provider round trip.
type Payload struct {
	Nonce      string `json:"nonce"`
	RedirectTo string `json:"redirect_to,omitempty"`
}

type stateClaims struct {
	Payload
	jwt.RegisteredClaims
}

// Encode signs the payload using HS256.
func Encode(secret string, payload Payload, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("oauth state secret missing")
	}
	now := time.Now()
	claims := stateClaims{
		Payload: payload,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Decode verifies and extracts the payload.
func Decode(secret string, token string) (*Payload, error) {
	if secret == "" {
		return nil, fmt.Errorf("oauth state secret missing")
	}
	claims := &stateClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("parse state: %w", err)
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("state token invalid")
	}
	if claims.Nonce == "" {
		return nil, fmt.Errorf("state nonce missing")
	}
	return &claims.Payload, nil
}
