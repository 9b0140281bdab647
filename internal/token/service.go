package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/academictracker/api/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for malformed, expired or wrongly signed tokens.
var ErrInvalidToken = errors.New("invalid token")

// Claims represents the JWT registered claims plus tracker specific metadata.
type Claims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the subject as a UUID.
func (c *Claims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// AccessTokenInput defines metadata for token minting.
type AccessTokenInput struct {
	UserID uuid.UUID
	Email  string
	Name   string
}

// Service handles JWT minting and verification.
type Service struct {
	cfg    config.TokenConfig
	secret []byte
	parser *jwt.Parser
	now    func() time.Time
}

// NewService returns a token service signing with HS256.
func NewService(cfg config.TokenConfig) (*Service, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("token secret missing")
	}
	if cfg.ExpiresIn <= 0 {
		return nil, fmt.Errorf("token ttl must be positive")
	}
	return &Service{
		cfg:    cfg,
		secret: []byte(cfg.Secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithExpirationRequired(),
		),
		now: time.Now,
	}, nil
}

// MintAccessToken generates a signed JWT representing the authenticated user.
func (s *Service) MintAccessToken(input AccessTokenInput) (string, time.Time, error) {
	now := s.now().UTC()
	exp := now.Add(s.cfg.ExpiresIn)

	claims := &Claims{
		Email: input.Email,
		Name:  input.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			Subject:   input.UserID.String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign jwt: %w", err)
	}
	return signed, exp, nil
}

// ValidateAccessToken parses and verifies a JWT token string.
func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	token, err := s.parser.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if _, err := claims.UserID(); err != nil {
		return nil, fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	}
	return claims, nil
}
