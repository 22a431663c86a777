package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/victorivanov/supportline/internal/models"
)

// Claims defines the JWT payload issued by the login collaborator.
type Claims struct {
	Address string      `json:"address"`
	Role    models.Role `json:"role"`
	jwt.RegisteredClaims
}

// Identity returns the party the claims authenticate.
func (c *Claims) Identity() models.Identity {
	return models.Identity{Address: c.Address, Role: c.Role}
}

// TokenService validates access tokens. Issuing is only used by tooling and tests;
// production tokens come from the wallet login service sharing the same secret.
type TokenService struct {
	secret       []byte
	accessExpiry time.Duration
}

// NewTokenService creates a TokenService with the given HMAC secret.
func NewTokenService(secret string) *TokenService {
	return &TokenService{
		secret:       []byte(secret),
		accessExpiry: 24 * time.Hour,
	}
}

// GenerateAccessToken creates a signed JWT for the identity.
func (ts *TokenService) GenerateAccessToken(id models.Identity) (string, error) {
	now := time.Now()
	claims := Claims{
		Address: id.Address,
		Role:    id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Address,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.accessExpiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ts.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// ValidateAccessToken parses and validates a JWT, returning the claims.
func (ts *TokenService) ValidateAccessToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	switch claims.Role {
	case models.RoleOperator:
	case models.RoleUser:
		if claims.Address == "" {
			return nil, errors.New("user token without address")
		}
	default:
		return nil, fmt.Errorf("unknown role %q", claims.Role)
	}
	return claims, nil
}
