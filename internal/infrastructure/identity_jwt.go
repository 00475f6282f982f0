package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yourusername/mediagrab-go/internal/domain"
)

// IdentityClaims are the bearer token claims. Subject carries the user id.
type IdentityClaims struct {
	Linked []string `json:"linked,omitempty"`
	jwt.RegisteredClaims
}

// JWTIdentityProvider verifies HS256 bearer tokens
type JWTIdentityProvider struct {
	secret []byte
	issuer string
}

// NewJWTIdentityProvider creates a provider for the given signing secret
func NewJWTIdentityProvider(secret, issuer string) (*JWTIdentityProvider, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	return &JWTIdentityProvider{secret: []byte(secret), issuer: issuer}, nil
}

// Authenticate verifies the token and returns the principal it vouches for
func (p *JWTIdentityProvider) Authenticate(ctx context.Context, token string) (*domain.Principal, error) {
	if token == "" {
		return nil, domain.ErrUnauthorized
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if p.issuer != "" {
		opts = append(opts, jwt.WithIssuer(p.issuer))
	}

	claims := &IdentityClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return p.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", domain.ErrUnauthorized)
	}

	principal := &domain.Principal{UserID: claims.Subject}
	for _, l := range claims.Linked {
		principal.LinkedIdentities = append(principal.LinkedIdentities, domain.LinkedIdentity(l))
	}
	return principal, nil
}

// IssueToken signs a token for local development and tests
func (p *JWTIdentityProvider) IssueToken(userID string, linked []domain.LinkedIdentity, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("user id is required")
	}

	now := time.Now()
	claims := IdentityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	for _, l := range linked {
		claims.Linked = append(claims.Linked, string(l))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
