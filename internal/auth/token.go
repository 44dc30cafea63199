package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shiftline/shiftline/internal/models"
)

// TokenManager signs and verifies session tokens. The signing secret
// is a server-held configuration value; construction fails when it is
// empty so a missing secret can never degrade into a known default.
type TokenManager struct {
	secret   []byte
	lifetime time.Duration
}

// NewTokenManager creates a new TokenManager
func NewTokenManager(secret string, lifetime time.Duration) (*TokenManager, error) {
	if secret == "" {
		return nil, fmt.Errorf("session secret must not be empty")
	}
	return &TokenManager{
		secret:   []byte(secret),
		lifetime: lifetime,
	}, nil
}

// Issue produces a signed session token carrying the user's identity
// claims. The embedded expiry matches the cookie lifetime.
func (tm *TokenManager) Issue(user *models.User) (string, error) {
	now := time.Now()
	claims := &models.SessionClaims{
		UserID:    user.ID,
		CompanyID: user.CompanyID,
		Role:      user.Role,
		Username:  user.Username,
		Email:     user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.lifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}

	return tokenString, nil
}

// Verify validates a session token and returns its claims. Every
// failure mode - expired, tampered, malformed, wrong secret, wrong
// algorithm - is reported the same way so callers treat them uniformly
// as "unauthenticated".
func (tm *TokenManager) Verify(tokenString string) (*models.SessionClaims, error) {
	claims := &models.SessionClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tm.secret, nil
	})

	if err != nil {
		return nil, models.ErrUnauthorized
	}

	if !token.Valid {
		return nil, models.ErrUnauthorized
	}

	if claims.UserID == "" || claims.CompanyID == "" {
		return nil, models.ErrUnauthorized
	}

	return claims, nil
}
