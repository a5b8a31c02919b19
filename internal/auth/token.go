package auth

import (
	"time"

	"github.com/and161185/topupbd/internal/errs"
	"github.com/golang-jwt/jwt/v5"
)

type TokenManager struct {
	secretKey []byte
	ttl       time.Duration
}

func NewTokenManager(secretKey string) *TokenManager {
	return &TokenManager{secretKey: []byte(secretKey), ttl: 24 * time.Hour}
}

// WithTTL returns a copy of the manager issuing tokens with the given lifetime.
func (tm *TokenManager) WithTTL(ttl time.Duration) *TokenManager {
	return &TokenManager{secretKey: tm.secretKey, ttl: ttl}
}

func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}

// GenerateToken signs a token for subject. kind separates device cookies
// from backend access and refresh tokens so one cannot stand in for another.
func (tm *TokenManager) GenerateToken(kind, subject string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  subject,
		"kind": kind,
		"exp":  now.Add(tm.ttl).Unix(),
		"iat":  now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secretKey)
}

func (tm *TokenManager) ParseToken(kind, tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errs.ErrInvalidToken
		}
		return tm.secretKey, nil
	})

	if err != nil || !token.Valid {
		return "", errs.ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errs.ErrInvalidToken
	}

	if k, _ := claims["kind"].(string); k != kind {
		return "", errs.ErrInvalidToken
	}

	subject, ok := claims["sub"].(string)
	if !ok || subject == "" {
		return "", errs.ErrInvalidToken
	}

	return subject, nil
}
