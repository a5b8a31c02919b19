package auth

import (
	"testing"
	"time"

	"github.com/and161185/topupbd/internal/errs"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	tm := NewTokenManager("testsecret")
	token, err := tm.GenerateToken("device", "dev-42")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	subject, err := tm.ParseToken("device", token)
	require.NoError(t, err)
	require.Equal(t, "dev-42", subject)
}

func TestParseTokenWrongKind(t *testing.T) {
	tm := NewTokenManager("testsecret")
	token, err := tm.GenerateToken("access", "user-1")
	require.NoError(t, err)

	_, err = tm.ParseToken("device", token)
	require.ErrorIs(t, err, errs.ErrInvalidToken)
}

func TestParseInvalidToken(t *testing.T) {
	tm := NewTokenManager("testsecret")

	_, err := tm.ParseToken("device", "invalid.token.string")
	require.ErrorIs(t, err, errs.ErrInvalidToken)
}

func TestParseTokenWithWrongSignature(t *testing.T) {
	tm := NewTokenManager("testsecret")

	claims := jwt.MapClaims{
		"sub":  "dev-1",
		"kind": "device",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	badTokenStr, _ := token.SignedString([]byte("wrongsecret"))

	_, err := tm.ParseToken("device", badTokenStr)
	require.ErrorIs(t, err, errs.ErrInvalidToken)
}

func TestParseExpiredToken(t *testing.T) {
	tm := NewTokenManager("testsecret")

	claims := jwt.MapClaims{
		"sub":  "dev-1",
		"kind": "device",
		"exp":  time.Now().Add(-time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	expiredTokenStr, _ := token.SignedString([]byte("testsecret"))

	_, err := tm.ParseToken("device", expiredTokenStr)
	require.ErrorIs(t, err, errs.ErrInvalidToken)
}

func TestWithTTL(t *testing.T) {
	tm := NewTokenManager("testsecret").WithTTL(time.Hour)
	require.Equal(t, time.Hour, tm.TTL())
}
