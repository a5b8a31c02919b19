// Package identity delegates accounts and profiles to a hosted auth backend
// and keeps every visitor signed in, provisioning a guest account when needed.
package identity

import (
	"context"
	"time"

	"github.com/and161185/topupbd/internal/model"
)

type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         Identity  `json:"user"`
}

func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

type AuthEvent string

const (
	SignedIn       AuthEvent = "SIGNED_IN"
	SignedOut      AuthEvent = "SIGNED_OUT"
	TokenRefreshed AuthEvent = "TOKEN_REFRESHED"
)

// Backend is the remote auth and profile store. It holds no per-visitor
// state; sessions travel as tokens.
type Backend interface {
	SignUp(ctx context.Context, email, password string) (*Session, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context, accessToken string) error
	GetUser(ctx context.Context, accessToken string) (Identity, error)
	Refresh(ctx context.Context, refreshToken string) (*Session, error)

	GetProfile(ctx context.Context, accessToken, id string) (model.Profile, error)
	InsertProfile(ctx context.Context, accessToken string, profile model.Profile) (model.Profile, error)
	ListProfiles(ctx context.Context, accessToken string) ([]model.Profile, error)
}
