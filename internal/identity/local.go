package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/and161185/topupbd/internal/auth"
	"github.com/and161185/topupbd/internal/errs"
	"github.com/and161185/topupbd/internal/model"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	accessKind  = "access"
	refreshKind = "refresh"
	refreshTTL  = 30 * 24 * time.Hour
)

type UserStore interface {
	CreateUser(ctx context.Context, id, email, passwordHash string) error
	GetUserByEmail(ctx context.Context, email string) (model.User, string, error)
	GetUserByID(ctx context.Context, id string) (model.User, error)
}

type ProfileStore interface {
	GetProfile(ctx context.Context, id string) (model.Profile, error)
	InsertProfile(ctx context.Context, profile model.Profile) (model.Profile, error)
	ListProfiles(ctx context.Context) ([]model.Profile, error)
}

// LocalBackend serves accounts from the service's own storage when no
// Supabase project is configured. Tokens are stateless JWTs, so signing
// out only drops the client side session.
type LocalBackend struct {
	users    UserStore
	profiles ProfileStore
	access   *auth.TokenManager
	refresh  *auth.TokenManager
}

func NewLocalBackend(users UserStore, profiles ProfileStore, tokens *auth.TokenManager) *LocalBackend {
	return &LocalBackend{
		users:    users,
		profiles: profiles,
		access:   tokens,
		refresh:  tokens.WithTTL(refreshTTL),
	}
}

func (b *LocalBackend) SignUp(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, errs.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	id := uuid.NewString()
	if err := b.users.CreateUser(ctx, id, email, string(hash)); err != nil {
		return nil, err
	}

	return b.issue(model.User{ID: id, Email: email})
}

func (b *LocalBackend) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, hash, err := b.users.GetUserByEmail(ctx, email)
	if errors.Is(err, errs.ErrUserNotFound) {
		return nil, errs.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, errs.ErrInvalidCredentials
	}

	return b.issue(user)
}

func (b *LocalBackend) SignOut(ctx context.Context, accessToken string) error {
	_, err := b.access.ParseToken(accessKind, accessToken)
	return err
}

func (b *LocalBackend) GetUser(ctx context.Context, accessToken string) (Identity, error) {
	id, err := b.access.ParseToken(accessKind, accessToken)
	if err != nil {
		return Identity{}, err
	}

	user, err := b.users.GetUserByID(ctx, id)
	if err != nil {
		return Identity{}, err
	}
	return Identity{ID: user.ID, Email: user.Email}, nil
}

func (b *LocalBackend) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	id, err := b.refresh.ParseToken(refreshKind, refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := b.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return b.issue(user)
}

func (b *LocalBackend) GetProfile(ctx context.Context, accessToken, id string) (model.Profile, error) {
	if _, err := b.GetUser(ctx, accessToken); err != nil {
		return model.Profile{}, err
	}
	return b.profiles.GetProfile(ctx, id)
}

func (b *LocalBackend) InsertProfile(ctx context.Context, accessToken string, profile model.Profile) (model.Profile, error) {
	caller, err := b.GetUser(ctx, accessToken)
	if err != nil {
		return model.Profile{}, err
	}
	if caller.ID != profile.ID {
		return model.Profile{}, errs.ErrInvalidToken
	}
	return b.profiles.InsertProfile(ctx, profile)
}

func (b *LocalBackend) ListProfiles(ctx context.Context, accessToken string) ([]model.Profile, error) {
	if _, err := b.GetUser(ctx, accessToken); err != nil {
		return nil, err
	}
	return b.profiles.ListProfiles(ctx)
}

func (b *LocalBackend) issue(user model.User) (*Session, error) {
	// token expiry has second precision; never report a later one
	expiresAt := time.Now().Add(b.access.TTL()).Truncate(time.Second)

	access, err := b.access.GenerateToken(accessKind, user.ID)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	refresh, err := b.refresh.GenerateToken(refreshKind, user.ID)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	return &Session{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
		User:         Identity{ID: user.ID, Email: user.Email},
	}, nil
}
