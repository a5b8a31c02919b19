package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/and161185/topupbd/internal/errs"
	"github.com/and161185/topupbd/internal/model"
	"github.com/google/uuid"
)

const GuestDomain = "guest.topupbd.app"

// AnonymousIdentityProvider hands out the credentials a visitor without an
// account signs in with. created reports whether the account still has to
// be registered with the backend.
type AnonymousIdentityProvider interface {
	GuestCredentials(ctx context.Context, deviceID string) (creds model.Credentials, created bool, err error)
}

type GuestStore interface {
	GetGuest(ctx context.Context, deviceID string) (model.Credentials, error)
	SaveGuest(ctx context.Context, deviceID string, creds model.Credentials) error
}

// GuestProvider generates a random credential pair per device and keeps it
// so the same device signs in as the same guest next time.
type GuestProvider struct {
	store GuestStore
}

func NewGuestProvider(store GuestStore) *GuestProvider {
	return &GuestProvider{store: store}
}

func (g *GuestProvider) GuestCredentials(ctx context.Context, deviceID string) (model.Credentials, bool, error) {
	creds, err := g.store.GetGuest(ctx, deviceID)
	if err == nil {
		return creds, false, nil
	}
	if !errors.Is(err, errs.ErrGuestNotFound) {
		return model.Credentials{}, false, fmt.Errorf("get guest: %w", err)
	}

	creds = model.Credentials{
		Email:    "guest-" + compactUUID()[:12] + "@" + GuestDomain,
		Password: compactUUID(),
		FullName: "Guest User",
	}
	if err := g.store.SaveGuest(ctx, deviceID, creds); err != nil {
		return model.Credentials{}, false, fmt.Errorf("save guest: %w", err)
	}

	return creds, true, nil
}

func IsGuestEmail(email string) bool {
	return strings.HasSuffix(strings.ToLower(email), "@"+GuestDomain)
}

func compactUUID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
