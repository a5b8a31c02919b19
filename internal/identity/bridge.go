package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/and161185/topupbd/internal/errs"
	"github.com/and161185/topupbd/internal/model"
	"github.com/and161185/topupbd/internal/utils"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const profileCodeLength = 6

// FallbackUser is shown when no profile can be resolved.
func FallbackUser(email string) model.UserData {
	return model.UserData{
		UserID:  "GUEST",
		Email:   email,
		Name:    "Guest User",
		Balance: decimal.Zero,
		Guest:   true,
	}
}

// Bridge turns a visitor's auth session into the UserData the storefront
// shows, creating the profile row on first sight of an account.
type Bridge struct {
	client   *Client
	guests   AnonymousIdentityProvider
	deviceID string
	logger   *zap.SugaredLogger

	mu          sync.RWMutex
	user        model.UserData
	pendingName string
	unsubscribe func()
}

func NewBridge(client *Client, guests AnonymousIdentityProvider, deviceID string, logger *zap.SugaredLogger) *Bridge {
	b := &Bridge{
		client:   client,
		guests:   guests,
		deviceID: deviceID,
		logger:   logger,
		user:     FallbackUser(""),
	}

	b.unsubscribe = client.OnAuthStateChange(func(event AuthEvent, s *Session) {
		b.logger.Debugw("auth state change", "device", deviceID, "event", event)
		if event == SignedOut {
			b.setUser(FallbackUser(""))
			return
		}
		b.resolve(context.Background(), s)
	})

	return b
}

// Init resolves the current user, signing the device in as its guest
// account when there is no session yet. It never fails: on any error the
// fallback user stays in place.
func (b *Bridge) Init(ctx context.Context) {
	s, err := b.client.GetSession(ctx)
	if err != nil {
		b.logger.Warnf("get session: %v", err)
	}
	if s != nil {
		b.resolve(ctx, s)
		return
	}

	if err := b.signInGuest(ctx); err != nil {
		b.logger.Errorf("guest sign in: %v", err)
		b.setUser(FallbackUser(""))
	}
}

func (b *Bridge) CurrentUser() model.UserData {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.user
}

func (b *Bridge) SignUp(ctx context.Context, creds model.Credentials) error {
	b.setPendingName(creds.FullName)

	s, err := b.client.SignUp(ctx, creds.Email, creds.Password)
	if err != nil {
		return err
	}
	if s == nil {
		// confirmation pending; the visitor keeps the current identity
		b.logger.Infow("sign up awaits confirmation", "email", creds.Email)
	}
	return nil
}

func (b *Bridge) SignIn(ctx context.Context, creds model.Credentials) error {
	_, err := b.client.SignIn(ctx, creds.Email, creds.Password)
	return err
}

// SignOut ends the account session and falls back to the device's guest.
func (b *Bridge) SignOut(ctx context.Context) error {
	if err := b.client.SignOut(ctx); err != nil {
		b.logger.Warnf("sign out: %v", err)
	}
	if err := b.signInGuest(ctx); err != nil {
		return fmt.Errorf("guest sign in: %w", err)
	}
	return nil
}

// Profiles lists every profile visible to the current session.
func (b *Bridge) Profiles(ctx context.Context) ([]model.Profile, error) {
	return b.client.ListProfiles(ctx)
}

func (b *Bridge) Close() {
	if b.unsubscribe != nil {
		b.unsubscribe()
	}
}

func (b *Bridge) signInGuest(ctx context.Context) error {
	creds, created, err := b.guests.GuestCredentials(ctx, b.deviceID)
	if err != nil {
		return err
	}

	b.setPendingName(creds.FullName)

	if created {
		s, err := b.client.SignUp(ctx, creds.Email, creds.Password)
		if err != nil && !errors.Is(err, errs.ErrLoginAlreadyExists) {
			return fmt.Errorf("register guest: %w", err)
		}
		if s != nil {
			return nil
		}
	}

	if _, err := b.client.SignIn(ctx, creds.Email, creds.Password); err != nil {
		return fmt.Errorf("sign in guest: %w", err)
	}
	return nil
}

func (b *Bridge) resolve(ctx context.Context, s *Session) {
	if s == nil {
		b.setUser(FallbackUser(""))
		return
	}

	profile, err := b.client.GetProfile(ctx, s.User.ID)
	if errors.Is(err, errs.ErrProfileNotFound) {
		profile, err = b.client.InsertProfile(ctx, model.Profile{
			ID:       s.User.ID,
			UserID:   "TB" + utils.RandomCode(profileCodeLength),
			FullName: b.nameFor(s.User.Email),
			Email:    s.User.Email,
			Balance:  decimal.Zero,
		})
	}
	if err != nil {
		b.logger.Errorf("resolve profile %s: %v", s.User.ID, err)
		b.setUser(FallbackUser(s.User.Email))
		return
	}

	user := profile.UserData()
	user.Guest = IsGuestEmail(s.User.Email)
	b.setUser(user)
}

func (b *Bridge) nameFor(email string) string {
	b.mu.Lock()
	name := b.pendingName
	b.pendingName = ""
	b.mu.Unlock()

	if name != "" {
		return name
	}
	if IsGuestEmail(email) {
		return "Guest User"
	}
	local, _, _ := strings.Cut(email, "@")
	return local
}

func (b *Bridge) setPendingName(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pendingName = strings.TrimSpace(name)
}

func (b *Bridge) setUser(u model.UserData) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.user = u
}
