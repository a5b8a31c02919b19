package identity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/and161185/topupbd/internal/errs"
	"github.com/and161185/topupbd/internal/model"
)

type Listener func(event AuthEvent, session *Session)

// Client holds one visitor's session against a Backend and notifies
// listeners whenever it changes.
type Client struct {
	backend Backend

	// refreshMu lets one refresh at a time spend the refresh token.
	refreshMu sync.Mutex

	mu        sync.Mutex
	session   *Session
	listeners map[int]Listener
	nextID    int
}

func NewClient(backend Backend) *Client {
	return &Client{backend: backend, listeners: make(map[int]Listener)}
}

// GetSession returns the current session, refreshing it first when it has
// expired. A nil session with a nil error means nobody is signed in.
func (c *Client) GetSession(ctx context.Context) (*Session, error) {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()

	if s == nil {
		return nil, nil
	}
	if s.Expired(time.Now()) {
		return c.refresh(ctx, s)
	}
	return s, nil
}

// SignUp creates an account. Backends that require confirmation return no
// session; in that case the visitor stays signed out.
func (c *Client) SignUp(ctx context.Context, email, password string) (*Session, error) {
	s, err := c.backend.SignUp(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if s != nil {
		c.set(s)
		c.emit(SignedIn, s)
	}
	return s, nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	s, err := c.backend.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	c.set(s)
	c.emit(SignedIn, s)
	return s, nil
}

// SignOut clears the local session even when the backend call fails.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	s := c.session
	c.session = nil
	c.mu.Unlock()

	if s == nil {
		return nil
	}

	err := c.backend.SignOut(ctx, s.AccessToken)
	c.emit(SignedOut, nil)
	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

func (c *Client) RefreshSession(ctx context.Context) (*Session, error) {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()

	if s == nil {
		return nil, errs.ErrNoSession
	}
	return c.refresh(ctx, s)
}

// refresh exchanges the refresh token of stale for a new session. When
// another caller already replaced stale, the current session is returned
// without contacting the backend.
func (c *Client) refresh(ctx context.Context, stale *Session) (*Session, error) {
	c.refreshMu.Lock()

	c.mu.Lock()
	current := c.session
	c.mu.Unlock()

	if current == nil {
		c.refreshMu.Unlock()
		return nil, errs.ErrNoSession
	}
	if current != stale {
		c.refreshMu.Unlock()
		return current, nil
	}

	fresh, err := c.backend.Refresh(ctx, stale.RefreshToken)

	c.mu.Lock()
	replaced := c.session != stale
	if !replaced {
		if err != nil {
			c.session = nil
		} else {
			c.session = fresh
		}
	}
	c.mu.Unlock()
	c.refreshMu.Unlock()

	if replaced {
		// signed in or out while the request was in flight
		return c.GetSession(ctx)
	}
	if err != nil {
		c.emit(SignedOut, nil)
		return nil, fmt.Errorf("refresh session: %w", err)
	}

	c.emit(TokenRefreshed, fresh)
	return fresh, nil
}

// OnAuthStateChange registers fn and returns a function removing it.
func (c *Client) OnAuthStateChange(fn Listener) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.listeners[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

func (c *Client) GetProfile(ctx context.Context, id string) (model.Profile, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return model.Profile{}, err
	}
	return c.backend.GetProfile(ctx, token, id)
}

func (c *Client) InsertProfile(ctx context.Context, profile model.Profile) (model.Profile, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return model.Profile{}, err
	}
	return c.backend.InsertProfile(ctx, token, profile)
}

func (c *Client) ListProfiles(ctx context.Context) ([]model.Profile, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}
	return c.backend.ListProfiles(ctx, token)
}

// accessToken returns a live access token, refreshing an expired session
// on the way. Signed-out callers get an empty token and let the backend
// decide what anonymous access allows.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	s, err := c.GetSession(ctx)
	if err != nil {
		return "", err
	}
	if s == nil {
		return "", nil
	}
	return s.AccessToken, nil
}

func (c *Client) set(s *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
}

func (c *Client) emit(event AuthEvent, s *Session) {
	c.mu.Lock()
	listeners := make([]Listener, 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(event, s)
	}
}
