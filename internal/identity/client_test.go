package identity

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/and161185/topupbd/internal/errs"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []AuthEvent
}

func (r *recorder) listen(event AuthEvent, _ *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) got() []AuthEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]AuthEvent(nil), r.events...)
}

func TestClientLifecycle(t *testing.T) {
	ctx := context.Background()
	c := NewClient(newLocal())

	rec := &recorder{}
	unsubscribe := c.OnAuthStateChange(rec.listen)

	s, err := c.GetSession(ctx)
	require.NoError(t, err)
	require.Nil(t, s)

	_, err = c.RefreshSession(ctx)
	require.ErrorIs(t, err, errs.ErrNoSession)

	_, err = c.SignUp(ctx, "rahim@example.com", "pa55word")
	require.NoError(t, err)

	s, err = c.GetSession(ctx)
	require.NoError(t, err)
	require.Equal(t, "rahim@example.com", s.User.Email)

	_, err = c.RefreshSession(ctx)
	require.NoError(t, err)

	require.NoError(t, c.SignOut(ctx))
	s, err = c.GetSession(ctx)
	require.NoError(t, err)
	require.Nil(t, s)

	require.Equal(t, []AuthEvent{SignedIn, TokenRefreshed, SignedOut}, rec.got())

	unsubscribe()
	_, err = c.SignIn(ctx, "rahim@example.com", "pa55word")
	require.NoError(t, err)
	require.Len(t, rec.got(), 3)
}

func TestClientRefreshesExpiredSession(t *testing.T) {
	ctx := context.Background()
	c := NewClient(newLocal())

	_, err := c.SignUp(ctx, "karim@example.com", "pa55word")
	require.NoError(t, err)

	c.mu.Lock()
	c.session.ExpiresAt = time.Now().Add(-time.Minute)
	c.mu.Unlock()

	rec := &recorder{}
	c.OnAuthStateChange(rec.listen)

	s, err := c.GetSession(ctx)
	require.NoError(t, err)
	require.False(t, s.Expired(time.Now()))
	require.Equal(t, []AuthEvent{TokenRefreshed}, rec.got())
}

func TestClientFailedSignInKeepsSession(t *testing.T) {
	ctx := context.Background()
	c := NewClient(newLocal())

	_, err := c.SignUp(ctx, "karim@example.com", "pa55word")
	require.NoError(t, err)

	_, err = c.SignIn(ctx, "karim@example.com", "wrong")
	require.ErrorIs(t, err, errs.ErrInvalidCredentials)

	s, err := c.GetSession(ctx)
	require.NoError(t, err)
	require.Equal(t, "karim@example.com", s.User.Email)
}
