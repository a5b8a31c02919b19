package identity

import (
	"context"
	"strings"
	"testing"

	"github.com/and161185/topupbd/internal/storage"
	"github.com/stretchr/testify/require"
)

func TestGuestProviderRemembersDevice(t *testing.T) {
	ctx := context.Background()
	g := NewGuestProvider(storage.NewMemoryStorage())

	first, created, err := g.GuestCredentials(ctx, "device-1")
	require.NoError(t, err)
	require.True(t, created)
	require.True(t, IsGuestEmail(first.Email))
	require.True(t, strings.HasPrefix(first.Email, "guest-"))
	require.Len(t, first.Password, 32)

	again, created, err := g.GuestCredentials(ctx, "device-1")
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first.Email, again.Email)
	require.Equal(t, first.Password, again.Password)

	other, created, err := g.GuestCredentials(ctx, "device-2")
	require.NoError(t, err)
	require.True(t, created)
	require.NotEqual(t, first.Email, other.Email)
}

func TestIsGuestEmail(t *testing.T) {
	require.True(t, IsGuestEmail("guest-0123@GUEST.topupbd.app"))
	require.False(t, IsGuestEmail("rahim@example.com"))
	require.False(t, IsGuestEmail("guest.topupbd.app@example.com"))
}
