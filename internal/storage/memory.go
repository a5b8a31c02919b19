package storage

import (
	"context"
	"sync"

	"github.com/and161185/topupbd/internal/errs"
	"github.com/and161185/topupbd/internal/model"
)

type memoryUser struct {
	user model.User
	hash string
}

// MemoryStorage keeps everything in process. Used when no DATABASE_URI is
// configured and in tests.
type MemoryStorage struct {
	mu       sync.RWMutex
	users    map[string]memoryUser
	byEmail  map[string]string
	profiles []model.Profile
	guests   map[string]model.Credentials
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		users:   make(map[string]memoryUser),
		byEmail: make(map[string]string),
		guests:  make(map[string]model.Credentials),
	}
}

func (m *MemoryStorage) CreateUser(ctx context.Context, id, email, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byEmail[email]; ok {
		return errs.ErrLoginAlreadyExists
	}
	m.users[id] = memoryUser{user: model.User{ID: id, Email: email}, hash: passwordHash}
	m.byEmail[email] = id
	return nil
}

func (m *MemoryStorage) GetUserByEmail(ctx context.Context, email string) (model.User, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byEmail[email]
	if !ok {
		return model.User{}, "", errs.ErrUserNotFound
	}
	u := m.users[id]
	return u.user, u.hash, nil
}

func (m *MemoryStorage) GetUserByID(ctx context.Context, id string) (model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return model.User{}, errs.ErrUserNotFound
	}
	return u.user, nil
}

func (m *MemoryStorage) GetProfile(ctx context.Context, id string) (model.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range m.profiles {
		if p.ID == id {
			return p, nil
		}
	}
	return model.Profile{}, errs.ErrProfileNotFound
}

func (m *MemoryStorage) InsertProfile(ctx context.Context, profile model.Profile) (model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.profiles {
		if p.ID == profile.ID {
			return p, nil
		}
	}
	// newest first, like the postgres listing
	m.profiles = append([]model.Profile{profile}, m.profiles...)
	return profile, nil
}

func (m *MemoryStorage) ListProfiles(ctx context.Context) ([]model.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.Profile, len(m.profiles))
	copy(out, m.profiles)
	return out, nil
}

func (m *MemoryStorage) GetGuest(ctx context.Context, deviceID string) (model.Credentials, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	creds, ok := m.guests[deviceID]
	if !ok {
		return model.Credentials{}, errs.ErrGuestNotFound
	}
	return creds, nil
}

func (m *MemoryStorage) SaveGuest(ctx context.Context, deviceID string, creds model.Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.guests[deviceID] = creds
	return nil
}
