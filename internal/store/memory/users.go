package memory

import (
	"context"
	"sync"
	"time"

	"github.com/citypulse/cityhub/internal/domain/user"
	"github.com/citypulse/cityhub/internal/store"
	"github.com/google/uuid"
)

// UsersStore keeps users in process memory. Used by tests and the dev
// backend; the mutex stands in for the unique index the real stores rely on.
type UsersStore struct {
	mu      sync.RWMutex
	items   map[string]user.User // keyed by id
	byEmail map[string]string    // email -> id
}

func NewUsersStore() *UsersStore {
	return &UsersStore{
		items:   make(map[string]user.User),
		byEmail: make(map[string]string),
	}
}

func (r *UsersStore) Create(_ context.Context, nu store.NewUser) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[nu.Email]; exists {
		return user.User{}, store.ErrEmailTaken
	}

	now := time.Now().UTC()

	u := user.User{
		ID:           uuid.NewString(),
		Email:        nu.Email,
		PasswordHash: nu.PasswordHash,
		Preferences:  nu.Preferences,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	r.items[u.ID] = u
	r.byEmail[u.Email] = u.ID

	return u, nil
}

func (r *UsersStore) GetByEmail(_ context.Context, email string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]

	if !ok {
		return user.User{}, store.ErrUserNotFound
	}

	return r.items[id], nil
}

func (r *UsersStore) GetByID(_ context.Context, id string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[id]

	if !ok {
		return user.User{}, store.ErrUserNotFound
	}

	return u, nil
}

func (r *UsersStore) Update(_ context.Context, id string, upd store.UserUpdate) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]

	if !ok {
		return user.User{}, store.ErrUserNotFound
	}

	if upd.DisplayName != nil {
		u.DisplayName = *upd.DisplayName
	}

	if upd.UserName != nil {
		u.UserName = *upd.UserName
	}

	if upd.Preferences != nil {
		u.Preferences = *upd.Preferences
	}

	u.UpdatedAt = time.Now().UTC()
	r.items[id] = u

	return u, nil
}
