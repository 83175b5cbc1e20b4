package store

import (
	"context"
	"errors"

	"github.com/citypulse/cityhub/internal/domain/user"
)

var (
	ErrEmailTaken   = errors.New("email already registered")
	ErrUserNotFound = errors.New("user not found")
)

// NewUser carries the attributes the service persists at signup.
// The store assigns the id and timestamps.
type NewUser struct {
	Email        string
	PasswordHash string
	Preferences  user.Preferences
}

// UserUpdate is a partial update. Nil fields are left untouched.
// Email, password hash and createdAt are not updatable through this path.
type UserUpdate struct {
	DisplayName *string
	UserName    *string
	Preferences *user.Preferences
}

// CredentialStore is the persistence contract the auth service is written
// against. Adapters must enforce email uniqueness at the storage layer
// (unique index or equivalent); the service's pre-check is best effort only.
type CredentialStore interface {
	Create(ctx context.Context, nu NewUser) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	Update(ctx context.Context, id string, upd UserUpdate) (user.User, error)
}
