package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/citypulse/cityhub/internal/domain/user"
	"github.com/citypulse/cityhub/internal/security"
	"github.com/citypulse/cityhub/internal/store"
)

var (
	// ErrEmailAlreadyRegistered is the only signup failure the caller may see.
	ErrEmailAlreadyRegistered = errors.New("email already registered")

	// ErrInvalidCredentials deliberately covers both "no such user" and
	// "wrong password" so a caller cannot probe which emails exist.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// WelcomeMailer enqueues the post-signup welcome message. Delivery is
// fire-and-forget; the signup response never waits on it.
type WelcomeMailer interface {
	EnqueueWelcome(ctx context.Context, email string) error
}

// Service is the one auth business-logic implementation. The credential
// store behind it (postgres, mongo, memory) is chosen at wiring time.
type Service struct {
	users  store.CredentialStore
	tokens *Manager
	mail   WelcomeMailer
	log    *slog.Logger
}

func NewService(users store.CredentialStore, tokens *Manager, mail WelcomeMailer, log *slog.Logger) *Service {
	return &Service{
		users:  users,
		tokens: tokens,
		mail:   mail,
		log:    log,
	}
}

// Signup creates a user with default preferences and issues a session token.
// The existence pre-check is best effort; the store's unique constraint is
// what actually decides concurrent duplicate signups.
func (s *Service) Signup(ctx context.Context, email, password string) (user.User, string, error) {
	_, err := s.users.GetByEmail(ctx, email)

	if err == nil {
		return user.User{}, "", ErrEmailAlreadyRegistered
	}

	if !errors.Is(err, store.ErrUserNotFound) {
		return user.User{}, "", err
	}

	hash, err := security.HashPassword(password)

	if err != nil {
		return user.User{}, "", err
	}

	u, err := s.users.Create(ctx, store.NewUser{
		Email:        email,
		PasswordHash: hash,
		Preferences:  user.DefaultPreferences(),
	})

	if err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			return user.User{}, "", ErrEmailAlreadyRegistered
		}

		return user.User{}, "", err
	}

	token, err := s.tokens.GenerateSessionToken(u.ID)

	if err != nil {
		return user.User{}, "", err
	}

	if s.mail != nil {
		if err := s.mail.EnqueueWelcome(ctx, u.Email); err != nil {
			// never fails the signup
			s.log.Error("welcome mail enqueue failed", "err", err, "user_id", u.ID)
		}
	}

	return u, token, nil
}

// Login verifies credentials and issues a fresh session token.
func (s *Service) Login(ctx context.Context, email, password string) (user.User, string, error) {
	u, err := s.users.GetByEmail(ctx, email)

	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return user.User{}, "", ErrInvalidCredentials
		}

		return user.User{}, "", err
	}

	err = security.CheckPassword(u.PasswordHash, password)

	if err != nil {
		return user.User{}, "", ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateSessionToken(u.ID)

	if err != nil {
		return user.User{}, "", err
	}

	return u, token, nil
}

// VerifyToken reports whether the token's signature is valid and it has not
// expired. It does not check that the subject user still exists.
func (s *Service) VerifyToken(token string) bool {
	_, err := s.tokens.VerifySessionToken(token)
	return err == nil
}

// CurrentUser resolves a token to its user. Any failure, verification or
// lookup, yields (zero, false); this path never surfaces an error.
func (s *Service) CurrentUser(ctx context.Context, token string) (user.User, bool) {
	claims, err := s.tokens.VerifySessionToken(token)

	if err != nil {
		return user.User{}, false
	}

	u, err := s.users.GetByID(ctx, claims.Subject)

	if err != nil {
		if !errors.Is(err, store.ErrUserNotFound) {
			s.log.Error("current user lookup failed", "err", err)
		}
		return user.User{}, false
	}

	return u, true
}

// UserByID looks up a user by id.
func (s *Service) UserByID(ctx context.Context, id string) (user.User, error) {
	return s.users.GetByID(ctx, id)
}

// UpdateProfile applies the mutable profile fields. Nil fields in upd are
// left as they are; the store decides nothing beyond persistence here.
func (s *Service) UpdateProfile(ctx context.Context, userID string, upd store.UserUpdate) (user.User, error) {
	return s.users.Update(ctx, userID, upd)
}
