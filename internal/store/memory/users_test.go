package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/citypulse/cityhub/internal/domain/user"
	"github.com/citypulse/cityhub/internal/store"
)

func newTestUser(t *testing.T, r *UsersStore, email string) user.User {
	t.Helper()

	u, err := r.Create(context.Background(), store.NewUser{
		Email:        email,
		PasswordHash: "$2a$10$fakefakefakefakefakefake",
		Preferences:  user.DefaultPreferences(),
	})

	if err != nil {
		t.Fatalf("Create(%s): %v", email, err)
	}

	return u
}

func TestCreateAssignsIdentityAndTimestamps(t *testing.T) {
	r := NewUsersStore()

	u := newTestUser(t, r, "a@x.com")

	if u.ID == "" {
		t.Errorf("missing id")
	}

	if u.CreatedAt.IsZero() || u.UpdatedAt.IsZero() {
		t.Errorf("missing timestamps")
	}
}

func TestCreateDuplicateEmail(t *testing.T) {
	r := NewUsersStore()

	newTestUser(t, r, "a@x.com")

	_, err := r.Create(context.Background(), store.NewUser{Email: "a@x.com"})

	if !errors.Is(err, store.ErrEmailTaken) {
		t.Fatalf("err = %v, want ErrEmailTaken", err)
	}
}

func TestEmailLookupIsCaseSensitive(t *testing.T) {
	r := NewUsersStore()

	newTestUser(t, r, "a@x.com")

	// emails are stored as given, no normalization
	if _, err := r.GetByEmail(context.Background(), "A@X.COM"); !errors.Is(err, store.ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
}

func TestLookups(t *testing.T) {
	r := NewUsersStore()

	created := newTestUser(t, r, "a@x.com")

	byEmail, err := r.GetByEmail(context.Background(), "a@x.com")

	if err != nil || byEmail.ID != created.ID {
		t.Fatalf("GetByEmail = (%v, %v)", byEmail, err)
	}

	byID, err := r.GetByID(context.Background(), created.ID)

	if err != nil || byID.Email != "a@x.com" {
		t.Fatalf("GetByID = (%v, %v)", byID, err)
	}

	if _, err := r.GetByID(context.Background(), "missing"); !errors.Is(err, store.ErrUserNotFound) {
		t.Fatalf("missing id err = %v", err)
	}
}

func TestUpdateAppliesOnlyProvidedFields(t *testing.T) {
	r := NewUsersStore()

	created := newTestUser(t, r, "a@x.com")

	name := "Bob"

	updated, err := r.Update(context.Background(), created.ID, store.UserUpdate{DisplayName: &name})

	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if updated.DisplayName != "Bob" {
		t.Errorf("displayName = %q", updated.DisplayName)
	}

	if updated.UserName != created.UserName || updated.Preferences != created.Preferences {
		t.Errorf("nil fields were applied")
	}

	prefs := user.Preferences{Notifications: false}

	updated, err = r.Update(context.Background(), created.ID, store.UserUpdate{Preferences: &prefs})

	if err != nil {
		t.Fatalf("Update prefs: %v", err)
	}

	if updated.Preferences.Notifications {
		t.Errorf("preferences not applied")
	}

	if updated.DisplayName != "Bob" {
		t.Errorf("earlier update lost: displayName = %q", updated.DisplayName)
	}
}

func TestUpdateMissingUser(t *testing.T) {
	r := NewUsersStore()

	name := "Bob"

	_, err := r.Update(context.Background(), "missing", store.UserUpdate{DisplayName: &name})

	if !errors.Is(err, store.ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
}
