package auth_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/citypulse/cityhub/internal/auth"
	"github.com/citypulse/cityhub/internal/store"
	"github.com/citypulse/cityhub/internal/store/memory"
)

// fake mailer implementing auth.WelcomeMailer

type fakeMailer struct {
	sent []string
	err  error
}

func (f *fakeMailer) EnqueueWelcome(_ context.Context, email string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, email)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newService(t *testing.T, mail auth.WelcomeMailer) *auth.Service {
	t.Helper()

	tokens := auth.NewManager("test-secret", time.Hour)

	return auth.NewService(memory.NewUsersStore(), tokens, mail, discardLogger())
}

func TestSignupIssuesVerifiableToken(t *testing.T) {
	mail := &fakeMailer{}
	svc := newService(t, mail)

	u, token, err := svc.Signup(context.Background(), "a@x.com", "secret-password")

	if err != nil {
		t.Fatalf("Signup: %v", err)
	}

	if u.ID == "" {
		t.Errorf("expected a store-assigned id")
	}

	if !u.Preferences.Notifications {
		t.Errorf("new users must default to notifications enabled")
	}

	if u.PasswordHash == "secret-password" {
		t.Errorf("password stored unhashed")
	}

	if !svc.VerifyToken(token) {
		t.Errorf("signup token failed verification")
	}

	if len(mail.sent) != 1 || mail.sent[0] != "a@x.com" {
		t.Errorf("welcome mail not enqueued, got %v", mail.sent)
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	svc := newService(t, &fakeMailer{})

	_, _, err := svc.Signup(context.Background(), "a@x.com", "secret-password")

	if err != nil {
		t.Fatalf("first signup: %v", err)
	}

	_, _, err = svc.Signup(context.Background(), "a@x.com", "another-password")

	if !errors.Is(err, auth.ErrEmailAlreadyRegistered) {
		t.Fatalf("second signup err = %v, want ErrEmailAlreadyRegistered", err)
	}
}

func TestSignupSurvivesMailerFailure(t *testing.T) {
	svc := newService(t, &fakeMailer{err: errors.New("queue down")})

	_, _, err := svc.Signup(context.Background(), "a@x.com", "secret-password")

	if err != nil {
		t.Fatalf("signup must not fail on mail enqueue errors, got %v", err)
	}
}

func TestLoginAfterSignup(t *testing.T) {
	svc := newService(t, &fakeMailer{})

	ctx := context.Background()

	if _, _, err := svc.Signup(ctx, "a@x.com", "secret-password"); err != nil {
		t.Fatalf("signup: %v", err)
	}

	u, token, err := svc.Login(ctx, "a@x.com", "secret-password")

	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if u.Email != "a@x.com" {
		t.Errorf("email = %q", u.Email)
	}

	if !svc.VerifyToken(token) {
		t.Errorf("login token failed verification")
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	svc := newService(t, &fakeMailer{})

	ctx := context.Background()

	if _, _, err := svc.Signup(ctx, "a@x.com", "secret-password"); err != nil {
		t.Fatalf("signup: %v", err)
	}

	_, _, wrongPassword := svc.Login(ctx, "a@x.com", "wrong")
	_, _, unknownUser := svc.Login(ctx, "nobody@x.com", "anything")

	if !errors.Is(wrongPassword, auth.ErrInvalidCredentials) {
		t.Errorf("wrong password err = %v", wrongPassword)
	}

	if !errors.Is(unknownUser, auth.ErrInvalidCredentials) {
		t.Errorf("unknown user err = %v", unknownUser)
	}

	// identical message: nothing to probe email existence with
	if wrongPassword.Error() != unknownUser.Error() {
		t.Errorf("error messages differ: %q vs %q", wrongPassword, unknownUser)
	}
}

func TestCurrentUserNeverErrors(t *testing.T) {
	mail := &fakeMailer{}
	tokens := auth.NewManager("test-secret", time.Hour)
	users := memory.NewUsersStore()
	svc := auth.NewService(users, tokens, mail, discardLogger())

	ctx := context.Background()

	u, token, err := svc.Signup(ctx, "a@x.com", "secret-password")

	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	// valid token resolves
	got, ok := svc.CurrentUser(ctx, token)

	if !ok || got.ID != u.ID {
		t.Fatalf("CurrentUser = (%v, %v), want user %s", got, ok, u.ID)
	}

	// expired token: (zero, false), no panic
	expired := auth.NewManager("test-secret", -time.Minute)
	expiredTok, _ := expired.GenerateSessionToken(u.ID)

	if _, ok := svc.CurrentUser(ctx, expiredTok); ok {
		t.Errorf("expired token resolved a user")
	}

	// valid token for a vanished user
	ghostTok, _ := tokens.GenerateSessionToken("no-such-id")

	if _, ok := svc.CurrentUser(ctx, ghostTok); ok {
		t.Errorf("token for missing user resolved")
	}

	// garbage
	if _, ok := svc.CurrentUser(ctx, "garbage"); ok {
		t.Errorf("garbage token resolved")
	}
}

func TestUpdateProfilePartial(t *testing.T) {
	svc := newService(t, &fakeMailer{})

	ctx := context.Background()

	u, _, err := svc.Signup(ctx, "a@x.com", "secret-password")

	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	name := "Bob"

	updated, err := svc.UpdateProfile(ctx, u.ID, store.UserUpdate{DisplayName: &name})

	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}

	if updated.DisplayName != "Bob" {
		t.Errorf("displayName = %q", updated.DisplayName)
	}

	// untouched fields stay put
	if updated.UserName != u.UserName {
		t.Errorf("userName changed: %q -> %q", u.UserName, updated.UserName)
	}

	if updated.Preferences != u.Preferences {
		t.Errorf("preferences changed: %+v -> %+v", u.Preferences, updated.Preferences)
	}

	if updated.Email != "a@x.com" || !updated.CreatedAt.Equal(u.CreatedAt) {
		t.Errorf("immutable fields changed")
	}
}

func TestUpdateProfileUnknownUser(t *testing.T) {
	svc := newService(t, &fakeMailer{})

	name := "Bob"

	_, err := svc.UpdateProfile(context.Background(), "no-such-id", store.UserUpdate{DisplayName: &name})

	if !errors.Is(err, store.ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
}
