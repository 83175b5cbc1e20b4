package authclient

import (
	"context"
	"errors"
	"sync"
)

// State is the session's position in its lifecycle. Transitions are driven
// only by completed operations; an operation that lost the race to a newer
// one is discarded without touching state.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticating  State = "authenticating"
	StateAuthenticated   State = "authenticated"
	StateErrored         State = "errored"
)

// TokenStore persists the session token across restarts, the way the
// dashboard kept it in browser storage.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// Session mirrors the server-side session client-side: reactive user value
// in memory, token in the TokenStore. Logout is purely local; stateless
// tokens cannot be revoked server-side.
type Session struct {
	client *Client
	tokens TokenStore

	mu    sync.RWMutex
	state State
	user  *User
	token string
	err   error
	seq   uint64 // latest started operation wins
}

func NewSession(client *Client, tokens TokenStore) *Session {
	return &Session{
		client: client,
		tokens: tokens,
		state:  StateUnauthenticated,
	}
}

// Init revalidates a previously stored token. A token that fails
// verification or whose user no longer resolves is discarded and the
// session starts unauthenticated; Init itself never returns an error for
// that case.
func (s *Session) Init(ctx context.Context) error {
	stored, err := s.tokens.Load()

	if err != nil || stored == "" {
		s.apply(s.begin(), StateUnauthenticated, nil, "", nil)
		return nil
	}

	seq := s.begin()

	u, err := s.client.Me(ctx, stored)

	if err != nil {
		var apiErr *APIError

		if errors.As(err, &apiErr) {
			// dead token: drop it and start clean
			_ = s.tokens.Clear()
			s.apply(seq, StateUnauthenticated, nil, "", nil)
			return nil
		}

		// network trouble is not a dead token; surface it
		s.apply(seq, StateErrored, nil, "", err)
		return err
	}

	s.apply(seq, StateAuthenticated, u, stored, nil)
	return nil
}

// Signup creates the account and enters the session.
func (s *Session) Signup(ctx context.Context, email, password string) error {
	seq := s.begin()

	resp, err := s.client.Signup(ctx, email, password)

	if err != nil {
		s.apply(seq, StateErrored, nil, "", err)
		return err
	}

	if s.apply(seq, StateAuthenticated, &resp.User, resp.Token, nil) {
		_ = s.tokens.Save(resp.Token)
	}
	return nil
}

// Login authenticates and enters the session.
func (s *Session) Login(ctx context.Context, email, password string) error {
	seq := s.begin()

	resp, err := s.client.Login(ctx, email, password)

	if err != nil {
		s.apply(seq, StateErrored, nil, "", err)
		return err
	}

	if s.apply(seq, StateAuthenticated, &resp.User, resp.Token, nil) {
		_ = s.tokens.Save(resp.Token)
	}
	return nil
}

// UpdateUser applies a partial profile update for the signed-in user. A
// failed update records the error but keeps the signed-in user and token;
// the session stays usable.
func (s *Session) UpdateUser(ctx context.Context, upd UserUpdate) error {
	s.mu.RLock()
	token := s.token
	current := s.user
	s.mu.RUnlock()

	if token == "" {
		return errors.New("no user logged in")
	}

	seq := s.begin()

	u, err := s.client.UpdateUser(ctx, token, upd)

	if err != nil {
		s.apply(seq, StateErrored, current, token, err)
		return err
	}

	s.apply(seq, StateAuthenticated, u, token, nil)
	return nil
}

// Logout discards the stored token and clears in-memory state. No network
// call is made.
func (s *Session) Logout() {
	_ = s.tokens.Clear()
	s.apply(s.begin(), StateUnauthenticated, nil, "", nil)
}

// State returns the current state and error, if any.
func (s *Session) State() (State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, s.err
}

// User returns the signed-in user, or nil.
func (s *Session) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.user == nil {
		return nil
	}

	u := *s.user
	return &u
}

// Token returns the current session token, or "".
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// begin marks a new operation as the latest one and moves the session to
// Authenticating.
func (s *Session) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	s.state = StateAuthenticating
	s.err = nil
	return s.seq
}

// apply commits an operation's result unless a newer operation started
// since. Reports whether the result was applied.
func (s *Session) apply(seq uint64, state State, u *User, token string, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.seq {
		return false
	}

	s.state = state
	s.user = u
	s.token = token
	s.err = err
	return true
}
