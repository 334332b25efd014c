// Package session owns the authenticated-identity state that gates all
// ledger access. The manager is an explicit dependency handed to its
// consumers; there is no ambient global session.
package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"financas/internal/logger"
	"financas/internal/models"
)

// Store abstracts the persisted {token, user} pair.
type Store interface {
	Load() (token string, user *models.User, err error)
	Save(token string, user *models.User) error
	Clear() error
}

// Authenticator is the remote auth collaborator.
type Authenticator interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error)
}

// Manager tracks the current session. Authenticated is derived: it is
// exactly "user is present". No consumer reads the token to decide
// access; the token exists only to be attached to requests.
type Manager struct {
	store Store
	auth  Authenticator
	log   *zap.SugaredLogger

	mu       sync.RWMutex
	token    string
	user     *models.User
	onChange func(user *models.User)
}

// NewManager creates a Manager over the given store. The authenticator
// is attached separately because the API client needs the manager as
// its token source first.
func NewManager(store Store) *Manager {
	return &Manager{
		store: store,
		log:   logger.Named("session"),
	}
}

// SetAuthenticator attaches the remote auth collaborator.
func (m *Manager) SetAuthenticator(auth Authenticator) {
	m.auth = auth
}

// OnChange registers a hook invoked on every session transition. A
// non-nil user means the session became authenticated (the caller
// typically navigates to the dashboard); nil means signed out
// (navigate to the login screen).
func (m *Manager) OnChange(fn func(user *models.User)) {
	m.onChange = fn
}

// Restore rebuilds the session from persisted state at startup. No
// network call is made: a stale or revoked token is only discovered on
// the next authenticated request. A partial or unreadable pair yields
// an unauthenticated session.
func (m *Manager) Restore() error {
	token, user, err := m.store.Load()
	if err != nil {
		m.log.Warnw("could not load persisted session", "error", err)
		return err
	}
	if user == nil {
		return nil
	}

	m.mu.Lock()
	m.token = token
	m.user = user
	m.mu.Unlock()

	m.log.Infow("session restored", "email", user.Email)
	m.notify(user)
	return nil
}

// Login authenticates against the remote collaborator. On success the
// pair is persisted, the session transitions to authenticated, and the
// change hook fires. On failure the session stays unauthenticated and
// the returned error carries the server's message (or a generic
// fallback).
func (m *Manager) Login(ctx context.Context, email, password string) (*models.User, error) {
	resp, err := m.auth.Login(ctx, models.LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	return m.establish(resp)
}

// Register creates an account; same contract as Login.
func (m *Manager) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	resp, err := m.auth.Register(ctx, models.RegisterRequest{Name: name, Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	return m.establish(resp)
}

func (m *Manager) establish(resp *models.AuthResponse) (*models.User, error) {
	user := resp.User
	if err := m.store.Save(resp.Token, &user); err != nil {
		// The session still works for this process; it just won't
		// survive a restart.
		m.log.Warnw("could not persist session", "error", err)
	}

	m.mu.Lock()
	m.token = resp.Token
	m.user = &user
	m.mu.Unlock()

	m.log.Infow("session established", "email", user.Email)
	m.notify(&user)
	return &user, nil
}

// Logout clears persisted state and transitions to unauthenticated.
// Idempotent: when already signed out it re-clears storage and does
// nothing else.
func (m *Manager) Logout() {
	m.signOut("signed out")
}

// Expire is the stale-session path: the server rejected a token the
// local restore judged valid. Wired as the API client's unauthorized
// hook.
func (m *Manager) Expire() {
	m.signOut("session expired, signing out")
}

func (m *Manager) signOut(reason string) {
	if err := m.store.Clear(); err != nil {
		m.log.Warnw("could not clear persisted session", "error", err)
	}

	m.mu.Lock()
	wasAuthenticated := m.user != nil
	m.token = ""
	m.user = nil
	m.mu.Unlock()

	if !wasAuthenticated {
		return
	}
	m.log.Infow(reason)
	m.notify(nil)
}

// IsAuthenticated reports whether a user is present.
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user != nil
}

// CurrentUser returns a copy of the authenticated user, or nil.
func (m *Manager) CurrentUser() *models.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// Token returns the current session token. Implements api.TokenSource.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

func (m *Manager) notify(user *models.User) {
	if m.onChange != nil {
		m.onChange(user)
	}
}
