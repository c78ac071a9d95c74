// Package session owns authentication against the vendor API: interactive
// login, auto-login from the remembered user, and recovery when a poll loop
// hits an expired session.
package session

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/paulthvt/solareco/pkg/log"
	"github.com/paulthvt/solareco/pkg/settings"
	"github.com/paulthvt/solareco/pkg/storage"
	"github.com/paulthvt/solareco/pkg/types"
)

// API is the authentication surface of the vendor client.
type API interface {
	Authenticate(ctx context.Context, email, md5Password string) (types.Session, error)
	UseSession(s types.Session)
	ClearSession()
}

// Manager holds the current session and knows how to get a new one from the
// remembered credentials.
type Manager struct {
	api      API
	settings *settings.Store

	mu      sync.Mutex
	session types.Session
	email   string
}

func NewManager(api API, settings *settings.Store) *Manager {
	return &Manager{api: api, settings: settings}
}

// HashPassword returns the lowercase hex md5 digest the vendor API expects.
// The raw password never leaves this function.
func HashPassword(password string) string {
	sum := md5.Sum([]byte(password))
	return hex.EncodeToString(sum[:])
}

// Login authenticates with the raw password, adopts the session, and
// persists the remembered user for later auto-login and recovery.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	return m.login(ctx, email, HashPassword(password))
}

func (m *Manager) login(ctx context.Context, email, md5Password string) error {
	sess, err := m.api.Authenticate(ctx, email, md5Password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	m.api.UseSession(sess)

	m.mu.Lock()
	m.session = sess
	m.email = email
	m.mu.Unlock()

	if err := m.settings.SaveRememberedUser(ctx, types.RememberedUser{
		Email:       email,
		MD5Password: md5Password,
	}); err != nil {
		// the session is live either way, only auto-login is degraded
		log.Ctx(ctx).WarnContext(ctx, "failed to remember user", slog.Any("error", err))
	}

	log.Ctx(ctx).InfoContext(ctx, "logged in", slog.String("email", email))
	return nil
}

// TryAutoLogin logs in with the remembered user if one exists. It returns
// false without error when no user is remembered.
func (m *Manager) TryAutoLogin(ctx context.Context) (bool, error) {
	user, err := m.settings.RememberedUser(ctx)
	if errors.Is(err, storage.ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load remembered user: %w", err)
	}
	if err := m.login(ctx, user.Email, user.MD5Password); err != nil {
		return false, err
	}
	return true, nil
}

// Recover re-authenticates with the remembered user after a request was
// rejected with 401. Poll loops call it fire-and-forget and keep looping;
// the next iteration either succeeds with the fresh session or triggers
// another recovery.
func (m *Manager) Recover(ctx context.Context) {
	user, err := m.settings.RememberedUser(ctx)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "cannot recover session", slog.Any("error", err))
		return
	}
	if err := m.login(ctx, user.Email, user.MD5Password); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "session recovery failed", slog.Any("error", err))
		return
	}
	log.Ctx(ctx).InfoContext(ctx, "session recovered")
}

// Logout drops the session and forgets the remembered user. The selected
// site is kept; logging back in resumes monitoring it.
func (m *Manager) Logout(ctx context.Context) error {
	m.api.ClearSession()

	m.mu.Lock()
	m.session = types.Session{}
	m.email = ""
	m.mu.Unlock()

	if err := m.settings.ClearRememberedUser(ctx); err != nil {
		return fmt.Errorf("failed to clear remembered user: %w", err)
	}
	log.Ctx(ctx).InfoContext(ctx, "logged out")
	return nil
}

// Session returns the current session and the email it belongs to.
func (m *Manager) Session() (types.Session, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session, m.email
}

// LoggedIn reports whether there is a currently valid session.
func (m *Manager) LoggedIn(now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.Valid(now)
}
