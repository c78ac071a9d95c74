package storage

import (
	"context"
	"sync"

	"github.com/paulthvt/solareco/pkg/types"
)

// Memory is an in-memory Database for local development and tests. Nothing
// survives a restart.
type Memory struct {
	mu sync.Mutex

	hasSettings     bool
	settings        types.Settings
	settingsVersion int

	hasUser bool
	user    types.RememberedUser
}

var _ Database = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) GetSettings(ctx context.Context) (types.Settings, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasSettings {
		return types.Settings{}, 0, ErrSettingsNotFound
	}
	return m.settings, m.settingsVersion, nil
}

func (m *Memory) SetSettings(ctx context.Context, settings types.Settings, version int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hasSettings = true
	m.settings = settings
	m.settingsVersion = version
	return nil
}

func (m *Memory) GetRememberedUser(ctx context.Context) (types.RememberedUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasUser || m.user.Empty() {
		return types.RememberedUser{}, ErrUserNotFound
	}
	return m.user, nil
}

func (m *Memory) SetRememberedUser(ctx context.Context, user types.RememberedUser) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hasUser = true
	m.user = user
	return nil
}

func (m *Memory) ClearRememberedUser(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hasUser = false
	m.user = types.RememberedUser{}
	return nil
}

func (m *Memory) Close() error {
	return nil
}
