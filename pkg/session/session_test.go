package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/paulthvt/solareco/pkg/settings"
	"github.com/paulthvt/solareco/pkg/storage"
	"github.com/paulthvt/solareco/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu sync.Mutex

	authErr   error
	authCalls []string // md5 passwords seen
	active    types.Session
	cleared   bool
}

func (f *fakeAPI) Authenticate(ctx context.Context, email, md5Password string) (types.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authCalls = append(f.authCalls, md5Password)
	if f.authErr != nil {
		return types.Session{}, f.authErr
	}
	return types.Session{Token: "tok-" + email}, nil
}

func (f *fakeAPI) UseSession(s types.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = s
}

func (f *fakeAPI) ClearSession() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = types.Session{}
	f.cleared = true
}

func newTestManager(t *testing.T, api *fakeAPI) (*Manager, *settings.Store) {
	t.Helper()
	store := settings.NewStore(storage.NewMemory())
	require.NoError(t, store.Load(context.Background()))
	return NewManager(api, store), store
}

func TestHashPassword(t *testing.T) {
	// md5("password")
	assert.Equal(t, "5f4dcc3b5aa765d61d8327deb882cf99", HashPassword("password"))
}

func TestManager(t *testing.T) {
	ctx := context.Background()

	t.Run("LoginHashesAndRemembers", func(t *testing.T) {
		api := &fakeAPI{}
		m, store := newTestManager(t, api)

		require.NoError(t, m.Login(ctx, "user@example.com", "password"))
		require.Len(t, api.authCalls, 1)
		assert.Equal(t, "5f4dcc3b5aa765d61d8327deb882cf99", api.authCalls[0])
		assert.Equal(t, "tok-user@example.com", api.active.Token)

		u, err := store.RememberedUser(ctx)
		require.NoError(t, err)
		assert.Equal(t, "user@example.com", u.Email)
		assert.Equal(t, "5f4dcc3b5aa765d61d8327deb882cf99", u.MD5Password)

		assert.True(t, m.LoggedIn(time.Now()))
		_, email := m.Session()
		assert.Equal(t, "user@example.com", email)
	})

	t.Run("LoginFailureLeavesNoUser", func(t *testing.T) {
		api := &fakeAPI{authErr: errors.New("bad credentials")}
		m, store := newTestManager(t, api)

		require.Error(t, m.Login(ctx, "user@example.com", "wrong"))
		_, err := store.RememberedUser(ctx)
		assert.ErrorIs(t, err, storage.ErrUserNotFound)
		assert.False(t, m.LoggedIn(time.Now()))
	})

	t.Run("AutoLoginWithoutUser", func(t *testing.T) {
		api := &fakeAPI{}
		m, _ := newTestManager(t, api)

		ok, err := m.TryAutoLogin(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, api.authCalls)
	})

	t.Run("AutoLoginWithRememberedUser", func(t *testing.T) {
		api := &fakeAPI{}
		m, store := newTestManager(t, api)
		require.NoError(t, store.SaveRememberedUser(ctx, types.RememberedUser{
			Email:       "user@example.com",
			MD5Password: "5f4dcc3b5aa765d61d8327deb882cf99",
		}))

		ok, err := m.TryAutoLogin(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "tok-user@example.com", api.active.Token)
	})

	t.Run("RecoverReauthenticates", func(t *testing.T) {
		api := &fakeAPI{}
		m, store := newTestManager(t, api)
		require.NoError(t, store.SaveRememberedUser(ctx, types.RememberedUser{
			Email:       "user@example.com",
			MD5Password: "5f4dcc3b5aa765d61d8327deb882cf99",
		}))

		m.Recover(ctx)
		require.Len(t, api.authCalls, 1)
		assert.True(t, m.LoggedIn(time.Now()))
	})

	t.Run("RecoverWithoutUserIsNoop", func(t *testing.T) {
		api := &fakeAPI{}
		m, _ := newTestManager(t, api)
		m.Recover(ctx)
		assert.Empty(t, api.authCalls)
	})

	t.Run("LogoutClearsEverything", func(t *testing.T) {
		api := &fakeAPI{}
		m, store := newTestManager(t, api)
		require.NoError(t, m.Login(ctx, "user@example.com", "password"))

		require.NoError(t, m.Logout(ctx))
		assert.True(t, api.cleared)
		assert.False(t, m.LoggedIn(time.Now()))
		_, err := store.RememberedUser(ctx)
		assert.ErrorIs(t, err, storage.ErrUserNotFound)
	})
}
