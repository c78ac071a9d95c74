package storage

import (
	"context"
	"testing"

	"github.com/paulthvt/solareco/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()

	t.Run("Settings", func(t *testing.T) {
		m := NewMemory()

		_, _, err := m.GetSettings(ctx)
		assert.ErrorIs(t, err, ErrSettingsNotFound)

		siteID := int64(7)
		in := types.Settings{SiteID: &siteID, SitePostalCode: "75001"}
		require.NoError(t, m.SetSettings(ctx, in, types.CurrentSettingsVersion))

		out, version, err := m.GetSettings(ctx)
		require.NoError(t, err)
		assert.Equal(t, types.CurrentSettingsVersion, version)
		require.NotNil(t, out.SiteID)
		assert.Equal(t, int64(7), *out.SiteID)
		assert.Equal(t, "75001", out.SitePostalCode)
	})

	t.Run("RememberedUser", func(t *testing.T) {
		m := NewMemory()

		_, err := m.GetRememberedUser(ctx)
		assert.ErrorIs(t, err, ErrUserNotFound)

		require.NoError(t, m.SetRememberedUser(ctx, types.RememberedUser{
			Email:       "user@example.com",
			MD5Password: "5f4dcc3b5aa765d61d8327deb882cf99",
		}))

		u, err := m.GetRememberedUser(ctx)
		require.NoError(t, err)
		assert.Equal(t, "user@example.com", u.Email)

		require.NoError(t, m.ClearRememberedUser(ctx))
		_, err = m.GetRememberedUser(ctx)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("EmptyUserTreatedAsMissing", func(t *testing.T) {
		m := NewMemory()
		require.NoError(t, m.SetRememberedUser(ctx, types.RememberedUser{}))
		_, err := m.GetRememberedUser(ctx)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}
