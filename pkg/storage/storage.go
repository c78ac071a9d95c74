package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/levenlabs/go-lflag"
	"github.com/paulthvt/solareco/pkg/types"
)

var (
	ErrSettingsNotFound = errors.New("settings not found")
	ErrUserNotFound     = errors.New("remembered user not found")
)

// Database defines the interface for persisting settings and the remembered
// user between runs.
type Database interface {
	// Settings
	// GetSettings returns (ErrSettingsNotFound, version 0) when nothing has
	// been stored yet; callers apply migrations from the returned version.
	GetSettings(ctx context.Context) (types.Settings, int, error)
	SetSettings(ctx context.Context, settings types.Settings, version int) error

	// Remembered user
	GetRememberedUser(ctx context.Context) (types.RememberedUser, error)
	SetRememberedUser(ctx context.Context, user types.RememberedUser) error
	ClearRememberedUser(ctx context.Context) error

	// Lifecycle
	Close() error
}

// Configured sets up the storage provider based on flags.
func Configured() Database {
	provider := lflag.String("storage-provider", "firestore", "Storage provider to use (available: firestore, memory)")

	var p struct{ Database }

	fs := configuredFirestore()

	lflag.Do(func() {
		switch *provider {
		case "firestore":
			if err := fs.Init(context.Background()); err != nil {
				panic(fmt.Sprintf("firestore init failed: %v", err))
			}
			p.Database = fs
		case "memory":
			p.Database = NewMemory()
		default:
			panic(fmt.Sprintf("unknown storage provider: %s", *provider))
		}
	})

	return &p
}
