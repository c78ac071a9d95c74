// Package settings keeps the persisted user preferences in memory, migrates
// them on load, and notifies watchers when they change.
package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/paulthvt/solareco/pkg/log"
	"github.com/paulthvt/solareco/pkg/storage"
	"github.com/paulthvt/solareco/pkg/types"
)

// Store is the single authority over the persisted settings. All mutation
// goes through it so watchers always see the latest value.
type Store struct {
	db storage.Database

	mu       sync.Mutex
	current  types.Settings
	watchers []chan types.Settings
}

func NewStore(db storage.Database) *Store {
	return &Store{db: db}
}

// Load reads the stored settings, applies pending migrations, and persists
// the result if anything changed. Missing settings start from defaults.
func (s *Store) Load(ctx context.Context) error {
	stored, version, err := s.db.GetSettings(ctx)
	if err != nil && !errors.Is(err, storage.ErrSettingsNotFound) {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	migrated, changed, err := types.MigrateSettings(stored, version)
	if err != nil {
		return fmt.Errorf("failed to migrate settings: %w", err)
	}
	if changed {
		if err := s.db.SetSettings(ctx, migrated, types.CurrentSettingsVersion); err != nil {
			return fmt.Errorf("failed to persist migrated settings: %w", err)
		}
		log.Ctx(ctx).InfoContext(ctx, "migrated settings",
			slog.Int("fromVersion", version),
			slog.Int("toVersion", types.CurrentSettingsVersion),
		)
	}

	s.mu.Lock()
	s.current = migrated
	s.mu.Unlock()
	return nil
}

// Current returns the in-memory settings snapshot.
func (s *Store) Current() types.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Watch returns a channel that receives the current settings immediately and
// every subsequent update. The channel holds only the latest value; slow
// readers never block writers.
func (s *Store) Watch() <-chan types.Settings {
	ch := make(chan types.Settings, 1)
	s.mu.Lock()
	s.watchers = append(s.watchers, ch)
	ch <- s.current
	s.mu.Unlock()
	return ch
}

// update applies fn to the current settings, persists, and notifies watchers.
func (s *Store) update(ctx context.Context, fn func(*types.Settings)) error {
	s.mu.Lock()
	next := s.current
	fn(&next)
	if err := s.db.SetSettings(ctx, next, types.CurrentSettingsVersion); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to save settings: %w", err)
	}
	s.current = next
	watchers := s.watchers
	s.mu.Unlock()

	for _, ch := range watchers {
		// drop the stale value so the send below never blocks
		select {
		case <-ch:
		default:
		}
		ch <- next
	}
	return nil
}

// SaveSite selects the given site for monitoring. The postal and country
// codes ride along so the weather poller does not need the site list.
func (s *Store) SaveSite(ctx context.Context, site types.Site) error {
	return s.update(ctx, func(set *types.Settings) {
		id := site.ID
		set.SiteID = &id
		set.SitePostalCode = site.PostalCode
		set.SiteCountryCode = site.CountryCode
	})
}

// ClearSite deselects the current site.
func (s *Store) ClearSite(ctx context.Context) error {
	return s.update(ctx, func(set *types.Settings) {
		set.SiteID = nil
		set.SitePostalCode = ""
		set.SiteCountryCode = ""
	})
}

// SaveDashboardTimeUnit remembers the dashboard's selected time unit index.
func (s *Store) SaveDashboardTimeUnit(ctx context.Context, index int) error {
	return s.update(ctx, func(set *types.Settings) {
		set.DashboardTimeUnitIndex = &index
	})
}

// SaveMaxPowerGauge sets the wattage realtime rates are normalized against.
func (s *Store) SaveMaxPowerGauge(ctx context.Context, watts int) error {
	if watts <= 0 {
		return fmt.Errorf("max power gauge must be positive, got %d", watts)
	}
	return s.update(ctx, func(set *types.Settings) {
		set.MaxPowerGaugeW = &watts
	})
}

// SaveProductionNoiseThreshold sets the production noise floor in watts.
func (s *Store) SaveProductionNoiseThreshold(ctx context.Context, watts int) error {
	if watts < 0 {
		return fmt.Errorf("production noise threshold cannot be negative, got %d", watts)
	}
	return s.update(ctx, func(set *types.Settings) {
		set.ProductionNoiseThresholdW = &watts
	})
}

// RememberedUser returns the persisted login, if any.
func (s *Store) RememberedUser(ctx context.Context) (types.RememberedUser, error) {
	return s.db.GetRememberedUser(ctx)
}

// SaveRememberedUser persists the login for auto-login on the next start.
func (s *Store) SaveRememberedUser(ctx context.Context, user types.RememberedUser) error {
	return s.db.SetRememberedUser(ctx, user)
}

// ClearRememberedUser forgets the persisted login.
func (s *Store) ClearRememberedUser(ctx context.Context) error {
	return s.db.ClearRememberedUser(ctx)
}
