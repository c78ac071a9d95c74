package types

import "fmt"

// CurrentSettingsVersion is the current version of the settings struct.
// Increment this value when adding new fields that require default values.
const CurrentSettingsVersion = 3

// DefaultMaxPowerGaugeW is the gauge capacity realtime wattages are
// normalized against when the user has not configured one.
const DefaultMaxPowerGaugeW = 9000

// Settings is the minimal persisted local state: the selected site, the
// dashboard's remembered time unit, and display tuning. Every poll loop reads
// it fresh each iteration to discover the current site.
type Settings struct {
	SiteID          *int64 `json:"siteID,omitempty"`
	SitePostalCode  string `json:"sitePostalCode,omitempty"`
	SiteCountryCode string `json:"siteCountryCode,omitempty"`

	DashboardTimeUnitIndex    *int `json:"dashboardTimeUnitIndex,omitempty"`
	MaxPowerGaugeW            *int `json:"maxPowerGaugeW,omitempty"`
	ProductionNoiseThresholdW *int `json:"productionNoiseThresholdW,omitempty"`
}

// HasSite reports whether a site is currently selected.
func (s Settings) HasSite() bool {
	return s.SiteID != nil
}

// MaxPowerGauge returns the configured gauge capacity or the default.
func (s Settings) MaxPowerGauge() int {
	if s.MaxPowerGaugeW != nil && *s.MaxPowerGaugeW > 0 {
		return *s.MaxPowerGaugeW
	}
	return DefaultMaxPowerGaugeW
}

// ProductionNoiseThreshold returns the production noise floor in watts.
// Production readings at or below this are treated as zero.
func (s Settings) ProductionNoiseThreshold() int {
	if s.ProductionNoiseThresholdW != nil && *s.ProductionNoiseThresholdW >= 0 {
		return *s.ProductionNoiseThresholdW
	}
	return 0
}

// MigrateSettings migrates the settings to the current version.
// It returns the migrated settings, a boolean indicating if changes were made,
// and an error if migration failed.
func MigrateSettings(s Settings, currentVersion int) (Settings, bool, error) {
	if currentVersion >= CurrentSettingsVersion {
		return s, false, nil
	}

	migrated := false
	// Loop through versions to apply migrations sequentially
	for version := currentVersion + 1; version <= CurrentSettingsVersion; version++ {
		switch version {
		case 1:
			// version 1: initial
			if s.MaxPowerGaugeW == nil {
				v := DefaultMaxPowerGaugeW
				s.MaxPowerGaugeW = &v
				migrated = true
			}
		case 2:
			// version 2: add production noise threshold
			if s.ProductionNoiseThresholdW == nil {
				v := 0
				s.ProductionNoiseThresholdW = &v
				migrated = true
			}
		case 3:
			// version 3: remember the dashboard time unit, default to day
			if s.DashboardTimeUnitIndex == nil {
				v := 1
				s.DashboardTimeUnitIndex = &v
				migrated = true
			}
		default:
			return s, false, fmt.Errorf("unknown settings version: %d", version)
		}
	}

	return s, migrated, nil
}
