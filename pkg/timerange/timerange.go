// Package timerange converts a "how many units back" selector into concrete
// start/end instants. Hour and day ranges are rolling windows; week ranges at
// offset 1 and beyond are calendar weeks anchored on Sunday.
package timerange

import (
	"fmt"
	"time"
)

// Unit is the kind of window the dashboard is showing.
type Unit int

const (
	UnitHour Unit = iota
	UnitDay
	UnitWeek
	UnitCustom
)

// TargetPoints is the chart point budget for series downsampling per unit.
func (u Unit) TargetPoints() int {
	switch u {
	case UnitHour:
		return 120
	case UnitDay:
		return 144
	case UnitWeek:
		return 168
	default:
		return 150
	}
}

func (u Unit) String() string {
	switch u {
	case UnitHour:
		return "hour"
	case UnitDay:
		return "day"
	case UnitWeek:
		return "week"
	case UnitCustom:
		return "custom"
	default:
		return fmt.Sprintf("unit(%d)", int(u))
	}
}

// UnitFromIndex maps the persisted dashboard index to a Unit. Out-of-range
// indexes fall back to the day unit.
func UnitFromIndex(i int) Unit {
	if i < int(UnitHour) || i > int(UnitCustom) {
		return UnitDay
	}
	return Unit(i)
}

// HourRange is a rolling one-hour window, offset hours back from now.
type HourRange struct {
	Offset int       `json:"offset"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
}

func NewHourRange(now time.Time, offset int) HourRange {
	end := now.Add(-time.Duration(offset) * time.Hour)
	return HourRange{Offset: offset, Start: end.Add(-time.Hour), End: end}
}

// DayRange is a rolling 24h window ending offset calendar days back from
// now. Calendar day arithmetic keeps the wall-clock time stable across DST
// transitions.
type DayRange struct {
	Offset int       `json:"offset"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
}

func NewDayRange(now time.Time, offset int) DayRange {
	end := now.AddDate(0, 0, -offset)
	return DayRange{Offset: offset, Start: end.AddDate(0, 0, -1), End: end}
}

// WeekRange is either a rolling last-7-days window (offset 0) or a calendar
// Monday-to-Sunday week (offset 1 and beyond). For calendar weeks Start and
// End are midnights of the first and last day, and the End day itself is
// part of the week.
type WeekRange struct {
	Offset   int       `json:"offset"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Calendar bool      `json:"calendar"`
}

func NewWeekRange(now time.Time, offset int) WeekRange {
	if offset <= 0 {
		return WeekRange{Offset: 0, Start: now.AddDate(0, 0, -6), End: now}
	}
	anchor := previousOrSameSunday(now)
	end := anchor.AddDate(0, 0, -(offset-1)*7)
	return WeekRange{Offset: offset, Start: end.AddDate(0, 0, -6), End: end, Calendar: true}
}

// FetchBounds returns the instants to query the API with. Calendar weeks
// include the whole End day, so the upper bound is the following midnight.
func (w WeekRange) FetchBounds() (time.Time, time.Time) {
	if w.Calendar {
		return w.Start, w.End.AddDate(0, 0, 1)
	}
	return w.Start, w.End
}

// previousOrSameSunday walks back from now one day at a time until it lands
// on a Sunday, at midnight in now's location.
func previousOrSameSunday(now time.Time) time.Time {
	d := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	for d.Weekday() != time.Sunday {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// CustomRange is a user-chosen window. Construction never fails; Validate
// reports whether a fetch should be allowed.
type CustomRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Validate checks the range is ordered and entirely in the past.
func (c CustomRange) Validate(now time.Time) error {
	if c.Start.IsZero() || c.End.IsZero() {
		return fmt.Errorf("custom range is not set")
	}
	if c.End.Before(c.Start) {
		return fmt.Errorf("custom range start must not be after end")
	}
	if c.Start.After(now) || c.End.After(now) {
		return fmt.Errorf("custom range must not be in the future")
	}
	return nil
}

// SelectedTimeRange holds all four sub-ranges at once; only the one matching
// Unit is active. Updates are functional: each With method returns a new
// composite and recomputes only the sub-range it targets.
type SelectedTimeRange struct {
	Unit   Unit        `json:"unit"`
	Hour   HourRange   `json:"hour"`
	Day    DayRange    `json:"day"`
	Week   WeekRange   `json:"week"`
	Custom CustomRange `json:"custom"`
}

// NewSelectedTimeRange resolves every sub-range at offset 0 with the given
// unit active.
func NewSelectedTimeRange(now time.Time, unit Unit) SelectedTimeRange {
	return SelectedTimeRange{
		Unit:   unit,
		Hour:   NewHourRange(now, 0),
		Day:    NewDayRange(now, 0),
		Week:   NewWeekRange(now, 0),
		Custom: CustomRange{Start: now.AddDate(0, 0, -1), End: now},
	}
}

// WithUnit switches the active unit without recomputing any sub-range.
func (s SelectedTimeRange) WithUnit(unit Unit) SelectedTimeRange {
	s.Unit = unit
	return s
}

// WithHourOffset re-resolves only the hour sub-range.
func (s SelectedTimeRange) WithHourOffset(now time.Time, offset int) SelectedTimeRange {
	s.Hour = NewHourRange(now, offset)
	return s
}

// WithDayOffset re-resolves only the day sub-range.
func (s SelectedTimeRange) WithDayOffset(now time.Time, offset int) SelectedTimeRange {
	s.Day = NewDayRange(now, offset)
	return s
}

// WithWeekOffset re-resolves only the week sub-range.
func (s SelectedTimeRange) WithWeekOffset(now time.Time, offset int) SelectedTimeRange {
	s.Week = NewWeekRange(now, offset)
	return s
}

// WithCustom replaces the custom sub-range.
func (s SelectedTimeRange) WithCustom(start, end time.Time) SelectedTimeRange {
	s.Custom = CustomRange{Start: start, End: end}
	return s
}

// Bounds returns the fetch window of the active sub-range.
func (s SelectedTimeRange) Bounds() (time.Time, time.Time) {
	switch s.Unit {
	case UnitHour:
		return s.Hour.Start, s.Hour.End
	case UnitDay:
		return s.Day.Start, s.Day.End
	case UnitWeek:
		return s.Week.FetchBounds()
	default:
		return s.Custom.Start, s.Custom.End
	}
}
