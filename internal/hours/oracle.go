// Package hours classifies wall-clock instants as inside or outside the
// shop's business hours and computes the next opening instant. Pure
// calendar arithmetic; the localized status text lives in the resolver's
// template pack.
package hours

import (
	"fmt"
	"time"
)

// horizonDays bounds the NextOpen forward scan. A schedule that is closed
// for more than two weeks straight yields the deterministic fallback of
// the query instant plus the horizon instead of an unbounded loop.
const horizonDays = 14

// Window is one weekday's open interval, both bounds inclusive.
type Window struct {
	Open  string `yaml:"open" json:"open"`   // "09:00"
	Close string `yaml:"close" json:"close"` // "18:00"
}

// Schedule is the per-weekday calendar. A missing weekday entry means
// closed all day; holidays override weekday windows unconditionally.
type Schedule struct {
	Timezone string                   `yaml:"timezone" json:"timezone"`
	Days     map[time.Weekday]*Window `yaml:"-" json:"-"`
	Holidays map[string]bool          `yaml:"-" json:"-"` // "2006-01-02" keys
}

// DefaultSchedule is a typical small print shop week: weekdays 09:00-18:00,
// Saturday 10:00-16:00, Sunday closed.
func DefaultSchedule(timezone string) Schedule {
	week := &Window{Open: "09:00", Close: "18:00"}
	return Schedule{
		Timezone: timezone,
		Days: map[time.Weekday]*Window{
			time.Monday:    week,
			time.Tuesday:   week,
			time.Wednesday: week,
			time.Thursday:  week,
			time.Friday:    week,
			time.Saturday:  {Open: "10:00", Close: "16:00"},
		},
		Holidays: map[string]bool{},
	}
}

// Oracle answers open/closed questions for a fixed schedule. Immutable
// after construction.
type Oracle struct {
	schedule Schedule
	loc      *time.Location
	now      func() time.Time
}

// NewOracle validates the schedule's timezone and window syntax.
func NewOracle(schedule Schedule) (*Oracle, error) {
	tz := schedule.Timezone
	if tz == "" {
		tz = "Europe/Kyiv"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}
	for day, w := range schedule.Days {
		if w == nil {
			continue
		}
		if _, err := parseClock(w.Open); err != nil {
			return nil, fmt.Errorf("%s open time: %w", day, err)
		}
		if _, err := parseClock(w.Close); err != nil {
			return nil, fmt.Errorf("%s close time: %w", day, err)
		}
	}
	return &Oracle{schedule: schedule, loc: loc, now: time.Now}, nil
}

// IsOpen reports whether the shop is open right now.
func (o *Oracle) IsOpen() bool {
	return o.IsOpenAt(o.now())
}

// IsOpenAt reports whether t falls inside business hours. Boundary instants
// exactly at open or close count as open.
func (o *Oracle) IsOpenAt(t time.Time) bool {
	local := t.In(o.loc)
	if o.schedule.Holidays[local.Format("2006-01-02")] {
		return false
	}
	w := o.schedule.Days[local.Weekday()]
	if w == nil {
		return false
	}
	minutes := local.Hour()*60 + local.Minute()
	open, _ := parseClock(w.Open)
	close, _ := parseClock(w.Close)
	if minutes < open || minutes > close {
		return false
	}
	// Second precision only matters past the closing minute boundary.
	if minutes == close && local.Second() > 0 {
		return false
	}
	return true
}

// NextOpen returns the next instant at or after t when the shop is open.
// If t is inside an open window it returns t itself. Scans day by day up
// to horizonDays; past that it returns t plus the horizon.
func (o *Oracle) NextOpen(t time.Time) time.Time {
	local := t.In(o.loc)
	for day := 0; day <= horizonDays; day++ {
		candidate := local.AddDate(0, 0, day)
		if o.schedule.Holidays[candidate.Format("2006-01-02")] {
			continue
		}
		w := o.schedule.Days[candidate.Weekday()]
		if w == nil {
			continue
		}
		open, _ := parseClock(w.Open)
		close, _ := parseClock(w.Close)
		opening := time.Date(candidate.Year(), candidate.Month(), candidate.Day(),
			open/60, open%60, 0, 0, o.loc)
		if day == 0 {
			minutes := local.Hour()*60 + local.Minute()
			if minutes > close || (minutes == close && local.Second() > 0) {
				continue // already past closing today
			}
			if local.After(opening) {
				return local // inside today's window
			}
		}
		return opening
	}
	return local.AddDate(0, 0, horizonDays)
}

// Location exposes the business timezone for timestamp formatting.
func (o *Oracle) Location() *time.Location {
	return o.loc
}

func parseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid clock value %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock value %q out of range", s)
	}
	return h*60 + m, nil
}
