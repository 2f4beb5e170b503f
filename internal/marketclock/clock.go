// Package marketclock knows the regular trading session of a US equity exchange.
// It has no holiday or half-day calendar.
package marketclock

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // zone database for hosts without one

	"itmScreener/internal/domain"
)

const DefaultTimezone = "America/New_York"

// Gate reports whether the regular session (weekdays 09:30-16:00 local) is open.
type Gate struct {
	loc         *time.Location
	openHour    int
	openMinute  int
	closeHour   int
	closeMinute int
}

// NewGate creates a Gate for the given IANA timezone; empty means America/New_York.
func NewGate(tz string) (*Gate, error) {
	if strings.TrimSpace(tz) == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load market timezone %q: %w", tz, err)
	}
	return &Gate{loc: loc, openHour: 9, openMinute: 30, closeHour: 16, closeMinute: 0}, nil
}

// Location returns the exchange timezone.
func (g *Gate) Location() *time.Location {
	return g.loc
}

// SessionBounds returns the open and close of the regular session on date's local day.
func (g *Gate) SessionBounds(date time.Time) (time.Time, time.Time) {
	y, m, d := date.In(g.loc).Date()
	open := time.Date(y, m, d, g.openHour, g.openMinute, 0, 0, g.loc)
	closeAt := time.Date(y, m, d, g.closeHour, g.closeMinute, 0, 0, g.loc)
	return open, closeAt
}

// IsOpen reports whether t falls on a weekday within [open, close).
func (g *Gate) IsOpen(t time.Time) bool {
	local := t.In(g.loc)
	if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	open, closeAt := g.SessionBounds(local)
	return !local.Before(open) && local.Before(closeAt)
}

// InSession reports whether a bar opening at t belongs to a regular session.
func (g *Gate) InSession(t time.Time) bool {
	return g.IsOpen(t)
}

// TrimSessions keeps the regular-session bars of the latest n session dates.
// Cumulative VWAP then anchors at the open of the first kept session.
func (g *Gate) TrimSessions(bars []*domain.Bar, n int) []*domain.Bar {
	if n <= 0 || len(bars) == 0 {
		return nil
	}

	inSession := make([]*domain.Bar, 0, len(bars))
	for _, b := range bars {
		if g.InSession(b.OpenTime) {
			inSession = append(inSession, b)
		}
	}

	seen := 0
	lastDay := ""
	start := len(inSession)
	for i := len(inSession) - 1; i >= 0; i-- {
		day := inSession[i].OpenTime.In(g.loc).Format("2006-01-02")
		if day != lastDay {
			if seen == n {
				break
			}
			seen++
			lastDay = day
		}
		start = i
	}
	return inSession[start:]
}

// SessionDate returns the local session date of t as YYYY-MM-DD.
func (g *Gate) SessionDate(t time.Time) string {
	return t.In(g.loc).Format("2006-01-02")
}

// AlwaysOpen is the gate used when market-hours gating is disabled.
type AlwaysOpen struct{}

// IsOpen always returns true.
func (AlwaysOpen) IsOpen(time.Time) bool { return true }
