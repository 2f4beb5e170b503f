package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// IntervalUnit is the base unit of a bar interval.
type IntervalUnit string

const (
	UnitMinute IntervalUnit = "minute"
	UnitHour   IntervalUnit = "hour"
	UnitDay    IntervalUnit = "day"
)

// Interval is a parsed bar size such as "5m" (5 x minute).
type Interval struct {
	Multiplier int
	Unit       IntervalUnit
}

// ParseInterval parses strings like "1m", "5m", "15m", "1h" or "1d".
func ParseInterval(s string) (Interval, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) < 2 {
		return Interval{}, fmt.Errorf("invalid interval %q", s)
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n <= 0 {
		return Interval{}, fmt.Errorf("invalid interval %q: multiplier must be a positive integer", s)
	}
	var unit IntervalUnit
	switch s[len(s)-1] {
	case 'm':
		unit = UnitMinute
	case 'h':
		unit = UnitHour
	case 'd':
		unit = UnitDay
	default:
		return Interval{}, fmt.Errorf("invalid interval %q: unit must be m, h or d", s)
	}
	return Interval{Multiplier: n, Unit: unit}, nil
}

// Duration returns the wall-clock length of one bar.
func (i Interval) Duration() time.Duration {
	switch i.Unit {
	case UnitHour:
		return time.Duration(i.Multiplier) * time.Hour
	case UnitDay:
		return time.Duration(i.Multiplier) * 24 * time.Hour
	default:
		return time.Duration(i.Multiplier) * time.Minute
	}
}

// String returns the compact form, e.g. "5m".
func (i Interval) String() string {
	suffix := "m"
	switch i.Unit {
	case UnitHour:
		suffix = "h"
	case UnitDay:
		suffix = "d"
	}
	return strconv.Itoa(i.Multiplier) + suffix
}

// Period is a lookback expressed in trading sessions ("1d" = the latest session).
type Period struct {
	Sessions int
}

// ParsePeriod parses "<n>d".
func ParsePeriod(s string) (Period, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if !strings.HasSuffix(s, "d") {
		return Period{}, fmt.Errorf("invalid period %q: expected <n>d", s)
	}
	n, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
	if err != nil || n <= 0 {
		return Period{}, fmt.Errorf("invalid period %q: session count must be a positive integer", s)
	}
	return Period{Sessions: n}, nil
}

// Window returns the fetch window ending at now. Four extra calendar days
// cover weekends and a holiday so the requested sessions are always included.
func (p Period) Window(now time.Time) (time.Time, time.Time) {
	return now.AddDate(0, 0, -(p.Sessions + 4)), now
}
