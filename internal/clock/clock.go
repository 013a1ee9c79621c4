// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

// Package clock produces timezone-aware wall-clock snapshots for the
// Scheduler, falling back to a known-good zone when the configured one
// cannot be loaded.
package clock

import (
	"log/slog"
	"time"
)

// FallbackTimezone is used when the configured timezone name cannot be
// resolved by the Go tzdata database.
const FallbackTimezone = "America/Chicago"

// Snapshot is the current time decomposed into the fields the Scheduler
// needs, using the Sunday=1 weekday convention.
type Snapshot struct {
	Month   int
	Day     int
	Weekday int // 1..7, Sunday=1
	Hour    int
	Minute  int
}

// MonthDay returns the month*100+day composite used for CustomBlock
// date-range comparisons.
func (s Snapshot) MonthDay() int { return s.Month*100 + s.Day }

// MinuteOfDay returns hour*60+minute.
func (s Snapshot) MinuteOfDay() int { return s.Hour*60 + s.Minute }

// Clock wraps a resolved time.Location.
type Clock struct {
	loc *time.Location
}

// New resolves tz, falling back to FallbackTimezone (and logging a warning)
// on failure.
func New(tz string, logger *slog.Logger) *Clock {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		logger.Warn("unknown device timezone, falling back",
			"configured", tz, "fallback", FallbackTimezone, "error", err)
		loc, err = time.LoadLocation(FallbackTimezone)
		if err != nil {
			// FallbackTimezone itself failed to resolve (no tzdata at all);
			// UTC keeps the device degraded-but-running rather than panicking.
			loc = time.UTC
		}
	}
	return &Clock{loc: loc}
}

// Now returns the current Snapshot in the clock's resolved location.
func (c *Clock) Now() Snapshot {
	t := time.Now().In(c.loc)
	return Snapshot{
		Month:   int(t.Month()),
		Day:     t.Day(),
		Weekday: weekdayOf(t),
		Hour:    t.Hour(),
		Minute:  t.Minute(),
	}
}

// weekdayOf maps Go's time.Weekday (Sunday=0) to the spec's Sunday=1
// convention via (iso_weekday mod 7)+1, where Go's Weekday already behaves
// like an ISO weekday mod 7 (Sunday=0..Saturday=6).
func weekdayOf(t time.Time) int {
	return int(t.Weekday())%7 + 1
}
