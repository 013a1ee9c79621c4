// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package clock

import (
	"log/slog"
	"os"
	"testing"
	"time"
)

func TestNewFallsBackOnUnknownTimezone(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	c := New("Not/A/Real/Zone", logger)
	if c.loc.String() != FallbackTimezone {
		t.Errorf("loc = %s, want %s", c.loc.String(), FallbackTimezone)
	}
}

func TestWeekdayOfSundayIsOne(t *testing.T) {
	sunday := time.Date(2026, time.January, 4, 12, 0, 0, 0, time.UTC) // a Sunday
	if got := weekdayOf(sunday); got != 1 {
		t.Errorf("weekdayOf(Sunday) = %d, want 1", got)
	}
	saturday := time.Date(2026, time.January, 3, 12, 0, 0, 0, time.UTC)
	if got := weekdayOf(saturday); got != 7 {
		t.Errorf("weekdayOf(Saturday) = %d, want 7", got)
	}
}
