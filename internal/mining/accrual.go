// Package mining implements the accrual core: pure state transitions that
// convert elapsed wall-clock time into point awards, the per-account session
// container that serializes them, and the persistence contract they are
// mirrored through.
package mining

import (
	"time"

	"github.com/rajvir-app/mining-server/internal/model"
)

// DateLayout is the calendar-date format used for reset bookkeeping.
const DateLayout = "2006-01-02"

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) string {
	return t.Format(DateLayout)
}

// NewSnapshot returns the accrual state of a brand-new account.
func NewSnapshot(now time.Time) model.MiningSnapshot {
	today := DateOf(now)
	return model.MiningSnapshot{
		LastReset:    today,
		FirstUseDate: today,
		DaysActive:   1,
	}
}

// ApplyReset zeroes the day counters when the calendar day has rolled over
// since the last reset. An open mining session does not carry across the
// boundary: the reset deactivates mining and drops the start timestamp.
// Applying it twice within the same day is a no-op.
func ApplyReset(s model.MiningSnapshot, now time.Time) model.MiningSnapshot {
	today := DateOf(now)
	if s.LastReset == today {
		return s
	}

	s.SecondsToday = 0
	s.PointsToday = 0
	s.LastReset = today
	s.Active = false
	s.StartedAt = nil
	s.DaysActive = daysActive(s.FirstUseDate, now)
	return s
}

// Advance is one accrual tick: reset first, then credit any whole points the
// current open session has earned. Seconds of the open session are measured
// from StartedAt on every tick but only banked into SecondsToday on stop, so
// ticks that award nothing leave the stored state untouched.
func Advance(s model.MiningSnapshot, now time.Time, secondsPerPoint int) model.MiningSnapshot {
	s = ApplyReset(s, now)
	if !s.Active || s.StartedAt == nil {
		return s
	}

	total := s.SecondsToday + ElapsedSeconds(*s.StartedAt, now)
	newPointsToday := total / secondsPerPoint
	if diff := newPointsToday - s.PointsToday; diff > 0 {
		s.TotalPoints += diff
		s.PointsToday = newPointsToday
	}
	return s
}

// ElapsedSeconds returns whole seconds between start and now, clamped to
// zero if the clock has moved backward.
func ElapsedSeconds(start, now time.Time) int {
	if now.Before(start) {
		return 0
	}
	return int(now.Sub(start) / time.Second)
}

// LiveSeconds is the display-only elapsed value: banked seconds plus the
// open session, if any. It never mutates state and is never persisted.
func LiveSeconds(s model.MiningSnapshot, now time.Time) int {
	if s.Active && s.StartedAt != nil {
		return s.SecondsToday + ElapsedSeconds(*s.StartedAt, now)
	}
	return s.SecondsToday
}

// daysActive counts distinct calendar days since first use, inclusive.
func daysActive(firstUse string, now time.Time) int {
	first, err := time.ParseInLocation(DateLayout, firstUse, now.Location())
	if err != nil {
		return 1
	}
	days := int(now.Sub(first)/(24*time.Hour)) + 1
	if days < 1 {
		return 1
	}
	return days
}
