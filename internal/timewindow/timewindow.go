// Package timewindow classifies wall-clock instants against the
// recurring, possibly midnight-crossing block window. Everything here
// is pure: same inputs, same answer, no hidden state.
package timewindow

import (
	"fmt"
	"time"

	"github.com/eliteGoblin/sleepshield/internal/domain"
)

const (
	// lateWakeMinutes: within this many minutes of wake the zone is
	// always Late, regardless of how long the window has been running.
	lateWakeMinutes = 5 * 60

	// earlyElapsedMax / midElapsedMax bound the Early and Mid zones by
	// minutes elapsed since block start.
	earlyElapsedMax = 90
	midElapsedMax   = 180
)

// ParseClock parses an "HH:MM" string into minutes since midnight.
func ParseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock time %q out of range", s)
	}
	return h*60 + m, nil
}

// FormatClock renders minutes since midnight as "HH:MM".
func FormatClock(minutes int) string {
	minutes = ((minutes % domain.MinutesPerDay) + domain.MinutesPerDay) % domain.MinutesPerDay
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Format12h renders minutes since midnight as a 12-hour display string,
// e.g. "6:00 AM".
func Format12h(minutes int) string {
	minutes = ((minutes % domain.MinutesPerDay) + domain.MinutesPerDay) % domain.MinutesPerDay
	h, m := minutes/60, minutes%60
	suffix := "AM"
	if h >= 12 {
		suffix = "PM"
	}
	h12 := h % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%d:%02d %s", h12, m, suffix)
}

// MinuteOfDay returns t's minutes since local midnight.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// Within reports whether now falls inside the block window.
// The interval is half-open and asymmetric: the block-start minute is
// inside, the wake minute is not. When blockStart > wake the window
// crosses midnight.
func Within(nowMinutes, blockStartMinutes, wakeMinutes int) bool {
	if blockStartMinutes <= wakeMinutes {
		return nowMinutes >= blockStartMinutes && nowMinutes < wakeMinutes
	}
	return nowMinutes >= blockStartMinutes || nowMinutes < wakeMinutes
}

// wrap folds a minute delta into [0, 1440).
func wrap(delta int) int {
	return ((delta % domain.MinutesPerDay) + domain.MinutesPerDay) % domain.MinutesPerDay
}

// ElapsedSinceStart returns minutes elapsed since block start, wrapping
// at midnight.
func ElapsedSinceStart(nowMinutes, blockStartMinutes int) int {
	return wrap(nowMinutes - blockStartMinutes)
}

// UntilWake returns minutes remaining until wake, wrapping at midnight.
func UntilWake(nowMinutes, wakeMinutes int) int {
	return wrap(wakeMinutes - nowMinutes)
}

// ClassifyZone buckets an in-window instant into Early, Mid or Late.
// The near-wake rule wins over elapsed time: a user close to waking is
// always in the late bucket, however early blocking began.
func ClassifyZone(nowMinutes, blockStartMinutes, wakeMinutes int) domain.Zone {
	if UntilWake(nowMinutes, wakeMinutes) < lateWakeMinutes {
		return domain.ZoneLate
	}
	elapsed := ElapsedSinceStart(nowMinutes, blockStartMinutes)
	switch {
	case elapsed <= earlyElapsedMax:
		return domain.ZoneEarly
	case elapsed <= midElapsedMax:
		return domain.ZoneMid
	default:
		return domain.ZoneLate
	}
}

// NextWake returns the next wake-time instant strictly after now.
// If today's wake time has already passed it rolls to tomorrow.
func NextWake(now time.Time, wakeMinutes int) time.Time {
	wake := time.Date(now.Year(), now.Month(), now.Day(),
		wakeMinutes/60, wakeMinutes%60, 0, 0, now.Location())
	if !wake.After(now) {
		wake = wake.AddDate(0, 0, 1)
	}
	return wake
}

// ParseSchedule converts a persisted schedule config into minute form.
func ParseSchedule(cfg domain.ScheduleConfig) (domain.Schedule, error) {
	wake, err := ParseClock(cfg.WakeTime)
	if err != nil {
		return domain.Schedule{}, fmt.Errorf("wake time: %w", err)
	}
	start, err := ParseClock(cfg.BlockStartTime)
	if err != nil {
		return domain.Schedule{}, fmt.Errorf("block start time: %w", err)
	}
	return domain.Schedule{WakeMinutes: wake, BlockStartMinutes: start}, nil
}

// DeriveBlockStart computes the block start boundary from a wake time,
// a sleep target and a wind-down buffer: wake - sleep - buffer, wrapped
// at midnight.
func DeriveBlockStart(wakeMinutes int, sleepHours float64, bufferMinutes int) int {
	start := wakeMinutes - int(sleepHours*60) - bufferMinutes
	return wrap(start)
}
