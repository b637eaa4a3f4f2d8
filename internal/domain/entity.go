// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import "time"

// Zone classifies how far into the night the current moment is.
// It biases which friction content gets shown.
type Zone string

const (
	ZoneEarly Zone = "early"
	ZoneMid   Zone = "mid"
	ZoneLate  Zone = "late"
)

// MinutesPerDay is the wall-clock wrap point for minutes-since-midnight math.
const MinutesPerDay = 24 * 60

// Schedule is the configured sleep window, both boundaries stored as
// minutes since midnight in [0, 1440). BlockStartMinutes > WakeMinutes
// is the common case: the window crosses midnight.
type Schedule struct {
	WakeMinutes       int
	BlockStartMinutes int
}

// ScheduleConfig is the persisted form of a Schedule, "HH:MM" strings
// as the configuration surface stores them.
type ScheduleConfig struct {
	WakeTime       string `json:"wake_time"`
	BlockStartTime string `json:"block_start_time"`
}

// BlockList maps a category name to the domains it covers.
// Built at configuration time, read-only during matching.
type BlockList map[string][]string

// Match is the result of a blocklist lookup. Domain and Category always
// belong to the same blocklist entry.
type Match struct {
	Domain   string `json:"domain"`
	Category string `json:"category"`
}

// UntilWake is the duration sentinel for an override that lasts until
// the next wake-time instant. Creating one breaks the streak immediately.
const UntilWake = -1

// StreakBreakMinutes is the policy threshold: overrides at or above this
// duration break the consistency streak, shorter ones are tolerated.
const StreakBreakMinutes = 30

// OverrideRecord is a user-granted exception for one domain.
// Immutable once created; removed only by the nightly reset, in bulk.
type OverrideRecord struct {
	ID              string    `json:"id"`
	Domain          string    `json:"domain"`
	CreatedAt       time.Time `json:"created_at"`
	ExpiresAt       time.Time `json:"expires_at"`
	DurationMinutes int       `json:"duration_minutes"`
	Reason          string    `json:"reason"`
	Zone            Zone      `json:"zone"`
}

// Active reports whether the override still excuses its domain at now.
func (o OverrideRecord) Active(now time.Time) bool {
	return now.Before(o.ExpiresAt)
}

// Decision is the outcome of evaluating one navigation attempt.
type Decision struct {
	Blocked  bool   `json:"blocked"`
	Domain   string `json:"domain,omitempty"`
	Category string `json:"category,omitempty"`
}

// ExperienceKind is the friction modality shown before an override can
// be granted: a reflective question or one of the short mini-games.
type ExperienceKind string

const (
	ExperienceQuestion  ExperienceKind = "question"
	ExperienceBreathing ExperienceKind = "breathing"
	ExperienceMemory    ExperienceKind = "memory"
	ExperienceGratitude ExperienceKind = "gratitude"
)

// GameKinds lists every mini-game modality.
var GameKinds = []ExperienceKind{ExperienceBreathing, ExperienceMemory, ExperienceGratitude}

// Question is one entry of the friction question bank.
// Template may embed [site], [time], [wake_time], [hours_left],
// [streak] and [attempt_count] placeholders.
type Question struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	Zone     Zone   `json:"zone"`
	Template string `json:"template"`
}

// FrictionItem is the material handed to the presentation layer for one
// showing of the block screen.
type FrictionItem struct {
	Experience       ExperienceKind `json:"experience"`
	QuestionID       string         `json:"question_id,omitempty"`
	Text             string         `json:"text,omitempty"`
	Zone             Zone           `json:"zone"`
	Streak           int            `json:"streak"`
	Attempt          int            `json:"attempt"`
	CountdownSeconds int            `json:"countdown_seconds"`
}

// StatusReport is the dashboard snapshot consumed by the status command
// and the status endpoint.
type StatusReport struct {
	SetupComplete  bool     `json:"setup_complete"`
	WakeTime       string   `json:"wake_time,omitempty"`
	BlockStartTime string   `json:"block_start_time,omitempty"`
	WindowActive   bool     `json:"window_active"`
	Zone           Zone     `json:"zone,omitempty"`
	Streak         int      `json:"streak"`
	BlockedTonight int      `json:"blocked_tonight"`
	ActiveOverride int      `json:"active_overrides"`
	LastResetDate  string   `json:"last_reset_date,omitempty"`
	Categories     []string `json:"categories,omitempty"`
}

// Setup is the configuration payload written by the onboarding surface.
// BlockStartTime may be empty, in which case it is derived as
// wake - sleep hours - buffer, wrapping at midnight.
type Setup struct {
	WakeTime       string    `json:"wake_time"`
	BlockStartTime string    `json:"block_start_time,omitempty"`
	SleepHours     float64   `json:"sleep_hours,omitempty"`
	BufferMinutes  int       `json:"buffer_minutes,omitempty"`
	BlockList      BlockList `json:"blocklist"`
}
