package domain

import (
	"context"
	"encoding/json"
	"time"
)

// Store keys. The persisted state is a flat key/value space with
// read-your-writes consistency per key and no cross-key transactions.
const (
	KeySchedule       = "schedule"
	KeyBlockList      = "blocklist"
	KeySetupComplete  = "setup_complete"
	KeyOverrides      = "overrides"
	KeyStreak         = "streak"
	KeyBlockedTonight = "blocked_tonight"
	KeyAttemptCount   = "attempt_count"
	KeyShownQuestions = "shown_questions"
	KeyShownGames     = "shown_games"
	KeyLastResetDate  = "last_reset_date"
)

// StateStore is the external key/value store.
// Get returns only the keys that exist; Set is last-write-wins per key.
// Implementations: diskv-backed files, sqlite.
type StateStore interface {
	// Get fetches the given keys. Missing keys are absent from the result.
	Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error)

	// Set writes all given key/value pairs.
	Set(ctx context.Context, values map[string]json.RawMessage) error

	// Delete removes keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error

	// Close releases resources (e.g., database connection).
	Close() error
}

// NightLedger owns the current night's session state: the override
// records, the shown-content sets and the counters. All mutation goes
// through a single writer so read-modify-write sequences against the
// store cannot interleave.
type NightLedger interface {
	// Create appends a new override record and returns it.
	// A duration of UntilWake expires at the next wake instant after now
	// and zeroes the streak synchronously.
	Create(ctx context.Context, p OverrideParams) (*OverrideRecord, error)

	// Active reports whether any record excuses the domain at now.
	Active(ctx context.Context, domain string, now time.Time) (bool, error)

	// ActiveCount counts records still live at now.
	ActiveCount(ctx context.Context, now time.Time) (int, error)

	// Records returns the full contents of the ledger.
	Records(ctx context.Context) ([]OverrideRecord, error)

	// Streak returns the current consistency streak.
	Streak(ctx context.Context) (int, error)

	// BlockedTonight returns tonight's blocked attempt count.
	BlockedTonight(ctx context.Context) (int, error)

	// RecordBlocked increments tonight's blocked attempt count.
	RecordBlocked(ctx context.Context) (int, error)

	// NextAttempt increments and returns the friction screen counter.
	NextAttempt(ctx context.Context) (int, error)

	// ShownQuestions returns the identifiers already shown tonight.
	ShownQuestions(ctx context.Context) (map[string]bool, error)

	// MarkQuestionShown records a question id into the shown set.
	// Reset first drops the set when the pool was exhausted.
	MarkQuestionShown(ctx context.Context, id string, reset bool) error

	// ShownGames returns the mini-game kinds already shown tonight.
	ShownGames(ctx context.Context) (map[ExperienceKind]bool, error)

	// MarkGameShown records a mini-game kind into the shown set.
	MarkGameShown(ctx context.Context, kind ExperienceKind) error

	// LastResetDate returns the calendar-date key of the last reset.
	LastResetDate(ctx context.Context) (string, error)

	// ResetNight atomically (from the perspective of ledger readers)
	// installs the new streak, zeroes the counters, clears the records
	// and shown sets, and stamps the reset date.
	ResetNight(ctx context.Context, newStreak int, dateKey string) error
}

// OverrideParams carries everything Create needs to compute expiry.
type OverrideParams struct {
	Domain          string
	Reason          string
	Zone            Zone
	DurationMinutes int
	WakeMinutes     int
	Now             time.Time
}

// Matcher maps a requested hostname to a blocklist entry.
type Matcher interface {
	// Match returns the matched entry, or nil when nothing matches.
	Match(hostname string, list BlockList) *Match
}

// ContentSelector picks friction material for one block screen showing.
type ContentSelector interface {
	// Select picks the experience and, for questions, the substituted
	// text. It records the chosen identifiers into the shown sets.
	Select(ctx context.Context, in SelectInput) (*FrictionItem, error)
}

// SelectInput is the context a selection draws from.
type SelectInput struct {
	Site     string
	Zone     Zone
	Streak   int
	Schedule Schedule
	Now      time.Time
}

// Clock abstracts wall-clock reads so schedulers and deciders are
// testable at fixed instants.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }
