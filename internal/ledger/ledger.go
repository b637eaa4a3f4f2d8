// Package ledger owns the current night's session state: override
// records, shown-content sets and counters. Every mutation is a
// read-modify-write against the external store, so all of them pass
// through a single mutex; without it a concurrent nightly reset could
// silently drop a freshly created override (or vice versa).
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eliteGoblin/sleepshield/internal/domain"
	"github.com/eliteGoblin/sleepshield/internal/timewindow"
)

// ErrInvalidDuration is returned for durations that are neither
// positive nor the until-wake sentinel.
var ErrInvalidDuration = errors.New("ledger: duration must be positive or until-wake")

// Ledger implements domain.NightLedger over a StateStore.
type Ledger struct {
	mu     sync.Mutex
	store  domain.StateStore
	logger *zap.Logger
}

// New creates a ledger backed by the given store.
func New(store domain.StateStore, logger *zap.Logger) *Ledger {
	return &Ledger{store: store, logger: logger}
}

// StreakBreak reports whether last night's records break the streak:
// any override of 30 minutes or more, or an until-wake override.
// Short bypasses are tolerated.
func StreakBreak(records []domain.OverrideRecord) bool {
	for _, r := range records {
		if r.DurationMinutes >= domain.StreakBreakMinutes || r.DurationMinutes == domain.UntilWake {
			return true
		}
	}
	return false
}

// Create appends a new override record. An until-wake duration expires
// at the next wake instant strictly after now and zeroes the streak in
// the same write. The ledger never mutates existing records here.
func (l *Ledger) Create(ctx context.Context, p domain.OverrideParams) (*domain.OverrideRecord, error) {
	if p.Domain == "" {
		return nil, errors.New("ledger: domain required")
	}
	if p.DurationMinutes <= 0 && p.DurationMinutes != domain.UntilWake {
		return nil, ErrInvalidDuration
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.readRecords(ctx)
	if err != nil {
		return nil, err
	}

	record := domain.OverrideRecord{
		ID:              uuid.NewString(),
		Domain:          p.Domain,
		CreatedAt:       p.Now,
		DurationMinutes: p.DurationMinutes,
		Reason:          p.Reason,
		Zone:            p.Zone,
	}
	if p.DurationMinutes == domain.UntilWake {
		record.ExpiresAt = timewindow.NextWake(p.Now, p.WakeMinutes)
	} else {
		record.ExpiresAt = p.Now.Add(time.Duration(p.DurationMinutes) * time.Minute)
	}

	records = append(records, record)
	values := map[string]json.RawMessage{}
	if values[domain.KeyOverrides], err = marshal(records); err != nil {
		return nil, err
	}
	if p.DurationMinutes == domain.UntilWake {
		// Indefinite bypass breaks the streak now, not at reset time.
		values[domain.KeyStreak] = json.RawMessage(`0`)
	}

	if err := l.setWithRetry(ctx, values); err != nil {
		return nil, err
	}

	l.logger.Info("override created",
		zap.String("domain", p.Domain),
		zap.Int("duration_minutes", p.DurationMinutes),
		zap.String("zone", string(p.Zone)),
		zap.Time("expires_at", record.ExpiresAt))

	return &record, nil
}

// Active reports whether any record excuses the domain at now.
// Matching is by the canonical blocked domain, not the raw hostname.
func (l *Ledger) Active(ctx context.Context, dom string, now time.Time) (bool, error) {
	records, err := l.readRecords(ctx)
	if err != nil {
		return false, err
	}
	for _, r := range records {
		if r.Domain == dom && r.Active(now) {
			return true, nil
		}
	}
	return false, nil
}

// ActiveCount counts records still live at now.
func (l *Ledger) ActiveCount(ctx context.Context, now time.Time) (int, error) {
	records, err := l.readRecords(ctx)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, r := range records {
		if r.Active(now) {
			count++
		}
	}
	return count, nil
}

// Records returns the full contents of the ledger.
func (l *Ledger) Records(ctx context.Context) ([]domain.OverrideRecord, error) {
	return l.readRecords(ctx)
}

// Streak returns the current consistency streak.
func (l *Ledger) Streak(ctx context.Context) (int, error) {
	return l.readInt(ctx, domain.KeyStreak)
}

// BlockedTonight returns tonight's blocked attempt count.
func (l *Ledger) BlockedTonight(ctx context.Context) (int, error) {
	return l.readInt(ctx, domain.KeyBlockedTonight)
}

// RecordBlocked increments tonight's blocked attempt count.
func (l *Ledger) RecordBlocked(ctx context.Context) (int, error) {
	return l.increment(ctx, domain.KeyBlockedTonight)
}

// NextAttempt increments and returns the friction screen counter.
// Unlike the nightly counters this one survives resets; it feeds the
// countdown duration and the [attempt_count] placeholder.
func (l *Ledger) NextAttempt(ctx context.Context) (int, error) {
	return l.increment(ctx, domain.KeyAttemptCount)
}

// ShownQuestions returns the question ids already shown tonight.
func (l *Ledger) ShownQuestions(ctx context.Context) (map[string]bool, error) {
	var ids []string
	if err := l.readJSON(ctx, domain.KeyShownQuestions, &ids); err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

// MarkQuestionShown appends a question id to the shown set. With reset
// the set is dropped first; the selector uses that when the pool was
// exhausted and repetition restarts.
func (l *Ledger) MarkQuestionShown(ctx context.Context, id string, reset bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var ids []string
	if !reset {
		if err := l.readJSON(ctx, domain.KeyShownQuestions, &ids); err != nil {
			return err
		}
	}
	ids = append(ids, id)
	raw, err := marshal(ids)
	if err != nil {
		return err
	}
	return l.setWithRetry(ctx, map[string]json.RawMessage{domain.KeyShownQuestions: raw})
}

// ShownGames returns the mini-game kinds already shown tonight.
func (l *Ledger) ShownGames(ctx context.Context) (map[domain.ExperienceKind]bool, error) {
	var kinds []domain.ExperienceKind
	if err := l.readJSON(ctx, domain.KeyShownGames, &kinds); err != nil {
		return nil, err
	}
	out := make(map[domain.ExperienceKind]bool, len(kinds))
	for _, k := range kinds {
		out[k] = true
	}
	return out, nil
}

// MarkGameShown appends a mini-game kind to the shown set.
func (l *Ledger) MarkGameShown(ctx context.Context, kind domain.ExperienceKind) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var kinds []domain.ExperienceKind
	if err := l.readJSON(ctx, domain.KeyShownGames, &kinds); err != nil {
		return err
	}
	for _, k := range kinds {
		if k == kind {
			return nil
		}
	}
	kinds = append(kinds, kind)
	raw, err := marshal(kinds)
	if err != nil {
		return err
	}
	return l.setWithRetry(ctx, map[string]json.RawMessage{domain.KeyShownGames: raw})
}

// LastResetDate returns the calendar-date key of the last reset.
func (l *Ledger) LastResetDate(ctx context.Context) (string, error) {
	var date string
	if err := l.readJSON(ctx, domain.KeyLastResetDate, &date); err != nil {
		return "", err
	}
	return date, nil
}

// ResetNight installs the new streak, zeroes the blocked counter,
// clears the records and shown sets and stamps the reset date, all in
// one store write. If the write fails nothing is stamped and the next
// tick retries the whole reset.
func (l *Ledger) ResetNight(ctx context.Context, newStreak int, dateKey string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	empty := json.RawMessage(`[]`)
	date, err := marshal(dateKey)
	if err != nil {
		return err
	}
	return l.store.Set(ctx, map[string]json.RawMessage{
		domain.KeyStreak:         json.RawMessage(fmt.Sprintf("%d", newStreak)),
		domain.KeyBlockedTonight: json.RawMessage(`0`),
		domain.KeyOverrides:      empty,
		domain.KeyShownQuestions: empty,
		domain.KeyShownGames:     empty,
		domain.KeyLastResetDate:  date,
	})
}

func (l *Ledger) readRecords(ctx context.Context) ([]domain.OverrideRecord, error) {
	var records []domain.OverrideRecord
	if err := l.readJSON(ctx, domain.KeyOverrides, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (l *Ledger) readJSON(ctx context.Context, key string, out any) error {
	values, err := l.store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("ledger: read %s: %w", key, err)
	}
	raw, ok := values[key]
	if !ok {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("ledger: decode %s: %w", key, err)
	}
	return nil
}

func (l *Ledger) readInt(ctx context.Context, key string) (int, error) {
	var n int
	if err := l.readJSON(ctx, key, &n); err != nil {
		return 0, err
	}
	return n, nil
}

func (l *Ledger) increment(ctx context.Context, key string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	n, err := l.readInt(ctx, key)
	if err != nil {
		return 0, err
	}
	n++
	raw := json.RawMessage(fmt.Sprintf("%d", n))
	if err := l.setWithRetry(ctx, map[string]json.RawMessage{key: raw}); err != nil {
		return 0, err
	}
	return n, nil
}

// setWithRetry writes once and retries a single time on failure. A
// silently lost override would resurface the block screen for a domain
// the user believes is excused, so the second failure is surfaced.
func (l *Ledger) setWithRetry(ctx context.Context, values map[string]json.RawMessage) error {
	if err := l.store.Set(ctx, values); err != nil {
		l.logger.Warn("ledger write failed, retrying", zap.Error(err))
		if err := l.store.Set(ctx, values); err != nil {
			return fmt.Errorf("ledger: write: %w", err)
		}
	}
	return nil
}

func marshal(v any) (json.RawMessage, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("ledger: encode: %w", err)
	}
	return raw, nil
}

// Ensure Ledger implements domain.NightLedger.
var _ domain.NightLedger = (*Ledger)(nil)
