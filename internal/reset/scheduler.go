// Package reset implements the nightly reset scheduler. A coarse
// periodic tick detects the wake boundary and performs the once-per-day
// reset of the night's counters, ledger and streak.
package reset

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/sleepshield/internal/domain"
	"github.com/eliteGoblin/sleepshield/internal/ledger"
	"github.com/eliteGoblin/sleepshield/internal/timewindow"
)

// dateKeyLayout is the calendar-date key guarding idempotence. The
// comparison is by date string, never by timestamp difference: the
// process may wake at any offset from the scheduled tick.
const dateKeyLayout = "2006-01-02"

// Config holds scheduler settings.
type Config struct {
	// TickInterval is how often the wake boundary is checked.
	// Sub-minute precision is neither required nor assumed.
	TickInterval time.Duration

	// Tolerance bounds how long after wake time the reset may still
	// fire. Outside it the day stays unreset until the next crossing;
	// the reset must not silently catch up hours late.
	Tolerance time.Duration
}

// DefaultConfig returns default scheduler settings.
func DefaultConfig() Config {
	return Config{
		TickInterval: time.Minute,
		Tolerance:    5 * time.Minute,
	}
}

// Scheduler drives the nightly reset.
type Scheduler struct {
	config Config
	store  domain.StateStore
	night  domain.NightLedger
	clock  domain.Clock
	logger *zap.Logger
}

// NewScheduler creates a nightly reset scheduler.
func NewScheduler(
	config Config,
	store domain.StateStore,
	night domain.NightLedger,
	clock domain.Clock,
	logger *zap.Logger,
) *Scheduler {
	return &Scheduler{
		config: config,
		store:  store,
		night:  night,
		clock:  clock,
		logger: logger,
	}
}

// Run ticks until the context is canceled. A slow or failed tick never
// stalls the loop; it simply defers the reset to the next tick.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.config.TickInterval)
	defer ticker.Stop()

	s.logger.Info("nightly reset scheduler started",
		zap.Duration("tick_interval", s.config.TickInterval),
		zap.Duration("tolerance", s.config.Tolerance))

	// Check once on startup so a daemon launched right after wake time
	// does not wait a full tick.
	s.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("nightly reset scheduler stopping")
			return ctx.Err()
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick evaluates one wake-boundary check. Exported so the daemon loop
// and tests can drive it directly.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.clock.Now()

	values, err := s.store.Get(ctx, domain.KeySetupComplete, domain.KeySchedule)
	if err != nil {
		s.logger.Warn("reset tick: store read failed", zap.Error(err))
		return
	}

	if string(values[domain.KeySetupComplete]) != "true" {
		return
	}

	var cfg domain.ScheduleConfig
	raw, ok := values[domain.KeySchedule]
	if !ok {
		return
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		s.logger.Warn("reset tick: bad schedule", zap.Error(err))
		return
	}
	schedule, err := timewindow.ParseSchedule(cfg)
	if err != nil {
		s.logger.Warn("reset tick: bad schedule", zap.Error(err))
		return
	}

	todayKey := now.Format(dateKeyLayout)
	lastReset, err := s.night.LastResetDate(ctx)
	if err != nil {
		s.logger.Warn("reset tick: last reset date read failed", zap.Error(err))
		return
	}
	if lastReset == todayKey {
		// Already reset today. The matching tick is often observed more
		// than once; this guard makes the reset fire exactly once.
		return
	}

	// Fire only inside [wake, wake+tolerance). Minutes since wake wrap
	// at midnight so late wake times near 23:59 behave.
	sinceWake := timewindow.ElapsedSinceStart(timewindow.MinuteOfDay(now), schedule.WakeMinutes)
	if time.Duration(sinceWake)*time.Minute >= s.config.Tolerance {
		return
	}

	records, err := s.night.Records(ctx)
	if err != nil {
		s.logger.Warn("reset tick: ledger read failed", zap.Error(err))
		return
	}

	streak, err := s.night.Streak(ctx)
	if err != nil {
		s.logger.Warn("reset tick: streak read failed", zap.Error(err))
		return
	}

	newStreak := streak + 1
	broken := ledger.StreakBreak(records)
	if broken {
		newStreak = 0
	}

	if err := s.night.ResetNight(ctx, newStreak, todayKey); err != nil {
		// Nothing was stamped, so the next tick inside the tolerance
		// window retries the whole reset.
		s.logger.Warn("reset tick: reset write failed", zap.Error(err))
		return
	}

	s.logger.Info("nightly reset complete",
		zap.String("date", todayKey),
		zap.Int("streak", newStreak),
		zap.Bool("streak_broken", broken),
		zap.Int("overrides_cleared", len(records)))
}
