// Package usecase contains the application business logic, wiring the
// domain interfaces into the decisions the presentation layer consumes.
package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/eliteGoblin/sleepshield/internal/blocklist"
	"github.com/eliteGoblin/sleepshield/internal/domain"
	"github.com/eliteGoblin/sleepshield/internal/timewindow"
)

// Setup defaults applied when the onboarding payload leaves them out.
const (
	defaultSleepHours    = 7.5
	defaultBufferMinutes = 30
)

// ErrNotConfigured is returned by operations that require a completed
// setup before any schedule exists.
var ErrNotConfigured = errors.New("usecase: setup not complete")

// Gatekeeper evaluates navigation attempts against the schedule, the
// blocklist and the override ledger, and assembles friction content for
// the block screen.
type Gatekeeper struct {
	store    domain.StateStore
	night    domain.NightLedger
	matcher  domain.Matcher
	selector domain.ContentSelector
	clock    domain.Clock
	logger   *zap.Logger
}

// NewGatekeeper creates the policy gatekeeper.
func NewGatekeeper(
	store domain.StateStore,
	night domain.NightLedger,
	matcher domain.Matcher,
	selector domain.ContentSelector,
	clock domain.Clock,
	logger *zap.Logger,
) *Gatekeeper {
	return &Gatekeeper{
		store:    store,
		night:    night,
		matcher:  matcher,
		selector: selector,
		clock:    clock,
		logger:   logger,
	}
}

// ShouldBlock decides one navigation attempt. The decision degrades
// open: setup incomplete, unreadable state, sub-frames and non-web
// schemes all pass through unblocked. Blocking is best-effort friction,
// never something that can lock a user out of the web on a bad disk.
func (g *Gatekeeper) ShouldBlock(ctx context.Context, rawURL string, frameID int) domain.Decision {
	allow := domain.Decision{Blocked: false}

	// Only top-level navigations are judged; iframes inherit the fate of
	// the page that embeds them.
	if frameID != 0 {
		return allow
	}

	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return allow
	}
	hostname := blocklist.HostnameFromURL(rawURL)
	if hostname == "" {
		return allow
	}

	state, err := g.readPolicyState(ctx)
	if err != nil {
		g.logger.Warn("decision degraded to allow", zap.String("url", rawURL), zap.Error(err))
		return allow
	}
	if state == nil {
		return allow
	}

	now := g.clock.Now()
	if !timewindow.Within(timewindow.MinuteOfDay(now), state.schedule.BlockStartMinutes, state.schedule.WakeMinutes) {
		return allow
	}

	match := g.matcher.Match(hostname, state.blockList)
	if match == nil {
		return allow
	}

	excused, err := g.night.Active(ctx, match.Domain, now)
	if err != nil {
		g.logger.Warn("override lookup failed, allowing", zap.String("domain", match.Domain), zap.Error(err))
		return allow
	}
	if excused {
		return allow
	}

	if _, err := g.night.RecordBlocked(ctx); err != nil {
		// Counter drift is acceptable; the block itself is not in question.
		g.logger.Warn("blocked counter update failed", zap.Error(err))
	}

	g.logger.Info("navigation blocked",
		zap.String("domain", match.Domain),
		zap.String("category", match.Category))

	return domain.Decision{Blocked: true, Domain: match.Domain, Category: match.Category}
}

// Friction assembles the content for one showing of the block screen.
func (g *Gatekeeper) Friction(ctx context.Context, site string) (*domain.FrictionItem, error) {
	state, err := g.readPolicyState(ctx)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, ErrNotConfigured
	}

	streak, err := g.night.Streak(ctx)
	if err != nil {
		return nil, err
	}

	now := g.clock.Now()
	zone := timewindow.ClassifyZone(timewindow.MinuteOfDay(now),
		state.schedule.BlockStartMinutes, state.schedule.WakeMinutes)

	return g.selector.Select(ctx, domain.SelectInput{
		Site:     blocklist.Normalize(site),
		Zone:     zone,
		Streak:   streak,
		Schedule: state.schedule,
		Now:      now,
	})
}

// RecordOverride grants a bypass for one domain. The zone is stamped
// from the moment of granting, not the moment of the navigation that
// triggered the friction screen.
func (g *Gatekeeper) RecordOverride(ctx context.Context, dom, reason string, minutes int) (*domain.OverrideRecord, error) {
	state, err := g.readPolicyState(ctx)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, ErrNotConfigured
	}

	now := g.clock.Now()
	zone := timewindow.ClassifyZone(timewindow.MinuteOfDay(now),
		state.schedule.BlockStartMinutes, state.schedule.WakeMinutes)

	return g.night.Create(ctx, domain.OverrideParams{
		Domain:          blocklist.Normalize(dom),
		Reason:          reason,
		Zone:            zone,
		DurationMinutes: minutes,
		WakeMinutes:     state.schedule.WakeMinutes,
		Now:             now,
	})
}

// Status assembles the dashboard snapshot.
func (g *Gatekeeper) Status(ctx context.Context) (*domain.StatusReport, error) {
	report := &domain.StatusReport{}

	state, err := g.readPolicyState(ctx)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return report, nil
	}
	report.SetupComplete = true
	report.WakeTime = timewindow.FormatClock(state.schedule.WakeMinutes)
	report.BlockStartTime = timewindow.FormatClock(state.schedule.BlockStartMinutes)
	report.Categories = blocklist.Categories(state.blockList)

	now := g.clock.Now()
	nowMin := timewindow.MinuteOfDay(now)
	report.WindowActive = timewindow.Within(nowMin, state.schedule.BlockStartMinutes, state.schedule.WakeMinutes)
	if report.WindowActive {
		report.Zone = timewindow.ClassifyZone(nowMin, state.schedule.BlockStartMinutes, state.schedule.WakeMinutes)
	}

	if report.Streak, err = g.night.Streak(ctx); err != nil {
		return nil, err
	}
	if report.BlockedTonight, err = g.night.BlockedTonight(ctx); err != nil {
		return nil, err
	}
	if report.ActiveOverride, err = g.night.ActiveCount(ctx, now); err != nil {
		return nil, err
	}
	if report.LastResetDate, err = g.night.LastResetDate(ctx); err != nil {
		return nil, err
	}

	return report, nil
}

// Configure validates and persists the setup payload in one write.
// An omitted block start is derived from the wake time, the sleep
// target and the wind-down buffer; an omitted blocklist gets the
// built-in catalog.
func (g *Gatekeeper) Configure(ctx context.Context, setup domain.Setup) error {
	wake, err := timewindow.ParseClock(setup.WakeTime)
	if err != nil {
		return fmt.Errorf("usecase: wake time: %w", err)
	}

	var start int
	if setup.BlockStartTime != "" {
		if start, err = timewindow.ParseClock(setup.BlockStartTime); err != nil {
			return fmt.Errorf("usecase: block start time: %w", err)
		}
	} else {
		sleepHours := setup.SleepHours
		if sleepHours <= 0 {
			sleepHours = defaultSleepHours
		}
		buffer := setup.BufferMinutes
		if buffer <= 0 {
			buffer = defaultBufferMinutes
		}
		start = timewindow.DeriveBlockStart(wake, sleepHours, buffer)
	}
	if start == wake {
		return errors.New("usecase: block start and wake time coincide")
	}

	list := setup.BlockList
	if len(list) == 0 {
		list = blocklist.DefaultCatalog()
	}

	cfg := domain.ScheduleConfig{
		WakeTime:       timewindow.FormatClock(wake),
		BlockStartTime: timewindow.FormatClock(start),
	}
	rawSchedule, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("usecase: encode schedule: %w", err)
	}
	rawList, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("usecase: encode blocklist: %w", err)
	}

	if err := g.store.Set(ctx, map[string]json.RawMessage{
		domain.KeySchedule:      rawSchedule,
		domain.KeyBlockList:     rawList,
		domain.KeySetupComplete: json.RawMessage(`true`),
	}); err != nil {
		return fmt.Errorf("usecase: persist setup: %w", err)
	}

	now := g.clock.Now()
	active := timewindow.Within(timewindow.MinuteOfDay(now), start, wake)
	g.logger.Info("setup saved",
		zap.String("wake_time", cfg.WakeTime),
		zap.String("block_start_time", cfg.BlockStartTime),
		zap.Int("categories", len(list)),
		zap.Bool("window_active_now", active))
	if active {
		g.logger.Info("block window already active, enforcement starts immediately")
	}

	return nil
}

// policyState is the configured schedule and blocklist, nil when setup
// has not completed.
type policyState struct {
	schedule  domain.Schedule
	blockList domain.BlockList
}

func (g *Gatekeeper) readPolicyState(ctx context.Context) (*policyState, error) {
	values, err := g.store.Get(ctx, domain.KeySetupComplete, domain.KeySchedule, domain.KeyBlockList)
	if err != nil {
		return nil, fmt.Errorf("usecase: read state: %w", err)
	}
	if string(values[domain.KeySetupComplete]) != "true" {
		return nil, nil
	}

	rawSchedule, ok := values[domain.KeySchedule]
	if !ok {
		return nil, errors.New("usecase: setup complete but schedule missing")
	}
	var cfg domain.ScheduleConfig
	if err := json.Unmarshal(rawSchedule, &cfg); err != nil {
		return nil, fmt.Errorf("usecase: decode schedule: %w", err)
	}
	schedule, err := timewindow.ParseSchedule(cfg)
	if err != nil {
		return nil, fmt.Errorf("usecase: parse schedule: %w", err)
	}

	var list domain.BlockList
	if raw, ok := values[domain.KeyBlockList]; ok {
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("usecase: decode blocklist: %w", err)
		}
	}

	return &policyState{schedule: schedule, blockList: list}, nil
}
