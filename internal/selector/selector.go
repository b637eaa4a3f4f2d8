// Package selector picks friction content for the block screen: a
// reflective question or a mini-game, weighted by zone and guarded
// against repetition within the night.
package selector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/eliteGoblin/sleepshield/internal/domain"
	"github.com/eliteGoblin/sleepshield/internal/timewindow"
)

// ErrEmptyBank is returned when no question can serve the request.
var ErrEmptyBank = errors.New("selector: question bank empty")

// questionShare of the uniform experience draw goes to the plain
// question path; the remainder is split across the mini-game kinds.
const questionShare = 0.6

// Countdown duration: base plus 5s per prior friction screen, capped.
const (
	countdownBaseSeconds = 10
	countdownStepSeconds = 5
	countdownMaxSeconds  = 30
)

// Rand is the randomness the selector consumes. *math/rand.Rand
// satisfies it; tests script it.
type Rand interface {
	Intn(n int) int
	Float64() float64
}

// Selector implements domain.ContentSelector.
type Selector struct {
	bank   []domain.Question
	night  domain.NightLedger
	rng    Rand
	mu     sync.Mutex // rng is not safe for concurrent use
	logger *zap.Logger
}

// New creates a selector over the default question bank.
func New(night domain.NightLedger, rng Rand, logger *zap.Logger) *Selector {
	return NewWithBank(DefaultBank(), night, rng, logger)
}

// NewWithBank creates a selector with a custom bank (for testing).
func NewWithBank(bank []domain.Question, night domain.NightLedger, rng Rand, logger *zap.Logger) *Selector {
	return &Selector{bank: bank, night: night, rng: rng, logger: logger}
}

// zoneWeights returns the category weight table for a zone. Early
// triples the light-touch categories, Late triples the reflective
// ones, Mid weighs everything equally.
func zoneWeights(zone domain.Zone) map[string]int {
	switch zone {
	case domain.ZoneEarly:
		return map[string]int{CategoryHumor: 3, CategoryMorningPull: 3}
	case domain.ZoneLate:
		return map[string]int{CategoryFutureSelf: 3, CategoryIntentionCheck: 3}
	default:
		return nil
	}
}

// Select picks one friction item and records it into the shown sets.
func (s *Selector) Select(ctx context.Context, in domain.SelectInput) (*domain.FrictionItem, error) {
	attempt, err := s.night.NextAttempt(ctx)
	if err != nil {
		return nil, err
	}

	item := &domain.FrictionItem{
		Zone:             in.Zone,
		Streak:           in.Streak,
		Attempt:          attempt,
		CountdownSeconds: countdownSeconds(attempt),
	}

	shownGames, err := s.night.ShownGames(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	roll := s.rng.Float64()
	s.mu.Unlock()

	kind := pickExperience(roll, shownGames)
	item.Experience = kind

	if kind != domain.ExperienceQuestion {
		if err := s.night.MarkGameShown(ctx, kind); err != nil {
			return nil, err
		}
		s.logger.Debug("selected mini-game",
			zap.String("kind", string(kind)),
			zap.String("zone", string(in.Zone)))
		return item, nil
	}

	shown, err := s.night.ShownQuestions(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	question, exhausted, ok := pickQuestion(s.bank, in.Zone, in.Streak, shown, s.rng)
	s.mu.Unlock()
	if !ok {
		return nil, ErrEmptyBank
	}

	if err := s.night.MarkQuestionShown(ctx, question.ID, exhausted); err != nil {
		return nil, err
	}

	item.QuestionID = question.ID
	item.Text = Substitute(question.Template, Vars{
		Site:         in.Site,
		Time:         in.Now.Format("3:04 PM"),
		WakeTime:     timewindow.Format12h(in.Schedule.WakeMinutes),
		HoursLeft:    fmt.Sprintf("%.1f", timewindow.NextWake(in.Now, in.Schedule.WakeMinutes).Sub(in.Now).Hours()),
		Streak:       in.Streak,
		AttemptCount: attempt,
	})

	s.logger.Debug("selected question",
		zap.String("id", question.ID),
		zap.String("category", question.Category),
		zap.String("zone", string(in.Zone)),
		zap.Bool("pool_exhausted", exhausted))

	return item, nil
}

// pickQuestion runs the two-stage weighted draw: a category drawn with
// probability proportional to its zone weight, then an item uniform
// within the category. The two stages are deliberate; flattening to a
// single by-item draw would make weight depend on category size.
func pickQuestion(bank []domain.Question, zone domain.Zone, streak int, shown map[string]bool, rng Rand) (domain.Question, bool, bool) {
	pool := filterPool(bank, zone, streak)
	if len(pool) == 0 {
		// Zone has no material at all: fall back to the whole bank so
		// a sparse bank still produces content.
		pool = filterPool(bank, "", streak)
	}
	if len(pool) == 0 {
		return domain.Question{}, false, false
	}

	available := make([]domain.Question, 0, len(pool))
	for _, q := range pool {
		if !shown[q.ID] {
			available = append(available, q)
		}
	}

	// Graceful exhaustion: repetition beats no content.
	exhausted := len(available) == 0
	if exhausted {
		available = pool
	}

	byCategory := make(map[string][]domain.Question)
	for _, q := range available {
		byCategory[q.Category] = append(byCategory[q.Category], q)
	}
	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	weights := zoneWeights(zone)
	var flat []string
	for _, c := range categories {
		w := weights[c]
		if w == 0 {
			w = 1
		}
		for i := 0; i < w; i++ {
			flat = append(flat, c)
		}
	}

	category := flat[rng.Intn(len(flat))]
	items := byCategory[category]
	return items[rng.Intn(len(items))], exhausted, true
}

// filterPool applies the zone filter and, below a streak of 2, drops
// templates that reference the streak placeholder; those only read
// well once a streak exists.
func filterPool(bank []domain.Question, zone domain.Zone, streak int) []domain.Question {
	var pool []domain.Question
	for _, q := range bank {
		if zone != "" && q.Zone != zone {
			continue
		}
		if streak < 2 && strings.Contains(q.Template, "[streak]") {
			continue
		}
		pool = append(pool, q)
	}
	return pool
}

// pickExperience maps a uniform roll in [0,1) to a modality. The bulk
// of the range goes to the low-friction question path; the remainder
// is split evenly with one preferred mini-game kind per slice. A
// preferred kind already shown tonight yields to any kind not yet
// shown, and once every kind has had a turn the restriction lifts.
func pickExperience(roll float64, shownGames map[domain.ExperienceKind]bool) domain.ExperienceKind {
	if roll < questionShare {
		return domain.ExperienceQuestion
	}

	slice := (1 - questionShare) / float64(len(domain.GameKinds))
	idx := int((roll - questionShare) / slice)
	if idx >= len(domain.GameKinds) {
		idx = len(domain.GameKinds) - 1
	}
	preferred := domain.GameKinds[idx]

	if !shownGames[preferred] {
		return preferred
	}
	for _, kind := range domain.GameKinds {
		if !shownGames[kind] {
			return kind
		}
	}
	return preferred
}

func countdownSeconds(attempt int) int {
	seconds := countdownBaseSeconds + (attempt-1)*countdownStepSeconds
	if seconds > countdownMaxSeconds {
		seconds = countdownMaxSeconds
	}
	return seconds
}

// Vars are the placeholder values substituted into question templates.
type Vars struct {
	Site         string
	Time         string
	WakeTime     string
	HoursLeft    string
	Streak       int
	AttemptCount int
}

// Substitute replaces every placeholder occurrence with plain text.
func Substitute(template string, v Vars) string {
	r := strings.NewReplacer(
		"[site]", v.Site,
		"[time]", v.Time,
		"[wake_time]", v.WakeTime,
		"[hours_left]", v.HoursLeft,
		"[streak]", strconv.Itoa(v.Streak),
		"[attempt_count]", strconv.Itoa(v.AttemptCount),
	)
	return r.Replace(template)
}

// Ensure Selector implements domain.ContentSelector.
var _ domain.ContentSelector = (*Selector)(nil)
