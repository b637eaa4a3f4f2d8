//go:build integration

package integration

import (
	"context"
	"math/rand"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/eliteGoblin/sleepshield/internal/blocklist"
	"github.com/eliteGoblin/sleepshield/internal/domain"
	"github.com/eliteGoblin/sleepshield/internal/ledger"
	"github.com/eliteGoblin/sleepshield/internal/reset"
	"github.com/eliteGoblin/sleepshield/internal/selector"
	"github.com/eliteGoblin/sleepshield/internal/store"
	"github.com/eliteGoblin/sleepshield/internal/usecase"
)

var _ = Describe("Night Lifecycle", func() {
	var (
		ctx        context.Context
		stateStore domain.StateStore
		night      *ledger.Ledger
		gatekeeper *usecase.Gatekeeper
		scheduler  *reset.Scheduler
		now        time.Time
	)

	// The clock is a plain variable so specs can move through the night.
	clock := domain.ClockFunc(func() time.Time { return now })

	BeforeEach(func() {
		ctx = context.Background()
		now = time.Date(2024, 3, 10, 23, 0, 0, 0, time.UTC)

		var err error
		stateStore, err = store.New(store.BackendDiskv, filepath.Join(GinkgoT().TempDir(), "state"))
		Expect(err).NotTo(HaveOccurred())

		logger := zap.NewNop()
		night = ledger.New(stateStore, logger)
		picker := selector.New(night, rand.New(rand.NewSource(1)), logger)
		gatekeeper = usecase.NewGatekeeper(stateStore, night, blocklist.NewMatcher(), picker, clock, logger)
		scheduler = reset.NewScheduler(reset.DefaultConfig(), stateStore, night, clock, logger)
	})

	AfterEach(func() {
		Expect(stateStore.Close()).To(Succeed())
	})

	setup := func() {
		Expect(gatekeeper.Configure(ctx, domain.Setup{
			WakeTime:       "06:00",
			BlockStartTime: "22:00",
		})).To(Succeed())
	}

	Describe("before setup", func() {
		It("allows everything and reports an empty status", func() {
			decision := gatekeeper.ShouldBlock(ctx, "https://reddit.com", 0)
			Expect(decision.Blocked).To(BeFalse())

			report, err := gatekeeper.Status(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.SetupComplete).To(BeFalse())
		})
	})

	Describe("blocking inside the window", func() {
		BeforeEach(setup)

		It("blocks catalog domains and their subdomains", func() {
			decision := gatekeeper.ShouldBlock(ctx, "https://www.reddit.com/r/all", 0)
			Expect(decision.Blocked).To(BeTrue())
			Expect(decision.Domain).To(Equal("reddit.com"))

			decision = gatekeeper.ShouldBlock(ctx, "https://old.reddit.com", 0)
			Expect(decision.Blocked).To(BeTrue())

			decision = gatekeeper.ShouldBlock(ctx, "https://example.com", 0)
			Expect(decision.Blocked).To(BeFalse())
		})

		It("stops blocking once the window closes", func() {
			now = time.Date(2024, 3, 11, 6, 0, 0, 0, time.UTC)
			decision := gatekeeper.ShouldBlock(ctx, "https://reddit.com", 0)
			Expect(decision.Blocked).To(BeFalse())
		})

		It("counts blocked attempts for the status dashboard", func() {
			gatekeeper.ShouldBlock(ctx, "https://reddit.com", 0)
			gatekeeper.ShouldBlock(ctx, "https://youtube.com", 0)

			report, err := gatekeeper.Status(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.BlockedTonight).To(Equal(2))
			Expect(report.WindowActive).To(BeTrue())
			Expect(report.Zone).To(Equal(domain.ZoneEarly))
		})
	})

	Describe("friction content", func() {
		BeforeEach(setup)

		It("returns an item and escalates the countdown per attempt", func() {
			first, err := gatekeeper.Friction(ctx, "reddit.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(first.CountdownSeconds).To(Equal(10))
			Expect(first.Attempt).To(Equal(1))

			second, err := gatekeeper.Friction(ctx, "reddit.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(second.CountdownSeconds).To(Equal(15))
			Expect(second.Attempt).To(Equal(2))
		})

		It("never repeats a question until the zone pool is exhausted", func() {
			seen := map[string]int{}
			for i := 0; i < 30; i++ {
				item, err := gatekeeper.Friction(ctx, "reddit.com")
				Expect(err).NotTo(HaveOccurred())
				if item.Experience == domain.ExperienceQuestion {
					seen[item.QuestionID]++
				}
			}
			shown, err := night.ShownQuestions(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(shown).NotTo(BeEmpty())
			for id, count := range seen {
				if count > 1 {
					// Repetition is only allowed after the pool ran dry,
					// which resets the shown set.
					Expect(len(seen)).To(BeNumerically(">", 1), "repeat of %s before exhaustion", id)
				}
			}
		})
	})

	Describe("overrides", func() {
		BeforeEach(setup)

		It("excuses the domain until expiry", func() {
			_, err := gatekeeper.RecordOverride(ctx, "reddit.com", "quick check", 15)
			Expect(err).NotTo(HaveOccurred())

			Expect(gatekeeper.ShouldBlock(ctx, "https://reddit.com", 0).Blocked).To(BeFalse())
			Expect(gatekeeper.ShouldBlock(ctx, "https://youtube.com", 0).Blocked).To(BeTrue())

			now = now.Add(15 * time.Minute)
			Expect(gatekeeper.ShouldBlock(ctx, "https://reddit.com", 0).Blocked).To(BeTrue())
		})

		It("breaks the streak immediately for until-wake", func() {
			// Seed an existing streak through a few clean nights.
			Expect(night.ResetNight(ctx, 6, "2024-03-10")).To(Succeed())

			_, err := gatekeeper.RecordOverride(ctx, "youtube.com", "", domain.UntilWake)
			Expect(err).NotTo(HaveOccurred())

			streak, err := night.Streak(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(streak).To(BeZero())

			// Excused all the way to the wake boundary.
			now = time.Date(2024, 3, 11, 5, 59, 0, 0, time.UTC)
			Expect(gatekeeper.ShouldBlock(ctx, "https://youtube.com", 0).Blocked).To(BeFalse())
		})
	})

	Describe("the nightly reset", func() {
		BeforeEach(setup)

		It("advances the streak after a clean night", func() {
			gatekeeper.ShouldBlock(ctx, "https://reddit.com", 0)

			now = time.Date(2024, 3, 11, 6, 1, 0, 0, time.UTC)
			scheduler.Tick(ctx)

			report, err := gatekeeper.Status(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Streak).To(Equal(1))
			Expect(report.BlockedTonight).To(BeZero())
			Expect(report.LastResetDate).To(Equal("2024-03-11"))
		})

		It("zeroes the streak after a long override and clears the ledger", func() {
			Expect(night.ResetNight(ctx, 4, "2024-03-10")).To(Succeed())
			_, err := gatekeeper.RecordOverride(ctx, "reddit.com", "giving in", 45)
			Expect(err).NotTo(HaveOccurred())

			now = time.Date(2024, 3, 11, 6, 0, 0, 0, time.UTC)
			scheduler.Tick(ctx)

			report, err := gatekeeper.Status(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Streak).To(BeZero())
			Expect(report.ActiveOverride).To(BeZero())
		})

		It("fires exactly once per day", func() {
			now = time.Date(2024, 3, 11, 6, 0, 0, 0, time.UTC)
			scheduler.Tick(ctx)
			now = time.Date(2024, 3, 11, 6, 2, 0, 0, time.UTC)
			scheduler.Tick(ctx)

			report, err := gatekeeper.Status(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Streak).To(Equal(1), "second tick is a no-op")
		})
	})

	Describe("persistence across restarts", func() {
		It("keeps state through a store reopen", func() {
			dir := filepath.Join(GinkgoT().TempDir(), "persist")
			first, err := store.New(store.BackendDiskv, dir)
			Expect(err).NotTo(HaveOccurred())

			logger := zap.NewNop()
			firstNight := ledger.New(first, logger)
			firstGk := usecase.NewGatekeeper(first, firstNight, blocklist.NewMatcher(),
				selector.New(firstNight, rand.New(rand.NewSource(1)), logger), clock, logger)
			Expect(firstGk.Configure(ctx, domain.Setup{WakeTime: "06:00", BlockStartTime: "22:00"})).To(Succeed())
			_, err = firstGk.RecordOverride(ctx, "reddit.com", "", 30)
			Expect(err).NotTo(HaveOccurred())
			Expect(first.Close()).To(Succeed())

			second, err := store.New(store.BackendDiskv, dir)
			Expect(err).NotTo(HaveOccurred())
			defer second.Close()

			secondNight := ledger.New(second, logger)
			secondGk := usecase.NewGatekeeper(second, secondNight, blocklist.NewMatcher(),
				selector.New(secondNight, rand.New(rand.NewSource(1)), logger), clock, logger)

			Expect(secondGk.ShouldBlock(ctx, "https://reddit.com", 0).Blocked).To(BeFalse(),
				"the override survived the restart")
			Expect(secondGk.ShouldBlock(ctx, "https://youtube.com", 0).Blocked).To(BeTrue())
		})
	})
})
