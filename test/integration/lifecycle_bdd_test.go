//go:build integration

package integration

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/blockerd/internal/domain"
	"github.com/eliteGoblin/focusd/blockerd/internal/infra"
	"github.com/eliteGoblin/focusd/blockerd/internal/strategy"
	"github.com/eliteGoblin/focusd/blockerd/internal/usecase"
)

// The foreground and background halves share only the files under dataDir:
// the encrypted profile store is foreground-only, the snapshot and activities
// files are shared. These specs drive both halves against the same dataDir,
// standing in for the two real processes.
var _ = Describe("Cross-process session lifecycle", func() {
	var (
		dataDir    string
		now        time.Time
		clock      func() time.Time
		store      *infra.EncryptedProfileStore
		snapshots  *infra.FileSnapshotStore
		intervals  *infra.FileIntervalScheduler
		enforcer   *infra.LogEnforcer
		engine     *usecase.Engine
		profiles   *usecase.ProfileService
		reconciler *usecase.Reconciler
		scanner    *infra.PresetScanner
	)

	// tick runs one background daemon poll: collect due boundaries and
	// dispatch them to the reconciler.
	tick := func() {
		due, err := intervals.Tick()
		Expect(err).NotTo(HaveOccurred())
		for _, b := range due {
			if b.Start {
				reconciler.OnIntervalStart(b.ActivityID)
			} else {
				reconciler.OnIntervalEnd(b.ActivityID)
			}
		}
	}

	BeforeEach(func() {
		dataDir = GinkgoT().TempDir()
		now = time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC) // Monday 08:00
		clock = func() time.Time { return now }
		logger := zap.NewNop()

		keyProvider := infra.NewFileKeyProvider(dataDir)
		key, err := keyProvider.EnsureKey()
		Expect(err).NotTo(HaveOccurred())
		store, err = infra.NewEncryptedProfileStore(dataDir, key)
		Expect(err).NotTo(HaveOccurred())

		snapshots = infra.NewFileSnapshotStore(dataDir)
		intervals = infra.NewFileIntervalSchedulerWithPath(
			filepath.Join(dataDir, "activities.json"), clock)
		enforcer = infra.NewLogEnforcer(logger)
		scanner = &infra.PresetScanner{}
		registry := strategy.NewRegistry()

		engine = usecase.NewEngine(store, snapshots, enforcer, intervals, scanner, registry, logger)
		engine.SetClock(clock)
		profiles = usecase.NewProfileService(store, snapshots, intervals, registry, logger)
		profiles.SetClock(clock)
		reconciler = usecase.NewReconciler(snapshots, enforcer, logger)
		reconciler.SetClock(clock)
	})

	AfterEach(func() {
		Expect(store.Close()).To(Succeed())
	})

	newScheduledProfile := func() *domain.Profile {
		p := &domain.Profile{
			Name:       "Work Hours",
			Selection:  domain.RestrictionSelection(`{"apps":["social"]}`),
			StrategyID: strategy.ManualID,
			Schedule: &domain.Schedule{
				Days:      []time.Weekday{time.Monday},
				StartHour: 9,
				EndHour:   17,
			},
		}
		Expect(profiles.Create(p)).To(Succeed())
		return p
	}

	Describe("schedule-driven sessions", func() {
		It("starts and ends a session across the schedule window", func() {
			p := newScheduledProfile()

			// The schedule edit must settle before boundaries act.
			now = now.Add(2 * time.Hour) // 10:00, inside the window
			tick()

			st, err := snapshots.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(st.ActiveSession).NotTo(BeNil())
			Expect(st.ActiveSession.ProfileID).To(Equal(p.ID))
			Expect(st.ActiveSession.ForceStarted).To(BeTrue())

			// Foreground comes back and adopts the running session.
			sess, err := engine.LoadActiveSession()
			Expect(err).NotTo(HaveOccurred())
			Expect(sess).NotTo(BeNil())
			Expect(sess.ProfileID).To(Equal(p.ID))

			// Window closes; the background ends the session.
			now = time.Date(2024, 3, 4, 17, 30, 0, 0, time.UTC)
			tick()

			st, err = snapshots.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(st.ActiveSession).To(BeNil())
			Expect(st.CompletedScheduledSessions).NotTo(BeEmpty())

			// Foreground drains the completed log into history.
			sess, err = engine.LoadActiveSession()
			Expect(err).NotTo(HaveOccurred())
			Expect(sess).To(BeNil())

			history, err := store.RecentSessions(p.ID, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(history).NotTo(BeEmpty())
		})

		It("ignores boundaries from a schedule edited moments ago", func() {
			now = time.Date(2024, 3, 4, 8, 55, 0, 0, time.UTC)
			newScheduledProfile()

			// Ten minutes after the edit the window opens, but the edit has
			// not settled yet, so the boundary must not start a session.
			now = time.Date(2024, 3, 4, 9, 5, 0, 0, time.UTC)
			tick()

			st, err := snapshots.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(st.ActiveSession).To(BeNil())
		})

		It("does not let a closing window end a user-started session", func() {
			p := newScheduledProfile()

			now = time.Date(2024, 3, 4, 16, 0, 0, 0, time.UTC)
			res, err := engine.Start(p.ID, usecase.StartOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Session).NotTo(BeNil())

			// The in-window boundary is a no-op: the slot already belongs to
			// this profile.
			now = time.Date(2024, 3, 4, 16, 5, 0, 0, time.UTC)
			tick()

			now = time.Date(2024, 3, 4, 17, 30, 0, 0, time.UTC)
			tick()

			st, err := snapshots.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(st.ActiveSession).NotTo(BeNil(), "user session survives the window close")
		})
	})

	Describe("timer expiry", func() {
		It("ends a timer session from the background process", func() {
			data, err := strategy.EncodeTimerData(strategy.TimerData{DurationMinutes: 30})
			Expect(err).NotTo(HaveOccurred())
			p := &domain.Profile{
				Name:         "Sprint",
				Selection:    domain.RestrictionSelection(`{"apps":["games"]}`),
				StrategyID:   strategy.TimerID,
				StrategyData: data,
			}
			Expect(profiles.Create(p)).To(Succeed())

			_, err = engine.Start(p.ID, usecase.StartOptions{})
			Expect(err).NotTo(HaveOccurred())

			now = now.Add(45 * time.Minute)
			tick()

			st, err := snapshots.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(st.ActiveSession).To(BeNil())

			ids, err := intervals.Activities()
			Expect(err).NotTo(HaveOccurred())
			Expect(ids).To(BeEmpty(), "one-shot expiry is dropped after firing")
		})
	})

	Describe("contention for the active slot", func() {
		It("lets a schedule take the slot from another profile's session", func() {
			scheduled := newScheduledProfile()

			other := &domain.Profile{
				Name:       "Manual Focus",
				Selection:  domain.RestrictionSelection(`{"apps":["news"]}`),
				StrategyID: strategy.ManualID,
			}
			Expect(profiles.Create(other)).To(Succeed())

			res, err := engine.Start(other.ID, usecase.StartOptions{})
			Expect(err).NotTo(HaveOccurred())
			userSessionID := res.Session.ID

			now = time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
			tick()

			st, err := snapshots.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(st.ActiveSession).NotTo(BeNil())
			Expect(st.ActiveSession.ProfileID).To(Equal(scheduled.ID))
			Expect(st.CompletedScheduledSessions).To(HaveLen(1))
			Expect(st.CompletedScheduledSessions[0].ID).To(Equal(userSessionID))

			// The foreground absorbs the displaced session into history and
			// adopts the schedule's session.
			sess, err := engine.LoadActiveSession()
			Expect(err).NotTo(HaveOccurred())
			Expect(sess).NotTo(BeNil())
			Expect(sess.ProfileID).To(Equal(scheduled.ID))
		})

		It("refuses a foreground start while a session is active", func() {
			p := newScheduledProfile()
			now = time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
			tick()

			_, err := engine.LoadActiveSession()
			Expect(err).NotTo(HaveOccurred())

			other := &domain.Profile{
				Name:       "Second",
				Selection:  domain.RestrictionSelection(`{"apps":["x"]}`),
				StrategyID: strategy.ManualID,
			}
			Expect(profiles.Create(other)).To(Succeed())

			_, err = engine.Start(other.ID, usecase.StartOptions{})
			Expect(err).To(MatchError(domain.ErrAlreadyActive))
			_ = p
		})
	})

	Describe("token-gated stops", func() {
		It("round-trips an NFC session through the real stores", func() {
			p := &domain.Profile{
				Name:       "Tagged",
				Selection:  domain.RestrictionSelection(`{"apps":["social"]}`),
				StrategyID: strategy.NFCID,
			}
			Expect(profiles.Create(p)).To(Succeed())

			scanner.Token = "physical-tag-1"
			_, err := engine.Start(p.ID, usecase.StartOptions{})
			Expect(err).NotTo(HaveOccurred())

			_, err = engine.Stop("some-other-tag")
			Expect(err).To(MatchError(domain.ErrMustUseOriginalTrigger))

			res, err := engine.Stop("physical-tag-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Outcome).To(Equal(usecase.OutcomeEnded))

			history, err := store.RecentSessions(p.ID, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(HaveLen(1))
			Expect(history[0].EndTime).NotTo(BeNil())
		})
	})
})
