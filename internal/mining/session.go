package mining

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rajvir-app/mining-server/internal/clock"
	apperrors "github.com/rajvir-app/mining-server/internal/errors"
	"github.com/rajvir-app/mining-server/internal/model"
	"github.com/rajvir-app/mining-server/internal/util"
)

// TickUpdate is the display payload published on every tick and on every
// user-visible transition. DisplaySeconds is computed, never persisted.
type TickUpdate struct {
	DisplaySeconds int  `json:"displaySeconds"`
	TotalPoints    int  `json:"totalPoints"`
	PointsToday    int  `json:"pointsAwardedToday"`
	Active         bool `json:"miningActive"`
}

// Publisher fans display updates out to connected clients. Implementations
// must not block.
type Publisher interface {
	PublishTick(accountID string, update TickUpdate)
}

// Session owns one account's in-memory mining state. Every transition and
// every tick runs under one mutex, so the account sees a total order of
// state versions; persistence is fire-and-forget relative to mutation.
type Session struct {
	accountID       string
	clock           clock.Clock
	store           Store
	pub             Publisher
	secondsPerPoint int
	rechargeCost    int
	tickInterval    time.Duration

	mu        sync.Mutex
	snap      model.MiningSnapshot
	name      string
	avatar    *string
	language  string
	done      chan struct{} // non-nil while the ticker goroutine runs
	lastTouch time.Time
}

// SessionConfig carries the session's collaborators and tunables.
type SessionConfig struct {
	Store           Store
	Publisher       Publisher // optional
	Clock           clock.Clock
	SecondsPerPoint int
	RechargeCost    int
	TickInterval    time.Duration
}

// NewSession hydrates a session from a stored record, or from defaults when
// user is nil (unauthenticated local-only use). The daily reset is applied
// immediately: the boundary may have been crossed while the process was
// down. If the stored record says mining was active, the ticker resumes and
// the open interval keeps counting from its original start timestamp.
func NewSession(accountID string, user *model.User, cfg SessionConfig) *Session {
	now := cfg.Clock.Now()

	s := &Session{
		accountID:       accountID,
		clock:           cfg.Clock,
		store:           cfg.Store,
		pub:             cfg.Publisher,
		secondsPerPoint: cfg.SecondsPerPoint,
		rechargeCost:    cfg.RechargeCost,
		tickInterval:    cfg.TickInterval,
		name:            "User",
		language:        "en",
		lastTouch:       now,
	}

	if user != nil {
		s.snap = user.Mining()
		s.name = user.Name
		s.avatar = user.Avatar
		s.language = user.Language
	} else {
		s.snap = NewSnapshot(now)
	}

	s.mu.Lock()
	before := s.snap
	s.snap = ApplyReset(s.snap, now)
	if s.snap != before {
		s.saveMiningLocked()
	}
	if s.snap.Active {
		s.startTickerLocked()
	}
	s.mu.Unlock()

	return s
}

// Start begins an accrual session. No points are awarded immediately; a
// display update is published right away so clients don't wait out the
// first tick period.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	s.lastTouch = now
	s.snap = ApplyReset(s.snap, now)

	if s.snap.Active {
		return apperrors.MiningAlreadyActive()
	}

	startedAt := now
	s.snap.Active = true
	s.snap.StartedAt = &startedAt

	s.saveMiningLocked()
	s.publishLocked(now)
	s.startTickerLocked()

	log.Info().Str("accountId", s.accountID).Msg("mining started")
	return nil
}

// Stop banks the open session's elapsed seconds and halts the ticker. It is
// a guarded no-op when mining is not active.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	s.lastTouch = now
	s.snap = ApplyReset(s.snap, now)

	if !s.snap.Active {
		s.stopTickerLocked()
		return
	}

	if s.snap.StartedAt != nil {
		s.snap.SecondsToday += ElapsedSeconds(*s.snap.StartedAt, now)
	}
	s.snap.Active = false
	s.snap.StartedAt = nil

	s.stopTickerLocked()
	s.saveMiningLocked()
	s.publishLocked(now)

	log.Info().
		Str("accountId", s.accountID).
		Int("secondsToday", s.snap.SecondsToday).
		Msg("mining stopped")
}

// Tick runs one accrual step and publishes a display update. It returns
// false once mining is no longer active (stop or day rollover), which tells
// the ticker goroutine to exit.
func (s *Session) Tick() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	before := s.snap
	s.snap = Advance(s.snap, now, s.secondsPerPoint)
	if s.snap != before {
		s.saveMiningLocked()
	}
	s.publishLocked(now)

	if !s.snap.Active {
		s.stopTickerLocked()
		return false
	}
	return true
}

// UpdateProfile validates and replaces the display profile atomically.
func (s *Session) UpdateProfile(name string, avatar *string) error {
	if !util.IsValidProfileName(name) {
		return apperrors.InvalidInput("name", "must be 1-30 characters")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastTouch = s.clock.Now()
	s.name = name
	s.avatar = avatar
	s.saveLocked(model.StateDelta{Profile: &model.ProfileDelta{Name: name, Avatar: avatar}})
	return nil
}

// SetLanguage updates the language preference. No invariant impact.
func (s *Session) SetLanguage(code string) error {
	if code == "" {
		return apperrors.MissingRequired("language")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastTouch = s.clock.Now()
	s.language = code
	lang := code
	s.saveLocked(model.StateDelta{Language: &lang})
	return nil
}

// Recharge spends the fixed point cost against a destination number.
// The balance check and the deduction are one atomic step with respect to
// concurrent ticks. The history append goes to the store directly, outside
// the debounce window; if it fails the in-memory deduction stands and the
// record is returned unsaved (last increment may be lost on crash, which is
// the accepted tradeoff).
func (s *Session) Recharge(ctx context.Context, destination string) (*model.RechargeRecord, error) {
	if !util.IsValidDestination(destination) {
		return nil, apperrors.InvalidInput("destination", "must be a 6-15 digit number")
	}

	s.mu.Lock()
	now := s.clock.Now()
	s.lastTouch = now
	s.snap = ApplyReset(s.snap, now)

	if s.snap.TotalPoints < s.rechargeCost {
		available := s.snap.TotalPoints
		s.mu.Unlock()
		return nil, apperrors.InsufficientPoints(s.rechargeCost, available)
	}

	s.snap.TotalPoints -= s.rechargeCost
	s.saveMiningLocked()
	s.publishLocked(now)
	cost := s.rechargeCost
	s.mu.Unlock()

	record, err := s.store.AppendRecharge(ctx, model.CreateRechargeParams{
		UserID:      s.accountID,
		Destination: destination,
		Points:      cost,
	})
	if err != nil {
		log.Error().Err(err).Str("accountId", s.accountID).Msg("failed to append recharge record")
		return &model.RechargeRecord{
			UserID:      s.accountID,
			Destination: destination,
			Points:      cost,
			Status:      model.RechargeStatusPending,
			CreatedAt:   now,
		}, nil
	}

	log.Info().
		Str("accountId", s.accountID).
		Str("destination", destination).
		Int("points", cost).
		Msg("recharge completed")
	return record, nil
}

// Snapshot returns the current accrual state, applying the daily reset
// first so reads across a day boundary never show yesterday's counters.
func (s *Session) Snapshot() model.MiningSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	before := s.snap
	s.snap = ApplyReset(s.snap, now)
	if s.snap != before {
		s.stopTickerLocked()
		s.saveMiningLocked()
	}
	return s.snap
}

// DisplaySeconds is the UI-facing elapsed value: banked seconds plus the
// open session.
func (s *Session) DisplaySeconds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return LiveSeconds(s.snap, s.clock.Now())
}

func (s *Session) Profile() (name string, avatar *string, language string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name, s.avatar, s.language
}

// Active reports whether the accrual clock is currently running.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Active
}

// LastTouch is the last time a caller interacted with this session; the
// janitor uses it to evict idle entries.
func (s *Session) LastTouch() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTouch
}

// Close halts the ticker goroutine. It does not stop mining: an active
// session keeps accruing from its start timestamp and resumes ticking when
// the account is re-hydrated.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTickerLocked()
}

func (s *Session) startTickerLocked() {
	if s.done != nil || s.tickInterval <= 0 {
		return
	}
	done := make(chan struct{})
	s.done = done
	go s.run(done)
}

func (s *Session) stopTickerLocked() {
	if s.done != nil {
		close(s.done)
		s.done = nil
	}
}

func (s *Session) run(done chan struct{}) {
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if !s.Tick() {
				return
			}
		}
	}
}

func (s *Session) saveMiningLocked() {
	snap := s.snap
	s.saveLocked(model.StateDelta{Mining: &snap})
}

func (s *Session) saveLocked(delta model.StateDelta) {
	if err := s.store.Save(context.Background(), s.accountID, delta); err != nil {
		log.Error().Err(err).Str("accountId", s.accountID).Msg("state save failed")
	}
}

func (s *Session) publishLocked(now time.Time) {
	if s.pub == nil {
		return
	}
	s.pub.PublishTick(s.accountID, TickUpdate{
		DisplaySeconds: LiveSeconds(s.snap, now),
		TotalPoints:    s.snap.TotalPoints,
		PointsToday:    s.snap.PointsToday,
		Active:         s.snap.Active,
	})
}
