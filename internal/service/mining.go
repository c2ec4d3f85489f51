package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rajvir-app/mining-server/internal/clock"
	"github.com/rajvir-app/mining-server/internal/config"
	"github.com/rajvir-app/mining-server/internal/mining"
)

// MiningService owns the registry of live mining sessions, one per account.
// A session is hydrated from the store on first access and stays resident
// until evicted; all state access goes through it, preserving the
// single-writer order of transitions.
type MiningService struct {
	store           mining.Store
	pub             mining.Publisher
	clock           clock.Clock
	secondsPerPoint int

	mu       sync.Mutex
	sessions map[string]*mining.Session
}

func NewMiningService(
	store mining.Store,
	pub mining.Publisher,
	clk clock.Clock,
	secondsPerPoint int,
) *MiningService {
	return &MiningService{
		store:           store,
		pub:             pub,
		clock:           clk,
		secondsPerPoint: secondsPerPoint,
		sessions:        make(map[string]*mining.Session),
	}
}

// GetSession returns the live session for an account, hydrating it from the
// store if needed. A missing stored record yields a session with defaults
// (local-only, unauthenticated use).
func (s *MiningService) GetSession(ctx context.Context, accountID string) (*mining.Session, error) {
	s.mu.Lock()
	if session, ok := s.sessions[accountID]; ok {
		s.mu.Unlock()
		return session, nil
	}
	s.mu.Unlock()

	user, err := s.store.Load(ctx, accountID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another request may have hydrated while we were loading.
	if session, ok := s.sessions[accountID]; ok {
		return session, nil
	}

	session := mining.NewSession(accountID, user, mining.SessionConfig{
		Store:           s.store,
		Publisher:       s.pub,
		Clock:           s.clock,
		SecondsPerPoint: s.secondsPerPoint,
		RechargeCost:    config.RechargeCost,
		TickInterval:    config.TickInterval,
	})
	s.sessions[accountID] = session

	log.Debug().Str("accountId", accountID).Msg("mining session hydrated")
	return session, nil
}

// Evict drops an account's in-memory session, halting its ticker. Used after
// admin writes to the backing record so the next access re-hydrates fresh
// state, and by the janitor.
func (s *MiningService) Evict(accountID string) {
	s.mu.Lock()
	session, ok := s.sessions[accountID]
	delete(s.sessions, accountID)
	s.mu.Unlock()

	if ok {
		session.Close()
		log.Debug().Str("accountId", accountID).Msg("mining session evicted")
	}
}

// SweepIdle evicts sessions that are not actively mining and have not been
// touched within maxIdle. Returns the number evicted.
func (s *MiningService) SweepIdle(maxIdle time.Duration) int {
	cutoff := s.clock.Now().Add(-maxIdle)

	s.mu.Lock()
	var stale []*mining.Session
	for id, session := range s.sessions {
		if !session.Active() && session.LastTouch().Before(cutoff) {
			stale = append(stale, session)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, session := range stale {
		session.Close()
	}
	return len(stale)
}

// Count returns the number of resident sessions.
func (s *MiningService) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Shutdown closes every session and flushes deferred writes.
func (s *MiningService) Shutdown(ctx context.Context) {
	s.mu.Lock()
	sessions := make([]*mining.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	s.sessions = make(map[string]*mining.Session)
	s.mu.Unlock()

	for _, session := range sessions {
		session.Close()
	}

	if flusher, ok := s.store.(mining.Flusher); ok {
		if err := flusher.Flush(ctx); err != nil {
			log.Error().Err(err).Msg("final flush failed")
		}
	}

	log.Info().Int("sessions", len(sessions)).Msg("mining service shut down")
}
