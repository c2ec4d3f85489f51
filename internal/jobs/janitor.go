package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rajvir-app/mining-server/internal/repository"
	"github.com/rajvir-app/mining-server/internal/service"
)

// Janitor periodically evicts idle mining sessions and purges expired admin
// sessions. The admin session repo is nil in standalone mode.
type Janitor struct {
	miningService    *service.MiningService
	adminSessionRepo repository.AdminSessionRepository
	maxIdle          time.Duration
	interval         time.Duration
	done             chan struct{}
}

func NewJanitor(
	miningService *service.MiningService,
	adminSessionRepo repository.AdminSessionRepository,
	maxIdle, interval time.Duration,
) *Janitor {
	return &Janitor{
		miningService:    miningService,
		adminSessionRepo: adminSessionRepo,
		maxIdle:          maxIdle,
		interval:         interval,
		done:             make(chan struct{}),
	}
}

func (j *Janitor) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("janitor started")
}

func (j *Janitor) Stop() {
	close(j.done)
	log.Info().Msg("janitor stopped")
}

func (j *Janitor) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

func (j *Janitor) sweep() {
	if evicted := j.miningService.SweepIdle(j.maxIdle); evicted > 0 {
		log.Info().Int("count", evicted).Msg("evicted idle mining sessions")
	}

	if j.adminSessionRepo == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := j.adminSessionRepo.DeleteExpired(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to cleanup admin sessions")
	} else if count > 0 {
		log.Info().Int64("count", count).Msg("cleaned up admin sessions")
	}
}
