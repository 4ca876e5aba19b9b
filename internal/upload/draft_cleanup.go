package upload

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// CleanupScheduler periodically evicts drafts that have been idle for longer than ttl.
type CleanupScheduler struct {
	drafts   *DraftStore
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
}

func NewCleanupScheduler(drafts *DraftStore, ttl time.Duration) *CleanupScheduler {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	interval := ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}

	return &CleanupScheduler{
		drafts:   drafts,
		ttl:      ttl,
		interval: interval,
		now:      time.Now,
	}
}

// Run evicts on every tick until ctx is done.
func (cs *CleanupScheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(cs.interval)
	defer ticker.Stop()

	log.Info().
		Dur("ttl", cs.ttl).
		Dur("interval", cs.interval).
		Msg("Draft cleanup scheduler started")

	for {
		select {
		case <-ticker.C:
			cs.RunNow(ctx)
		case <-ctx.Done():
			log.Info().Msg("Stopping draft cleanup scheduler")
			return nil
		}
	}
}

func (cs *CleanupScheduler) RunNow(ctx context.Context) int {
	evicted := cs.drafts.EvictIdle(ctx, cs.now().Add(-cs.ttl))
	if evicted > 0 {
		log.Info().
			Int("evictedCount", evicted).
			Msg("Idle drafts evicted")
	}
	return evicted
}
