package upload

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/vidshare/vidshare_server/internal/selection"
	"github.com/vidshare/vidshare_server/internal/storage"
)

// DraftStore keeps one Draft per signed-in user.
type DraftStore struct {
	backend  storage.Backend
	previews *selection.PreviewRegistry
	prober   selection.DurationProber
	limits   Limits

	mu     sync.Mutex
	drafts map[string]*Draft
}

func NewDraftStore(backend storage.Backend, previews *selection.PreviewRegistry, prober selection.DurationProber, limits Limits) *DraftStore {
	return &DraftStore{
		backend:  backend,
		previews: previews,
		prober:   prober,
		limits:   limits,
		drafts:   make(map[string]*Draft),
	}
}

// Get returns the owner's draft, creating an empty one on first use.
func (s *DraftStore) Get(ownerID string) *Draft {
	s.mu.Lock()
	defer s.mu.Unlock()

	if draft, ok := s.drafts[ownerID]; ok && !draft.closed.Load() {
		return draft
	}
	draft := NewDraft(ownerID, s.backend, s.previews, s.prober, s.limits)
	s.drafts[ownerID] = draft
	return draft
}

func (s *DraftStore) Stats() (drafts, submitting int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	drafts = len(s.drafts)
	for _, draft := range s.drafts {
		if draft.Submitting() {
			submitting++
		}
	}
	return
}

// EvictIdle closes drafts untouched since before cutoff. Drafts with a
// submission in flight are skipped.
func (s *DraftStore) EvictIdle(ctx context.Context, cutoff time.Time) int {
	s.mu.Lock()
	candidates := make(map[string]*Draft)
	for ownerID, draft := range s.drafts {
		if draft.idleSince().Before(cutoff) {
			candidates[ownerID] = draft
		}
	}
	s.mu.Unlock()

	evicted := 0
	for ownerID, draft := range candidates {
		if err := draft.closeIfIdle(ctx, cutoff); err != nil {
			log.Debug().Err(err).Str("userId", ownerID).Msg("Skipping busy draft")
			continue
		}
		s.mu.Lock()
		if s.drafts[ownerID] == draft {
			delete(s.drafts, ownerID)
		}
		s.mu.Unlock()
		evicted++
	}
	return evicted
}

func (s *DraftStore) CloseAll(ctx context.Context) {
	s.mu.Lock()
	drafts := s.drafts
	s.drafts = make(map[string]*Draft)
	s.mu.Unlock()

	for ownerID, draft := range drafts {
		if err := draft.Close(ctx); err != nil {
			log.Warn().Err(err).Str("userId", ownerID).Msg("Draft still submitting at shutdown")
		}
	}
}
