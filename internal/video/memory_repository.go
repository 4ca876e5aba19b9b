package video

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

type MemoryRepository struct {
	mu     sync.RWMutex
	videos map[string]*VideoRecord
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{videos: make(map[string]*VideoRecord)}
}

func (r *MemoryRepository) Create(_ context.Context, record *VideoRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.videos[record.VideoID]; exists {
		return fmt.Errorf("failed to create video: %s already exists", record.VideoID)
	}
	copied := *record
	r.videos[record.VideoID] = &copied
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, videoID string) (*VideoRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.videos[videoID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *record
	return &copied, nil
}

func (r *MemoryRepository) ListByOwner(_ context.Context, ownerUserID string, includePrivate bool, titleQuery string) ([]*VideoRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	needle := strings.ToLower(titleQuery)
	records := []*VideoRecord{}
	for _, record := range r.videos {
		if record.OwnerUserID != ownerUserID {
			continue
		}
		if !includePrivate && record.Visibility != VisibilityPublic {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(record.Title), needle) {
			continue
		}
		copied := *record
		records = append(records, &copied)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt > records[j].CreatedAt
	})
	return records, nil
}

func (r *MemoryRepository) IncrementViews(_ context.Context, videoID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.videos[videoID]
	if !ok {
		return 0, ErrNotFound
	}
	record.Views++
	return record.Views, nil
}

// Len reports how many records are stored.
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.videos)
}
