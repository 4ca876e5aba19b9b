package video

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/vidshare/vidshare_server/internal/user"
)

type Service struct {
	repository Repository
	sessions   SessionProvider
	users      UserLookup
	now        func() time.Time
}

func NewService(repository Repository, sessions SessionProvider, users UserLookup) *Service {
	return &Service{
		repository: repository,
		sessions:   sessions,
		users:      users,
		now:        time.Now,
	}
}

// Persist stores record under the identity resolved from headers. The session
// is looked up once per call; the caller supplies the video id.
func (s *Service) Persist(ctx context.Context, headers user.Headers, record *VideoRecord) error {
	session, err := s.sessions.GetSession(headers)
	if err != nil {
		return err
	}
	if session == nil {
		return user.ErrUnauthenticated
	}
	if strings.TrimSpace(record.VideoID) == "" {
		return errors.New("video id is required")
	}

	visibility, err := ParseVisibility(string(record.Visibility))
	if err != nil {
		return fmt.Errorf("%w: %q", err, record.Visibility)
	}

	now := s.now().Unix()
	record.Visibility = visibility
	record.OwnerUserID = session.ID
	record.Views = 0
	record.CreatedAt = now
	record.UpdatedAt = now

	if err := s.repository.Create(ctx, record); err != nil {
		return err
	}

	log.Info().
		Str("videoId", record.VideoID).
		Str("userId", record.OwnerUserID).
		Str("visibility", string(record.Visibility)).
		Int("duration", record.DurationSeconds).
		Msg("Video record persisted")
	return nil
}

// GetDetail returns the record and its owner. Private videos are reported as
// missing to anyone but their owner.
func (s *Service) GetDetail(ctx context.Context, videoID string, viewer *user.User) (*VideoWithOwner, error) {
	record, err := s.repository.GetByID(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if !canView(record, viewer) {
		return nil, ErrNotFound
	}

	owner, err := s.users.GetUser(record.OwnerUserID)
	if err != nil {
		if !errors.Is(err, user.ErrUserNotFound) {
			return nil, fmt.Errorf("failed to load video owner: %w", err)
		}
		owner = nil
	}
	return &VideoWithOwner{Video: record, Owner: owner}, nil
}

func (s *Service) ListByOwner(ctx context.Context, ownerUserID string, viewer *user.User, titleQuery string) ([]*VideoRecord, error) {
	includePrivate := viewer != nil && viewer.ID == ownerUserID
	return s.repository.ListByOwner(ctx, ownerUserID, includePrivate, strings.TrimSpace(titleQuery))
}

// RecordView counts a view. Private videos count only their owner's views and
// are reported as missing to everyone else.
func (s *Service) RecordView(ctx context.Context, videoID string, viewer *user.User) (int64, error) {
	record, err := s.repository.GetByID(ctx, videoID)
	if err != nil {
		return 0, err
	}
	if !canView(record, viewer) {
		return 0, ErrNotFound
	}
	return s.repository.IncrementViews(ctx, videoID)
}

func canView(record *VideoRecord, viewer *user.User) bool {
	if record.Visibility != VisibilityPrivate {
		return true
	}
	return viewer != nil && viewer.ID == record.OwnerUserID
}
