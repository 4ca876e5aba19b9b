package video

import (
	"context"
	"errors"
	"strings"

	"github.com/vidshare/vidshare_server/internal/user"
)

var (
	ErrNotFound          = errors.New("video not found")
	ErrInvalidVisibility = errors.New("invalid visibility")
)

type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// ParseVisibility maps an empty value to public.
func ParseVisibility(value string) (Visibility, error) {
	switch Visibility(strings.ToLower(strings.TrimSpace(value))) {
	case "", VisibilityPublic:
		return VisibilityPublic, nil
	case VisibilityPrivate:
		return VisibilityPrivate, nil
	default:
		return "", ErrInvalidVisibility
	}
}

type VideoRecord struct {
	VideoID         string     `json:"videoId" db:"video_id"`
	Title           string     `json:"title" db:"title"`
	Description     string     `json:"description" db:"description"`
	Visibility      Visibility `json:"visibility" db:"visibility"`
	ThumbnailURL    string     `json:"thumbnailUrl" db:"thumbnail_url"`
	VideoURL        string     `json:"videoUrl" db:"video_url"`
	DurationSeconds int        `json:"duration" db:"duration_seconds"`
	OwnerUserID     string     `json:"userId" db:"owner_user_id"`
	Views           int64      `json:"views" db:"views"`
	CreatedAt       int64      `json:"createdAt" db:"created_at"`
	UpdatedAt       int64      `json:"updatedAt" db:"updated_at"`
}

type VideoWithOwner struct {
	Video *VideoRecord `json:"video"`
	Owner *user.User   `json:"user"`
}

type Repository interface {
	Create(ctx context.Context, record *VideoRecord) error
	GetByID(ctx context.Context, videoID string) (*VideoRecord, error)
	// ListByOwner returns newest first. An empty titleQuery matches all titles.
	ListByOwner(ctx context.Context, ownerUserID string, includePrivate bool, titleQuery string) ([]*VideoRecord, error)
	IncrementViews(ctx context.Context, videoID string) (int64, error)
}

type SessionProvider interface {
	GetSession(headers user.Headers) (*user.User, error)
}

type UserLookup interface {
	GetUser(id string) (*user.User, error)
}
