package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/vidshare/vidshare_server/internal/transport"
)

type presigner interface {
	PresignedPut(ctx context.Context, path string) (string, error)
	PublicURL(path string) string
}

// S3ThumbnailTargets issues presigned thumbnail destinations in an S3-compatible bucket.
type S3ThumbnailTargets struct {
	store presigner
	now   func() time.Time
}

func NewS3ThumbnailTargets(store *S3Storage) *S3ThumbnailTargets {
	return &S3ThumbnailTargets{store: store, now: time.Now}
}

func (t *S3ThumbnailTargets) ThumbnailTarget(ctx context.Context, videoID string) (*transport.Target, error) {
	path := ThumbnailObjectName(t.now(), videoID)

	uploadURL, err := t.store.PresignedPut(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to presign thumbnail upload: %w", err)
	}

	return &transport.Target{
		ResourceID:     videoID,
		DestinationURL: uploadURL,
		PublicURL:      t.store.PublicURL(path),
	}, nil
}
