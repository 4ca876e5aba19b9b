package bunny

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vidshare/vidshare_server/internal/storage"
	"github.com/vidshare/vidshare_server/internal/transport"
)

// StorageTargets builds thumbnail destinations in a Bunny Storage zone.
// Paths are predictable, so no remote call is needed to obtain one.
type StorageTargets struct {
	baseURL   string
	cdnURL    string
	accessKey string
	now       func() time.Time
}

func NewStorageTargets(config Config) *StorageTargets {
	return &StorageTargets{
		baseURL:   strings.TrimSuffix(config.StorageBaseURL, "/"),
		cdnURL:    strings.TrimSuffix(config.CDNURL, "/"),
		accessKey: config.StorageAccessKey,
		now:       time.Now,
	}
}

func (t *StorageTargets) ThumbnailTarget(ctx context.Context, videoID string) (*transport.Target, error) {
	if videoID == "" {
		return nil, fmt.Errorf("video id is required for a thumbnail target")
	}

	path := storage.ThumbnailObjectName(t.now(), videoID)
	return &transport.Target{
		ResourceID:     videoID,
		DestinationURL: fmt.Sprintf("%s/%s", t.baseURL, path),
		Credential:     t.accessKey,
		PublicURL:      fmt.Sprintf("%s/%s", t.cdnURL, path),
	}, nil
}
