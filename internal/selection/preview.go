package selection

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vidshare/vidshare_server/internal/storage"
)

const (
	maxPreviewWidth  = 300
	maxPreviewHeight = 300
)

var ErrPreviewNotFound = errors.New("preview not found")

type Preview struct {
	Ref         string
	OwnerID     string
	ContentType string
	path        string
	// derived previews are renditions owned by the registry; others point at the staged blob.
	derived bool
}

// PreviewRegistry hands out preview references and tracks which are live.
type PreviewRegistry struct {
	backend storage.Backend
	mu      sync.Mutex
	live    map[string]*Preview
}

func NewPreviewRegistry(backend storage.Backend) *PreviewRegistry {
	return &PreviewRegistry{
		backend: backend,
		live:    make(map[string]*Preview),
	}
}

func (r *PreviewRegistry) Acquire(ctx context.Context, ownerID string, blob *Blob, kind Kind) string {
	preview := &Preview{
		Ref:         uuid.NewString(),
		OwnerID:     ownerID,
		ContentType: blob.MediaType(),
		path:        blob.Path(),
	}

	if kind == KindImage {
		if err := r.render(ctx, preview, blob); err != nil {
			log.Warn().Err(err).Str("path", blob.Path()).Msg("Failed to render image preview, serving original")
		}
	}

	r.mu.Lock()
	r.live[preview.Ref] = preview
	r.mu.Unlock()

	return preview.Ref
}

func (r *PreviewRegistry) render(ctx context.Context, preview *Preview, blob *Blob) error {
	src, err := blob.Open(ctx)
	if err != nil {
		return err
	}
	defer src.Close()

	img, err := imaging.Decode(src, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}

	fitted := imaging.Fit(img, maxPreviewWidth, maxPreviewHeight, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, fitted, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		return fmt.Errorf("failed to encode preview: %w", err)
	}

	path := fmt.Sprintf("previews/%s.jpg", preview.Ref)
	if _, err := r.backend.Store(ctx, path, &buf); err != nil {
		return fmt.Errorf("failed to store preview: %w", err)
	}

	preview.path = path
	preview.ContentType = "image/jpeg"
	preview.derived = true
	return nil
}

// Release drops a reference. It reports false when ref was not live.
func (r *PreviewRegistry) Release(ctx context.Context, ref string) bool {
	r.mu.Lock()
	preview, ok := r.live[ref]
	delete(r.live, ref)
	r.mu.Unlock()

	if !ok {
		return false
	}

	if preview.derived {
		if err := r.backend.Delete(ctx, preview.path); err != nil {
			log.Warn().Err(err).Str("path", preview.path).Msg("Failed to delete preview")
		}
	}
	return true
}

func (r *PreviewRegistry) Open(ctx context.Context, ref, ownerID string) (io.ReadCloser, *Preview, error) {
	r.mu.Lock()
	preview, ok := r.live[ref]
	r.mu.Unlock()

	if !ok || preview.OwnerID != ownerID {
		return nil, nil, ErrPreviewNotFound
	}

	reader, err := r.backend.Get(ctx, preview.path)
	if err != nil {
		return nil, nil, err
	}
	return reader, preview, nil
}

func (r *PreviewRegistry) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}
