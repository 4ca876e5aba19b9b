package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_StoreGetDelete(t *testing.T) {
	// given
	ctx := context.Background()
	backend, err := NewLocalStorage(&BackendConfig{LocalPath: t.TempDir()})
	require.NoError(t, err)

	// when
	n, err := backend.Store(ctx, "staging/user-1/video/a.mp4", strings.NewReader("hello"))

	// then
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	reader, err := backend.Get(ctx, "staging/user-1/video/a.mp4")
	require.NoError(t, err)
	data, _ := io.ReadAll(reader)
	reader.Close()
	assert.Equal(t, "hello", string(data))

	require.NoError(t, backend.Delete(ctx, "staging/user-1/video/a.mp4"))
	exists, err := backend.Exists(ctx, "staging/user-1/video/a.mp4")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLocalStorage_GetMissing_ShouldReturnNotFound(t *testing.T) {
	backend, err := NewLocalStorage(&BackendConfig{LocalPath: t.TempDir()})
	require.NoError(t, err)

	_, err = backend.Get(context.Background(), "nope")

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStorage_ShouldRejectPathsEscapingBase(t *testing.T) {
	backend, err := NewLocalStorage(&BackendConfig{LocalPath: t.TempDir()})
	require.NoError(t, err)

	_, err = backend.Store(context.Background(), "../../etc/passwd", strings.NewReader("x"))

	assert.Error(t, err)
}

func TestNewBackend_ShouldRejectUnknownType(t *testing.T) {
	_, err := NewBackend(&BackendConfig{Type: "ftp"})

	assert.Error(t, err)
}

type fakePresigner struct {
	err error
}

func (f *fakePresigner) PresignedPut(ctx context.Context, path string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "https://bucket.test/" + path + "?X-Amz-Signature=sig", nil
}

func (f *fakePresigner) PublicURL(path string) string {
	return "https://cdn.test/" + path
}

func TestS3ThumbnailTargets_ShouldPresignWithoutCredential(t *testing.T) {
	// given
	targets := &S3ThumbnailTargets{store: &fakePresigner{}, now: func() time.Time { return time.UnixMilli(1000) }}

	// when
	target, err := targets.ThumbnailTarget(context.Background(), "vid")

	// then
	require.NoError(t, err)
	assert.Equal(t, "https://bucket.test/thumbnails/1000-vid-thumbnail?X-Amz-Signature=sig", target.DestinationURL)
	assert.Equal(t, "https://cdn.test/thumbnails/1000-vid-thumbnail", target.PublicURL)
	assert.Empty(t, target.Credential)
}

func TestS3ThumbnailTargets_ShouldWrapPresignFailure(t *testing.T) {
	boom := errors.New("boom")
	targets := &S3ThumbnailTargets{store: &fakePresigner{err: boom}, now: time.Now}

	_, err := targets.ThumbnailTarget(context.Background(), "vid")

	assert.ErrorIs(t, err, boom)
}
