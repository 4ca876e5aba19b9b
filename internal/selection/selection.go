package selection

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/vidshare/vidshare_server/internal/storage"
)

var (
	ErrFileTooLarge   = errors.New("file too large")
	ErrWrongMediaType = errors.New("wrong media type")
)

type Kind string

const (
	KindVideo Kind = "video"
	KindImage Kind = "image"
)

func kindOf(contentType string) Kind {
	switch {
	case strings.HasPrefix(contentType, "video/"):
		return KindVideo
	case strings.HasPrefix(contentType, "image/"):
		return KindImage
	default:
		return ""
	}
}

// RawFile is what the file picker hands over: a name, a declared type and the bytes.
type RawFile struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Blob is the staged binary handle of a selected file.
type Blob struct {
	name        string
	contentType string
	size        int64
	path        string
	backend     storage.Backend
}

func (b *Blob) Name() string      { return b.name }
func (b *Blob) MediaType() string { return b.contentType }
func (b *Blob) Len() int64        { return b.size }
func (b *Blob) Path() string      { return b.path }

func (b *Blob) Open(ctx context.Context) (io.ReadCloser, error) {
	return b.backend.Get(ctx, b.path)
}

func (b *Blob) discard(ctx context.Context) error {
	return b.backend.Delete(ctx, b.path)
}

type SelectedFile struct {
	Blob            *Blob
	Kind            Kind
	SizeBytes       int64
	DurationSeconds int
}

// InputControl is the hosting UI's handle for the picker bound to a slot.
type InputControl interface {
	SetValue(value string)
	Clear()
}

// BoundInput mirrors the value of a file input as the server last saw it.
type BoundInput struct {
	mu    sync.Mutex
	value string
}

func (b *BoundInput) SetValue(value string) {
	b.mu.Lock()
	b.value = value
	b.mu.Unlock()
}

func (b *BoundInput) Clear() {
	b.SetValue("")
}

func (b *BoundInput) Value() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.value
}
