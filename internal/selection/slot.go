package selection

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vidshare/vidshare_server/internal/storage"
)

// sniffLen matches the header size mimetype inspects by default.
const sniffLen = 3072

type SlotConfig struct {
	Kind    Kind
	OwnerID string
	// Prefix is the storage directory staged files of this slot are written under.
	Prefix string
}

// Slot holds at most one selected file and exactly one live preview reference for it.
type Slot struct {
	config   SlotConfig
	backend  storage.Backend
	previews *PreviewRegistry
	prober   DurationProber
	input    InputControl

	mu         sync.Mutex
	file       *SelectedFile
	previewRef string
	generation uint64
	probes     sync.WaitGroup
}

func NewSlot(config SlotConfig, backend storage.Backend, previews *PreviewRegistry, prober DurationProber, input InputControl) *Slot {
	if input == nil {
		input = &BoundInput{}
	}
	return &Slot{
		config:   config,
		backend:  backend,
		previews: previews,
		prober:   prober,
		input:    input,
	}
}

// Select stages raw and makes it the slot's file. On rejection the previous
// selection is left untouched.
func (s *Slot) Select(ctx context.Context, raw RawFile, maxSizeBytes int64) (*SelectedFile, error) {
	if raw.Size > maxSizeBytes {
		return nil, fmt.Errorf("%w: file size should be less than %dMB", ErrFileTooLarge, maxSizeBytes/(1024*1024))
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(raw.Body, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	head = head[:n]

	contentType, ext := detect(head, raw.ContentType)
	if kindOf(contentType) != s.config.Kind {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrWrongMediaType, s.config.Kind, contentType)
	}

	path := fmt.Sprintf("%s/%s%s", s.config.Prefix, uuid.NewString(), ext)
	body := io.LimitReader(io.MultiReader(bytes.NewReader(head), raw.Body), maxSizeBytes+1)

	written, err := s.backend.Store(ctx, path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to stage file: %w", err)
	}
	if written > maxSizeBytes {
		s.backend.Delete(ctx, path)
		return nil, fmt.Errorf("%w: file size should be less than %dMB", ErrFileTooLarge, maxSizeBytes/(1024*1024))
	}

	blob := &Blob{
		name:        raw.Name,
		contentType: contentType,
		size:        written,
		path:        path,
		backend:     s.backend,
	}
	ref := s.previews.Acquire(ctx, s.config.OwnerID, blob, s.config.Kind)

	selected := &SelectedFile{Blob: blob, Kind: s.config.Kind, SizeBytes: written}

	s.mu.Lock()
	prevFile, prevRef := s.file, s.previewRef
	s.file = selected
	s.previewRef = ref
	s.generation++
	generation := s.generation
	s.mu.Unlock()

	s.drop(ctx, prevFile, prevRef)
	s.input.SetValue(raw.Name)

	if s.config.Kind == KindVideo && s.prober != nil {
		s.probes.Add(1)
		go s.probeDuration(s.prober, generation, blob)
	}

	log.Debug().
		Str("owner", s.config.OwnerID).
		Str("kind", string(s.config.Kind)).
		Str("contentType", contentType).
		Int64("sizeBytes", written).
		Msg("File selected")

	copied := *selected
	return &copied, nil
}

func (s *Slot) probeDuration(prober DurationProber, generation uint64, blob *Blob) {
	defer s.probes.Done()

	seconds := wholeSeconds(prober.Probe(context.Background(), blob))

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != generation || s.file == nil {
		return
	}
	s.file.DurationSeconds = seconds
}

// Reset releases the preview reference, discards the staged file and clears the input.
func (s *Slot) Reset(ctx context.Context) {
	s.mu.Lock()
	prevFile, prevRef := s.file, s.previewRef
	s.file = nil
	s.previewRef = ""
	s.generation++
	s.mu.Unlock()

	s.drop(ctx, prevFile, prevRef)
	s.input.Clear()
}

// Close resets the slot and waits for outstanding probes.
func (s *Slot) Close(ctx context.Context) {
	s.Reset(ctx)
	s.probes.Wait()
}

func (s *Slot) drop(ctx context.Context, file *SelectedFile, ref string) {
	if ref != "" {
		s.previews.Release(ctx, ref)
	}
	if file != nil {
		if err := file.Blob.discard(ctx); err != nil {
			log.Warn().Err(err).Str("path", file.Blob.Path()).Msg("Failed to discard staged file")
		}
	}
}

// File returns a snapshot of the current selection, or nil.
func (s *Slot) File() *SelectedFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	copied := *s.file
	return &copied
}

func (s *Slot) PreviewRef() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.previewRef
}

// Duration is the derived duration in seconds, 0 while unknown.
func (s *Slot) Duration() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return 0
	}
	return s.file.DurationSeconds
}

func detect(head []byte, declared string) (contentType, ext string) {
	detected := mimetype.Detect(head)
	if kindOf(detected.String()) != "" {
		return detected.String(), detected.Extension()
	}

	if declaredType := mimetype.Lookup(declared); declaredType != nil {
		return declaredType.String(), declaredType.Extension()
	}
	return declared, ""
}
