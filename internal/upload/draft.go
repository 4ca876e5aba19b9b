package upload

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vidshare/vidshare_server/internal/selection"
	"github.com/vidshare/vidshare_server/internal/storage"
)

var (
	ErrDraftClosed = errors.New("draft closed")
	errDraftActive = errors.New("draft used since cutoff")
)

// Draft is one user's upload page state: two file slots, the form fields and
// the outcome of the last submission.
type Draft struct {
	ownerID   string
	limits    Limits
	video     *selection.Slot
	thumbnail *selection.Slot

	videoInput     *selection.BoundInput
	thumbnailInput *selection.BoundInput

	// opMu serializes mutations with the start of a submission.
	opMu        sync.Mutex
	closed      atomic.Bool
	inProgress  atomic.Bool
	lastTouched atomic.Int64

	mu          sync.Mutex
	form        FormFields
	status      Status
	lastError   string
	lastVideoID string
}

func NewDraft(ownerID string, backend storage.Backend, previews *selection.PreviewRegistry, prober selection.DurationProber, limits Limits) *Draft {
	d := &Draft{
		ownerID:        ownerID,
		limits:         limits,
		videoInput:     &selection.BoundInput{},
		thumbnailInput: &selection.BoundInput{},
		form:           DefaultFormFields(),
		status:         StatusIdle,
	}
	d.video = selection.NewSlot(selection.SlotConfig{
		Kind:    selection.KindVideo,
		OwnerID: ownerID,
		Prefix:  fmt.Sprintf("staging/%s/video", ownerID),
	}, backend, previews, prober, d.videoInput)
	d.thumbnail = selection.NewSlot(selection.SlotConfig{
		Kind:    selection.KindImage,
		OwnerID: ownerID,
		Prefix:  fmt.Sprintf("staging/%s/thumbnail", ownerID),
	}, backend, previews, nil, d.thumbnailInput)
	d.touch()
	return d
}

func (d *Draft) OwnerID() string { return d.ownerID }

func (d *Draft) Submitting() bool { return d.inProgress.Load() }

func (d *Draft) SelectVideo(ctx context.Context, raw selection.RawFile) (*selection.SelectedFile, error) {
	return d.selectInto(ctx, d.video, raw, d.limits.MaxVideoSizeBytes)
}

func (d *Draft) SelectThumbnail(ctx context.Context, raw selection.RawFile) (*selection.SelectedFile, error) {
	return d.selectInto(ctx, d.thumbnail, raw, d.limits.MaxThumbnailSizeBytes)
}

func (d *Draft) selectInto(ctx context.Context, slot *selection.Slot, raw selection.RawFile, maxSizeBytes int64) (*selection.SelectedFile, error) {
	var selected *selection.SelectedFile
	err := d.mutate(func() error {
		var err error
		selected, err = slot.Select(ctx, raw, maxSizeBytes)
		if err != nil {
			d.setError(selectionMessage(err, maxSizeBytes))
		}
		return err
	})
	return selected, err
}

func (d *Draft) ClearVideo(ctx context.Context) error {
	return d.mutate(func() error {
		d.video.Reset(ctx)
		return nil
	})
}

func (d *Draft) ClearThumbnail(ctx context.Context) error {
	return d.mutate(func() error {
		d.thumbnail.Reset(ctx)
		return nil
	})
}

func (d *Draft) UpdateForm(fields FormFields) error {
	fields, err := fields.normalized()
	if err != nil {
		return err
	}
	return d.mutate(func() error {
		d.mu.Lock()
		d.form = fields
		d.mu.Unlock()
		return nil
	})
}

func (d *Draft) Form() FormFields {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.form
}

func (d *Draft) LastError() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastError
}

// Close releases both slots. A submission in flight keeps the draft open.
func (d *Draft) Close(ctx context.Context) error {
	d.opMu.Lock()
	defer d.opMu.Unlock()
	return d.closeLocked(ctx)
}

// closeIfIdle closes the draft only if it has not been touched since cutoff.
// The check runs under opMu, so a mutation racing the eviction keeps the draft.
func (d *Draft) closeIfIdle(ctx context.Context, cutoff time.Time) error {
	d.opMu.Lock()
	defer d.opMu.Unlock()
	if !d.idleSince().Before(cutoff) {
		return errDraftActive
	}
	return d.closeLocked(ctx)
}

func (d *Draft) closeLocked(ctx context.Context) error {
	if d.inProgress.Load() {
		return ErrSubmissionInProgress
	}
	if d.closed.Swap(true) {
		return nil
	}
	d.video.Close(ctx)
	d.thumbnail.Close(ctx)
	return nil
}

func (d *Draft) mutate(fn func() error) error {
	d.opMu.Lock()
	defer d.opMu.Unlock()
	if d.closed.Load() {
		return ErrDraftClosed
	}
	if d.inProgress.Load() {
		return ErrSubmissionInProgress
	}
	d.touch()
	return fn()
}

func (d *Draft) begin() error {
	d.opMu.Lock()
	defer d.opMu.Unlock()
	if d.closed.Load() {
		return ErrDraftClosed
	}
	if !d.inProgress.CompareAndSwap(false, true) {
		return ErrSubmissionInProgress
	}
	d.touch()
	d.mu.Lock()
	d.status = StatusSubmitting
	d.lastError = ""
	d.mu.Unlock()
	return nil
}

func (d *Draft) end() {
	d.touch()
	d.inProgress.Store(false)
}

// succeed clears both selections and the form after a persisted submission.
func (d *Draft) succeed(ctx context.Context, videoID string) {
	d.video.Reset(ctx)
	d.thumbnail.Reset(ctx)

	d.mu.Lock()
	d.form = DefaultFormFields()
	d.status = StatusSucceeded
	d.lastError = ""
	d.lastVideoID = videoID
	d.mu.Unlock()
}

func (d *Draft) fail(message string) {
	d.mu.Lock()
	d.status = StatusFailed
	d.lastError = message
	d.mu.Unlock()
}

func (d *Draft) setError(message string) {
	d.mu.Lock()
	d.lastError = message
	d.mu.Unlock()
}

func (d *Draft) touch() {
	d.lastTouched.Store(time.Now().UnixNano())
}

func (d *Draft) idleSince() time.Time {
	return time.Unix(0, d.lastTouched.Load())
}

type FileView struct {
	Name            string `json:"name"`
	ContentType     string `json:"contentType"`
	SizeBytes       int64  `json:"sizeBytes"`
	DurationSeconds int    `json:"duration,omitempty"`
	PreviewURL      string `json:"previewUrl"`
}

type View struct {
	Form        FormFields `json:"form"`
	Video       *FileView  `json:"video"`
	Thumbnail   *FileView  `json:"thumbnail"`
	Submitting  bool       `json:"submitting"`
	Status      Status     `json:"status"`
	Error       string     `json:"error,omitempty"`
	LastVideoID string     `json:"lastVideoId,omitempty"`
}

func (d *Draft) View() View {
	d.mu.Lock()
	view := View{
		Form:        d.form,
		Status:      d.status,
		Error:       d.lastError,
		LastVideoID: d.lastVideoID,
	}
	d.mu.Unlock()

	view.Submitting = d.inProgress.Load()
	view.Video = fileView(d.video)
	view.Thumbnail = fileView(d.thumbnail)
	return view
}

func fileView(slot *selection.Slot) *FileView {
	file := slot.File()
	if file == nil {
		return nil
	}
	return &FileView{
		Name:            file.Blob.Name(),
		ContentType:     file.Blob.MediaType(),
		SizeBytes:       file.SizeBytes,
		DurationSeconds: file.DurationSeconds,
		PreviewURL:      "/previews/" + slot.PreviewRef(),
	}
}

func selectionMessage(err error, maxSizeBytes int64) string {
	switch {
	case errors.Is(err, selection.ErrFileTooLarge):
		return fmt.Sprintf("File size should be less than %dMB", maxSizeBytes/(1024*1024))
	case errors.Is(err, selection.ErrWrongMediaType):
		return "Unsupported file type"
	default:
		return "Failed to read the selected file"
	}
}
