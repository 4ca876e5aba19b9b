package upload

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/vidshare/vidshare_server/internal/transport"
	"github.com/vidshare/vidshare_server/internal/user"
	"github.com/vidshare/vidshare_server/internal/video"
)

var errIncompleteTarget = errors.New("upload target is missing required fields")

type VideoTargets interface {
	CreateVideoTarget(ctx context.Context, title string) (*transport.Target, error)
	EmbedURL(videoID string) string
}

type ThumbnailTargets interface {
	ThumbnailTarget(ctx context.Context, videoID string) (*transport.Target, error)
}

type Transport interface {
	Transfer(ctx context.Context, payload transport.Payload, destinationURL, credential string) error
}

type Persister interface {
	Persist(ctx context.Context, headers user.Headers, record *video.VideoRecord) error
}

type SessionProvider interface {
	GetSession(headers user.Headers) (*user.User, error)
}

type Notifier interface {
	NotifySubmission(userID string, update SubmissionUpdate)
}

type noopNotifier struct{}

func (noopNotifier) NotifySubmission(string, SubmissionUpdate) {}

// Orchestrator runs the upload handshake for a draft: create the video
// resource, PUT its bytes, obtain a thumbnail destination, PUT the thumbnail,
// then persist the record. Steps run strictly in order and are never retried.
type Orchestrator struct {
	videos     VideoTargets
	thumbnails ThumbnailTargets
	transport  Transport
	persister  Persister
	sessions   SessionProvider
	notifier   Notifier
	timeout    time.Duration
}

func NewOrchestrator(videos VideoTargets, thumbnails ThumbnailTargets, transfer Transport, persister Persister, sessions SessionProvider, notifier Notifier, timeout time.Duration) *Orchestrator {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &Orchestrator{
		videos:     videos,
		thumbnails: thumbnails,
		transport:  transfer,
		persister:  persister,
		sessions:   sessions,
		notifier:   notifier,
		timeout:    timeout,
	}
}

// Submit runs one attempt. The caller's cancellation is ignored; only the
// configured timeout bounds the sequence. A second Submit on the same draft
// while one is running returns ErrSubmissionInProgress without side effects.
func (o *Orchestrator) Submit(ctx context.Context, draft *Draft, headers user.Headers) (*video.VideoRecord, error) {
	if err := draft.begin(); err != nil {
		return nil, err
	}
	defer draft.end()

	ctx = context.WithoutCancel(ctx)
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	o.notifier.NotifySubmission(draft.OwnerID(), SubmissionUpdate{Status: StatusSubmitting})

	record, err := o.run(ctx, draft, headers)
	if err != nil {
		message := UserMessage(err)
		draft.fail(message)

		event := log.Warn().Err(err).Str("userId", draft.OwnerID())
		var transportErr *TransportError
		if errors.As(err, &transportErr) {
			event = event.Str("step", string(transportErr.Step))
		}
		event.Msg("Upload submission failed")

		update := SubmissionUpdate{Status: StatusFailed, Error: message}
		if transportErr != nil {
			update.Step = transportErr.Step
		}
		o.notifier.NotifySubmission(draft.OwnerID(), update)
		return nil, err
	}

	draft.succeed(ctx, record.VideoID)

	log.Info().
		Str("userId", draft.OwnerID()).
		Str("videoId", record.VideoID).
		Msg("Upload submission completed")
	o.notifier.NotifySubmission(draft.OwnerID(), SubmissionUpdate{Status: StatusSucceeded, VideoID: record.VideoID})
	return record, nil
}

func (o *Orchestrator) run(ctx context.Context, draft *Draft, headers user.Headers) (*video.VideoRecord, error) {
	videoFile := draft.video.File()
	thumbnailFile := draft.thumbnail.File()
	if videoFile == nil || thumbnailFile == nil {
		return nil, &ValidationError{Message: msgMissingFiles}
	}

	form := draft.Form()
	if !form.complete() {
		return nil, &ValidationError{Message: msgMissingDetails}
	}
	form, err := form.normalized()
	if err != nil {
		return nil, err
	}

	session, err := o.sessions.GetSession(headers)
	if err != nil || session == nil {
		return nil, &AuthorizationError{Err: err}
	}

	o.progress(draft, StepCreateVideoTarget)
	videoTarget, err := o.videos.CreateVideoTarget(ctx, strings.TrimSpace(form.Title))
	if err != nil {
		return nil, &TransportError{Step: StepCreateVideoTarget, Err: err}
	}
	if videoTarget == nil || videoTarget.ResourceID == "" || videoTarget.DestinationURL == "" || videoTarget.Credential == "" {
		return nil, &TransportError{Step: StepCreateVideoTarget, Err: errIncompleteTarget}
	}

	o.progress(draft, StepPutVideoBytes)
	if err := o.transport.Transfer(ctx, videoFile.Blob, videoTarget.DestinationURL, videoTarget.Credential); err != nil {
		return nil, &TransportError{Step: StepPutVideoBytes, Err: err}
	}

	o.progress(draft, StepCreateThumbnailTarget)
	thumbnailTarget, err := o.thumbnails.ThumbnailTarget(ctx, videoTarget.ResourceID)
	if err != nil {
		return nil, &TransportError{Step: StepCreateThumbnailTarget, Err: err}
	}
	// presigned destinations carry no separate credential
	if thumbnailTarget == nil || thumbnailTarget.DestinationURL == "" || thumbnailTarget.PublicURL == "" {
		return nil, &TransportError{Step: StepCreateThumbnailTarget, Err: errIncompleteTarget}
	}

	o.progress(draft, StepPutThumbnailBytes)
	if err := o.transport.Transfer(ctx, thumbnailFile.Blob, thumbnailTarget.DestinationURL, thumbnailTarget.Credential); err != nil {
		return nil, &TransportError{Step: StepPutThumbnailBytes, Err: err}
	}

	record := &video.VideoRecord{
		VideoID:         videoTarget.ResourceID,
		Title:           strings.TrimSpace(form.Title),
		Description:     strings.TrimSpace(form.Description),
		Visibility:      form.Visibility,
		ThumbnailURL:    thumbnailTarget.PublicURL,
		VideoURL:        o.videos.EmbedURL(videoTarget.ResourceID),
		DurationSeconds: draft.video.Duration(),
	}

	o.progress(draft, StepPersistRecord)
	if err := o.persister.Persist(ctx, headers, record); err != nil {
		if errors.Is(err, user.ErrUnauthenticated) {
			return nil, &AuthorizationError{Err: err}
		}
		return nil, &TransportError{Step: StepPersistRecord, Err: err}
	}
	return record, nil
}

func (o *Orchestrator) progress(draft *Draft, step Step) {
	log.Debug().Str("userId", draft.OwnerID()).Str("step", string(step)).Msg("Upload step started")
	o.notifier.NotifySubmission(draft.OwnerID(), SubmissionUpdate{Status: StatusSubmitting, Step: step})
}
