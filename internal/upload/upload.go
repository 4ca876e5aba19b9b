package upload

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vidshare/vidshare_server/internal/video"
)

const (
	msgMissingFiles   = "Please upload both video and thumbnail files"
	msgMissingDetails = "Please fill in the details"
	msgSignIn         = "Please sign in to upload videos"
	msgInProgress     = "An upload is already in progress"
	msgDraftExpired   = "Your upload draft expired, please select the files again"
)

var ErrSubmissionInProgress = errors.New("submission already in progress")

// Step names one remote call of the submission sequence.
type Step string

const (
	StepCreateVideoTarget     Step = "create-video-target"
	StepPutVideoBytes         Step = "put-video-bytes"
	StepCreateThumbnailTarget Step = "create-thumbnail-target"
	StepPutThumbnailBytes     Step = "put-thumbnail-bytes"
	StepPersistRecord         Step = "persist-record"
)

type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// TransportError is a failed or malformed remote call at Step.
type TransportError struct {
	Step Step
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

type AuthorizationError struct {
	Err error
}

func (e *AuthorizationError) Error() string {
	if e.Err == nil {
		return "no active session"
	}
	return fmt.Sprintf("no active session: %v", e.Err)
}

func (e *AuthorizationError) Unwrap() error { return e.Err }

// UserMessage converts any submission error into the single message shown to the user.
func UserMessage(err error) string {
	var validationErr *ValidationError
	var transportErr *TransportError
	var authErr *AuthorizationError

	switch {
	case err == nil:
		return ""
	case errors.As(err, &validationErr):
		return validationErr.Message
	case errors.As(err, &authErr):
		return msgSignIn
	case errors.Is(err, ErrSubmissionInProgress):
		return msgInProgress
	case errors.Is(err, ErrDraftClosed):
		return msgDraftExpired
	case errors.As(err, &transportErr):
		return "Upload failed: " + transportErr.Err.Error()
	default:
		return "Upload failed: " + err.Error()
	}
}

type FormFields struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Visibility  video.Visibility `json:"visibility"`
}

func DefaultFormFields() FormFields {
	return FormFields{Visibility: video.VisibilityPublic}
}

func (f FormFields) normalized() (FormFields, error) {
	visibility, err := video.ParseVisibility(string(f.Visibility))
	if err != nil {
		return f, &ValidationError{Message: fmt.Sprintf("Unknown visibility %q", f.Visibility)}
	}
	f.Visibility = visibility
	return f, nil
}

func (f FormFields) complete() bool {
	return strings.TrimSpace(f.Title) != "" && strings.TrimSpace(f.Description) != ""
}

type Status string

const (
	StatusIdle       Status = "idle"
	StatusSubmitting Status = "submitting"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
)

// SubmissionUpdate is pushed to the owner on every status change.
type SubmissionUpdate struct {
	Status  Status `json:"status"`
	Step    Step   `json:"step,omitempty"`
	VideoID string `json:"videoId,omitempty"`
	Error   string `json:"error,omitempty"`
}

type Limits struct {
	MaxVideoSizeBytes     int64 `mapstructure:"max_video_size_bytes"`
	MaxThumbnailSizeBytes int64 `mapstructure:"max_thumbnail_size_bytes"`
}
