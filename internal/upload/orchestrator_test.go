package upload

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vidshare/vidshare_server/internal/transport"
	"github.com/vidshare/vidshare_server/internal/video"
)

func TestSubmit_ShouldPersistOneRecordAfterOrderedHandshake(t *testing.T) {
	// given
	h := newHarness(t)
	draft := h.readyDraft(t)
	require.Eventually(t, func() bool { return draft.video.Duration() == 42 }, time.Second, 5*time.Millisecond)
	h.expectHappyPath("guid-1")

	// when
	record, err := h.orchestrator.Submit(context.Background(), draft, h.headers)

	// then
	require.NoError(t, err)
	assert.Equal(t, []Step{
		StepCreateVideoTarget,
		StepPutVideoBytes,
		StepCreateThumbnailTarget,
		StepPutThumbnailBytes,
		StepPersistRecord,
	}, h.log.all())

	h.persister.AssertNumberOfCalls(t, "Persist", 1)
	persisted := h.persister.Calls[0].Arguments.Get(2).(*video.VideoRecord)
	assert.Same(t, record, persisted)
	assert.Equal(t, "guid-1", persisted.VideoID)
	assert.Equal(t, "Demo", persisted.Title)
	assert.Equal(t, "Demo video", persisted.Description)
	assert.Equal(t, video.VisibilityPublic, persisted.Visibility)
	assert.Equal(t, thumbnailTarget("guid-1").PublicURL, persisted.ThumbnailURL)
	assert.Equal(t, "https://embed.example/lib/guid-1", persisted.VideoURL)
	assert.Equal(t, 42, persisted.DurationSeconds)

	h.videos.AssertExpectations(t)
	h.thumbnails.AssertExpectations(t)
	h.transport.AssertExpectations(t)
}

func TestSubmit_SuccessShouldResetDraft(t *testing.T) {
	// given
	h := newHarness(t)
	draft := h.readyDraft(t)
	h.expectHappyPath("guid-1")

	// when
	_, err := h.orchestrator.Submit(context.Background(), draft, h.headers)

	// then
	require.NoError(t, err)
	view := draft.View()
	assert.Nil(t, view.Video)
	assert.Nil(t, view.Thumbnail)
	assert.Equal(t, DefaultFormFields(), view.Form)
	assert.Equal(t, StatusSucceeded, view.Status)
	assert.Equal(t, "guid-1", view.LastVideoID)
	assert.Empty(t, view.Error)
	assert.False(t, view.Submitting)
	assert.Empty(t, draft.videoInput.Value())
	assert.Empty(t, draft.thumbnailInput.Value())
	assert.Equal(t, 0, h.previews.Live())
	assert.Equal(t, SubmissionUpdate{Status: StatusSucceeded, VideoID: "guid-1"}, h.notifier.last())
}

func TestSubmit_ValidationShouldMakeNoRemoteCalls(t *testing.T) {
	tests := []struct {
		name            string
		skipVideo       bool
		skipThumbnail   bool
		form            FormFields
		expectedMessage string
	}{
		{"missing video", true, false, FormFields{Title: "Demo", Description: "Demo video"}, msgMissingFiles},
		{"missing thumbnail", false, true, FormFields{Title: "Demo", Description: "Demo video"}, msgMissingFiles},
		{"empty title", false, false, FormFields{Title: "", Description: "Demo video"}, msgMissingDetails},
		{"blank description", false, false, FormFields{Title: "Demo", Description: "   "}, msgMissingDetails},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// given
			h := newHarness(t)
			draft := h.drafts.Get("user-1")
			if !tt.skipVideo {
				_, err := draft.SelectVideo(context.Background(), rawFile("demo.mp4", "video/mp4", mp4Bytes(4096)))
				require.NoError(t, err)
			}
			if !tt.skipThumbnail {
				_, err := draft.SelectThumbnail(context.Background(), rawFile("thumb.png", "image/png", pngBytes(t, 2048)))
				require.NoError(t, err)
			}
			require.NoError(t, draft.UpdateForm(tt.form))

			// when
			record, err := h.orchestrator.Submit(context.Background(), draft, h.headers)

			// then
			assert.Nil(t, record)
			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.expectedMessage, validationErr.Message)
			assert.Empty(t, h.log.all())
			h.sessions.AssertNotCalled(t, "GetSession", mock.Anything)

			view := draft.View()
			assert.Equal(t, tt.expectedMessage, view.Error)
			assert.Equal(t, StatusFailed, view.Status)
			assert.Equal(t, tt.form.Title, view.Form.Title)
			assert.Equal(t, !tt.skipVideo, view.Video != nil)
		})
	}
}

func TestSubmit_WithoutSessionShouldFailBeforeRemoteCalls(t *testing.T) {
	// given
	h := newHarness(t)
	draft := h.readyDraft(t)
	h.sessions.On("GetSession", mock.Anything).Return(nil, nil)

	// when
	_, err := h.orchestrator.Submit(context.Background(), draft, h.headers)

	// then
	var authErr *AuthorizationError
	assert.ErrorAs(t, err, &authErr)
	assert.Empty(t, h.log.all())
	assert.Equal(t, msgSignIn, draft.LastError())
}

func TestSubmit_VideoTransferFailureShouldStopSequence(t *testing.T) {
	// given
	h := newHarness(t)
	draft := h.readyDraft(t)
	h.expectSession()
	h.videos.On("CreateVideoTarget", mock.Anything, "Demo").Return(videoTarget("guid-1"), nil)
	h.transport.On("Transfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&transport.StatusError{StatusCode: 401, StatusText: "Unauthorized"})

	// when
	_, err := h.orchestrator.Submit(context.Background(), draft, h.headers)

	// then
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, StepPutVideoBytes, transportErr.Step)
	assert.Equal(t, []Step{StepCreateVideoTarget, StepPutVideoBytes}, h.log.all())
	h.thumbnails.AssertNotCalled(t, "ThumbnailTarget", mock.Anything, mock.Anything)
	h.persister.AssertNotCalled(t, "Persist", mock.Anything, mock.Anything, mock.Anything)

	view := draft.View()
	assert.Equal(t, "Upload failed: failed to upload file: Unauthorized", view.Error)
	assert.Equal(t, "Demo", view.Form.Title)
	assert.NotNil(t, view.Video)
	assert.NotNil(t, view.Thumbnail)
	assert.False(t, view.Submitting)
	assert.Equal(t, StatusFailed, h.notifier.last().Status)
	assert.Equal(t, StepPutVideoBytes, h.notifier.last().Step)
}

func TestSubmit_IncompleteTargetsShouldAbort(t *testing.T) {
	tests := []struct {
		name          string
		video         *transport.Target
		thumbnail     *transport.Target
		expectedStep  Step
		expectedCalls []Step
	}{
		{
			name:          "video target without id",
			video:         &transport.Target{DestinationURL: "https://video.example/x", Credential: "k"},
			expectedStep:  StepCreateVideoTarget,
			expectedCalls: []Step{StepCreateVideoTarget},
		},
		{
			name:          "video target without credential",
			video:         &transport.Target{ResourceID: "guid-1", DestinationURL: "https://video.example/x"},
			expectedStep:  StepCreateVideoTarget,
			expectedCalls: []Step{StepCreateVideoTarget},
		},
		{
			name:          "thumbnail target without public url",
			video:         videoTarget("guid-1"),
			thumbnail:     &transport.Target{DestinationURL: "https://storage.example/t", Credential: "k"},
			expectedStep:  StepCreateThumbnailTarget,
			expectedCalls: []Step{StepCreateVideoTarget, StepPutVideoBytes, StepCreateThumbnailTarget},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// given
			h := newHarness(t)
			draft := h.readyDraft(t)
			h.expectSession()
			h.videos.On("CreateVideoTarget", mock.Anything, "Demo").Return(tt.video, nil)
			h.transport.On("Transfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
			h.thumbnails.On("ThumbnailTarget", mock.Anything, mock.Anything).Return(tt.thumbnail, nil)

			// when
			_, err := h.orchestrator.Submit(context.Background(), draft, h.headers)

			// then
			var transportErr *TransportError
			require.ErrorAs(t, err, &transportErr)
			assert.Equal(t, tt.expectedStep, transportErr.Step)
			assert.ErrorIs(t, err, errIncompleteTarget)
			assert.Equal(t, tt.expectedCalls, h.log.all())
		})
	}
}

func TestSubmit_RetryShouldRequestFreshTargets(t *testing.T) {
	// given
	h := newHarness(t)
	draft := h.readyDraft(t)
	h.expectSession()
	h.videos.On("CreateVideoTarget", mock.Anything, "Demo").Return(videoTarget("guid-1"), nil).Once()
	h.videos.On("CreateVideoTarget", mock.Anything, "Demo").Return(videoTarget("guid-2"), nil).Once()
	h.transport.On("Transfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	h.thumbnails.On("ThumbnailTarget", mock.Anything, "guid-1").Return(nil, errors.New("storage unavailable")).Once()
	h.thumbnails.On("ThumbnailTarget", mock.Anything, "guid-2").Return(thumbnailTarget("guid-2"), nil).Once()
	h.persister.On("Persist", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	// when
	_, firstErr := h.orchestrator.Submit(context.Background(), draft, h.headers)
	record, secondErr := h.orchestrator.Submit(context.Background(), draft, h.headers)

	// then
	var transportErr *TransportError
	require.ErrorAs(t, firstErr, &transportErr)
	assert.Equal(t, StepCreateThumbnailTarget, transportErr.Step)
	require.NoError(t, secondErr)
	assert.Equal(t, "guid-2", record.VideoID)
	assert.Equal(t, thumbnailTarget("guid-2").PublicURL, record.ThumbnailURL)
	h.videos.AssertNumberOfCalls(t, "CreateVideoTarget", 2)
	h.persister.AssertNumberOfCalls(t, "Persist", 1)
}

func TestSubmit_ReentrantSubmitShouldBeRejected(t *testing.T) {
	// given
	h := newHarness(t)
	draft := h.readyDraft(t)
	h.expectSession()
	started := make(chan struct{})
	release := make(chan struct{})
	h.videos.On("CreateVideoTarget", mock.Anything, "Demo").Return(videoTarget("guid-1"), nil).Once()
	h.transport.On("Transfer", mock.Anything, mock.Anything, videoTarget("guid-1").DestinationURL, mock.Anything).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).Return(nil).Once()
	h.transport.On("Transfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	h.thumbnails.On("ThumbnailTarget", mock.Anything, "guid-1").Return(thumbnailTarget("guid-1"), nil).Once()
	h.persister.On("Persist", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	done := make(chan error, 1)
	go func() {
		_, err := h.orchestrator.Submit(context.Background(), draft, h.headers)
		done <- err
	}()
	<-started

	// when
	_, secondErr := h.orchestrator.Submit(context.Background(), draft, h.headers)
	formErr := draft.UpdateForm(FormFields{Title: "Changed", Description: "Changed"})
	clearErr := draft.ClearVideo(context.Background())
	submitting := draft.View().Submitting
	close(release)

	// then
	assert.ErrorIs(t, secondErr, ErrSubmissionInProgress)
	assert.ErrorIs(t, formErr, ErrSubmissionInProgress)
	assert.ErrorIs(t, clearErr, ErrSubmissionInProgress)
	assert.True(t, submitting)
	require.NoError(t, <-done)
	h.videos.AssertNumberOfCalls(t, "CreateVideoTarget", 1)
	h.persister.AssertNumberOfCalls(t, "Persist", 1)
}

func TestSubmit_UnresolvedDurationShouldPersistZero(t *testing.T) {
	// given
	h := newHarness(t)
	h.prober.gate = make(chan struct{})
	defer close(h.prober.gate)
	draft := h.readyDraft(t)
	h.expectHappyPath("guid-1")

	// when
	record, err := h.orchestrator.Submit(context.Background(), draft, h.headers)

	// then
	require.NoError(t, err)
	assert.Equal(t, 0, record.DurationSeconds)
}

func TestSubmit_ShouldIgnoreCallerCancellation(t *testing.T) {
	// given
	h := newHarness(t)
	draft := h.readyDraft(t)
	h.expectHappyPath("guid-1")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// when
	_, err := h.orchestrator.Submit(ctx, draft, h.headers)

	// then
	require.NoError(t, err)
	ctxArg := h.videos.Calls[0].Arguments.Get(0).(context.Context)
	assert.NoError(t, ctxArg.Err())
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"nil", nil, ""},
		{"validation", &ValidationError{Message: msgMissingDetails}, msgMissingDetails},
		{"authorization", &AuthorizationError{}, msgSignIn},
		{"in progress", ErrSubmissionInProgress, msgInProgress},
		{"transport", &TransportError{Step: StepPutThumbnailBytes, Err: &transport.StatusError{StatusCode: 500, StatusText: "Internal Server Error"}}, "Upload failed: failed to upload file: Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, UserMessage(tt.err))
		})
	}
}
