package upload

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/vidshare/vidshare_server/internal/selection"
	"github.com/vidshare/vidshare_server/internal/storage"
	"github.com/vidshare/vidshare_server/internal/transport"
	"github.com/vidshare/vidshare_server/internal/user"
	"github.com/vidshare/vidshare_server/internal/video"
)

const mb = 1024 * 1024

var testLimits = Limits{MaxVideoSizeBytes: 500 * mb, MaxThumbnailSizeBytes: 5 * mb}

func mp4Bytes(size int) []byte {
	data := make([]byte, size)
	copy(data, []byte{
		0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p',
		'i', 's', 'o', 'm', 0x00, 0x00, 0x02, 0x00,
		'i', 's', 'o', 'm', 'i', 's', 'o', '2',
	})
	return data
}

// pngBytes encodes a small PNG and pads it to size; decoders stop at IEND.
func pngBytes(t *testing.T, size int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for x := 0; x < 64; x++ {
		img.Set(x, 0, color.RGBA{B: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	if buf.Len() < size {
		buf.Write(make([]byte, size-buf.Len()))
	}
	return buf.Bytes()
}

func rawFile(name, contentType string, data []byte) selection.RawFile {
	return selection.RawFile{Name: name, ContentType: contentType, Size: int64(len(data)), Body: bytes.NewReader(data)}
}

type stubProber struct {
	seconds float64
	gate    chan struct{}
}

func (p *stubProber) Probe(ctx context.Context, blob *selection.Blob) (float64, error) {
	if p.gate != nil {
		<-p.gate
	}
	return p.seconds, nil
}

// callLog records remote calls in the order the orchestrator makes them.
type callLog struct {
	mu    sync.Mutex
	steps []Step
}

func (l *callLog) add(step Step) {
	l.mu.Lock()
	l.steps = append(l.steps, step)
	l.mu.Unlock()
}

func (l *callLog) all() []Step {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Step(nil), l.steps...)
}

type mockVideoTargets struct {
	mock.Mock
	log *callLog
}

func (m *mockVideoTargets) CreateVideoTarget(ctx context.Context, title string) (*transport.Target, error) {
	m.log.add(StepCreateVideoTarget)
	args := m.Called(ctx, title)
	target, _ := args.Get(0).(*transport.Target)
	return target, args.Error(1)
}

func (m *mockVideoTargets) EmbedURL(videoID string) string {
	return "https://embed.example/lib/" + videoID
}

type mockThumbnailTargets struct {
	mock.Mock
	log *callLog
}

func (m *mockThumbnailTargets) ThumbnailTarget(ctx context.Context, videoID string) (*transport.Target, error) {
	m.log.add(StepCreateThumbnailTarget)
	args := m.Called(ctx, videoID)
	target, _ := args.Get(0).(*transport.Target)
	return target, args.Error(1)
}

type mockTransport struct {
	mock.Mock
	log *callLog
}

func (m *mockTransport) Transfer(ctx context.Context, payload transport.Payload, destinationURL, credential string) error {
	if payload.MediaType() == "video/mp4" {
		m.log.add(StepPutVideoBytes)
	} else {
		m.log.add(StepPutThumbnailBytes)
	}
	args := m.Called(ctx, payload, destinationURL, credential)
	return args.Error(0)
}

type mockPersister struct {
	mock.Mock
	log *callLog
}

func (m *mockPersister) Persist(ctx context.Context, headers user.Headers, record *video.VideoRecord) error {
	m.log.add(StepPersistRecord)
	args := m.Called(ctx, headers, record)
	return args.Error(0)
}

type mockSessions struct {
	mock.Mock
}

func (m *mockSessions) GetSession(headers user.Headers) (*user.User, error) {
	args := m.Called(headers)
	session, _ := args.Get(0).(*user.User)
	return session, args.Error(1)
}

type recordingNotifier struct {
	mu      sync.Mutex
	updates []SubmissionUpdate
}

func (n *recordingNotifier) NotifySubmission(userID string, update SubmissionUpdate) {
	n.mu.Lock()
	n.updates = append(n.updates, update)
	n.mu.Unlock()
}

func (n *recordingNotifier) last() SubmissionUpdate {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.updates[len(n.updates)-1]
}

type harness struct {
	log          *callLog
	videos       *mockVideoTargets
	thumbnails   *mockThumbnailTargets
	transport    *mockTransport
	persister    *mockPersister
	sessions     *mockSessions
	notifier     *recordingNotifier
	previews     *selection.PreviewRegistry
	prober       *stubProber
	drafts       *DraftStore
	orchestrator *Orchestrator
	headers      *fasthttp.RequestHeader
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	backend, err := storage.NewLocalStorage(&storage.BackendConfig{LocalPath: t.TempDir()})
	require.NoError(t, err)

	log := &callLog{}
	h := &harness{
		log:        log,
		videos:     &mockVideoTargets{log: log},
		thumbnails: &mockThumbnailTargets{log: log},
		transport:  &mockTransport{log: log},
		persister:  &mockPersister{log: log},
		sessions:   &mockSessions{},
		notifier:   &recordingNotifier{},
		previews:   selection.NewPreviewRegistry(backend),
		prober:     &stubProber{seconds: 42.4},
		headers:    &fasthttp.RequestHeader{},
	}
	h.videos.Test(t)
	h.thumbnails.Test(t)
	h.transport.Test(t)
	h.persister.Test(t)
	h.sessions.Test(t)

	h.drafts = NewDraftStore(backend, h.previews, h.prober, testLimits)
	h.orchestrator = NewOrchestrator(h.videos, h.thumbnails, h.transport, h.persister, h.sessions, h.notifier, 0)
	t.Cleanup(func() { h.drafts.CloseAll(context.Background()) })
	return h
}

// readyDraft selects a 10MB video and a 1MB thumbnail and fills the form.
func (h *harness) readyDraft(t *testing.T) *Draft {
	t.Helper()
	draft := h.drafts.Get("user-1")
	_, err := draft.SelectVideo(context.Background(), rawFile("demo.mp4", "video/mp4", mp4Bytes(10*mb)))
	require.NoError(t, err)
	_, err = draft.SelectThumbnail(context.Background(), rawFile("thumb.png", "image/png", pngBytes(t, 1*mb)))
	require.NoError(t, err)
	require.NoError(t, draft.UpdateForm(FormFields{Title: "Demo", Description: "Demo video"}))
	return draft
}

func (h *harness) expectSession() {
	h.sessions.On("GetSession", mock.Anything).Return(&user.User{ID: "user-1"}, nil)
}

func videoTarget(guid string) *transport.Target {
	return &transport.Target{
		ResourceID:     guid,
		DestinationURL: "https://video.example/lib/videos/" + guid,
		Credential:     "stream-key",
	}
}

func thumbnailTarget(guid string) *transport.Target {
	return &transport.Target{
		ResourceID:     "1700000000000-" + guid + "-thumbnail",
		DestinationURL: "https://storage.example/zone/thumbnails/1700000000000-" + guid + "-thumbnail",
		Credential:     "storage-key",
		PublicURL:      "https://cdn.example/thumbnails/1700000000000-" + guid + "-thumbnail",
	}
}

// expectHappyPath wires every remote call to succeed for guid.
func (h *harness) expectHappyPath(guid string) {
	h.expectSession()
	mock.InOrder(
		h.videos.On("CreateVideoTarget", mock.Anything, "Demo").Return(videoTarget(guid), nil).Once(),
		h.transport.On("Transfer", mock.Anything, mock.Anything, videoTarget(guid).DestinationURL, "stream-key").Return(nil).Once(),
		h.thumbnails.On("ThumbnailTarget", mock.Anything, guid).Return(thumbnailTarget(guid), nil).Once(),
		h.transport.On("Transfer", mock.Anything, mock.Anything, thumbnailTarget(guid).DestinationURL, "storage-key").Return(nil).Once(),
		h.persister.On("Persist", mock.Anything, mock.Anything, mock.AnythingOfType("*video.VideoRecord")).Return(nil).Once(),
	)
}
