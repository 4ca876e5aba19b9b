package bunny

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

func testConfig() Config {
	return Config{
		LibraryID:        "42",
		StreamBaseURL:    "http://stream.test/library/",
		StreamAccessKey:  "stream-key",
		EmbedBaseURL:     "https://iframe.test/embed",
		StorageBaseURL:   "https://storage.test/zone",
		StorageAccessKey: "storage-key",
		CDNURL:           "https://cdn.test",
	}
}

func startStream(t *testing.T, handler fasthttp.RequestHandler) *fasthttp.Client {
	ln := fasthttputil.NewInmemoryListener()
	go (&fasthttp.Server{Handler: handler}).Serve(ln)
	t.Cleanup(func() { ln.Close() })
	return &fasthttp.Client{Dial: func(addr string) (net.Conn, error) { return ln.Dial() }}
}

func TestStreamClient_CreateVideoTarget_ShouldPostToLibraryAndBuildUploadURL(t *testing.T) {
	// given
	var gotPath, gotKey string
	var gotBody createVideoRequest
	client := startStream(t, func(ctx *fasthttp.RequestCtx) {
		gotPath = string(ctx.Path())
		gotKey = string(ctx.Request.Header.Peek("AccessKey"))
		_ = json.Unmarshal(ctx.PostBody(), &gotBody)
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`{"guid":"abc-123","videoLibraryId":42,"title":"Demo"}`)
	})
	stream := NewStreamClient(client, testConfig(), time.Second)

	// when
	target, err := stream.CreateVideoTarget(context.Background(), "Demo")

	// then
	require.NoError(t, err)
	assert.Equal(t, "/library/42/videos", gotPath)
	assert.Equal(t, "stream-key", gotKey)
	assert.Equal(t, "Demo", gotBody.Title)
	assert.Equal(t, "abc-123", target.ResourceID)
	assert.Equal(t, "http://stream.test/library/42/videos/abc-123", target.DestinationURL)
	assert.Equal(t, "stream-key", target.Credential)
}

func TestStreamClient_CreateVideoTarget_ShouldLeaveTargetIncompleteWithoutGUID(t *testing.T) {
	// given
	client := startStream(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetBodyString(`{}`)
	})
	stream := NewStreamClient(client, testConfig(), time.Second)

	// when
	target, err := stream.CreateVideoTarget(context.Background(), "Demo")

	// then
	require.NoError(t, err)
	assert.Empty(t, target.ResourceID)
	assert.Empty(t, target.DestinationURL)
}

func TestStreamClient_CreateVideoTarget_ShouldFailOnProviderError(t *testing.T) {
	// given
	client := startStream(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusForbidden)
	})
	stream := NewStreamClient(client, testConfig(), time.Second)

	// when
	target, err := stream.CreateVideoTarget(context.Background(), "Demo")

	// then
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Forbidden")
	assert.Nil(t, target)
}

func TestStreamClient_EmbedURL(t *testing.T) {
	stream := NewStreamClient(nil, testConfig(), 0)

	assert.Equal(t, "https://iframe.test/embed/42/abc", stream.EmbedURL("abc"))
}

func TestStorageTargets_ThumbnailTarget_ShouldDeriveUploadAndCDNURLsFromSamePath(t *testing.T) {
	// given
	targets := NewStorageTargets(testConfig())
	targets.now = func() time.Time { return time.UnixMilli(1700000000123) }

	// when
	target, err := targets.ThumbnailTarget(context.Background(), "abc-123")

	// then
	require.NoError(t, err)
	assert.Equal(t, "https://storage.test/zone/thumbnails/1700000000123-abc-123-thumbnail", target.DestinationURL)
	assert.Equal(t, "https://cdn.test/thumbnails/1700000000123-abc-123-thumbnail", target.PublicURL)
	assert.Equal(t, "storage-key", target.Credential)
}

func TestStorageTargets_ThumbnailTarget_ShouldRequireVideoID(t *testing.T) {
	targets := NewStorageTargets(testConfig())

	target, err := targets.ThumbnailTarget(context.Background(), "")

	assert.Error(t, err)
	assert.Nil(t, target)
}
