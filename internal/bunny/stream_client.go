package bunny

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
	"github.com/vidshare/vidshare_server/internal/transport"
)

// StreamClient creates video resources in a Bunny Stream library.
type StreamClient struct {
	client    *fasthttp.Client
	baseURL   string
	libraryID string
	accessKey string
	embedURL  string
	timeout   time.Duration
}

func NewStreamClient(client *fasthttp.Client, config Config, timeout time.Duration) *StreamClient {
	if client == nil {
		client = &fasthttp.Client{Name: "vidshare", NoDefaultUserAgentHeader: true}
	}
	return &StreamClient{
		client:    client,
		baseURL:   strings.TrimSuffix(config.StreamBaseURL, "/"),
		libraryID: config.LibraryID,
		accessKey: config.StreamAccessKey,
		embedURL:  strings.TrimSuffix(config.EmbedBaseURL, "/"),
		timeout:   timeout,
	}
}

func (c *StreamClient) videosURL() string {
	return fmt.Sprintf("%s/%s/videos", c.baseURL, c.libraryID)
}

// CreateVideoTarget registers an empty video and returns where its bytes must be PUT.
// A response without a guid yields a target with an empty ResourceID; callers decide.
func (c *StreamClient) CreateVideoTarget(ctx context.Context, title string) (*transport.Target, error) {
	body, err := json.Marshal(createVideoRequest{Title: title, CollectionID: ""})
	if err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.videosURL())
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("AccessKey", c.accessKey)
	req.SetBody(body)

	if err := transport.Do(ctx, c.client, req, resp, c.timeout); err != nil {
		return nil, fmt.Errorf("failed to create video: %w", err)
	}
	if err := transport.CheckStatus(resp); err != nil {
		return nil, fmt.Errorf("failed to create video: %w", err)
	}

	var created createVideoResponse
	if err := json.Unmarshal(resp.Body(), &created); err != nil {
		return nil, fmt.Errorf("failed to decode create video response: %w", err)
	}

	log.Debug().
		Str("videoId", created.GUID).
		Str("libraryId", c.libraryID).
		Msg("Video resource created")

	target := &transport.Target{
		ResourceID: created.GUID,
		Credential: c.accessKey,
	}
	if created.GUID != "" {
		target.DestinationURL = fmt.Sprintf("%s/%s", c.videosURL(), created.GUID)
	}
	return target, nil
}

// EmbedURL is the player URL for a video in this library.
func (c *StreamClient) EmbedURL(videoID string) string {
	return fmt.Sprintf("%s/%s/%s", c.embedURL, c.libraryID, videoID)
}
