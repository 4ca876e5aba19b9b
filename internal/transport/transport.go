package transport

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

const headerAccessKey = "AccessKey"

// Target is a short-lived destination for a single binary transfer.
type Target struct {
	ResourceID     string `json:"resourceId"`
	DestinationURL string `json:"destinationUrl"`
	Credential     string `json:"-"`
	// PublicURL is where the transferred object is served from, when known up front.
	PublicURL string `json:"publicUrl,omitempty"`
}

type Payload interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	MediaType() string
	Len() int64
}

// StatusError reports a transfer the remote end answered with a non-2xx status.
type StatusError struct {
	StatusCode int
	StatusText string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("failed to upload file: %s", e.StatusText)
}

func CheckStatus(resp *fasthttp.Response) error {
	code := resp.StatusCode()
	if code >= 200 && code < 300 {
		return nil
	}
	return &StatusError{StatusCode: code, StatusText: fasthttp.StatusMessage(code)}
}

type Client struct {
	client  *fasthttp.Client
	timeout time.Duration
}

func NewClient(client *fasthttp.Client, timeout time.Duration) *Client {
	if client == nil {
		client = &fasthttp.Client{
			Name:                     "vidshare",
			NoDefaultUserAgentHeader: true,
		}
	}
	return &Client{client: client, timeout: timeout}
}

// Transfer PUTs the whole payload to destinationURL in one attempt.
func (c *Client) Transfer(ctx context.Context, payload Payload, destinationURL, credential string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := payload.Open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open payload: %w", err)
	}
	defer body.Close()

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(destinationURL)
	req.Header.SetMethod(fasthttp.MethodPut)
	req.Header.SetContentType(payload.MediaType())
	if credential != "" {
		req.Header.Set(headerAccessKey, credential)
	}
	req.SetBodyStream(body, int(payload.Len()))

	started := time.Now()
	if err := Do(ctx, c.client, req, resp, c.timeout); err != nil {
		return fmt.Errorf("failed to upload file: %w", err)
	}

	if err := CheckStatus(resp); err != nil {
		return err
	}

	log.Debug().
		Str("url", string(req.URI().Path())).
		Int64("bytes", payload.Len()).
		Dur("took", time.Since(started)).
		Msg("Transfer completed")
	return nil
}

// Do runs req honouring the context deadline, falling back to timeout when ctx has none.
func Do(ctx context.Context, client *fasthttp.Client, req *fasthttp.Request, resp *fasthttp.Response, timeout time.Duration) error {
	if deadline, ok := ctx.Deadline(); ok {
		return client.DoDeadline(req, resp, deadline)
	}
	if timeout > 0 {
		return client.DoTimeout(req, resp, timeout)
	}
	return client.Do(req, resp)
}
