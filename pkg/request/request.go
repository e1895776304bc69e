package request

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/vyvo/site/backend/pkg/apierr"
)

// maxBodyBytes bounds how much of a response is buffered.
const maxBodyBytes = 64 << 20

// Options describes a single call.
type Options struct {
	Method string
	Header http.Header
	Body   io.Reader
	// AllowMalformed returns a 2xx body declared as JSON even when it does
	// not parse; check Body.Malformed.
	AllowMalformed bool
}

// Client performs HTTP calls against a base address and maps every failure
// onto *apierr.Error.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// NewClient creates a client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the address relative targets are resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Resolve turns target into an absolute URL.
func (c *Client) Resolve(target string) string {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return target
	}
	if !strings.HasPrefix(target, "/") {
		target = "/" + target
	}
	return c.baseURL + target
}

// Do issues one request. On success the decoded body is returned as-is; on
// failure the error is always an *apierr.Error.
func (c *Client) Do(ctx context.Context, target string, opts Options) (*Body, error) {
	body, err := c.do(ctx, target, opts)
	if err != nil {
		return nil, apierr.From(err)
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, target string, opts Options) (*Body, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.Resolve(target), opts.Body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for key, values := range opts.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, apierr.Cancelled(ctxErr)
		}
		return nil, apierr.Network(err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message, code := body.errorFields()
		return nil, apierr.HTTP(resp.StatusCode, code, message)
	}
	if body.malformed && !opts.AllowMalformed {
		return nil, fmt.Errorf("decode response: invalid JSON body from %s", httpReq.URL.Path)
	}
	return body, nil
}

func readBody(resp *http.Response) (*Body, error) {
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	body := &Body{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		data:        data,
	}
	if isJSON(body.ContentType) && len(data) > 0 {
		body.json = json.Valid(data)
		body.malformed = !body.json
	}
	return body, nil
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
