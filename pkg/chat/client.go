package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyvo/site/backend/pkg/metrics"
	"github.com/vyvo/site/backend/pkg/request"
	"github.com/vyvo/site/backend/pkg/telemetry"
)

// DefaultTimeout bounds one send.
const DefaultTimeout = 30 * time.Second

// Logger is the logging surface the client needs; *slog.Logger satisfies it.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Reply is the outcome of a send. Category is empty on success; Err holds
// the underlying failure for logging and is never shown to visitors.
type Reply struct {
	Text     string
	Category Category
	Shape    string
	Err      error
}

// OK reports whether the webhook produced the reply.
func (r Reply) OK() bool {
	return r.Category == ""
}

// Segments returns the reply formatted for display.
func (r Reply) Segments() []Segment {
	return Format(r.Text)
}

// Client sends visitor messages to the assistant webhook.
type Client struct {
	webhookURL string
	http       *request.Client
	timeout    time.Duration
	extractors []Extractor
	logger     Logger
	tracer     trace.Tracer
}

// Option customises a Client.
type Option func(*Client)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithExtractors replaces the response shape list.
func WithExtractors(extractors []Extractor) Option {
	return func(c *Client) {
		c.extractors = extractors
	}
}

// WithLogger sets the logger.
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRequestClient replaces the HTTP helper.
func WithRequestClient(rc *request.Client) Option {
	return func(c *Client) {
		if rc != nil {
			c.http = rc
		}
	}
}

// NewClient creates a client for the webhook at webhookURL.
func NewClient(webhookURL string, opts ...Option) *Client {
	c := &Client{
		webhookURL: webhookURL,
		http:       request.NewClient(""),
		timeout:    DefaultTimeout,
		extractors: DefaultExtractors,
		logger:     nopLogger{},
		tracer:     telemetry.Tracer("chat"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type sendPayload struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
}

// Send delivers message and always returns something to display. A reply
// that arrives after the deadline is aborted with the request.
func (c *Client) Send(ctx context.Context, message, sessionID string) Reply {
	ctx, span := c.tracer.Start(ctx, "chat.Send", trace.WithAttributes(attribute.String("chat.session_id", sessionID)))
	defer span.End()

	start := time.Now()
	reply := c.send(ctx, message, sessionID)
	latency := time.Since(start)

	metrics.ObserveChatReply(string(reply.Category), latency.Milliseconds())
	if reply.Err != nil {
		span.RecordError(reply.Err)
		span.SetStatus(codes.Error, string(reply.Category))
		c.logger.Error("chat send failed", "sessionID", sessionID, "category", reply.Category, "error", reply.Err, "latency", latency)
	} else {
		span.SetAttributes(attribute.String("chat.shape", reply.Shape))
		c.logger.Info("chat reply received", "sessionID", sessionID, "shape", reply.Shape, "latency", latency)
	}
	return reply
}

func (c *Client) send(ctx context.Context, message, sessionID string) Reply {
	payload, err := json.Marshal(sendPayload{Message: message, SessionID: sessionID})
	if err != nil {
		return failure(err)
	}

	ctx, cancel := context.WithTimeoutCause(ctx, c.timeout, errTimeout)
	defer cancel()

	body, err := c.http.Do(ctx, c.webhookURL, request.Options{
		Method:         http.MethodPost,
		Header:         http.Header{"Content-Type": []string{"application/json"}},
		Body:           bytes.NewReader(payload),
		AllowMalformed: true,
	})
	if err != nil {
		if errors.Is(context.Cause(ctx), errTimeout) {
			err = errTimeout
		}
		return failure(err)
	}

	var value any
	switch {
	case body.Malformed():
		// The server answered, so this is not a connectivity problem.
		return failure(errors.New("could not parse the assistant's reply"))
	case body.IsJSON():
		if value, err = decodeValue(body.Bytes()); err != nil {
			return failure(fmt.Errorf("could not parse the assistant's reply: %w", err))
		}
	default:
		value = strings.TrimSpace(body.Text())
	}

	text, shape := Normalize(value, c.extractors)
	return Reply{Text: text, Shape: shape}
}

func failure(err error) Reply {
	category, text := Classify(err)
	return Reply{Text: text, Category: category, Err: err}
}
