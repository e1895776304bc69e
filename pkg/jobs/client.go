package jobs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyvo/site/backend/pkg/apierr"
	"github.com/vyvo/site/backend/pkg/metrics"
	"github.com/vyvo/site/backend/pkg/request"
	"github.com/vyvo/site/backend/pkg/telemetry"
)

// Logger is the logging surface the client needs; *slog.Logger satisfies it.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Client talks to the conversion service.
type Client struct {
	http   *request.Client
	logger Logger
	tracer trace.Tracer
}

// NewClient creates a conversion client on top of a request helper.
func NewClient(rc *request.Client, logger Logger) *Client {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Client{http: rc, logger: logger, tracer: telemetry.Tracer("jobs")}
}

// Submit validates f and uploads it as a new conversion job.
func (c *Client) Submit(ctx context.Context, f *File) (Descriptor, error) {
	if err := ValidateFile(f); err != nil {
		metrics.JobSubmitted(codeOf(err))
		return Descriptor{}, err
	}

	ctx, span := c.tracer.Start(ctx, "jobs.Submit", trace.WithAttributes(
		attribute.String("file.type", f.Type),
		attribute.Int64("file.size", f.Size),
	))
	defer span.End()

	body, contentType, err := multipartBody(f)
	if err != nil {
		return Descriptor{}, c.fail(span, apierr.From(err))
	}

	resp, err := c.http.Do(ctx, "/api/jobs", request.Options{
		Method: http.MethodPost,
		Header: http.Header{"Content-Type": []string{contentType}},
		Body:   body,
	})
	if err != nil {
		metrics.JobSubmitted(codeOf(err))
		return Descriptor{}, c.fail(span, err)
	}

	var desc Descriptor
	if err := resp.Decode(&desc); err != nil {
		metrics.JobSubmitted(apierr.CodeNetwork)
		return Descriptor{}, c.fail(span, apierr.From(err))
	}

	metrics.JobSubmitted("ok")
	span.SetAttributes(attribute.String("job.id", desc.ID))
	c.logger.Info("conversion job submitted", "jobID", desc.ID, "file", f.Name, "bytes", f.Size)
	return desc, nil
}

// Status fetches a single status observation.
func (c *Client) Status(ctx context.Context, jobID string) (Status, error) {
	if err := requireJobID(jobID); err != nil {
		return Status{}, err
	}

	resp, err := c.http.Do(ctx, "/api/jobs/"+url.PathEscape(jobID)+"/status", request.Options{})
	if err != nil {
		return Status{}, err
	}

	var status Status
	if !resp.IsJSON() {
		// A text answer carries no terminal signal.
		status.Raw = resp.Bytes()
		return status, nil
	}
	if err := resp.Decode(&status); err != nil {
		return Status{}, apierr.From(err)
	}
	return status, nil
}

// DownloadURL resolves the locator of a finished job's artifact. Failures
// are returned as-is; there is no retry.
func (c *Client) DownloadURL(ctx context.Context, jobID string) (Locator, error) {
	if err := requireJobID(jobID); err != nil {
		return Locator{}, err
	}

	ctx, span := c.tracer.Start(ctx, "jobs.DownloadURL", trace.WithAttributes(attribute.String("job.id", jobID)))
	defer span.End()

	resp, err := c.http.Do(ctx, "/api/jobs/"+url.PathEscape(jobID)+"/download-url", request.Options{})
	if err != nil {
		return Locator{}, c.fail(span, err)
	}

	var loc Locator
	if !resp.IsJSON() {
		loc.URL = strings.TrimSpace(resp.Text())
		return loc, nil
	}
	if err := resp.Decode(&loc); err != nil {
		return Locator{}, c.fail(span, apierr.From(err))
	}
	return loc, nil
}

// FetchArtifact downloads the artifact a locator points at.
func (c *Client) FetchArtifact(ctx context.Context, loc Locator) ([]byte, error) {
	if loc.URL == "" {
		return nil, apierr.New(http.StatusBadGateway, apierr.CodeHTTP, "download locator has no URL")
	}
	resp, err := c.http.Do(ctx, loc.URL, request.Options{})
	if err != nil {
		return nil, err
	}
	return resp.Bytes(), nil
}

// Health queries the service health endpoint.
func (c *Client) Health(ctx context.Context) (HealthReport, error) {
	resp, err := c.http.Do(ctx, "/health", request.Options{})
	if err != nil {
		return HealthReport{}, err
	}

	report := HealthReport{Raw: resp.Bytes()}
	if resp.IsJSON() {
		var payload struct {
			Status string `json:"status"`
		}
		if err := resp.Decode(&payload); err == nil {
			report.Status = payload.Status
		}
	} else {
		report.Status = strings.TrimSpace(resp.Text())
	}
	if report.Status == "" {
		report.Status = "ok"
	}
	return report, nil
}

// Result summarises a full conversion.
type Result struct {
	Job     Descriptor
	Status  Status
	Locator Locator
}

// Convert submits f, waits for a terminal state and resolves the download
// locator when the job is ready. A job that ends in the error state is a
// successful call; inspect Result.Status.Outcome().
func (c *Client) Convert(ctx context.Context, f *File, opts PollOptions) (Result, error) {
	desc, err := c.Submit(ctx, f)
	if err != nil {
		return Result{}, err
	}

	status, err := c.Poll(ctx, desc.ID, opts)
	if err != nil {
		return Result{Job: desc}, err
	}

	res := Result{Job: desc, Status: status}
	if status.Outcome() != OutcomeReady {
		return res, nil
	}

	loc, err := c.DownloadURL(ctx, desc.ID)
	if err != nil {
		return res, err
	}
	res.Locator = loc
	return res, nil
}

func (c *Client) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func requireJobID(jobID string) error {
	if strings.TrimSpace(jobID) == "" {
		return apierr.Validation(apierr.CodeNoJobID, "job id is required")
	}
	return nil
}

// codeOf returns a bounded metric label for err.
func codeOf(err error) string {
	apiErr, ok := apierr.As(err)
	if !ok {
		return "unknown"
	}
	if !apierr.KnownCode(apiErr.Code) {
		return apierr.CodeHTTP
	}
	return apiErr.Code
}

func multipartBody(f *File) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(f.Name)))
	header.Set("Content-Type", f.Type)

	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create multipart part: %w", err)
	}
	if f.Content != nil {
		if _, err := io.Copy(part, f.Content); err != nil {
			return nil, "", fmt.Errorf("copy file content: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
