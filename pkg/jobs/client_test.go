package jobs

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vyvo/site/backend/pkg/apierr"
	"github.com/vyvo/site/backend/pkg/request"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return NewClient(request.NewClient(srv.URL), nil), &calls
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestSubmitUploadsMultipart(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/jobs" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "no file"})
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if string(data) != "%PDF-1.7" || header.Filename != "statement.pdf" {
			t.Errorf("unexpected upload %q %q", header.Filename, data)
		}
		if ct := header.Header.Get("Content-Type"); ct != "application/pdf" {
			t.Errorf("unexpected part content type %q", ct)
		}
		writeJSON(w, http.StatusCreated, map[string]string{"jobId": "job-42"})
	})

	desc, err := c.Submit(context.Background(), NewFile("statement.pdf", "application/pdf", []byte("%PDF-1.7")))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if desc.ID != "job-42" {
		t.Fatalf("unexpected descriptor %#v", desc)
	}
	if atomic.LoadInt32(calls) != 1 {
		t.Fatalf("expected one call, got %d", *calls)
	}
}

func TestSubmitValidationSkipsNetwork(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]string{"id": "nope"})
	})

	_, err := c.Submit(context.Background(), NewFile("notes.txt", "text/plain", []byte("hi")))
	if !apierr.HasCode(err, apierr.CodeInvalidFileType) {
		t.Fatalf("expected INVALID_FILE_TYPE, got %v", err)
	}

	big := &File{Name: "scan.png", Type: "image/png", Size: MaxFileSize + 1}
	_, err = c.Submit(context.Background(), big)
	if !apierr.HasCode(err, apierr.CodeFileTooLarge) {
		t.Fatalf("expected FILE_TOO_LARGE, got %v", err)
	}

	_, err = c.Submit(context.Background(), nil)
	if !apierr.HasCode(err, apierr.CodeNoFile) {
		t.Fatalf("expected NO_FILE, got %v", err)
	}

	if n := atomic.LoadInt32(calls); n != 0 {
		t.Fatalf("expected zero network calls, got %d", n)
	}
}

func TestSubmitPropagatesHelperErrorUnchanged(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"message": "queue full", "code": "QUEUE_FULL"})
	})

	_, err := c.Submit(context.Background(), NewFile("a.pdf", "application/pdf", []byte("x")))
	apiErr, ok := err.(*apierr.Error)
	if !ok {
		t.Fatalf("expected bare *apierr.Error, got %T", err)
	}
	if apiErr.Message != "queue full" || apiErr.Status != 503 || apiErr.Code != "QUEUE_FULL" {
		t.Fatalf("error altered on the way out: %#v", apiErr)
	}
}

func TestPollTimesOutAfterMaxAttempts(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ready": false, "status": "processing"})
	})

	var observed int
	start := time.Now()
	_, err := c.Poll(context.Background(), "job-1", PollOptions{
		Interval: time.Millisecond,
		OnStatus: func(Status) { observed++ },
	})
	elapsed := time.Since(start)

	apiErr, ok := apierr.As(err)
	if !ok || apiErr.Code != apierr.CodePollingTimeout || apiErr.Status != 408 {
		t.Fatalf("expected POLLING_TIMEOUT/408, got %v", err)
	}
	if n := atomic.LoadInt32(calls); n != DefaultMaxAttempts {
		t.Fatalf("expected %d status calls, got %d", DefaultMaxAttempts, n)
	}
	if observed != DefaultMaxAttempts {
		t.Fatalf("callback saw %d payloads", observed)
	}
	if elapsed < (DefaultMaxAttempts-1)*time.Millisecond {
		t.Fatalf("interval not honoured: %s", elapsed)
	}
}

func TestPollResolvesOnThirdAttempt(t *testing.T) {
	var n int32
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/jobs/job-7/status" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if atomic.AddInt32(&n, 1) < 3 {
			writeJSON(w, http.StatusOK, map[string]any{"ready": false, "status": "processing"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ready": true, "status": "done", "rows": 12})
	})

	status, err := c.Poll(context.Background(), "job-7", PollOptions{Interval: time.Millisecond})
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if status.Outcome() != OutcomeReady {
		t.Fatalf("expected ready, got %s", status.Outcome())
	}
	var payload map[string]any
	if err := json.Unmarshal(status.Raw, &payload); err != nil || payload["rows"] != float64(12) {
		t.Fatalf("payload not returned verbatim: %s", status.Raw)
	}
	if got := atomic.LoadInt32(calls); got != 3 {
		t.Fatalf("expected exactly 3 calls, got %d", got)
	}
}

func TestPollResolvesWithErrorPayload(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "error", "message": "bad scan"})
	})

	status, err := c.Poll(context.Background(), "job-9", PollOptions{Interval: time.Hour})
	if err != nil {
		t.Fatalf("expected resolution, got %v", err)
	}
	if status.Outcome() != OutcomeFailed || status.Message != "bad scan" {
		t.Fatalf("unexpected status %#v", status)
	}
	if got := atomic.LoadInt32(calls); got != 1 {
		t.Fatalf("expected one call, got %d", got)
	}
}

func TestPollStopsOnTransportFailure(t *testing.T) {
	var n int32
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&n, 1) == 2 {
			writeJSON(w, http.StatusBadGateway, map[string]string{"message": "upstream down"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ready": false})
	})

	_, err := c.Poll(context.Background(), "job-3", PollOptions{Interval: time.Millisecond})
	apiErr, ok := apierr.As(err)
	if !ok || apiErr.Status != 502 || apiErr.Message != "upstream down" {
		t.Fatalf("expected the HTTP error, got %v", err)
	}
	if got := atomic.LoadInt32(calls); got != 2 {
		t.Fatalf("expected no retry after failure, got %d calls", got)
	}
}

func TestPollRequiresJobID(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	if _, err := c.Poll(context.Background(), "", PollOptions{}); !apierr.HasCode(err, apierr.CodeNoJobID) {
		t.Fatalf("expected NO_JOB_ID, got %v", err)
	}
	if _, err := c.DownloadURL(context.Background(), " "); !apierr.HasCode(err, apierr.CodeNoJobID) {
		t.Fatalf("expected NO_JOB_ID, got %v", err)
	}
	if got := atomic.LoadInt32(calls); got != 0 {
		t.Fatalf("expected no calls, got %d", got)
	}
}

func TestPollHonoursCancellation(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ready": false})
	})

	ctx, cancel := context.WithCancel(context.Background())
	_, err := c.Poll(ctx, "job-5", PollOptions{
		Interval: time.Hour,
		OnStatus: func(Status) { cancel() },
	})
	if !apierr.HasCode(err, apierr.CodeCancelled) {
		t.Fatalf("expected CANCELLED, got %v", err)
	}
}

func TestConvertEndToEnd(t *testing.T) {
	var srvURL string
	var statusCalls int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/jobs":
			writeJSON(w, http.StatusCreated, map[string]string{"id": "j-1"})
		case "/api/jobs/j-1/status":
			if atomic.AddInt32(&statusCalls, 1) == 1 {
				writeJSON(w, http.StatusOK, map[string]any{"ready": false, "status": "queued"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ready": true})
		case "/api/jobs/j-1/download-url":
			writeJSON(w, http.StatusOK, map[string]string{"url": srvURL + "/files/j-1.csv"})
		case "/files/j-1.csv":
			w.Header().Set("Content-Type", "text/csv")
			_, _ = w.Write([]byte("date,amount\n2024-01-01,10\n"))
		default:
			http.NotFound(w, r)
		}
	})
	srvURL = c.http.BaseURL()

	res, err := c.Convert(context.Background(), NewFile("a.png", "image/png", []byte{0x89}), PollOptions{Interval: time.Millisecond})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if res.Job.ID != "j-1" || res.Status.Outcome() != OutcomeReady {
		t.Fatalf("unexpected result %#v", res)
	}

	data, err := c.FetchArtifact(context.Background(), res.Locator)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(data) != "date,amount\n2024-01-01,10\n" {
		t.Fatalf("unexpected artifact %q", data)
	}
}

func TestHealth(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	report, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if report.Status != "healthy" {
		t.Fatalf("unexpected status %q", report.Status)
	}
}

func TestSubmitErrorCodesAreBoundedForMetrics(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"message": "scan unreadable",
			"code":    "OCR_FAILED_PAGE_7",
		})
	})

	_, err := c.Submit(context.Background(), NewFile("scan.png", "image/png", []byte("png")))
	if !apierr.HasCode(err, "OCR_FAILED_PAGE_7") {
		t.Fatalf("expected the server code to reach the caller, got %v", err)
	}
	if got := codeOf(err); got != apierr.CodeHTTP {
		t.Fatalf("expected label %s, got %s", apierr.CodeHTTP, got)
	}
	if got := codeOf(apierr.Validation(apierr.CodeFileTooLarge, "big")); got != apierr.CodeFileTooLarge {
		t.Fatalf("expected known code to pass through, got %s", got)
	}
}
