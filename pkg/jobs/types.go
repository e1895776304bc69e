package jobs

import (
	"bytes"
	"encoding/json"
)

// Outcome classifies a status payload from the client's point of view.
type Outcome string

const (
	// OutcomePending means the job is still queued or processing.
	OutcomePending Outcome = "pending"
	// OutcomeReady means the artifact can be downloaded.
	OutcomeReady Outcome = "ready"
	// OutcomeFailed means the server gave up on the job.
	OutcomeFailed Outcome = "failed"
)

// StatusError is the status string the server uses for a failed job.
const StatusError = "error"

// Descriptor is the response of a job submission.
type Descriptor struct {
	ID  string          `json:"id"`
	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON accepts the identifier under id, jobId or job_id.
func (d *Descriptor) UnmarshalJSON(data []byte) error {
	var payload struct {
		ID     string `json:"id"`
		JobID  string `json:"jobId"`
		JobID2 string `json:"job_id"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	d.ID = firstNonEmpty(payload.ID, payload.JobID, payload.JobID2)
	d.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// Status is one observation of a job. Only Ready and State drive polling;
// the full payload is kept in Raw.
type Status struct {
	Ready   bool            `json:"ready"`
	State   string          `json:"status,omitempty"`
	Message string          `json:"message,omitempty"`
	Error   json.RawMessage `json:"error,omitempty"`
	Raw     json.RawMessage `json:"-"`
}

// UnmarshalJSON is tolerant of loosely typed payloads: ready follows
// JavaScript truthiness and status only counts when it is a string.
func (s *Status) UnmarshalJSON(data []byte) error {
	var payload struct {
		Ready   json.RawMessage `json:"ready"`
		Status  json.RawMessage `json:"status"`
		Message json.RawMessage `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		// Non-object payloads carry no terminal signal.
		*s = Status{Raw: append(json.RawMessage(nil), data...)}
		return nil
	}
	*s = Status{
		Ready:   truthy(payload.Ready),
		State:   jsonString(payload.Status),
		Message: jsonString(payload.Message),
		Error:   payload.Error,
		Raw:     append(json.RawMessage(nil), data...),
	}
	return nil
}

// Outcome reports how the payload should steer polling. Ready takes
// precedence over an error status.
func (s Status) Outcome() Outcome {
	switch {
	case s.Ready:
		return OutcomeReady
	case s.State == StatusError:
		return OutcomeFailed
	default:
		return OutcomePending
	}
}

// Terminal reports whether no further polling is meaningful.
func (s Status) Terminal() bool {
	return s.Outcome() != OutcomePending
}

// Locator points at a finished artifact.
type Locator struct {
	URL string          `json:"url"`
	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON accepts url, downloadUrl, download_url or signedUrl.
func (l *Locator) UnmarshalJSON(data []byte) error {
	var payload struct {
		URL         string `json:"url"`
		DownloadURL string `json:"downloadUrl"`
		Download2   string `json:"download_url"`
		SignedURL   string `json:"signedUrl"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	l.URL = firstNonEmpty(payload.URL, payload.DownloadURL, payload.Download2, payload.SignedURL)
	l.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// HealthReport is the decoded /health response.
type HealthReport struct {
	Status string
	Raw    []byte
}

func truthy(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}

func jsonString(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
