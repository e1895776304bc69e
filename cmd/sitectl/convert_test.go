package main

import (
	"encoding/json"
	"testing"

	"github.com/vyvo/site/backend/pkg/jobs"
)

func TestCSVName(t *testing.T) {
	cases := map[string]string{
		"statement.pdf":          "statement.csv",
		"/tmp/scans/receipt.JPG": "receipt.csv",
		"noext":                  "noext.csv",
	}
	for in, want := range cases {
		if got := csvName(in); got != want {
			t.Fatalf("csvName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFailureMessage(t *testing.T) {
	var s jobs.Status
	if err := json.Unmarshal([]byte(`{"status":"error","message":"bad scan"}`), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := failureMessage(s); got != "bad scan" {
		t.Fatalf("unexpected message %q", got)
	}

	if err := json.Unmarshal([]byte(`{"status":"error","error":{"reason":"ocr"}}`), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := failureMessage(s); got != `{"reason":"ocr"}` {
		t.Fatalf("unexpected message %q", got)
	}

	if got := failureMessage(jobs.Status{}); got == "" {
		t.Fatalf("expected a default message")
	}
}
