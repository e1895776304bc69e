package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vyvo/site/backend/pkg/chat"
	"github.com/vyvo/site/backend/pkg/config"
)

func newTestGateway(t *testing.T, upstream, webhook string) (*httptest.Server, chat.Store) {
	t.Helper()
	store := chat.NewMemoryStore()
	cfg := config.GatewayConfig{
		UpstreamURL:    upstream,
		ChatWebhookURL: webhook,
		ChatTimeout:    time.Second,
		AdminKey:       "operator-key",
	}
	srv, err := newServer(cfg, store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}
	gw := httptest.NewServer(srv.routes())
	t.Cleanup(gw.Close)
	return gw, store
}

func TestGatewayProxiesJobRoutes(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"path": r.URL.Path})
	}))
	defer upstream.Close()

	gw, _ := newTestGateway(t, upstream.URL, "http://127.0.0.1:1")

	for _, path := range []string{"/api/jobs/j-1/status", "/health"} {
		resp, err := http.Get(gw.URL + path)
		if err != nil {
			t.Fatalf("get %s: %v", path, err)
		}
		var body map[string]string
		_ = json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()
		if body["path"] != path {
			t.Fatalf("expected upstream to see %s, got %#v", path, body)
		}
	}
}

func TestGatewayChatRelay(t *testing.T) {
	webhook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"output":"**Sure!** Book here: https://calendly.com/vyvo/demo"}]`))
	}))
	defer webhook.Close()

	gw, store := newTestGateway(t, "http://127.0.0.1:1", webhook.URL)

	payload, _ := json.Marshal(chatRequest{Message: "Can we talk?", SessionID: "session_1"})
	resp, err := http.Post(gw.URL+"/chat", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Category != "" || out.SessionID != "session_1" {
		t.Fatalf("unexpected response %#v", out)
	}
	if len(out.Segments) != 2 || out.Segments[1].Href != "https://calendly.com/vyvo/demo" {
		t.Fatalf("unexpected segments %#v", out.Segments)
	}

	sess, err := store.Get(context.Background(), "session_1")
	if err != nil {
		t.Fatalf("transcript: %v", err)
	}
	if len(sess.Messages) != 2 || sess.Messages[0].Role != chat.RoleUser {
		t.Fatalf("unexpected transcript %#v", sess.Messages)
	}

	anon, err := http.Get(gw.URL + "/chat/session_1")
	if err != nil {
		t.Fatalf("get transcript: %v", err)
	}
	anon.Body.Close()
	if anon.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", anon.StatusCode)
	}

	tr, err := getWithKey(gw.URL + "/chat/session_1")
	if err != nil {
		t.Fatalf("get transcript: %v", err)
	}
	tr.Body.Close()
	if tr.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", tr.StatusCode)
	}

	missing, err := getWithKey(gw.URL + "/chat/unknown")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", missing.StatusCode)
	}
}

func TestGatewayChatRejectsEmptyMessage(t *testing.T) {
	gw, _ := newTestGateway(t, "http://127.0.0.1:1", "http://127.0.0.1:1")

	resp, err := http.Post(gw.URL+"/chat", "application/json", bytes.NewReader([]byte(`{"message":"   "}`)))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func getWithKey(url string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Key operator-key")
	return http.DefaultClient.Do(req)
}
