package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vyvo/site/backend/pkg/auth"
	"github.com/vyvo/site/backend/pkg/chat"
	"github.com/vyvo/site/backend/pkg/config"
	"github.com/vyvo/site/backend/pkg/logging"
	"github.com/vyvo/site/backend/pkg/metrics"
	"github.com/vyvo/site/backend/pkg/telemetry"
)

type server struct {
	cfg    config.GatewayConfig
	chat   *chat.Client
	store  chat.Store
	proxy  http.Handler
	logger *slog.Logger
}

func newServer(cfg config.GatewayConfig, store chat.Store, logger *slog.Logger) (*server, error) {
	upstream, err := url.Parse(strings.TrimSuffix(cfg.UpstreamURL, "/"))
	if err != nil || upstream.Scheme == "" || upstream.Host == "" {
		return nil, fmt.Errorf("invalid upstream_url %q", cfg.UpstreamURL)
	}

	proxy := httputil.NewSingleHostReverseProxy(upstream)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error("upstream request failed", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"message": "conversion service unavailable",
			"code":    "HTTP_ERROR",
		})
	}

	return &server{
		cfg:    cfg,
		chat:   chat.NewClient(cfg.ChatWebhookURL, chat.WithTimeout(cfg.ChatTimeout), chat.WithLogger(logger)),
		store:  store,
		proxy:  proxy,
		logger: logger,
	}, nil
}

func main() {
	cfg, err := config.LoadGateway()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer := telemetry.InitTracer(ctx, "site-gateway", cfg.Tracing)
	defer func() { _ = shutdownTracer(context.Background()) }()

	metrics.MustRegister(nil)

	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to open session store: %v", err)
	}
	defer store.Close()

	srv, err := newServer(cfg, store, logger)
	if err != nil {
		log.Fatalf("failed to build gateway: %v", err)
	}

	httpSrv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv.routes(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("gateway shutdown error", "error", err)
		}
	}()

	logger.Info("gateway listening", "addr", cfg.ListenAddr, "upstream", cfg.UpstreamURL, "sessionStore", cfg.SessionStore)
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("gateway listen failed: %v", err)
	}

	<-ctx.Done()
	logger.Info("gateway stopped")
}

func openStore(ctx context.Context, cfg config.GatewayConfig) (chat.Store, error) {
	switch cfg.SessionStore {
	case "redis":
		return chat.NewRedisStore(ctx, cfg.RedisURL, cfg.SessionTTL)
	case "postgres":
		return chat.NewPostgresStore(cfg.PostgresDSN)
	default:
		return chat.NewMemoryStore(), nil
	}
}

func (s *server) routes() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Get("/healthz", healthzHandler)
	router.Handle("/metrics", promhttp.Handler())

	// The browser's development base address points here; job traffic is
	// forwarded untouched so the wire contract stays the upstream's.
	router.Handle("/api/*", s.proxy)
	router.Handle("/health", s.proxy)

	router.Route("/chat", func(r chi.Router) {
		r.Use(timeoutMiddleware(s.cfg.ChatTimeout + 5*time.Second))
		r.Post("/", s.handleChat)
		r.With(auth.RequireKey(s.cfg.AdminKey)).Get("/{sessionID}", s.handleTranscript)
	})

	return router
}

func timeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func healthzHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
}

type chatResponse struct {
	SessionID string         `json:"sessionId"`
	Reply     string         `json:"reply"`
	HTML      string         `json:"html"`
	Segments  []chat.Segment `json:"segments"`
	Category  chat.Category  `json:"category,omitempty"`
}

func (s *server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 16<<10)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid chat request", "code": "BAD_REQUEST"})
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "message is required", "code": "BAD_REQUEST"})
		return
	}
	if req.SessionID == "" {
		req.SessionID = chat.NewSessionID()
	}

	userAt := time.Now()
	reply := s.chat.Send(r.Context(), req.Message, req.SessionID)

	if err := s.store.Append(r.Context(), req.SessionID,
		chat.Message{Role: chat.RoleUser, Text: req.Message, At: userAt},
		chat.Message{Role: chat.RoleBot, Text: reply.Text, Category: reply.Category, At: time.Now()},
	); err != nil {
		s.logger.Error("store chat exchange", "sessionID", req.SessionID, "error", err)
	}

	segments := reply.Segments()
	writeJSON(w, http.StatusOK, chatResponse{
		SessionID: req.SessionID,
		Reply:     reply.Text,
		HTML:      chat.RenderHTML(segments),
		Segments:  segments,
		Category:  reply.Category,
	})
}

func (s *server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		if errors.Is(err, chat.ErrSessionNotFound) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, fmt.Sprintf("transcript lookup failed: %v", err), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
