package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/presetworks/overseer/internal/interaction"
	"github.com/presetworks/overseer/internal/setup/config"
	"go.uber.org/zap"
)

// Discord signature headers on inbound webhook requests.
const (
	HeaderSignature = "X-Signature-Ed25519"
	HeaderTimestamp = "X-Signature-Timestamp"
)

// Server is the inbound webhook endpoint. Every interaction arrives as an
// HTTP POST, is authenticated byte-for-byte before parsing, and leaves as
// exactly one response envelope.
type Server struct {
	config   *config.Server
	verifier *interaction.Verifier
	router   *interaction.Router
	logger   *zap.Logger
	server   *http.Server
}

// New creates the webhook server.
func New(cfg *config.Server, verifier *interaction.Verifier, router *interaction.Router, logger *zap.Logger) *Server {
	s := &Server{
		config:   cfg,
		verifier: verifier,
		router:   router,
		logger:   logger.Named("server"),
	}

	s.server = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      s.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Run serves until the context is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("Webhook server starting", zap.String("listen_addr", s.config.ListenAddr))

	errCh := make(chan error, 1)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Webhook server shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// Handler exposes the route tree for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Post("/interactions", s.handleInteraction)
	r.Get("/healthz", s.handleHealth)

	return r
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Debug("Request handled",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("remote_addr", r.RemoteAddr))
	})
}

// handleInteraction authenticates and dispatches one interaction. Business
// outcomes never surface here as HTTP errors; only authentication and
// protocol failures do.
func (s *Server) handleInteraction(w http.ResponseWriter, r *http.Request) {
	// Cheap fast-reject on the declared length. The header is spoofable, so
	// the authoritative check runs over the actual bytes below.
	if length := r.Header.Get("Content-Length"); length != "" {
		if declared, err := strconv.ParseInt(length, 10, 64); err == nil && declared > interaction.MaxBodyBytes {
			http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
			return
		}
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, interaction.MaxBodyBytes+1))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if len(body) > interaction.MaxBodyBytes {
		http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
		return
	}

	signature := r.Header.Get(HeaderSignature)
	timestamp := r.Header.Get(HeaderTimestamp)

	if err := s.verifier.Verify(signature, timestamp, body); err != nil {
		s.logger.Warn("Rejected unauthenticated interaction",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err))
		http.Error(w, "invalid request signature", http.StatusUnauthorized)

		return
	}

	var payload interaction.Payload
	if err := sonic.Unmarshal(body, &payload); err != nil {
		http.Error(w, "malformed payload", http.StatusBadRequest)
		return
	}

	response, err := s.router.Handle(r.Context(), &payload)
	if err != nil {
		http.Error(w, "unknown interaction type", http.StatusBadRequest)
		return
	}

	s.writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, value any) {
	data, err := sonic.Marshal(value)
	if err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if _, err := w.Write(data); err != nil {
		s.logger.Debug("Failed to write response", zap.Error(err))
	}
}
