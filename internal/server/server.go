package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/handiism/soundcloud-downloader/internal/audio"
	"github.com/handiism/soundcloud-downloader/internal/model"
	"github.com/handiism/soundcloud-downloader/internal/soundcloud"
)

const (
	maxRequestBody  = 1 << 16
	shutdownTimeout = 10 * time.Second
)

// Resolver turns a track locator into a tagged file.
type Resolver interface {
	Resolve(ctx context.Context, locator string) (*model.NamedFile, error)
}

// DownloadRequest is the body of POST /download.
type DownloadRequest struct {
	URL string `json:"url"`
}

// Server serves track downloads, health checks and metrics over HTTP.
type Server struct {
	resolver Resolver
	gatherer prometheus.Gatherer
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server listening on addr. gatherer may be nil, in
// which case /metrics is not served.
func NewServer(addr string, resolver Resolver, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		resolver: resolver,
		gatherer: gatherer,
		logger:   logger,
	}
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Routes returns the router of the server.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.HandleHealth)
	r.Post("/download", s.HandleDownload)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.server.Addr))

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to shutdown HTTP server gracefully", zap.Error(err))
		}
	}()

	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

// HandleHealth reports that the process is up.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleDownload resolves the posted locator and streams the tagged MP3
// back as an attachment.
func (s *Server) HandleDownload(w http.ResponseWriter, r *http.Request) {
	var req DownloadRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	file, err := s.resolver.Resolve(r.Context(), req.URL)
	if err != nil {
		status := statusFor(err)
		s.logger.Warn("Download failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("url", req.URL),
			zap.Int("status", status),
			zap.Error(err))
		writeError(w, status, err.Error())
		return
	}
	defer file.Release()

	w.Header().Set("Content-Type", file.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	w.Header().Set("Content-Length", strconv.Itoa(file.Size()))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(file.Data); err != nil {
		s.logger.Debug("Client went away", zap.Error(err))
	}
}

// statusFor maps a resolution error to a response status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrTrackLocatorNotFound):
		return http.StatusBadRequest
	case errors.Is(err, soundcloud.ErrCredentialNotFound),
		errors.Is(err, soundcloud.ErrResolveFailed),
		errors.Is(err, soundcloud.ErrNoUsableStream),
		errors.Is(err, audio.ErrFetchFailed),
		errors.Is(err, audio.ErrUnknownProtocol):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		s.logger.Info("HTTP request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
