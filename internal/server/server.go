// Package server exposes the analysis pipeline over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"findoc/internal/extraction"
	"findoc/internal/logger"
	"findoc/internal/metrics"
	"findoc/pkg/services"
)

// StatusMessage is the body of GET /.
const StatusMessage = "AI financial document backend is running"

// formField is the multipart field carrying the upload.
const formField = "file"

// multipartOverhead is allowed on top of the upload size for form framing.
const multipartOverhead = 1 << 20

// Options configures the HTTP handler.
type Options struct {
	MaxUploadBytes int64
	AllowedOrigins []string
}

// Server routes HTTP requests to the analysis service.
type Server struct {
	svc     services.AnalysisService
	metrics *metrics.ServiceMetrics
	opts    Options
	log     zerolog.Logger
}

// New returns a Server. m may be nil.
func New(svc services.AnalysisService, m *metrics.ServiceMetrics, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = extraction.DefaultMaxBytes
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return &Server{
		svc:     svc,
		metrics: m,
		opts:    opts,
		log:     logger.WithComponent("server"),
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	if s.metrics != nil {
		r.Use(s.metrics.Middleware(routePattern))
	}
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleStatus)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Post("/analyze", s.handleAnalyze)
	r.Post("/analyze/", s.handleAnalyze)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	c := cors.New(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(r)
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": StatusMessage})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes+multipartOverhead)

	file, header, err := r.FormFile(formField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", s.opts.MaxUploadBytes))
		case errors.Is(err, http.ErrMissingFile):
			writeError(w, http.StatusBadRequest, `multipart field "file" is required`)
		default:
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid multipart upload: %v", err))
		}
		return
	}
	defer file.Close()

	if header.Size > s.opts.MaxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", s.opts.MaxUploadBytes))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.internalError(w, r, fmt.Errorf("read upload: %w", err))
		return
	}

	rec, err := s.svc.Analyze(r.Context(), header.Filename, data)
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.log.Error().Err(err).Str("path", r.URL.Path).Msg("Analysis request failed")
	if s.metrics != nil {
		s.metrics.ObserveInternalError(r.URL.Path)
	}
	writeError(w, http.StatusInternalServerError, fmt.Sprintf("Internal error: %v", err))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
