package web

import (
	"net/http"
	"time"

	"channel-insight/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Server exposes the submission and polling API.
type Server struct {
	uc      usecase.AnalysisUseCase
	baseURL string
	log     *zerolog.Logger
}

func NewServer(uc usecase.AnalysisUseCase, baseURL string, logger *zerolog.Logger) *Server {
	return &Server{uc: uc, baseURL: baseURL, log: logger}
}

// Router builds the chi router with the API routes and operational endpoints.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Post("/analyze", s.handleAnalyze)
	r.Get("/job-status/{jobID}", s.handleJobStatus)
	r.Get("/job-results/{jobID}", s.handleJobResults)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// requestLogger tags each request with an id and logs method/path/duration.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Debug().
			Str("request_id", reqID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}
