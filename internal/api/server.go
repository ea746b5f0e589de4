// Package api exposes the HTTP interface for the scraper service.
// Every endpoint is CORS-open: the consumers are browser apps served
// from other origins.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/regattahq/raceboard/internal/metrics"
	"github.com/regattahq/raceboard/internal/pipeline"
	"github.com/regattahq/raceboard/internal/race"
)

// Server wires HTTP handlers to the scrape pipeline.
type Server struct {
	router  chi.Router
	service *pipeline.Service
	clock   race.Clock
	ids     race.IDGenerator
	log     *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(service *pipeline.Service, clock race.Clock, ids race.IDGenerator, log *zap.Logger) *Server {
	s := &Server{
		service: service,
		clock:   clock,
		ids:     ids,
		log:     log,
	}

	r := chi.NewRouter()
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(s.timeoutMiddleware(90 * time.Second))
	r.Use(cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
	}).Handler)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Get("/scrapeRaceData", s.scrapeRaceData)
	r.Get("/scrapeNoticeBoard", s.scrapeNoticeBoard)
	r.Get("/scrapeDocuments", s.scrapeDocuments)
	r.Get("/syncRaceData", s.syncRaceData)

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(s.log, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(s.log, w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) scrapeRaceData(w http.ResponseWriter, r *http.Request) {
	eventID := r.URL.Query().Get("eventId")
	if eventID == "" {
		s.writeBadRequest(w, "eventId query parameter is required")
		return
	}
	scrapeType := r.URL.Query().Get("type")
	if scrapeType == "" {
		scrapeType = pipeline.TypeEvent
	}
	if !pipeline.ValidType(scrapeType) {
		s.writeBadRequest(w, "type must be one of event, results, documents, competitors")
		return
	}
	useCache := r.URL.Query().Get("useCache") != "false"

	resp, err := s.service.ScrapeRaceData(r.Context(), eventID, scrapeType, useCache)
	if err != nil {
		s.writeScrapeError(w, "scrape failed", err)
		return
	}
	writeJSON(s.log, w, http.StatusOK, resp)
}

func (s *Server) scrapeNoticeBoard(w http.ResponseWriter, r *http.Request) {
	eventID := r.URL.Query().Get("eventId")
	if eventID == "" {
		s.writeBadRequest(w, "eventId query parameter is required")
		return
	}
	resp, err := s.service.ScrapeNotices(r.Context(), eventID)
	if err != nil {
		s.writeScrapeError(w, "notice board scrape failed", err)
		return
	}
	writeJSON(s.log, w, http.StatusOK, resp)
}

func (s *Server) scrapeDocuments(w http.ResponseWriter, r *http.Request) {
	eventID := r.URL.Query().Get("eventId")
	if eventID == "" {
		s.writeBadRequest(w, "eventId query parameter is required")
		return
	}
	processContent := r.URL.Query().Get("processContent") == "true"

	resp, err := s.service.ScrapeDocuments(r.Context(), eventID, processContent)
	if err != nil {
		s.writeScrapeError(w, "document scrape failed", err)
		return
	}
	writeJSON(s.log, w, http.StatusOK, resp)
}

func (s *Server) syncRaceData(w http.ResponseWriter, r *http.Request) {
	eventID := r.URL.Query().Get("eventId")
	if eventID == "" {
		s.writeBadRequest(w, "eventId query parameter is required")
		return
	}
	resp, err := s.service.SyncAll(r.Context(), eventID)
	if err != nil {
		s.writeScrapeError(w, "sync failed", err)
		return
	}
	writeJSON(s.log, w, http.StatusOK, resp)
}

// errorResponse is the structured 4xx/5xx body.
type errorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *Server) writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(s.log, w, http.StatusBadRequest, errorResponse{
		Error:     "bad_request",
		Message:   msg,
		Timestamp: s.clock.Now().UTC(),
	})
}

func (s *Server) writeScrapeError(w http.ResponseWriter, label string, err error) {
	writeJSON(s.log, w, http.StatusInternalServerError, errorResponse{
		Error:     label,
		Message:   err.Error(),
		Timestamp: s.clock.Now().UTC(),
	})
}

type requestIDKey struct{}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID, err := s.ids.NewID()
		if err != nil {
			s.log.Warn("request id generation failed", zap.Error(err))
		} else {
			w.Header().Set("X-Request-ID", reqID)
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		duration := time.Since(start)
		metrics.ObserveHTTPRequest(r.Method, r.URL.Path, ww.status, duration)
		s.log.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("durationMs", duration.Milliseconds()))
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error("panic recovered", zap.Any("panic", rec))
				writeJSON(s.log, w, http.StatusInternalServerError, errorResponse{
					Error:     "internal_error",
					Message:   "internal server error",
					Timestamp: s.clock.Now().UTC(),
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// timeoutMiddleware bounds handler time. On timeout it emits the same
// structured error envelope as every other failure path; stdlib
// http.TimeoutHandler would answer with a plain-text body instead.
func (s *Server) timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			tw := &timeoutWriter{ResponseWriter: w}
			done := make(chan struct{})
			panicChan := make(chan any, 1)
			go func() {
				defer func() {
					if p := recover(); p != nil {
						panicChan <- p
					}
				}()
				next.ServeHTTP(tw, r.WithContext(ctx))
				close(done)
			}()

			select {
			case p := <-panicChan:
				panic(p)
			case <-done:
			case <-ctx.Done():
				tw.mu.Lock()
				defer tw.mu.Unlock()
				if tw.wrote {
					return // too late to change the response
				}
				tw.timedOut = true
				writeJSON(s.log, w, http.StatusServiceUnavailable, errorResponse{
					Error:     "timeout",
					Message:   "request timed out",
					Timestamp: s.clock.Now().UTC(),
				})
			}
		})
	}
}

// timeoutWriter drops handler writes that arrive after the timeout
// envelope has been sent.
type timeoutWriter struct {
	http.ResponseWriter

	mu       sync.Mutex
	wrote    bool
	timedOut bool
}

func (w *timeoutWriter) WriteHeader(status int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timedOut {
		return
	}
	w.wrote = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *timeoutWriter) Write(b []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timedOut {
		return len(b), nil
	}
	w.wrote = true
	return w.ResponseWriter.Write(b)
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func writeJSON(log *zap.Logger, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error("write JSON failed", zap.Error(err))
	}
}
