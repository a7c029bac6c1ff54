// Package api exposes the read-only HTTP interface over the buyer store.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/leadharvest/buyerscout/internal/buyer"
	"github.com/leadharvest/buyerscout/internal/config"
	"github.com/leadharvest/buyerscout/internal/metrics"
)

const defaultRecentHours = 24

// Server wires HTTP handlers to the buyer store. Every endpoint is a read;
// writes happen only through the discovery loop.
type Server struct {
	router chi.Router
	store  buyer.Store
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(store buyer.Store, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		store:  store,
		logger: logger.Named("api"),
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))
	r.Use(recoverMiddleware(s.logger))
	r.Use(timeoutMiddleware(30 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		if cfg.Auth.Enabled {
			r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
		}
		r.Get("/buyers", s.listBuyers)
		r.Get("/recent", s.listRecent)
		r.Get("/stats", s.stats)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	// Ready means the store answers; an empty store is still ready.
	if _, err := s.store.QuerySince(r.Context(), time.Minute); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) listBuyers(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.QueryAll(r.Context())
	if err != nil {
		s.logger.Error("query all buyers failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, buyersResponse{Buyers: emptyIfNil(records), Count: len(records)})
}

func (s *Server) listRecent(w http.ResponseWriter, r *http.Request) {
	hours := defaultRecentHours
	if raw := r.URL.Query().Get("hours"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "hours must be a positive integer")
			return
		}
		hours = parsed
	}
	records, err := s.store.QuerySince(r.Context(), time.Duration(hours)*time.Hour)
	if err != nil {
		s.logger.Error("query recent buyers failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, recentResponse{
		Buyers: emptyIfNil(records),
		Count:  len(records),
		Hours:  hours,
	})
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	all, err := s.store.QueryAll(r.Context())
	if err != nil {
		s.logger.Error("query stats failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	day, err := s.store.QuerySince(r.Context(), 24*time.Hour)
	if err != nil {
		s.logger.Error("query stats failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	hour, err := s.store.QuerySince(r.Context(), time.Hour)
	if err != nil {
		s.logger.Error("query stats failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		TotalBuyers: len(all),
		Last24Hours: len(day),
		LastHour:    len(hour),
	})
}

type buyersResponse struct {
	Buyers []buyer.Record `json:"buyers"`
	Count  int            `json:"count"`
}

type recentResponse struct {
	Buyers []buyer.Record `json:"buyers"`
	Count  int            `json:"count"`
	Hours  int            `json:"hours"`
}

type statsResponse struct {
	TotalBuyers int `json:"total_buyers"`
	Last24Hours int `json:"last_24_hours"`
	LastHour    int `json:"last_hour"`
}

func emptyIfNil(records []buyer.Record) []buyer.Record {
	if records == nil {
		return []buyer.Record{}
	}
	return records
}

type requestIDKey struct{}

func contextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := contextWithRequestID(r.Context(), reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			elapsed := time.Since(start)
			route := chi.RouteContext(r.Context()).RoutePattern()
			metrics.ObserveHTTPRequest(r.Method, route, ww.status, elapsed)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Duration("elapsed", elapsed),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("error", rec))
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if key != expected {
				writeError(w, http.StatusForbidden, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
