// Package api exposes the read-only HTTP surface over the snapshot store.
// The store has no update or delete operations, so the API has no write
// endpoints by construction.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/plexfield/pagewatch/internal/snapshot"
)

const (
	defaultSnapshotLimit = 10
	maxSnapshotLimit     = 100
	shutdownGrace        = 10 * time.Second
)

// Server wires the HTTP handlers to the snapshot store.
type Server struct {
	router chi.Router
	store  snapshot.Store
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(store snapshot.Store, logger *zap.Logger) *Server {
	s := &Server{store: store, logger: logger}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)

	r.Get("/healthz", s.healthz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/pages", s.listPages)
		r.Route("/pages/{pageID}", func(r chi.Router) {
			r.Get("/snapshots", s.listSnapshots)
			r.Get("/diffs/latest", s.latestDiff)
		})
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve runs the HTTP server on addr until ctx is canceled, then shuts
// down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("api server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("api server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("api shutdown: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listPages(w http.ResponseWriter, r *http.Request) {
	pages, err := s.store.Pages(r.Context())
	if err != nil {
		s.logger.Error("list pages failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to list pages")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"pages": pages})
}

func (s *Server) listSnapshots(w http.ResponseWriter, r *http.Request) {
	pageID, ok := s.pageID(w, r)
	if !ok {
		return
	}
	limit := defaultSnapshotLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	if limit > maxSnapshotLimit {
		limit = maxSnapshotLimit
	}

	// Raw HTML and body text carry json:"-" on the snapshot type, so the
	// response is metadata only.
	snaps, err := s.store.LatestSnapshots(r.Context(), pageID, limit)
	if err != nil {
		s.logger.Error("list snapshots failed", zap.Int64("page_id", pageID), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to list snapshots")
		return
	}
	if snaps == nil {
		snaps = []snapshot.Snapshot{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"page_id": pageID, "snapshots": snaps})
}

func (s *Server) latestDiff(w http.ResponseWriter, r *http.Request) {
	pageID, ok := s.pageID(w, r)
	if !ok {
		return
	}
	diff, err := s.store.LatestDiff(r.Context(), pageID)
	if err != nil {
		if errors.Is(err, snapshot.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "no diff for page")
			return
		}
		s.logger.Error("latest diff failed", zap.Int64("page_id", pageID), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to load diff")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"diff": diff})
}

func (s *Server) pageID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "pageID"), 10, 64)
	if err != nil || id < 1 {
		s.writeError(w, http.StatusBadRequest, "invalid page id")
		return 0, false
	}
	return id, true
}

type requestIDKey struct{}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()))
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("panic", rec))
				s.writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
