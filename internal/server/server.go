// Package server exposes the view controller over HTTP.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rcliao/postcache/internal/model"
	"github.com/rcliao/postcache/internal/projection"
	"github.com/rcliao/postcache/internal/store"
	"github.com/rcliao/postcache/internal/view"
)

// Screen is the controller surface the server drives.
type Screen interface {
	RefreshRemote()
	LoadLocal()
	Snapshot(ctx context.Context) (view.Frame, error)
}

// History is the read side of the store used for stats and run listings.
type History interface {
	Stats(ctx context.Context, dbPath string) (*store.Stats, error)
	ListRuns(ctx context.Context, limit int) ([]model.SyncRun, error)
}

// Server serves the current frame and accepts the two user actions.
type Server struct {
	screen  Screen
	history History
	dbPath  string
	logger  *slog.Logger
}

// New creates a Server.
func New(screen Screen, history History, dbPath string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{screen: screen, history: history, dbPath: dbPath, logger: logger}
}

// Handler returns a router with all routes registered.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	s.RegisterHTTP(r)
	return r
}

// RegisterHTTP registers the endpoints on a chi router.
func (s *Server) RegisterHTTP(r chi.Router) {
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/posts", s.handleList)
	r.Get("/posts/{row}", s.handleRow)

	r.Post("/actions/refresh", s.handleRefresh)
	r.Post("/actions/load-local", s.handleLoadLocal)

	r.Get("/stats", s.handleStats)
	r.Get("/runs", s.handleRuns)
}

type listResponse struct {
	Title  string            `json:"title"`
	Source string            `json:"source"`
	Count  int               `json:"count"`
	Items  []projection.Item `json:"items"`
}

type rowResponse struct {
	Row   int    `json:"row"`
	ID    int    `json:"id"`
	Title string `json:"title"`
}

func (s *Server) snapshot(w http.ResponseWriter, r *http.Request) (view.Frame, bool) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	f, err := s.screen.Snapshot(ctx)
	if err != nil {
		s.logger.Warn("snapshot", "error", err)
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return view.Frame{}, false
	}
	return f, true
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	f, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, listResponse{
		Title:  f.Title,
		Source: f.List.Source().String(),
		Count:  f.List.Count(),
		Items:  f.List.Items(),
	})
}

func (s *Server) handleRow(w http.ResponseWriter, r *http.Request) {
	row, err := strconv.Atoi(chi.URLParam(r, "row"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "row must be an integer")
		return
	}

	f, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	it, found := f.List.ItemAt(row)
	if !found {
		writeError(w, http.StatusNotFound, "no such row")
		return
	}
	writeJSON(w, http.StatusOK, rowResponse{Row: row, ID: it.ID, Title: it.Title})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.screen.RefreshRemote()
	writeJSON(w, http.StatusAccepted, map[string]string{"action": "refresh"})
}

func (s *Server) handleLoadLocal(w http.ResponseWriter, r *http.Request) {
	s.screen.LoadLocal()
	writeJSON(w, http.StatusAccepted, map[string]string{"action": "load-local"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.history.Stats(r.Context(), s.dbPath)
	if err != nil {
		s.logger.Error("stats", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	runs, err := s.history.ListRuns(r.Context(), limit)
	if err != nil {
		s.logger.Error("list runs", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
