package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"shelve/internal/logging"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(bind string, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(bind),
		logger: logger,
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", srv.handleHealth)
	mux.HandleFunc("GET /api/settings", srv.handleGetSettings)
	mux.HandleFunc("POST /api/settings", srv.handleUpdateSettings)
	mux.HandleFunc("GET /api/watched-folders", srv.handleListFolders)
	mux.HandleFunc("POST /api/watched-folders", srv.handleAddFolder)
	mux.HandleFunc("DELETE /api/watched-folders/{id}", srv.handleRemoveFolder)
	mux.HandleFunc("POST /api/watched-folders/{id}/toggle", srv.handleToggleFolder)
	mux.HandleFunc("GET /api/categories", srv.handleListCategories)
	mux.HandleFunc("POST /api/categories", srv.handleAddCategory)
	mux.HandleFunc("PUT /api/categories/{id}", srv.handleUpdateCategory)
	mux.HandleFunc("DELETE /api/categories/{id}", srv.handleRemoveCategory)
	mux.HandleFunc("POST /api/process-folder/{id}", srv.handleProcessFolder)
	mux.HandleFunc("GET /api/process-folder/{id}/progress", srv.handleProgress)
	mux.HandleFunc("POST /api/process-folder/{id}/cancel", srv.handleCancel)
	mux.HandleFunc("GET /api/history", srv.handleHistory)
	mux.HandleFunc("GET /api/history/stats", srv.handleHistoryStats)
	mux.HandleFunc("POST /api/history/{id}/undo", srv.handleUndo)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil || s.bind == "" {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// Addr returns the bound listen address, useful when the bind port is 0.
func (s *apiServer) addr() string {
	if s.listener == nil {
		return s.bind
	}
	return s.listener.Addr().String()
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String(logging.FieldComponent, "api-server"))
	}
	return logging.NewNop()
}
