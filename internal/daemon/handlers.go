package daemon

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"

	"shelve/internal/api"
	"shelve/internal/bulk"
	"shelve/internal/organizer"
	"shelve/internal/store"
	"shelve/internal/watcher"
)

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	folders, err := s.daemon.store.ListFolders(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	categories, err := s.daemon.store.ListCategories(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.Health{
		Status:         "ok",
		PID:            os.Getpid(),
		DatabasePath:   s.daemon.store.Path(),
		WatchedFolders: len(folders),
		ActiveWatches:  len(s.daemon.registry.WatchedIDs()),
		Categories:     len(categories),
	})
}

func (s *apiServer) handleGetSettings(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, api.FromSettings(s.daemon.Settings()))
}

func (s *apiServer) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var payload api.Settings
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid settings payload")
		return
	}
	next := api.ToSettings(payload)
	if err := next.Validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.daemon.UpdateSettings(r.Context(), next); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromSettings(s.daemon.Settings()))
}

func (s *apiServer) handleListFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := s.daemon.store.ListFolders(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	payload := make([]api.WatchedFolder, 0, len(folders))
	for _, folder := range folders {
		payload = append(payload, api.FromFolder(folder, s.daemon.Watching(folder.ID), s.daemon.countFiles(folder.Path)))
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleAddFolder(w http.ResponseWriter, r *http.Request) {
	var payload api.AddFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Path == "" {
		s.writeError(w, http.StatusBadRequest, "path is required")
		return
	}
	folder, err := s.daemon.AddFolder(r.Context(), payload.Path)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.FromFolder(folder, s.daemon.Watching(folder.ID), s.daemon.countFiles(folder.Path)))
}

func (s *apiServer) handleRemoveFolder(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.daemon.RemoveFolder(r.Context(), id); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"removed": true})
}

func (s *apiServer) handleToggleFolder(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	folder, err := s.daemon.ToggleFolder(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromFolder(folder, s.daemon.Watching(folder.ID), s.daemon.countFiles(folder.Path)))
}

func (s *apiServer) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.daemon.store.ListCategories(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	payload := make([]api.Category, 0, len(categories))
	for _, category := range categories {
		payload = append(payload, api.FromCategory(category))
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	var payload api.CategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Name == "" || payload.Destination == "" {
		s.writeError(w, http.StatusBadRequest, "name and destination are required")
		return
	}
	category, err := s.daemon.store.AddCategory(r.Context(), payload.Name, payload.Destination, payload.Description, payload.Extensions)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.FromCategory(category))
}

func (s *apiServer) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var payload api.CategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Destination == "" {
		s.writeError(w, http.StatusBadRequest, "destination is required")
		return
	}
	category, err := s.daemon.store.UpdateCategory(r.Context(), id, payload.Destination, payload.Description, payload.Extensions)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromCategory(category))
}

func (s *apiServer) handleRemoveCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.daemon.store.RemoveCategory(r.Context(), id); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"removed": true})
}

func (s *apiServer) handleProcessFolder(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if r.URL.Query().Get("async") == "1" {
		jobID, err := s.daemon.processor.RunAsync(r.Context(), id)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		s.writeJSON(w, http.StatusAccepted, api.ProcessAccepted{JobID: jobID})
		return
	}
	summary, err := s.daemon.processor.RunSync(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromSummary(summary))
}

func (s *apiServer) handleProgress(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	progress, err := s.daemon.processor.Progress(id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromProgress(progress))
}

func (s *apiServer) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.daemon.processor.Cancel(id); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]bool{"cancelled": true})
}

func (s *apiServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}
	movements, err := s.daemon.store.ListMovements(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	payload := make([]api.Movement, 0, len(movements))
	for _, movement := range movements {
		payload = append(payload, api.FromMovement(movement))
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleHistoryStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.daemon.store.MovementStats(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromStats(stats))
}

func (s *apiServer) handleUndo(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	movement, err := s.daemon.mover.Undo(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromMovement(movement))
}

func (s *apiServer) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

// writeDomainError maps the error taxonomy onto HTTP statuses.
func (s *apiServer) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, bulk.ErrNoJob):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrDuplicate),
		errors.Is(err, bulk.ErrAlreadyProcessing),
		errors.Is(err, organizer.ErrConflict),
		errors.Is(err, watcher.ErrAlreadyWatching):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, watcher.ErrPathNotFound):
		s.writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}
