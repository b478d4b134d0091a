package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/Sprey412/backup-be/internal/backup"
	"github.com/Sprey412/backup-be/internal/services"
)

// SessionHandler handles HTTP requests related to backup sessions.
type SessionHandler struct {
	service services.SessionServiceProvider
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(service services.SessionServiceProvider) *SessionHandler {
	return &SessionHandler{service: service}
}

// StartSessionPayload is the expected JSON body for starting a session.
type StartSessionPayload struct {
	SourceRoot      string `json:"sourceRoot"`
	BackupRoot      string `json:"backupRoot,omitempty"`
	IntervalMinutes int    `json:"intervalMinutes,omitempty"`
	Cron            string `json:"cron,omitempty"`
}

// Create handles the request to start a new backup session.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload StartSessionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if payload.SourceRoot == "" {
		http.Error(w, "sourceRoot is required", http.StatusBadRequest)
		return
	}

	session, err := h.service.StartSession(payload.SourceRoot, payload.BackupRoot, payload.IntervalMinutes, payload.Cron)
	if err != nil {
		if errors.Is(err, backup.ErrInvalidConfig) {
			http.Error(w, "Invalid session configuration: "+err.Error(), http.StatusBadRequest)
			return
		}
		log.Error().Err(err).Str("source_root", payload.SourceRoot).Msg("Failed to start backup session")
		http.Error(w, "Failed to start session: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(session)
}

// GetAll handles the request to list all sessions.
func (h *SessionHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.service.GetAllSessions())
}

// Get handles the request to get a single session with its live status.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	session, err := h.service.GetSessionByID(sessionID)
	if err != nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(session)
}

// Stop handles the request to halt a session's schedule.
func (h *SessionHandler) Stop(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if err := h.service.StopSession(sessionID); err != nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete handles the request to stop and remove a session.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if err := h.service.RemoveSession(sessionID); err != nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TriggerBackup handles the request to run a backup pass immediately.
func (h *SessionHandler) TriggerBackup(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if err := h.service.TriggerBackup(sessionID); err != nil {
		if errors.Is(err, backup.ErrNotRunning) {
			http.Error(w, "Session is not running", http.StatusConflict)
			return
		}
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"message": "Backup pass triggered."})
}
