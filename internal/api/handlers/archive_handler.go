package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/Sprey412/backup-be/internal/services"
)

// ArchiveHandler handles HTTP requests related to backup archives.
type ArchiveHandler struct {
	service services.ArchiveServiceProvider
}

// NewArchiveHandler creates a new ArchiveHandler.
func NewArchiveHandler(service services.ArchiveServiceProvider) *ArchiveHandler {
	return &ArchiveHandler{service: service}
}

// RestoreArchivePayload is the expected JSON body for restoring an archive.
type RestoreArchivePayload struct {
	DestinationDir string `json:"destinationDir"`
}

// GetAll handles the request to list all cataloged archives.
func (h *ArchiveHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	archives, err := h.service.GetAllArchives()
	if err != nil {
		log.Error().Err(err).Msg("Failed to retrieve archives")
		http.Error(w, "Failed to retrieve archives: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(archives)
}

// GetAllForSession handles the request to list archives for one session.
func (h *ArchiveHandler) GetAllForSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	archives, err := h.service.GetArchivesForSession(sessionID)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to retrieve archives for session")
		http.Error(w, "Failed to retrieve archives: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(archives)
}

// Get handles the request to get one archive's catalog record.
func (h *ArchiveHandler) Get(w http.ResponseWriter, r *http.Request) {
	archiveID := chi.URLParam(r, "archiveId")
	archive, err := h.service.GetArchiveByID(archiveID)
	if err != nil {
		http.Error(w, "Archive not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(archive)
}

// Delete handles the request to delete an archive.
func (h *ArchiveHandler) Delete(w http.ResponseWriter, r *http.Request) {
	archiveID := chi.URLParam(r, "archiveId")
	if err := h.service.DeleteArchive(archiveID); err != nil {
		log.Error().Err(err).Str("archive_id", archiveID).Msg("Failed to delete archive")
		http.Error(w, "Failed to delete archive: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Restore handles the request to restore an archive into a destination
// directory. Restoring can be long-running, so it runs in the background and
// progress is reported through the event stream.
func (h *ArchiveHandler) Restore(w http.ResponseWriter, r *http.Request) {
	archiveID := chi.URLParam(r, "archiveId")

	var payload RestoreArchivePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if payload.DestinationDir == "" {
		http.Error(w, "destinationDir is required", http.StatusBadRequest)
		return
	}

	go func() {
		if err := h.service.RestoreArchive(archiveID, payload.DestinationDir); err != nil {
			log.Error().Err(err).Str("archive_id", archiveID).Str("destination", payload.DestinationDir).Msg("Failed to restore archive in background")
		}
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"message": "Archive restoration started."})
}
