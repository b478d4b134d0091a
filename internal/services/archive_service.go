package services

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/Sprey412/backup-be/internal/backup"
)

// ArchiveServiceProvider defines the interface for archive catalog services.
type ArchiveServiceProvider interface {
	RecordArchive(archive backup.Archive) (backup.Archive, error)
	GetAllArchives() ([]backup.Archive, error)
	GetArchivesForSession(sessionID string) ([]backup.Archive, error)
	GetArchiveByID(archiveID string) (backup.Archive, error)
	DeleteArchive(archiveID string) error
	RestoreArchive(archiveID, destinationDir string) error
}

// ArchiveService catalogs the archives written by backup sessions and
// orchestrates restores. The zip files themselves are the source of truth;
// the catalog only makes them discoverable through the API.
type ArchiveService struct {
	db       *sql.DB
	eventSvc EventServiceProvider
}

// NewArchiveService creates a new ArchiveService.
func NewArchiveService(db *sql.DB, eventSvc EventServiceProvider) *ArchiveService {
	return &ArchiveService{db: db, eventSvc: eventSvc}
}

// RecordArchive stores the catalog row for a freshly written archive.
func (s *ArchiveService) RecordArchive(archive backup.Archive) (backup.Archive, error) {
	archive.ID = uuid.New().String()

	stmt, err := s.db.Prepare("INSERT INTO archives (id, session_id, name, path, size, file_count, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return backup.Archive{}, err
	}
	defer stmt.Close()

	if _, err := stmt.Exec(archive.ID, archive.SessionID, archive.Name, archive.Path, archive.Size, archive.FileCount, archive.CreatedAt); err != nil {
		return backup.Archive{}, err
	}
	return archive, nil
}

// GetAllArchives retrieves every cataloged archive, newest first.
func (s *ArchiveService) GetAllArchives() ([]backup.Archive, error) {
	rows, err := s.db.Query("SELECT id, session_id, name, path, size, file_count, created_at FROM archives ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanArchives(rows)
}

// GetArchivesForSession retrieves all archives written by one session.
func (s *ArchiveService) GetArchivesForSession(sessionID string) ([]backup.Archive, error) {
	rows, err := s.db.Query("SELECT id, session_id, name, path, size, file_count, created_at FROM archives WHERE session_id = ? ORDER BY created_at DESC", sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanArchives(rows)
}

// GetArchiveByID retrieves a single archive by its ID.
func (s *ArchiveService) GetArchiveByID(archiveID string) (backup.Archive, error) {
	var archive backup.Archive
	row := s.db.QueryRow("SELECT id, session_id, name, path, size, file_count, created_at FROM archives WHERE id = ?", archiveID)
	err := row.Scan(&archive.ID, &archive.SessionID, &archive.Name, &archive.Path, &archive.Size, &archive.FileCount, &archive.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return backup.Archive{}, fmt.Errorf("archive with id %s not found", archiveID)
		}
		return backup.Archive{}, err
	}
	return archive, nil
}

// DeleteArchive deletes an archive from the filesystem and the catalog.
func (s *ArchiveService) DeleteArchive(archiveID string) error {
	archive, err := s.GetArchiveByID(archiveID)
	if err != nil {
		return err
	}

	if err := os.Remove(archive.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("could not delete archive file %s: %w", archive.Path, err)
	}

	_, err = s.db.Exec("DELETE FROM archives WHERE id = ?", archiveID)
	if err == nil {
		sessionID := archive.SessionID
		s.eventSvc.CreateEvent("archive.delete", "warn", fmt.Sprintf("Archive '%s' was deleted.", archive.Name), &sessionID)
	}
	return err
}

// RestoreArchive extracts a cataloged archive into the destination
// directory. A failure aborts the restore; files extracted before the
// failure are left in place and the error says so.
func (s *ArchiveService) RestoreArchive(archiveID, destinationDir string) error {
	archive, err := s.GetArchiveByID(archiveID)
	if err != nil {
		return err
	}

	sessionID := archive.SessionID
	s.eventSvc.CreateEvent("archive.restore.start", "info", fmt.Sprintf("Restoration of archive '%s' into '%s' started.", archive.Name, destinationDir), &sessionID)

	onLog := func(message string) {
		s.eventSvc.BroadcastLog(message, &sessionID)
	}
	if err := backup.Restore(archive.Path, destinationDir, onLog); err != nil {
		s.eventSvc.CreateEvent("archive.restore.fail", "error", fmt.Sprintf("Restoration of archive '%s' failed: %v", archive.Name, err), &sessionID)
		return err
	}

	s.eventSvc.CreateEvent("archive.restore.finish", "info", fmt.Sprintf("Archive '%s' successfully restored into '%s'.", archive.Name, destinationDir), &sessionID)
	return nil
}

// scanArchives is a helper to scan multiple rows into a slice of Archives.
func scanArchives(rows *sql.Rows) ([]backup.Archive, error) {
	var archives []backup.Archive
	for rows.Next() {
		var archive backup.Archive
		if err := rows.Scan(&archive.ID, &archive.SessionID, &archive.Name, &archive.Path, &archive.Size, &archive.FileCount, &archive.CreatedAt); err != nil {
			return nil, err
		}
		archives = append(archives, archive)
	}
	return archives, rows.Err()
}
