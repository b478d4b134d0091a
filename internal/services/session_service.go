package services

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Sprey412/backup-be/internal/backup"
	"github.com/Sprey412/backup-be/internal/models"
)

// ErrSessionNotFound is returned for lookups of unknown session IDs.
var ErrSessionNotFound = fmt.Errorf("session not found")

// SessionServiceProvider defines the interface for session services.
type SessionServiceProvider interface {
	StartSession(sourceRoot, backupRoot string, intervalMinutes int, cronExpr string) (models.Session, error)
	StopSession(sessionID string) error
	RemoveSession(sessionID string) error
	GetSessionByID(sessionID string) (models.Session, error)
	GetAllSessions() []models.Session
	TriggerBackup(sessionID string) error
}

// SessionService owns the registry of backup sessions. Sessions live only
// in memory: the last-backup watermark is not persisted, so a session
// started after a process restart begins with a full backup.
type SessionService struct {
	archiveSvc ArchiveServiceProvider
	eventSvc   EventServiceProvider
	backupRoot string // default base for sessions that do not name one

	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

type sessionEntry struct {
	model   models.Session
	session *backup.Session
}

// NewSessionService creates a new SessionService.
func NewSessionService(archiveSvc ArchiveServiceProvider, eventSvc EventServiceProvider, backupRoot string) *SessionService {
	return &SessionService{
		archiveSvc: archiveSvc,
		eventSvc:   eventSvc,
		backupRoot: backupRoot,
		sessions:   make(map[string]*sessionEntry),
	}
}

// StartSession validates the configuration, creates a backup session and
// starts its schedule. Exactly one of intervalMinutes/cronExpr must be set.
// If backupRoot is empty, archives go to a per-session directory under the
// service's default backup root.
func (s *SessionService) StartSession(sourceRoot, backupRoot string, intervalMinutes int, cronExpr string) (models.Session, error) {
	sessionID := uuid.New().String()
	if backupRoot == "" {
		backupRoot = filepath.Join(s.backupRoot, sessionID)
	}

	cfg := backup.Config{
		SourceRoot: sourceRoot,
		BackupRoot: backupRoot,
		Interval:   time.Duration(intervalMinutes) * time.Minute,
		Cron:       cronExpr,
	}

	onLog := func(message string) {
		id := sessionID
		s.eventSvc.CreateEvent("backup.pass", "info", message, &id)
	}
	onArchive := func(archive backup.Archive) {
		archive.SessionID = sessionID
		if _, err := s.archiveSvc.RecordArchive(archive); err != nil {
			id := sessionID
			s.eventSvc.CreateEvent("archive.record.fail", "error", fmt.Sprintf("Failed to catalog archive '%s': %v", archive.Name, err), &id)
		}
	}

	session, err := backup.NewSession(cfg, onLog, onArchive)
	if err != nil {
		return models.Session{}, err
	}
	if err := session.Start(); err != nil {
		return models.Session{}, err
	}

	entry := &sessionEntry{
		model: models.Session{
			ID:              sessionID,
			SourceRoot:      sourceRoot,
			BackupRoot:      backupRoot,
			IntervalMinutes: intervalMinutes,
			Cron:            cronExpr,
			CreatedAt:       time.Now(),
		},
		session: session,
	}

	s.mu.Lock()
	s.sessions[sessionID] = entry
	s.mu.Unlock()

	s.eventSvc.CreateEvent("session.start", "info", fmt.Sprintf("Backup session started for '%s'.", sourceRoot), &sessionID)
	return entry.view(), nil
}

// StopSession halts the session's schedule. A pass already in progress is
// allowed to finish. The session stays listed so its final status remains
// visible; RemoveSession drops it from the registry.
func (s *SessionService) StopSession(sessionID string) error {
	entry, err := s.lookup(sessionID)
	if err != nil {
		return err
	}
	entry.session.Stop()
	s.eventSvc.CreateEvent("session.stop", "info", fmt.Sprintf("Backup session stopped for '%s'.", entry.model.SourceRoot), &sessionID)
	return nil
}

// RemoveSession stops the session if needed and removes it from the registry.
func (s *SessionService) RemoveSession(sessionID string) error {
	s.mu.Lock()
	entry, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
	}
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	entry.session.Stop()
	s.eventSvc.CreateEvent("session.remove", "warn", fmt.Sprintf("Backup session for '%s' was removed.", entry.model.SourceRoot), &sessionID)
	return nil
}

// GetSessionByID retrieves a single session with its live status.
func (s *SessionService) GetSessionByID(sessionID string) (models.Session, error) {
	entry, err := s.lookup(sessionID)
	if err != nil {
		return models.Session{}, err
	}
	return entry.view(), nil
}

// GetAllSessions lists all registered sessions, newest first.
func (s *SessionService) GetAllSessions() []models.Session {
	s.mu.Lock()
	entries := make([]*sessionEntry, 0, len(s.sessions))
	for _, entry := range s.sessions {
		entries = append(entries, entry)
	}
	s.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].model.CreatedAt.After(entries[j].model.CreatedAt)
	})

	sessions := make([]models.Session, len(entries))
	for i, entry := range entries {
		sessions[i] = entry.view()
	}
	return sessions
}

// TriggerBackup requests an immediate backup pass for the session.
func (s *SessionService) TriggerBackup(sessionID string) error {
	entry, err := s.lookup(sessionID)
	if err != nil {
		return err
	}
	return entry.session.TriggerBackup()
}

func (s *SessionService) lookup(sessionID string) (*sessionEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return entry, nil
}

// view returns the session model with its status filled in.
func (e *sessionEntry) view() models.Session {
	m := e.model
	m.Status = e.session.Status()
	return m
}
