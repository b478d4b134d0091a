package services

import (
	"database/sql"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Sprey412/backup-be/internal/models"
	"github.com/Sprey412/backup-be/internal/websocket"
)

// EventServiceProvider defines the interface for event services.
type EventServiceProvider interface {
	CreateEvent(eventType, level, message string, sessionID *string) error
	BroadcastLog(message string, sessionID *string)
	GetRecentEvents(limit int) ([]models.Event, error)
}

// EventService persists system events and fans them out to connected
// presentation clients over the websocket hub. It is the notification
// surface between the backup core and any UI.
type EventService struct {
	db  *sql.DB
	hub *websocket.Hub
}

// NewEventService creates a new EventService.
func NewEventService(db *sql.DB, hub *websocket.Hub) *EventService {
	return &EventService{db: db, hub: hub}
}

// CreateEvent logs a new event to the database and broadcasts it.
func (s *EventService) CreateEvent(eventType, level, message string, sessionID *string) error {
	event := models.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Level:     level,
		Message:   message,
		SessionID: sessionID,
	}

	stmt, err := s.db.Prepare("INSERT INTO events (id, type, level, message, session_id) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	if _, err := stmt.Exec(event.ID, event.Type, event.Level, event.Message, event.SessionID); err != nil {
		return err
	}

	s.broadcast(websocket.NewEventMessage(event), sessionID)
	return nil
}

// BroadcastLog sends a transient log line to connected clients without
// persisting it. Used for high-volume progress output such as per-entry
// restore notifications.
func (s *EventService) BroadcastLog(message string, sessionID *string) {
	s.broadcast(websocket.NewLogMessage(message), sessionID)
}

func (s *EventService) broadcast(payload []byte, sessionID *string) {
	if s.hub == nil {
		return
	}
	if sessionID != nil {
		s.hub.BroadcastTo(*sessionID, payload)
	}
	select {
	case s.hub.Broadcast <- payload:
	default:
		log.Warn().Msg("Websocket broadcast channel full, dropping message")
	}
}

// GetRecentEvents retrieves the most recent events from the database.
func (s *EventService) GetRecentEvents(limit int) ([]models.Event, error) {
	rows, err := s.db.Query("SELECT id, type, level, message, session_id, created_at FROM events ORDER BY created_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var event models.Event
		if err := rows.Scan(&event.ID, &event.Type, &event.Level, &event.Message, &event.SessionID, &event.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}
