package models

import (
	"time"

	"github.com/Sprey412/backup-be/internal/backup"
)

// Session represents one scheduled backup session as exposed to clients.
// The schedule is either a fixed interval in minutes or a cron expression.
type Session struct {
	ID              string        `json:"id"`
	SourceRoot      string        `json:"sourceRoot"`
	BackupRoot      string        `json:"backupRoot"`
	IntervalMinutes int           `json:"intervalMinutes,omitempty"`
	Cron            string        `json:"cron,omitempty"`
	Status          backup.Status `json:"status"`
	CreatedAt       time.Time     `json:"createdAt"`
}
