package models

import "time"

// LogEntry is a local diagnostic log row written by the slog DB handler.
type LogEntry struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
	Level     string    `json:"level" gorm:"index"`
	Message   string    `json:"message"`
	Source    string    `json:"source" gorm:"index"`
	UserID    *string   `json:"user_id" gorm:"index"`
	Data      string    `json:"data"`
}

// LogRecord is the payload shipped to the remote log collector.
// The collector names the source field "packageName".
type LogRecord struct {
	Stack     string `json:"stack"`
	Level     string `json:"level"`
	Source    string `json:"packageName"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}
