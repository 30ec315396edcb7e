package models

import (
	"time"

	"github.com/google/uuid"
)

type LogLevel string

const (
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// ImportLog records the outcome of one import attempt
type ImportLog struct {
	ID         int64      `json:"id" db:"id"`
	PropertyID *uuid.UUID `json:"property_id" db:"property_id"`
	Timestamp  time.Time  `json:"timestamp" db:"timestamp"`
	Level      LogLevel   `json:"level" db:"level"`
	Message    string     `json:"message" db:"message"`
	Platform   string     `json:"platform" db:"platform"`
}
