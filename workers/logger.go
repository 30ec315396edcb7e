package workers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"hogar_scrooper/logging"
	"hogar_scrooper/models"
	"hogar_scrooper/storage"
)

// LogFunc records a worker event against a property in the import log
type LogFunc func(propertyID uuid.UUID, level models.LogLevel, platform, message string)

// NoOpLogger does nothing (default)
var NoOpLogger LogFunc = func(propertyID uuid.UUID, level models.LogLevel, platform, message string) {}

// StoreLogger writes worker events to the import_logs table
func StoreLogger(store storage.Store) LogFunc {
	return func(propertyID uuid.UUID, level models.LogLevel, platform, message string) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		id := propertyID
		err := store.CreateImportLog(ctx, &models.ImportLog{
			PropertyID: &id,
			Timestamp:  time.Now().UTC(),
			Level:      level,
			Message:    message,
			Platform:   platform,
		})
		if err != nil {
			logging.Warnf("Failed to write worker log: %v", err)
		}
	}
}
