package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"hogar_scrooper/models"
)

// Store persists tracked properties, their queued photos and import logs.
// Lookups return nil, nil when nothing matches.
type Store interface {
	GetPropertyByID(ctx context.Context, id uuid.UUID) (*models.Property, error)
	GetPropertyByFingerprint(ctx context.Context, fingerprint string) (*models.Property, error)
	GetPropertyByURL(ctx context.Context, url string) (*models.Property, error)
	SaveProperty(ctx context.Context, p *models.Property) error
	ListProperties(ctx context.Context, filter PropertyFilter) ([]models.Property, error)
	UpdatePropertyStatus(ctx context.Context, id uuid.UUID, status models.Status, notes *string) error

	UpsertMedia(ctx context.Context, m *models.Media) error
	ListMedia(ctx context.Context, propertyID uuid.UUID) ([]models.Media, error)
	GetPendingMedia(ctx context.Context, limit int) ([]models.Media, error)
	UpdateMediaStatus(ctx context.Context, id uuid.UUID, status string, s3Key *string, contentHash string, attempts int) error
	MediaQueueDepth(ctx context.Context) (map[string]int, error)

	CreateImportLog(ctx context.Context, l *models.ImportLog) error
	RecentImportLogs(ctx context.Context, limit int) ([]models.ImportLog, error)

	Close() error
}

// PropertyFilter narrows ListProperties. Zero fields match everything.
type PropertyFilter struct {
	Status   models.Status
	Platform string
	Limit    int
}

func (f PropertyFilter) limit() int {
	if f.Limit <= 0 || f.Limit > 500 {
		return 500
	}
	return f.Limit
}

func decodeListing(data []byte, p *models.Property) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, &p.Listing); err != nil {
		return fmt.Errorf("decode listing %s: %w", p.ID, err)
	}
	return nil
}
