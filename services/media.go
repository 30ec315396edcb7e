package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"hogar_scrooper/models"
	"hogar_scrooper/storage"
)

// MediaService handles media queueing and retrieval
type MediaService struct {
	store storage.Store
}

func NewMediaService(store storage.Store) *MediaService {
	return &MediaService{store: store}
}

// Enqueue queues a listing photo for archiving. Queuing a URL already known
// for the property only refreshes its position. Returns the media ID
// (existing or new).
func (s *MediaService) Enqueue(ctx context.Context, propertyID uuid.UUID, platform, originalURL string, position int) (uuid.UUID, error) {
	media := &models.Media{
		ID:          uuid.New(),
		PropertyID:  propertyID,
		Platform:    platform,
		OriginalURL: originalURL,
		Position:    position,
		Status:      models.MediaStatusPending,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.UpsertMedia(ctx, media); err != nil {
		return uuid.Nil, err
	}
	return media.ID, nil
}

// GetPending returns pending media items for the worker to process
func (s *MediaService) GetPending(ctx context.Context, limit int) ([]models.Media, error) {
	return s.store.GetPendingMedia(ctx, limit)
}

func (s *MediaService) ForProperty(ctx context.Context, propertyID uuid.UUID) ([]models.Media, error) {
	return s.store.ListMedia(ctx, propertyID)
}

// MarkUploaded marks a media item as successfully uploaded
func (s *MediaService) MarkUploaded(ctx context.Context, m *models.Media, s3Key, contentHash string) error {
	return s.store.UpdateMediaStatus(ctx, m.ID, models.MediaStatusUploaded, &s3Key, contentHash, m.Attempts+1)
}

// MarkFailed records a failed attempt. The item stays pending until
// MaxMediaAttempts is reached.
func (s *MediaService) MarkFailed(ctx context.Context, m *models.Media) error {
	attempts := m.Attempts + 1
	status := models.MediaStatusPending
	if attempts >= models.MaxMediaAttempts {
		status = models.MediaStatusFailed
	}
	return s.store.UpdateMediaStatus(ctx, m.ID, status, nil, "", attempts)
}

// QueueDepth returns the count of media items by status
func (s *MediaService) QueueDepth(ctx context.Context) (map[string]int, error) {
	return s.store.MediaQueueDepth(ctx)
}
