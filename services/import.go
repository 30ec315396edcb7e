package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"hogar_scrooper/identity"
	"hogar_scrooper/logging"
	"hogar_scrooper/models"
	"hogar_scrooper/parsers"
	"hogar_scrooper/storage"
)

// ImportService turns pasted listing HTML into a tracked property and
// fans out to the media queue and the import log.
type ImportService struct {
	store    storage.Store
	registry *parsers.Registry
	media    *MediaService
	now      func() time.Time
}

func NewImportService(store storage.Store, registry *parsers.Registry, media *MediaService) *ImportService {
	return &ImportService{
		store:    store,
		registry: registry,
		media:    media,
		now:      time.Now,
	}
}

// ImportRequest is one listing page handed in by the user.
type ImportRequest struct {
	HTML       string `json:"html"`
	URL        string `json:"url"`
	PlatformID string `json:"platform"`
	// Phone, when set, replaces whatever phone the parser found.
	Phone string `json:"phone"`
}

// ImportResult contains the outcome of an import
type ImportResult struct {
	Property    *models.Property `json:"property"`
	PlatformID  string           `json:"platform"`
	IsNew       bool             `json:"is_new"`
	MediaQueued int              `json:"media_queued"`
}

// ResolvePlatform picks the explicit platform id, else the one detected
// from the URL.
func (s *ImportService) ResolvePlatform(platformID, url string) (parsers.Platform, error) {
	if platformID == "" {
		id, ok := s.registry.DetectFromURL(url)
		if !ok {
			return parsers.Platform{}, ErrUnknownPlatform
		}
		platformID = id
	}
	p, ok := s.registry.Resolve(platformID)
	if !ok {
		return parsers.Platform{}, fmt.Errorf("%w: %s", ErrUnknownPlatform, platformID)
	}
	return p, nil
}

// Parse runs the platform parser without persisting anything.
func (s *ImportService) Parse(req ImportRequest) (*models.Listing, string, error) {
	platform, err := s.ResolvePlatform(req.PlatformID, req.URL)
	if err != nil {
		return nil, "", err
	}
	listing := platform.Parse(req.HTML, req.URL, s.now())
	if phone := strings.ReplaceAll(strings.TrimSpace(req.Phone), " ", ""); phone != "" {
		listing.Contact.Phone = phone
	}
	return listing, platform.ID, nil
}

// Import parses, validates and stores a listing. Re-importing a known
// property refreshes its scraped data and keeps the user's status and notes.
func (s *ImportService) Import(ctx context.Context, req ImportRequest) (*ImportResult, error) {
	listing, platformID, err := s.Parse(req)
	if err != nil {
		return nil, err
	}
	if listing.Price <= 0 {
		s.log(ctx, nil, models.LogLevelWarn, platformID, "import rejected: no price in "+describe(listing))
		return nil, ErrExtractionFailed
	}

	now := s.now().UTC()
	fingerprint := identity.Fingerprint(listing)

	existing, err := s.match(ctx, listing.URL, fingerprint)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{PlatformID: platformID}
	var property *models.Property
	if existing == nil {
		property = &models.Property{
			ID:        uuid.New(),
			Status:    models.StatusPending,
			Notes:     listing.Notes,
			TimesSeen: 1,
			CreatedAt: now,
		}
		result.IsNew = true
	} else {
		property = existing
		property.TimesSeen++
	}

	property.Fingerprint = fingerprint
	property.Platform = platformID
	property.URL = listing.URL
	property.Title = listing.Title
	property.Zone = listing.Zone
	property.Price = listing.Price
	property.UpdatedAt = now

	// The stored payload carries the workflow state, not the parser default.
	listing.Status = property.Status
	listing.Notes = property.Notes
	property.Listing = *listing

	if err := s.store.SaveProperty(ctx, property); err != nil {
		return nil, fmt.Errorf("save property: %w", err)
	}
	result.Property = property

	if s.media != nil {
		for i, photo := range listing.Photos {
			if _, err := s.media.Enqueue(ctx, property.ID, platformID, photo, i); err != nil {
				logging.Warnf("Failed to queue photo %s: %v", photo, err)
				continue
			}
			result.MediaQueued++
		}
	}

	msg := "imported " + describe(listing)
	if !result.IsNew {
		msg = fmt.Sprintf("re-imported %s (seen %d times)", describe(listing), property.TimesSeen)
	}
	s.log(ctx, &property.ID, models.LogLevelInfo, platformID, msg)
	logging.Infof("Import %s: %s", platformID, msg)

	return result, nil
}

// UpdateStatus moves a property through the user's workflow.
// match finds the stored property a listing refreshes. A URL match wins.
// A fingerprint match only counts when the stored property has no URL or
// the same one, so distinct listings with identical features stay apart.
func (s *ImportService) match(ctx context.Context, url, fingerprint string) (*models.Property, error) {
	if url != "" {
		p, err := s.store.GetPropertyByURL(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("get property by url: %w", err)
		}
		if p != nil {
			return p, nil
		}
	}
	p, err := s.store.GetPropertyByFingerprint(ctx, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("get property: %w", err)
	}
	if p == nil || (url != "" && p.URL != "" && p.URL != url) {
		return nil, nil
	}
	return p, nil
}

func (s *ImportService) UpdateStatus(ctx context.Context, id uuid.UUID, status models.Status, notes *string) (*models.Property, error) {
	if !models.ValidStatus(status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.store.UpdatePropertyStatus(ctx, id, status, notes); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	return s.Get(ctx, id)
}

// Get returns a stored property or ErrNotFound.
func (s *ImportService) Get(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	p, err := s.store.GetPropertyByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get property: %w", err)
	}
	if p == nil {
		return nil, ErrNotFound
	}
	p.Listing.Status = p.Status
	p.Listing.Notes = p.Notes
	return p, nil
}

func (s *ImportService) List(ctx context.Context, filter storage.PropertyFilter) ([]models.Property, error) {
	if filter.Status != "" && !models.ValidStatus(filter.Status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, filter.Status)
	}
	return s.store.ListProperties(ctx, filter)
}

func (s *ImportService) RecentLogs(ctx context.Context, limit int) ([]models.ImportLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.store.RecentImportLogs(ctx, limit)
}

func (s *ImportService) log(ctx context.Context, propertyID *uuid.UUID, level models.LogLevel, platform, message string) {
	entry := &models.ImportLog{
		PropertyID: propertyID,
		Timestamp:  s.now().UTC(),
		Level:      level,
		Message:    message,
		Platform:   platform,
	}
	if err := s.store.CreateImportLog(ctx, entry); err != nil {
		logging.Warnf("Failed to write import log: %v", err)
	}
}

func describe(l *models.Listing) string {
	if l.URL != "" {
		return l.URL
	}
	if l.Title != "" {
		return l.Title
	}
	return "listing without url"
}
