package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Property is a tracked listing as persisted by the store
type Property struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Fingerprint string    `json:"fingerprint" db:"fingerprint"`
	Platform    string    `json:"platform" db:"platform"`
	URL         string    `json:"url" db:"url"`
	Title       string    `json:"title" db:"title"`
	Zone        string    `json:"zone" db:"zone"`
	Price       int       `json:"price" db:"price"`
	Status      Status    `json:"status" db:"status"`
	Notes       string    `json:"notes" db:"notes"`
	Listing     Listing   `json:"listing" db:"data"`
	TimesSeen   int       `json:"times_seen" db:"times_seen"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// ListingJSON encodes the embedded listing for storage
func (p *Property) ListingJSON() (json.RawMessage, error) {
	return json.Marshal(p.Listing)
}

// Media is a listing photo queued for archiving
type Media struct {
	ID          uuid.UUID `json:"id" db:"id"`
	PropertyID  uuid.UUID `json:"property_id" db:"property_id"`
	Platform    string    `json:"platform" db:"platform"`
	OriginalURL string    `json:"original_url" db:"original_url"`
	Position    int       `json:"position" db:"position"`
	S3Key       *string   `json:"s3_key" db:"s3_key"` // nullable until uploaded
	ContentHash string    `json:"content_hash" db:"content_hash"`
	Status      string    `json:"status" db:"status"` // pending, uploaded, failed
	Attempts    int       `json:"attempts" db:"attempts"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Media status
const (
	MediaStatusPending  = "pending"
	MediaStatusUploaded = "uploaded"
	MediaStatusFailed   = "failed"
)

// MaxMediaAttempts is how many downloads are tried before giving up
const MaxMediaAttempts = 3
