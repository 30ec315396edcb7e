package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"hogar_scrooper/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS properties (
		id UUID PRIMARY KEY,
		fingerprint TEXT NOT NULL,
		platform TEXT NOT NULL,
		url TEXT,
		title TEXT,
		zone TEXT,
		price INTEGER,
		status TEXT NOT NULL DEFAULT 'pending',
		notes TEXT,
		data JSONB,
		times_seen INTEGER DEFAULT 1,
		created_at TIMESTAMPTZ,
		updated_at TIMESTAMPTZ
	);

	CREATE TABLE IF NOT EXISTS media (
		id UUID PRIMARY KEY,
		property_id UUID NOT NULL REFERENCES properties(id) ON DELETE CASCADE,
		platform TEXT,
		original_url TEXT NOT NULL,
		position INTEGER,
		s3_key TEXT,
		content_hash TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		attempts INTEGER DEFAULT 0,
		created_at TIMESTAMPTZ,
		UNIQUE (property_id, original_url)
	);

	CREATE TABLE IF NOT EXISTS import_logs (
		id BIGSERIAL PRIMARY KEY,
		property_id UUID,
		timestamp TIMESTAMPTZ,
		level TEXT,
		message TEXT,
		platform TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_properties_url ON properties(url);
	CREATE INDEX IF NOT EXISTS idx_properties_fingerprint ON properties(fingerprint);
	CREATE INDEX IF NOT EXISTS idx_properties_status ON properties(status, updated_at);
	CREATE INDEX IF NOT EXISTS idx_media_pending ON media(status, created_at);
	CREATE INDEX IF NOT EXISTS idx_logs_timestamp ON import_logs(timestamp);
	`)
	return err
}

// =============================================================================
// Properties
// =============================================================================

func pgScanProperty(row pgx.Row) (*models.Property, error) {
	var p models.Property
	var url, title, zone, notes *string
	var status string
	var data []byte
	err := row.Scan(&p.ID, &p.Fingerprint, &p.Platform, &url, &title, &zone, &p.Price,
		&status, &notes, &data, &p.TimesSeen, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.URL, p.Title, p.Zone, p.Notes = deref(url), deref(title), deref(zone), deref(notes)
	p.Status = models.Status(status)
	if err := decodeListing(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) getProperty(ctx context.Context, where string, arg any) (*models.Property, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+propertyColumns+` FROM properties WHERE `+where+` LIMIT 1`, arg)
	p, err := pgScanProperty(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (s *PostgresStore) GetPropertyByID(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	return s.getProperty(ctx, "id = $1", id)
}

func (s *PostgresStore) GetPropertyByFingerprint(ctx context.Context, fingerprint string) (*models.Property, error) {
	return s.getProperty(ctx, "fingerprint = $1", fingerprint)
}

func (s *PostgresStore) GetPropertyByURL(ctx context.Context, url string) (*models.Property, error) {
	if url == "" {
		return nil, nil
	}
	return s.getProperty(ctx, "url = $1", url)
}

func (s *PostgresStore) SaveProperty(ctx context.Context, p *models.Property) error {
	data, err := p.ListingJSON()
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO properties (`+propertyColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			fingerprint = EXCLUDED.fingerprint,
			platform = EXCLUDED.platform,
			url = EXCLUDED.url,
			title = EXCLUDED.title,
			zone = EXCLUDED.zone,
			price = EXCLUDED.price,
			data = EXCLUDED.data,
			times_seen = EXCLUDED.times_seen,
			updated_at = EXCLUDED.updated_at`,
		p.ID, p.Fingerprint, p.Platform, p.URL, p.Title, p.Zone, p.Price,
		string(p.Status), p.Notes, data, p.TimesSeen, p.CreatedAt, p.UpdatedAt)
	return err
}

func (s *PostgresStore) ListProperties(ctx context.Context, filter PropertyFilter) ([]models.Property, error) {
	var where []string
	var args []any
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Platform != "" {
		args = append(args, filter.Platform)
		where = append(where, fmt.Sprintf("platform = $%d", len(args)))
	}
	query := `SELECT ` + propertyColumns + ` FROM properties`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, filter.limit())
	query += fmt.Sprintf(" ORDER BY updated_at DESC LIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var props []models.Property
	for rows.Next() {
		p, err := pgScanProperty(rows)
		if err != nil {
			return nil, err
		}
		props = append(props, *p)
	}
	return props, rows.Err()
}

func (s *PostgresStore) UpdatePropertyStatus(ctx context.Context, id uuid.UUID, status models.Status, notes *string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE properties SET status = $2, notes = COALESCE($3, notes), updated_at = NOW()
		WHERE id = $1`, id, string(status), notes)
	return err
}

// =============================================================================
// Media
// =============================================================================

func pgScanMedia(row pgx.Row) (*models.Media, error) {
	var m models.Media
	var platform, hash *string
	if err := row.Scan(&m.ID, &m.PropertyID, &platform, &m.OriginalURL, &m.Position, &m.S3Key,
		&hash, &m.Status, &m.Attempts, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.Platform = deref(platform)
	m.ContentHash = deref(hash)
	return &m, nil
}

func (s *PostgresStore) UpsertMedia(ctx context.Context, m *models.Media) error {
	return s.pool.QueryRow(ctx, `
		INSERT INTO media (`+mediaColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (property_id, original_url) DO UPDATE SET position = EXCLUDED.position
		RETURNING id`,
		m.ID, m.PropertyID, m.Platform, m.OriginalURL, m.Position, m.S3Key,
		m.ContentHash, m.Status, m.Attempts, m.CreatedAt,
	).Scan(&m.ID)
}

func (s *PostgresStore) queryMedia(ctx context.Context, query string, args ...any) ([]models.Media, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var media []models.Media
	for rows.Next() {
		m, err := pgScanMedia(rows)
		if err != nil {
			return nil, err
		}
		media = append(media, *m)
	}
	return media, rows.Err()
}

func (s *PostgresStore) ListMedia(ctx context.Context, propertyID uuid.UUID) ([]models.Media, error) {
	return s.queryMedia(ctx, `SELECT `+mediaColumns+` FROM media WHERE property_id = $1 ORDER BY position`, propertyID)
}

func (s *PostgresStore) GetPendingMedia(ctx context.Context, limit int) ([]models.Media, error) {
	return s.queryMedia(ctx, `
		SELECT `+mediaColumns+` FROM media
		WHERE status = 'pending' AND attempts < $1
		ORDER BY created_at, position
		LIMIT $2`, models.MaxMediaAttempts, limit)
}

func (s *PostgresStore) UpdateMediaStatus(ctx context.Context, id uuid.UUID, status string, s3Key *string, contentHash string, attempts int) error {
	query := `UPDATE media SET status = $2, s3_key = COALESCE($3, s3_key), content_hash = COALESCE(NULLIF($4, ''), content_hash), attempts = $5 WHERE id = $1`
	_, err := s.pool.Exec(ctx, query, id, status, s3Key, contentHash, attempts)
	return err
}

func (s *PostgresStore) MediaQueueDepth(ctx context.Context) (map[string]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT status, COUNT(*) FROM media GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// =============================================================================
// Import logs
// =============================================================================

func (s *PostgresStore) CreateImportLog(ctx context.Context, l *models.ImportLog) error {
	return s.pool.QueryRow(ctx, `
		INSERT INTO import_logs (property_id, timestamp, level, message, platform)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		l.PropertyID, l.Timestamp, string(l.Level), l.Message, l.Platform,
	).Scan(&l.ID)
}

func (s *PostgresStore) RecentImportLogs(ctx context.Context, limit int) ([]models.ImportLog, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, property_id, timestamp, level, message, platform
		FROM import_logs ORDER BY timestamp DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.ImportLog
	for rows.Next() {
		var l models.ImportLog
		var level string
		var platform *string
		if err := rows.Scan(&l.ID, &l.PropertyID, &l.Timestamp, &level, &l.Message, &platform); err != nil {
			return nil, err
		}
		l.Level = models.LogLevel(level)
		l.Platform = deref(platform)
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
