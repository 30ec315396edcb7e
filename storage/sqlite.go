package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"hogar_scrooper/models"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS properties (
		id TEXT PRIMARY KEY,
		fingerprint TEXT NOT NULL,
		platform TEXT NOT NULL,
		url TEXT,
		title TEXT,
		zone TEXT,
		price INTEGER,
		status TEXT NOT NULL DEFAULT 'pending',
		notes TEXT,
		data JSON,
		times_seen INTEGER DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS media (
		id TEXT PRIMARY KEY,
		property_id TEXT NOT NULL,
		platform TEXT,
		original_url TEXT NOT NULL,
		position INTEGER,
		s3_key TEXT,
		content_hash TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		attempts INTEGER DEFAULT 0,
		created_at DATETIME,
		UNIQUE(property_id, original_url),
		FOREIGN KEY (property_id) REFERENCES properties(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS import_logs (
		id INTEGER PRIMARY KEY,
		property_id TEXT,
		timestamp DATETIME,
		level TEXT,
		message TEXT,
		platform TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_properties_url ON properties(url);
	CREATE INDEX IF NOT EXISTS idx_properties_fingerprint ON properties(fingerprint);
	CREATE INDEX IF NOT EXISTS idx_properties_status ON properties(status, updated_at);
	CREATE INDEX IF NOT EXISTS idx_media_pending ON media(status, created_at);
	CREATE INDEX IF NOT EXISTS idx_logs_timestamp ON import_logs(timestamp);
	`
	_, err := s.db.Exec(schema)
	return err
}

const propertyColumns = `id, fingerprint, platform, url, title, zone, price, status, notes, data, times_seen, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProperty(row rowScanner) (*models.Property, error) {
	var p models.Property
	var url, title, zone, notes sql.NullString
	var status string
	var data []byte
	err := row.Scan(&p.ID, &p.Fingerprint, &p.Platform, &url, &title, &zone, &p.Price,
		&status, &notes, &data, &p.TimesSeen, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.URL, p.Title, p.Zone, p.Notes = url.String, title.String, zone.String, notes.String
	p.Status = models.Status(status)
	if err := decodeListing(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *SQLiteStore) getProperty(ctx context.Context, where string, arg any) (*models.Property, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+propertyColumns+` FROM properties WHERE `+where+` LIMIT 1`, arg)
	p, err := scanProperty(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

func (s *SQLiteStore) GetPropertyByID(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	return s.getProperty(ctx, "id = ?", id.String())
}

func (s *SQLiteStore) GetPropertyByFingerprint(ctx context.Context, fingerprint string) (*models.Property, error) {
	return s.getProperty(ctx, "fingerprint = ?", fingerprint)
}

func (s *SQLiteStore) GetPropertyByURL(ctx context.Context, url string) (*models.Property, error) {
	if url == "" {
		return nil, nil
	}
	return s.getProperty(ctx, "url = ?", url)
}

// SaveProperty inserts p or, when its id exists, refreshes the scraped
// fields. Status and notes are only changed through UpdatePropertyStatus.
func (s *SQLiteStore) SaveProperty(ctx context.Context, p *models.Property) error {
	data, err := p.ListingJSON()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO properties (`+propertyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			fingerprint = excluded.fingerprint,
			platform = excluded.platform,
			url = excluded.url,
			title = excluded.title,
			zone = excluded.zone,
			price = excluded.price,
			data = excluded.data,
			times_seen = excluded.times_seen,
			updated_at = excluded.updated_at`,
		p.ID.String(), p.Fingerprint, p.Platform, p.URL, p.Title, p.Zone, p.Price,
		string(p.Status), p.Notes, string(data), p.TimesSeen, p.CreatedAt, p.UpdatedAt)
	return err
}

func (s *SQLiteStore) ListProperties(ctx context.Context, filter PropertyFilter) ([]models.Property, error) {
	var where []string
	var args []any
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Platform != "" {
		where = append(where, "platform = ?")
		args = append(args, filter.Platform)
	}
	query := `SELECT ` + propertyColumns + ` FROM properties`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY updated_at DESC LIMIT ?"
	args = append(args, filter.limit())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var props []models.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		props = append(props, *p)
	}
	return props, rows.Err()
}

func (s *SQLiteStore) UpdatePropertyStatus(ctx context.Context, id uuid.UUID, status models.Status, notes *string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE properties SET status = ?, notes = COALESCE(?, notes), updated_at = ?
		WHERE id = ?`, string(status), notes, time.Now().UTC(), id.String())
	return err
}

const mediaColumns = `id, property_id, platform, original_url, position, s3_key, content_hash, status, attempts, created_at`

func scanMedia(row rowScanner) (*models.Media, error) {
	var m models.Media
	var s3Key, hash, platform sql.NullString
	if err := row.Scan(&m.ID, &m.PropertyID, &platform, &m.OriginalURL, &m.Position, &s3Key,
		&hash, &m.Status, &m.Attempts, &m.CreatedAt); err != nil {
		return nil, err
	}
	if s3Key.Valid {
		m.S3Key = &s3Key.String
	}
	m.ContentHash = hash.String
	m.Platform = platform.String
	return &m, nil
}

// UpsertMedia queues a photo. Re-queuing a known URL for the same property
// only updates its gallery position.
func (s *SQLiteStore) UpsertMedia(ctx context.Context, m *models.Media) error {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO media (`+mediaColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(property_id, original_url) DO UPDATE SET position = excluded.position
		RETURNING id`,
		m.ID.String(), m.PropertyID.String(), m.Platform, m.OriginalURL, m.Position, m.S3Key,
		m.ContentHash, m.Status, m.Attempts, m.CreatedAt)
	return row.Scan(&m.ID)
}

func (s *SQLiteStore) queryMedia(ctx context.Context, query string, args ...any) ([]models.Media, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var media []models.Media
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		media = append(media, *m)
	}
	return media, rows.Err()
}

func (s *SQLiteStore) ListMedia(ctx context.Context, propertyID uuid.UUID) ([]models.Media, error) {
	return s.queryMedia(ctx, `SELECT `+mediaColumns+` FROM media WHERE property_id = ? ORDER BY position`, propertyID.String())
}

func (s *SQLiteStore) GetPendingMedia(ctx context.Context, limit int) ([]models.Media, error) {
	return s.queryMedia(ctx, `
		SELECT `+mediaColumns+` FROM media
		WHERE status = 'pending' AND attempts < ?
		ORDER BY created_at, position
		LIMIT ?`, models.MaxMediaAttempts, limit)
}

func (s *SQLiteStore) UpdateMediaStatus(ctx context.Context, id uuid.UUID, status string, s3Key *string, contentHash string, attempts int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE media SET status = ?, s3_key = COALESCE(?, s3_key), content_hash = COALESCE(NULLIF(?, ''), content_hash), attempts = ?
		WHERE id = ?`, status, s3Key, contentHash, attempts, id.String())
	return err
}

func (s *SQLiteStore) MediaQueueDepth(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM media GROUP BY status`)
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

func (s *SQLiteStore) CreateImportLog(ctx context.Context, l *models.ImportLog) error {
	var propertyID any
	if l.PropertyID != nil {
		propertyID = l.PropertyID.String()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO import_logs (property_id, timestamp, level, message, platform)
		VALUES (?, ?, ?, ?, ?)`,
		propertyID, l.Timestamp, string(l.Level), l.Message, l.Platform)
	if err != nil {
		return err
	}
	l.ID, err = res.LastInsertId()
	return err
}

func (s *SQLiteStore) RecentImportLogs(ctx context.Context, limit int) ([]models.ImportLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, property_id, timestamp, level, message, platform
		FROM import_logs ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.ImportLog
	for rows.Next() {
		var l models.ImportLog
		var propertyID uuid.NullUUID
		var level string
		var platform sql.NullString
		if err := rows.Scan(&l.ID, &propertyID, &l.Timestamp, &level, &l.Message, &platform); err != nil {
			return nil, err
		}
		if propertyID.Valid {
			id := propertyID.UUID
			l.PropertyID = &id
		}
		l.Level = models.LogLevel(level)
		l.Platform = platform.String
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
