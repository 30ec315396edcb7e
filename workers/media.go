package workers

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"hogar_scrooper/httputil"
	"hogar_scrooper/logging"
	"hogar_scrooper/models"
	"hogar_scrooper/storage"
)

// Uploader stores archived photo bytes under a key
type Uploader interface {
	Upload(ctx context.Context, key string, data io.Reader, contentType string) error
}

// MediaQueue is the slice of the media service the worker drives
type MediaQueue interface {
	GetPending(ctx context.Context, limit int) ([]models.Media, error)
	MarkUploaded(ctx context.Context, m *models.Media, s3Key, contentHash string) error
	MarkFailed(ctx context.Context, m *models.Media) error
}

// MediaWorker downloads queued listing photos, hashes them, and uploads
// them to S3
type MediaWorker struct {
	queue      MediaQueue
	referers   httputil.RefererSource
	httpClient *http.Client
	uploader   Uploader
	logFn      LogFunc
	batchSize  int
	pause      time.Duration
}

func NewMediaWorker(queue MediaQueue, referers httputil.RefererSource, client *http.Client, uploader Uploader, batchSize int) *MediaWorker {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	if batchSize <= 0 {
		batchSize = 20
	}
	return &MediaWorker{
		queue:      queue,
		referers:   referers,
		httpClient: client,
		uploader:   uploader,
		logFn:      NoOpLogger,
		batchSize:  batchSize,
		pause:      200 * time.Millisecond,
	}
}

// SetLogger routes photos that are given up on to fn.
func (w *MediaWorker) SetLogger(fn LogFunc) {
	if fn != nil {
		w.logFn = fn
	}
}

// MediaProcessResult contains the outcome of processing a media item
type MediaProcessResult struct {
	S3Key       string
	ContentHash string
	Size        int64
	Error       error
}

// Process downloads one photo with its platform's referer, hashes it and
// uploads it under a content-addressed key.
func (w *MediaWorker) Process(ctx context.Context, media *models.Media) MediaProcessResult {
	var result MediaProcessResult

	referer, ok := w.referers.RefererForImage(media.OriginalURL)
	if !ok {
		result.Error = fmt.Errorf("host not allowed: %s", media.OriginalURL)
		return result
	}

	req, err := httputil.NewImageRequest(ctx, media.OriginalURL, referer)
	if err != nil {
		result.Error = fmt.Errorf("create request: %w", err)
		return result
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		result.Error = fmt.Errorf("download: %w", err)
		return result
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		result.Error = fmt.Errorf("download status: %d", resp.StatusCode)
		return result
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 50*1024*1024)) // 50MB limit
	if err != nil {
		result.Error = fmt.Errorf("read body: %w", err)
		return result
	}
	if len(data) == 0 {
		result.Error = fmt.Errorf("empty body")
		return result
	}
	result.Size = int64(len(data))

	hash := sha256.Sum256(data)
	result.ContentHash = hex.EncodeToString(hash[:])

	contentType := resp.Header.Get("Content-Type")
	result.S3Key = storage.MediaKey(result.ContentHash, guessExtension(media.OriginalURL, contentType))

	if w.uploader != nil {
		if contentType == "" {
			contentType = "image/jpeg"
		}
		if err := w.uploader.Upload(ctx, result.S3Key, bytes.NewReader(data), contentType); err != nil {
			result.Error = fmt.Errorf("upload: %w", err)
			return result
		}
	}

	return result
}

// guessExtension determines file extension from URL or content-type
func guessExtension(rawURL, contentType string) string {
	if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		rawURL = rawURL[:i]
	}
	ext := strings.ToLower(path.Ext(rawURL))
	if isImageExt(ext) {
		if ext == ".jpeg" {
			return ".jpg"
		}
		return ext
	}

	switch strings.TrimSpace(strings.Split(contentType, ";")[0]) {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}

func isImageExt(ext string) bool {
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".tiff":
		return true
	}
	return false
}

// ProcessBatch archives up to one batch of pending photos and returns how
// many were uploaded and how many failed.
func (w *MediaWorker) ProcessBatch(ctx context.Context) (processed, failed int) {
	media, err := w.queue.GetPending(ctx, w.batchSize)
	if err != nil {
		logging.Errorf("Media worker: query error: %v", err)
		return 0, 0
	}
	if len(media) == 0 {
		return 0, 0
	}

	logging.Debugf("Media worker: processing %d items", len(media))

	for i := range media {
		m := &media[i]
		if ctx.Err() != nil {
			break
		}

		result := w.Process(ctx, m)
		if result.Error != nil {
			logging.Warnf("Media worker: failed %s (attempt %d): %v", m.OriginalURL, m.Attempts+1, result.Error)
			failed++
			if err := w.queue.MarkFailed(ctx, m); err != nil {
				logging.Errorf("Media worker: failed to record attempt for %s: %v", m.ID, err)
			} else if m.Attempts+1 >= models.MaxMediaAttempts {
				w.logFn(m.PropertyID, models.LogLevelWarn, m.Platform,
					fmt.Sprintf("photo %d given up after %d attempts: %v", m.Position, models.MaxMediaAttempts, result.Error))
			}
			continue
		}

		if err := w.queue.MarkUploaded(ctx, m, result.S3Key, result.ContentHash); err != nil {
			logging.Errorf("Media worker: failed to update %s: %v", m.ID, err)
			failed++
			continue
		}

		processed++
		logging.Debugf("Media worker: uploaded %s -> %s (%d bytes)", m.ID, result.S3Key, result.Size)

		// Rate limit between downloads
		if w.pause > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(w.pause):
			}
		}
	}

	if processed > 0 || failed > 0 {
		logging.Infof("Media worker: processed %d, failed %d", processed, failed)
	}
	return processed, failed
}

// NoOpUploader drains photos without storing them, used when no bucket is
// configured
type NoOpUploader struct{}

func (u *NoOpUploader) Upload(ctx context.Context, key string, data io.Reader, contentType string) error {
	_, err := io.Copy(io.Discard, data)
	return err
}

func NewNoOpUploader() *NoOpUploader {
	return &NoOpUploader{}
}
