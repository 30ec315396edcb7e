package workers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"hogar_scrooper/models"
)

type fakeQueue struct {
	mu       sync.Mutex
	pending  []models.Media
	uploaded map[uuid.UUID]string
	failed   map[uuid.UUID]int
}

func newFakeQueue(items ...models.Media) *fakeQueue {
	return &fakeQueue{pending: items, uploaded: map[uuid.UUID]string{}, failed: map[uuid.UUID]int{}}
}

func (q *fakeQueue) GetPending(ctx context.Context, limit int) ([]models.Media, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) < limit {
		limit = len(q.pending)
	}
	return append([]models.Media(nil), q.pending[:limit]...), nil
}

func (q *fakeQueue) MarkUploaded(ctx context.Context, m *models.Media, s3Key, contentHash string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.uploaded[m.ID] = s3Key
	return nil
}

func (q *fakeQueue) MarkFailed(ctx context.Context, m *models.Media) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.failed[m.ID] = m.Attempts + 1
	return nil
}

type allowReferers struct{ referer string }

func (a allowReferers) RefererForImage(imageURL string) (string, bool) {
	if strings.Contains(imageURL, "blocked") {
		return "", false
	}
	return a.referer, true
}

type recordingUploader struct {
	keys  []string
	types []string
	data  []string
}

func (u *recordingUploader) Upload(ctx context.Context, key string, data io.Reader, contentType string) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	u.keys = append(u.keys, key)
	u.types = append(u.types, contentType)
	u.data = append(u.data, string(b))
	return nil
}

func newImageServer(t *testing.T, gotReferer *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*gotReferer = r.Header.Get("Referer")
		switch r.URL.Path {
		case "/photo.webp":
			w.Header().Set("Content-Type", "image/webp")
			io.WriteString(w, "webp-bytes")
		case "/noext":
			w.Header().Set("Content-Type", "image/png")
			io.WriteString(w, "png-bytes")
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestMediaWorkerProcessBatch(t *testing.T) {
	var referer string
	srv := newImageServer(t, &referer)

	ok := models.Media{ID: uuid.New(), PropertyID: uuid.New(), Platform: "idealista", OriginalURL: srv.URL + "/photo.webp"}
	missing := models.Media{ID: uuid.New(), PropertyID: ok.PropertyID, Platform: "idealista", OriginalURL: srv.URL + "/gone.jpg", Attempts: 2}
	blocked := models.Media{ID: uuid.New(), PropertyID: ok.PropertyID, OriginalURL: "https://blocked.example/a.jpg"}
	queue := newFakeQueue(ok, missing, blocked)

	uploader := &recordingUploader{}
	w := NewMediaWorker(queue, allowReferers{referer: "https://www.idealista.com/"}, srv.Client(), uploader, 10)
	w.pause = 0

	var gaveUp []string
	w.SetLogger(func(propertyID uuid.UUID, level models.LogLevel, platform, message string) {
		gaveUp = append(gaveUp, message)
	})

	processed, failed := w.ProcessBatch(context.Background())
	if processed != 1 || failed != 2 {
		t.Fatalf("expected 1 processed and 2 failed, got %d/%d", processed, failed)
	}
	if referer != "https://www.idealista.com/" {
		t.Fatalf("expected platform referer upstream, got %q", referer)
	}

	key := queue.uploaded[ok.ID]
	if !strings.HasPrefix(key, "media/") || !strings.HasSuffix(key, ".webp") {
		t.Fatalf("unexpected key %q", key)
	}
	parts := strings.Split(key, "/")
	if len(parts) != 3 || !strings.HasPrefix(parts[2], parts[1]) || len(parts[1]) != 2 {
		t.Fatalf("expected content-addressed key, got %q", key)
	}
	if len(uploader.keys) != 1 || uploader.keys[0] != key || uploader.data[0] != "webp-bytes" || uploader.types[0] != "image/webp" {
		t.Fatalf("unexpected upload %+v", uploader)
	}

	if queue.failed[missing.ID] != 3 || queue.failed[blocked.ID] != 1 {
		t.Fatalf("unexpected failure attempts %v", queue.failed)
	}
	if len(gaveUp) != 1 {
		t.Fatalf("expected one given-up log for the exhausted photo, got %v", gaveUp)
	}
}

func TestMediaWorkerIdenticalPhotosShareKey(t *testing.T) {
	var referer string
	srv := newImageServer(t, &referer)
	a := models.Media{ID: uuid.New(), OriginalURL: srv.URL + "/photo.webp"}
	b := models.Media{ID: uuid.New(), OriginalURL: srv.URL + "/photo.webp?w=800"}

	w := NewMediaWorker(newFakeQueue(), allowReferers{}, srv.Client(), NewNoOpUploader(), 0)
	ra := w.Process(context.Background(), &a)
	rb := w.Process(context.Background(), &b)
	if ra.Error != nil || rb.Error != nil {
		t.Fatalf("unexpected errors %v %v", ra.Error, rb.Error)
	}
	if ra.S3Key != rb.S3Key || ra.ContentHash != rb.ContentHash || ra.Size != int64(len("webp-bytes")) {
		t.Fatalf("expected identical bytes to share a key: %+v %+v", ra, rb)
	}
	if referer != "" {
		t.Fatalf("expected no referer header when the platform has none, got %q", referer)
	}
}

func TestGuessExtension(t *testing.T) {
	cases := []struct {
		url, contentType, want string
	}{
		{"https://img3.idealista.com/a/b.JPG", "", ".jpg"},
		{"https://img3.idealista.com/a/b.jpeg?x=1", "", ".jpg"},
		{"https://fotos15.apinmo.com/1/2/3.webp", "image/jpeg", ".webp"},
		{"https://cdn.example.com/noext", "image/png; charset=binary", ".png"},
		{"https://cdn.example.com/image.php?id=4", "image/gif", ".gif"},
		{"https://cdn.example.com/noext", "", ".jpg"},
	}
	for _, tc := range cases {
		if got := guessExtension(tc.url, tc.contentType); got != tc.want {
			t.Fatalf("guessExtension(%q, %q) = %q, want %q", tc.url, tc.contentType, got, tc.want)
		}
	}
}
