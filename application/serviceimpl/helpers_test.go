package serviceimpl

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"smart-gallery/domain/models"
	"smart-gallery/domain/repositories"
	"smart-gallery/domain/services"
	"smart-gallery/infrastructure/postgres"
	"smart-gallery/infrastructure/storage"
	"smart-gallery/infrastructure/vision"
	"smart-gallery/infrastructure/worker"
	"smart-gallery/pkg/config"
	"smart-gallery/pkg/logger"
)

func TestMain(m *testing.M) {
	dir, _ := os.MkdirTemp("", "serviceimpl-logs")
	logger.Init(dir, false)
	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

type fakeQueue struct {
	mu   sync.Mutex
	jobs []worker.Job
	err  error
}

func (q *fakeQueue) Enqueue(ctx context.Context, job worker.Job, delay time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *fakeQueue) count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

type fakeAnalyzer struct {
	mu       sync.Mutex
	result   *vision.Result
	err      error
	requests []vision.Request
}

func (a *fakeAnalyzer) Analyze(ctx context.Context, req vision.Request) (*vision.Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.requests = append(a.requests, req)
	if a.err != nil {
		return nil, a.err
	}
	return a.result, nil
}

func (a *fakeAnalyzer) calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.requests)
}

type recordingEvents struct {
	mu     sync.Mutex
	events []string
}

func (e *recordingEvents) Broadcast(eventType string, data interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, eventType)
}

func (e *recordingEvents) count(eventType string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, ev := range e.events {
		if ev == eventType {
			n++
		}
	}
	return n
}

type testEnv struct {
	db          *gorm.DB
	photos      repositories.PhotoRepository
	tags        repositories.TagRepository
	keywords    repositories.KeywordRepository
	faces       repositories.FaceRepository
	categories  repositories.CategoryRepository
	views       repositories.ViewRepository
	creds       repositories.OAuthCredentialRepository
	albums      repositories.AlbumMappingRepository
	settingRepo repositories.SettingRepository
	settings    services.SettingsService
	store       storage.MediaStore
	queue       *fakeQueue
	analyzer    *fakeAnalyzer
	events      *recordingEvents
	enrichment  *EnrichmentServiceImpl
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	db, err := gorm.Open(sqlite.Open(filepath.Join(dir, "gallery.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := postgres.Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	store, err := storage.NewLocalStore(filepath.Join(dir, "media"), postgres.NewAttachmentRepository(db))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	env := &testEnv{
		db:          db,
		photos:      postgres.NewPhotoRepository(db),
		tags:        postgres.NewTagRepository(db),
		keywords:    postgres.NewKeywordRepository(db),
		faces:       postgres.NewFaceRepository(db),
		categories:  postgres.NewCategoryRepository(db),
		views:       postgres.NewViewRepository(db),
		creds:       postgres.NewOAuthCredentialRepository(db),
		albums:      postgres.NewAlbumMappingRepository(db),
		settingRepo: postgres.NewSettingRepository(db),
		store:       store,
		queue:       &fakeQueue{},
		analyzer:    &fakeAnalyzer{result: &vision.Result{}},
		events:      &recordingEvents{},
	}
	env.settings = NewSettingsService(env.settingRepo, config.VisionConfig{Provider: "google", GoogleAPIKey: "env-key"})
	env.enrichment = NewEnrichmentService(
		env.photos, env.tags, env.keywords, env.faces, env.categories,
		env.settings, env.store, env.analyzer, env.queue, env.events, 5*time.Second,
	)
	return env
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// storedPhoto creates a published photo whose binary is in the media store.
func (e *testEnv) storedPhoto(t *testing.T) *models.Photo {
	t.Helper()
	ctx := context.Background()

	tmp, err := os.CreateTemp(t.TempDir(), "img-*")
	if err != nil {
		t.Fatal(err)
	}
	tmp.Write(pngBytes(t))
	tmp.Close()

	attachmentID, err := e.store.StoreDownloadedImage(ctx, tmp.Name(), "photo.png")
	if err != nil {
		t.Fatalf("failed to store image: %v", err)
	}

	photo := &models.Photo{AttachmentID: attachmentID, Status: models.PhotoStatusPublished, Title: "photo"}
	if err := e.photos.Create(ctx, photo); err != nil {
		t.Fatalf("failed to create photo: %v", err)
	}
	return photo
}

// scheduledPhoto is storedPhoto with a pending enrichment trigger.
func (e *testEnv) scheduledPhoto(t *testing.T) *models.Photo {
	t.Helper()
	photo := e.storedPhoto(t)
	e.markScheduled(t, photo.ID)
	return photo
}

func (e *testEnv) markScheduled(t *testing.T, photoID uuid.UUID) {
	t.Helper()
	if _, err := e.photos.TransitionEnrichment(context.Background(), photoID, models.EnrichmentScheduled, "queued"); err != nil {
		t.Fatal(err)
	}
}

func (e *testEnv) photoWithTags(t *testing.T, status models.PhotoStatus, names ...string) *models.Photo {
	t.Helper()
	ctx := context.Background()

	photo := &models.Photo{AttachmentID: uuid.New(), Status: status, Title: "photo"}
	if err := e.photos.Create(ctx, photo); err != nil {
		t.Fatal(err)
	}
	for _, name := range names {
		if _, err := e.tags.CreateIfAbsent(ctx, &models.Tag{PhotoID: photo.ID, Name: name, Type: models.TagTypeLabel, Confidence: 90}); err != nil {
			t.Fatal(err)
		}
	}
	return photo
}
