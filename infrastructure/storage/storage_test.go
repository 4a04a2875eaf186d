package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"smart-gallery/domain/models"
	"smart-gallery/domain/repositories"
	"smart-gallery/domain/services"
	"smart-gallery/pkg/logger"
)

func TestMain(m *testing.M) {
	dir, _ := os.MkdirTemp("", "storage-logs")
	logger.Init(dir, false)
	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type memAttachments struct {
	mu        sync.Mutex
	rows      map[uuid.UUID]models.Attachment
	createErr error
}

func newMemAttachments() *memAttachments {
	return &memAttachments{rows: make(map[uuid.UUID]models.Attachment)}
}

func (m *memAttachments) Create(ctx context.Context, a *models.Attachment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.rows[a.ID] = *a
	return nil
}

func (m *memAttachments) GetByID(ctx context.Context, id uuid.UUID) (*models.Attachment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &a, nil
}

func (m *memAttachments) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

func writeTemp(t *testing.T, content []byte) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "download-*")
	if err != nil {
		t.Fatal(err)
	}
	f.Write(content)
	f.Close()
	return f.Name()
}

func TestLocalStore_StoreAndResolve(t *testing.T) {
	ctx := context.Background()
	attachments := newMemAttachments()
	store, err := NewLocalStore(t.TempDir(), attachments)
	if err != nil {
		t.Fatal(err)
	}

	tmp := writeTemp(t, pngHeader)
	id, err := store.StoreDownloadedImage(ctx, tmp, "../holiday.PNG")
	if err != nil {
		t.Fatalf("StoreDownloadedImage: %v", err)
	}

	if _, err := os.Stat(tmp); !os.IsNotExist(err) {
		t.Error("temp file should have been moved")
	}

	record, _ := attachments.GetByID(ctx, id)
	if record.Filename != "holiday.PNG" {
		t.Errorf("filename = %q, want holiday.PNG", record.Filename)
	}
	if record.MimeType != "image/png" {
		t.Errorf("mime = %q, want image/png", record.MimeType)
	}
	if record.Size != int64(len(pngHeader)) {
		t.Errorf("size = %d", record.Size)
	}
	if !strings.HasSuffix(record.StorageKey, id.String()+".png") {
		t.Errorf("storage key = %q", record.StorageKey)
	}

	path, err := store.GetFilePath(ctx, id)
	if err != nil {
		t.Fatalf("GetFilePath: %v", err)
	}
	data, _ := os.ReadFile(path)
	if !bytes.Equal(data, pngHeader) {
		t.Error("stored content differs")
	}
}

func TestLocalStore_MissingAsset(t *testing.T) {
	ctx := context.Background()
	attachments := newMemAttachments()
	dir := t.TempDir()
	store, _ := NewLocalStore(dir, attachments)

	if _, err := store.GetFilePath(ctx, uuid.New()); !errors.Is(err, services.ErrMissingAsset) {
		t.Errorf("unknown id: err = %v, want ErrMissingAsset", err)
	}

	id, err := store.StoreDownloadedImage(ctx, writeTemp(t, pngHeader), "a.png")
	if err != nil {
		t.Fatal(err)
	}
	record, _ := attachments.GetByID(ctx, id)
	os.Remove(filepath.Join(dir, filepath.FromSlash(record.StorageKey)))

	_, err = store.GetFilePath(ctx, id)
	if !errors.Is(err, services.ErrMissingAsset) {
		t.Errorf("removed file: err = %v, want ErrMissingAsset", err)
	}
	if services.KindOf(err) != services.KindMissingAsset {
		t.Errorf("kind = %s", services.KindOf(err))
	}
}

func TestLocalStore_Delete(t *testing.T) {
	ctx := context.Background()
	attachments := newMemAttachments()
	store, _ := NewLocalStore(t.TempDir(), attachments)

	id, _ := store.StoreDownloadedImage(ctx, writeTemp(t, pngHeader), "a.png")
	path, _ := store.GetFilePath(ctx, id)

	if err := store.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("file should be gone")
	}
	if _, err := attachments.GetByID(ctx, id); !errors.Is(err, repositories.ErrNotFound) {
		t.Error("attachment record should be gone")
	}
	if err := store.Delete(ctx, id); err != nil {
		t.Errorf("second delete should be a no-op, got %v", err)
	}
}

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	gets    int
	deletes int
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "NoSuchKey", Message: "not found"}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, nil
}

func TestS3Store_RoundTripThroughCache(t *testing.T) {
	ctx := context.Background()
	client := &fakeS3{objects: make(map[string][]byte)}
	attachments := newMemAttachments()
	store, err := NewS3StoreWithClient(client, "bucket", "gallery", t.TempDir(), attachments)
	if err != nil {
		t.Fatal(err)
	}

	id, err := store.StoreDownloadedImage(ctx, writeTemp(t, pngHeader), "photo.png")
	if err != nil {
		t.Fatalf("StoreDownloadedImage: %v", err)
	}
	record, _ := attachments.GetByID(ctx, id)
	if _, ok := client.objects["gallery/"+record.StorageKey]; !ok {
		t.Fatalf("object not uploaded under prefix, have %v", client.objects)
	}

	path, err := store.GetFilePath(ctx, id)
	if err != nil {
		t.Fatalf("GetFilePath: %v", err)
	}
	data, _ := os.ReadFile(path)
	if !bytes.Equal(data, pngHeader) {
		t.Error("cached content differs")
	}

	if _, err := store.GetFilePath(ctx, id); err != nil {
		t.Fatal(err)
	}
	if client.gets != 1 {
		t.Errorf("GetObject calls = %d, want 1 (second read from cache)", client.gets)
	}

	if err := store.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(client.objects) != 0 {
		t.Error("object should be deleted")
	}
}

func TestS3Store_MissingObject(t *testing.T) {
	ctx := context.Background()
	attachments := newMemAttachments()
	store, _ := NewS3StoreWithClient(&fakeS3{objects: make(map[string][]byte)}, "bucket", "", t.TempDir(), attachments)

	id := uuid.New()
	attachments.Create(ctx, &models.Attachment{ID: id, StorageKey: "2024/01/" + id.String() + ".jpg", Backend: BackendS3})

	if _, err := store.GetFilePath(ctx, id); !errors.Is(err, services.ErrMissingAsset) {
		t.Errorf("err = %v, want ErrMissingAsset", err)
	}
}

func TestS3Store_RecordFailureRemovesObject(t *testing.T) {
	ctx := context.Background()
	client := &fakeS3{objects: make(map[string][]byte)}
	attachments := newMemAttachments()
	attachments.createErr = errors.New("db down")
	store, err := NewS3StoreWithClient(client, "bucket", "gallery", t.TempDir(), attachments)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := store.StoreDownloadedImage(ctx, writeTemp(t, pngHeader), "photo.png"); err == nil {
		t.Fatal("expected error when the attachment insert fails")
	}
	if client.deletes != 1 {
		t.Errorf("DeleteObject calls = %d, want 1", client.deletes)
	}
	if len(client.objects) != 0 {
		t.Errorf("uploaded object left behind: %v", client.objects)
	}
}
