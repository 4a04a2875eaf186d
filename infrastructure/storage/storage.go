package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"smart-gallery/domain/repositories"
	"smart-gallery/domain/services"
	"smart-gallery/pkg/config"
)

const (
	BackendLocal = "local"
	BackendS3    = "s3"
)

// MediaStore keeps image binaries and hands out local file paths for them.
type MediaStore interface {
	// GetFilePath returns a readable local path, or ErrMissingAsset.
	GetFilePath(ctx context.Context, attachmentID uuid.UUID) (string, error)
	// StoreDownloadedImage takes ownership of tempPath and returns the new attachment id.
	StoreDownloadedImage(ctx context.Context, tempPath, suggestedFilename string) (uuid.UUID, error)
	Delete(ctx context.Context, attachmentID uuid.UUID) error
	Backend() string
	Ping(ctx context.Context) error
}

// NewMediaStore builds the store selected by cfg.Backend.
func NewMediaStore(ctx context.Context, cfg config.StorageConfig, attachments repositories.AttachmentRepository) (MediaStore, error) {
	switch cfg.Backend {
	case "", BackendLocal:
		return NewLocalStore(cfg.LocalDir, attachments)
	case BackendS3:
		return NewS3Store(ctx, cfg, attachments)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// objectKey lays binaries out by month: 2024/05/<id>.jpg
func objectKey(id uuid.UUID, filename string, now time.Time) string {
	return now.Format("2006/01") + "/" + id.String() + strings.ToLower(filepath.Ext(filename))
}

func cleanFilename(name string, id uuid.UUID) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == "/" || name == "" {
		return id.String()
	}
	return name
}

// detectMimeType sniffs the first bytes of the file, falling back to the extension.
func detectMimeType(path, filename string) string {
	f, err := os.Open(path)
	if err == nil {
		defer f.Close()
		buf := make([]byte, 512)
		n, _ := io.ReadFull(f, buf)
		if n > 0 {
			if sniffed := http.DetectContentType(buf[:n]); sniffed != "application/octet-stream" {
				return sniffed
			}
		}
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); byExt != "" {
		return byExt
	}
	return "application/octet-stream"
}

// moveFile renames src to dst, copying when they sit on different devices.
func moveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}

func missingAsset(id uuid.UUID, err error) error {
	if err == nil || errors.Is(err, repositories.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: attachment %s", services.ErrMissingAsset, id)
	}
	return fmt.Errorf("%w: attachment %s: %v", services.ErrMissingAsset, id, err)
}
