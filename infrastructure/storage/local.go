package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"smart-gallery/domain/models"
	"smart-gallery/domain/repositories"
	"smart-gallery/pkg/logger"
)

// LocalStore keeps binaries under a directory on disk.
type LocalStore struct {
	dir         string
	attachments repositories.AttachmentRepository
}

func NewLocalStore(dir string, attachments repositories.AttachmentRepository) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	return &LocalStore{dir: abs, attachments: attachments}, nil
}

func (s *LocalStore) Backend() string {
	return BackendLocal
}

func (s *LocalStore) Ping(ctx context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", s.dir)
	}
	return nil
}

func (s *LocalStore) GetFilePath(ctx context.Context, attachmentID uuid.UUID) (string, error) {
	attachment, err := s.attachments.GetByID(ctx, attachmentID)
	if err != nil {
		return "", missingAsset(attachmentID, err)
	}

	path := filepath.Join(s.dir, filepath.FromSlash(attachment.StorageKey))
	if _, err := os.Stat(path); err != nil {
		return "", missingAsset(attachmentID, err)
	}
	return path, nil
}

func (s *LocalStore) StoreDownloadedImage(ctx context.Context, tempPath, suggestedFilename string) (uuid.UUID, error) {
	info, err := os.Stat(tempPath)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to stat downloaded file: %w", err)
	}

	id := uuid.New()
	filename := cleanFilename(suggestedFilename, id)
	key := objectKey(id, filename, time.Now())
	mimeType := detectMimeType(tempPath, filename)

	dst := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := moveFile(tempPath, dst); err != nil {
		return uuid.Nil, fmt.Errorf("failed to move file into storage: %w", err)
	}

	attachment := &models.Attachment{
		ID:         id,
		Filename:   filename,
		MimeType:   mimeType,
		Size:       info.Size(),
		StorageKey: key,
		Backend:    BackendLocal,
	}
	if err := s.attachments.Create(ctx, attachment); err != nil {
		os.Remove(dst)
		return uuid.Nil, fmt.Errorf("failed to record attachment: %w", err)
	}

	logger.Storage("file_stored", "Image stored", map[string]interface{}{
		"attachment_id": id.String(),
		"filename":      filename,
		"size":          info.Size(),
	})
	return id, nil
}

// Delete removes the binary and its record. Unknown ids are ignored.
func (s *LocalStore) Delete(ctx context.Context, attachmentID uuid.UUID) error {
	attachment, err := s.attachments.GetByID(ctx, attachmentID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	path := filepath.Join(s.dir, filepath.FromSlash(attachment.StorageKey))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.StorageError("file_delete_failed", "Failed to remove stored file", err, map[string]interface{}{
			"attachment_id": attachmentID.String(),
		})
		return fmt.Errorf("failed to remove file: %w", err)
	}

	return s.attachments.Delete(ctx, attachmentID)
}
