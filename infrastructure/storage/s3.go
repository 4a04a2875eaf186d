package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"smart-gallery/domain/models"
	"smart-gallery/domain/repositories"
	"smart-gallery/pkg/config"
	"smart-gallery/pkg/logger"
)

// S3API is the subset of the S3 client the store uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Store keeps binaries in a bucket and materialises them into a local cache on read.
type S3Store struct {
	client      S3API
	bucket      string
	prefix      string
	cacheDir    string
	attachments repositories.AttachmentRepository
}

func NewS3Store(ctx context.Context, cfg config.StorageConfig, attachments repositories.AttachmentRepository) (*S3Store, error) {
	if cfg.S3Bucket == "" {
		return nil, errors.New("S3_BUCKET is not configured")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.S3Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewS3StoreWithClient(client, cfg.S3Bucket, cfg.S3Prefix, cfg.CacheDir, attachments)
}

func NewS3StoreWithClient(client S3API, bucket, prefix, cacheDir string, attachments repositories.AttachmentRepository) (*S3Store, error) {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &S3Store{
		client:      client,
		bucket:      bucket,
		prefix:      prefix,
		cacheDir:    cacheDir,
		attachments: attachments,
	}, nil
}

func (s *S3Store) Backend() string {
	return BackendS3
}

func (s *S3Store) Ping(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	return err
}

func (s *S3Store) fullKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return path.Join(s.prefix, key)
}

func (s *S3Store) StoreDownloadedImage(ctx context.Context, tempPath, suggestedFilename string) (uuid.UUID, error) {
	f, err := os.Open(tempPath)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to open downloaded file: %w", err)
	}
	defer os.Remove(tempPath)
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to stat downloaded file: %w", err)
	}

	id := uuid.New()
	filename := cleanFilename(suggestedFilename, id)
	key := objectKey(id, filename, time.Now())
	mimeType := detectMimeType(tempPath, filename)

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.fullKey(key)),
		Body:          f,
		ContentType:   aws.String(mimeType),
		ContentLength: aws.Int64(info.Size()),
	})
	if err != nil {
		logger.StorageError("s3_put_failed", "Failed to upload image to S3", err, map[string]interface{}{
			"bucket": s.bucket,
			"key":    key,
		})
		return uuid.Nil, fmt.Errorf("failed to upload to s3: %w", err)
	}

	attachment := &models.Attachment{
		ID:         id,
		Filename:   filename,
		MimeType:   mimeType,
		Size:       info.Size(),
		StorageKey: key,
		Backend:    BackendS3,
	}
	if err := s.attachments.Create(ctx, attachment); err != nil {
		if _, delErr := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.fullKey(key)),
		}); delErr != nil {
			logger.StorageError("s3_orphan", "Failed to remove object after attachment insert failed", delErr, map[string]interface{}{
				"bucket": s.bucket,
				"key":    key,
			})
		}
		return uuid.Nil, fmt.Errorf("failed to record attachment: %w", err)
	}

	logger.Storage("s3_stored", "Image uploaded to S3", map[string]interface{}{
		"attachment_id": id.String(),
		"key":           key,
		"size":          info.Size(),
	})
	return id, nil
}

// GetFilePath serves from the cache directory, fetching the object on a miss.
func (s *S3Store) GetFilePath(ctx context.Context, attachmentID uuid.UUID) (string, error) {
	attachment, err := s.attachments.GetByID(ctx, attachmentID)
	if err != nil {
		return "", missingAsset(attachmentID, err)
	}

	cached := filepath.Join(s.cacheDir, filepath.FromSlash(attachment.StorageKey))
	if _, err := os.Stat(cached); err == nil {
		return cached, nil
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fullKey(attachment.StorageKey)),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return "", missingAsset(attachmentID, nil)
		}
		return "", fmt.Errorf("failed to fetch object: %w", err)
	}
	defer out.Body.Close()

	if err := os.MkdirAll(filepath.Dir(cached), 0755); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(filepath.Dir(cached), ".fetch-*")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, out.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to cache object: %w", err)
	}
	tmp.Close()
	if err := os.Rename(tmp.Name(), cached); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return cached, nil
}

func (s *S3Store) Delete(ctx context.Context, attachmentID uuid.UUID) error {
	attachment, err := s.attachments.GetByID(ctx, attachmentID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fullKey(attachment.StorageKey)),
	})
	if err != nil && !isNoSuchKey(err) {
		return fmt.Errorf("failed to delete object: %w", err)
	}

	os.Remove(filepath.Join(s.cacheDir, filepath.FromSlash(attachment.StorageKey)))
	return s.attachments.Delete(ctx, attachmentID)
}

func isNoSuchKey(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
