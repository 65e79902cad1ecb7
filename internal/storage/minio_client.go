package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"prolar/internal/apperrors"
	"prolar/internal/config"
)

// Storage is the object store holding listing photos. Paths are
// images/{ownerID}/{name}.
type Storage interface {
	Upload(ctx context.Context, path, contentType string, data []byte) (string, error)
	GetDownloadURL(ctx context.Context, ref string) (string, error)
	// Delete returns apperrors.ErrNotFound when the object does not exist.
	Delete(ctx context.Context, path string) error
}

type MinIOClient struct {
	client *minio.Client
	cfg    config.MinIO
	log    *zap.Logger
}

func NewMinIOClient(cfg config.MinIO, log *zap.Logger) (*MinIOClient, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.BucketName, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.BucketName, err)
		}
		log.Info("bucket created", zap.String("bucket", cfg.BucketName))
	}

	return &MinIOClient{client: client, cfg: cfg, log: log}, nil
}

func (m *MinIOClient) Upload(ctx context.Context, path, contentType string, data []byte) (string, error) {
	_, err := m.client.PutObject(ctx, m.cfg.BucketName, path, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{
			ContentType: contentType,
			UserMetadata: map[string]string{
				"uploaded-at": time.Now().UTC().Format(time.RFC3339),
			},
		})
	if err != nil {
		return "", apperrors.Unavailable("upload "+path, err)
	}
	return path, nil
}

func (m *MinIOClient) GetDownloadURL(ctx context.Context, ref string) (string, error) {
	if m.cfg.PublicURL != "" {
		return publicObjectURL(m.cfg.PublicURL, m.cfg.BucketName, ref), nil
	}

	u, err := m.client.PresignedGetObject(ctx, m.cfg.BucketName, ref, m.cfg.URLExpiry, url.Values{})
	if err != nil {
		return "", apperrors.Unavailable("presign "+ref, err)
	}
	return u.String(), nil
}

func (m *MinIOClient) Delete(ctx context.Context, path string) error {
	// RemoveObject succeeds on missing keys, so stat first to report NotFound.
	if _, err := m.client.StatObject(ctx, m.cfg.BucketName, path, minio.StatObjectOptions{}); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("object %s: %w", path, apperrors.ErrNotFound)
		}
		return apperrors.Unavailable("stat "+path, err)
	}

	err := m.client.RemoveObject(ctx, m.cfg.BucketName, path, minio.RemoveObjectOptions{})
	if err != nil {
		return apperrors.Unavailable("delete "+path, err)
	}
	return nil
}

func publicObjectURL(base, bucket, path string) string {
	return base + "/" + bucket + "/" + (&url.URL{Path: path}).EscapedPath()
}

func isNotFound(err error) bool {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
	}
	return false
}
