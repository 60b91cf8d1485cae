package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/EduardoCane/EmpresaAguaLima-sub000/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ArchiveStorage keeps finished export archives.
type ArchiveStorage interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	GetPresignedURL(ctx context.Context, objectName, downloadName string) (string, error)
	DeleteFile(ctx context.Context, objectName string) error
}

// MinioService stores export archives in a MinIO bucket.
type MinioService struct {
	client *minio.Client
	bucket string
	config *config.MinioConfig
}

// NewMinioService creates a new MinIO service
func NewMinioService(cfg *config.MinioConfig) (*MinioService, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinioService{
		client: client,
		bucket: cfg.Bucket,
		config: cfg,
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist
func (s *MinioService) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}

	if !exists {
		err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

// UploadFile uploads a file to MinIO
func (s *MinioService) UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload file: %w", err)
	}

	return nil
}

// GetPresignedURL returns a download link valid for ExpireDays. downloadName
// sets the file name the browser saves.
func (s *MinioService) GetPresignedURL(ctx context.Context, objectName, downloadName string) (string, error) {
	expiry := time.Duration(s.config.ExpireDays) * 24 * time.Hour
	params := make(map[string][]string)
	if downloadName != "" {
		params["response-content-disposition"] = []string{fmt.Sprintf("attachment; filename=%q", downloadName)}
	}
	url, err := s.client.PresignedGetObject(ctx, s.bucket, objectName, expiry, params)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return url.String(), nil
}

// DeleteFile deletes a file from MinIO
func (s *MinioService) DeleteFile(ctx context.Context, objectName string) error {
	err := s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}

// ExportObjectName places an archive under exports/YYYY/MM/DD/.
func ExportObjectName(jobID, fileName string, at time.Time) string {
	return path.Join("exports", at.Format("2006/01/02"), jobID+path.Ext(fileName))
}

// storeArchive uploads data and returns its object name.
func storeArchive(ctx context.Context, st ArchiveStorage, jobID, fileName, contentType string, data []byte, at time.Time) (string, error) {
	name := ExportObjectName(jobID, fileName, at)
	if err := st.UploadFile(ctx, name, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return "", err
	}
	return name, nil
}
