/*
Package storage provides the object-storage backend for chat file uploads.

Files never pass through this server: clients upload and download directly
against S3-compatible storage using short-lived presigned URLs. The keys
handed out here are the values messages may later carry as file references.
*/
package storage

import (
	"context"
	"time"
)

// ServiceConfig holds the configuration required to connect to the storage service.
type ServiceConfig struct {
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
}

// Service defines the public interface for the file storage service.
type Service interface {
	// PresignUpload generates a pre-signed URL for uploading a file.
	PresignUpload(ctx context.Context, key string, mimeType string, fileSize int64, duration time.Duration) (string, error)

	// PresignDownload generates a pre-signed URL for downloading a file.
	PresignDownload(ctx context.Context, key string, duration time.Duration) (string, error)

	// Delete removes the file specified by the given key.
	Delete(ctx context.Context, key string) error
}

// NewService initializes and returns a Service for the configured backend.
// Only S3-compatible implementations are currently supported.
func NewService(cfg ServiceConfig) (Service, error) {
	return newS3Client(cfg)
}
