package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"cloud.google.com/go/storage"
	"github.com/Lllllllleong/scanshare/internal/models"
	"github.com/google/uuid"
	"google.golang.org/api/googleapi"
)

const (
	storageService = "storage"
	// downloadTokenKey is the object metadata key Firebase Storage reads download tokens from.
	downloadTokenKey = "firebaseStorageDownloadTokens"
	uploadTimeout    = 50 * time.Second
)

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// ObjectStore wraps one Cloud Storage bucket.
type ObjectStore struct {
	bucket     *storage.BucketHandle
	bucketName string
}

// NewObjectStore returns an ObjectStore for bucketName.
func NewObjectStore(client *storage.Client, bucketName string) *ObjectStore {
	return &ObjectStore{bucket: client.Bucket(bucketName), bucketName: bucketName}
}

// Upload copies the local file to objectName in a single write and returns its download URL.
// The object gets a fresh download token so the URL is usable by any holder without credentials.
func (s *ObjectStore) Upload(ctx context.Context, objectName, localPath string) (string, error) {
	localFile, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("could not open local file %s: %w", localPath, err)
	}
	defer localFile.Close()

	writeCtx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	token := uuid.NewString()
	writer := s.bucket.Object(objectName).NewWriter(writeCtx)
	writer.ContentType = contentTypeFor(objectName)
	writer.Metadata = map[string]string{downloadTokenKey: token}

	if _, err := io.Copy(writer, localFile); err != nil {
		_ = writer.Close()
		slog.Error("Failed to copy content to GCS object", "gcsObject", objectName, "error", err)
		return "", classifyStorageError(fmt.Errorf("io.Copy to GCS failed: %w", err))
	}
	if err := writer.Close(); err != nil {
		slog.Error("Failed to close GCS writer", "gcsObject", objectName, "error", err)
		return "", classifyStorageError(fmt.Errorf("failed to finalize GCS write: %w", err))
	}
	return DownloadURL(s.bucketName, objectName, token), nil
}

// Open streams an object's content.
func (s *ObjectStore) Open(ctx context.Context, objectName string) (io.ReadCloser, error) {
	reader, err := s.bucket.Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, classifyStorageError(fmt.Errorf("failed to get GCS object reader for gs://%s/%s: %w", s.bucketName, objectName, err))
	}
	return reader, nil
}

// Delete removes an object. A missing object is not an error.
func (s *ObjectStore) Delete(ctx context.Context, objectName string) error {
	err := s.bucket.Object(objectName).Delete(ctx)
	if err == nil || errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return classifyStorageError(fmt.Errorf("failed to delete gs://%s/%s: %w", s.bucketName, objectName, err))
}

// DownloadURL builds the token-bearing Firebase Storage URL of an object.
func DownloadURL(bucketName, objectName, token string) string {
	return fmt.Sprintf("https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media&token=%s",
		bucketName, url.PathEscape(objectName), url.QueryEscape(token))
}

func contentTypeFor(objectName string) string {
	if ct := mime.TypeByExtension(filepath.Ext(objectName)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// classifyStorageError maps API errors to ServiceError and everything else to NetworkError.
func classifyStorageError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &models.ServiceError{Service: storageService, StatusCode: gerr.Code, Message: err.Error()}
	}
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return &models.ServiceError{Service: storageService, StatusCode: 404, Message: err.Error()}
	}
	return &models.NetworkError{Service: storageService, Err: err}
}
