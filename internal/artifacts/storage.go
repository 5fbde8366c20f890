package artifacts

import (
	"context"
	"fmt"
	"strings"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// ObjectStorage uploads bytes to durable storage and deletes them again.
// Implementations return stable, non-expiring URLs.
type ObjectStorage interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, objectURL string) error
}

const gcsPublicURLPrefix = "https://storage.googleapis.com/"

// GCSStorage implements ObjectStorage on a Google Cloud Storage bucket.
type GCSStorage struct {
	client *gcs.Client
	bucket string
}

// NewGCSStorage dials GCS. credentialsFile may be empty to use ambient
// application-default credentials.
func NewGCSStorage(ctx context.Context, bucket, credentialsFile string) (*GCSStorage, error) {
	if bucket == "" {
		return nil, fmt.Errorf("artifacts: storage bucket is required")
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &GCSStorage{client: client, bucket: bucket}, nil
}

func (s *GCSStorage) Upload(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	writer := s.client.Bucket(s.bucket).Object(path).NewWriter(ctx)
	writer.ContentType = contentType
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}
	return gcsPublicURLPrefix + s.bucket + "/" + path, nil
}

func (s *GCSStorage) Delete(ctx context.Context, objectURL string) error {
	objectPath, err := s.objectPath(objectURL)
	if err != nil {
		return err
	}
	return s.client.Bucket(s.bucket).Object(objectPath).Delete(ctx)
}

// Close releases the underlying client.
func (s *GCSStorage) Close() error {
	return s.client.Close()
}

func (s *GCSStorage) objectPath(objectURL string) (string, error) {
	prefix := gcsPublicURLPrefix + s.bucket + "/"
	if !strings.HasPrefix(objectURL, prefix) {
		return "", fmt.Errorf("artifacts: url %q is not in bucket %q", objectURL, s.bucket)
	}
	return strings.TrimPrefix(objectURL, prefix), nil
}
