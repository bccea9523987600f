package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
)

// GCSProvider implements the Provider interface for Google Cloud Storage.
type GCSProvider struct {
	Client     *storage.Client
	BucketName string
}

// NewGCSProvider initializes a new GCS client and verifies the connection.
// Authentication is handled automatically via Google's "Application Default Credentials" (ADC).
func NewGCSProvider(ctx context.Context, bucketName string) (*GCSProvider, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	// Check if the bucket exists and we have permissions to access it.
	// This fails fast on startup if configuration is wrong.
	bkt := client.Bucket(bucketName)
	if _, err := bkt.Attrs(ctx); err != nil {
		if closeErr := client.Close(); closeErr != nil {
			zap.L().Warn("Failed to close GCS client after bucket existence check failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("failed to get GCS bucket '%s' attributes: %w", bucketName, err)
	}

	return &GCSProvider{
		Client:     client,
		BucketName: bucketName,
	}, nil
}

// Put uploads the given data to a specific object in the GCS bucket.
func (g *GCSProvider) Put(ctx context.Context, objectName string, data []byte) (string, error) {
	wc := g.Client.Bucket(g.BucketName).Object(objectName).NewWriter(ctx)
	wc.ContentType = "application/json"

	if _, err := wc.Write(data); err != nil {
		// Even if the write fails, close the writer to clean up resources.
		errTwo := wc.Close() // The primary error is the write failure.
		zap.L().Warn("Failed to close GCS writer after write failure", zap.Error(err), zap.Error(errTwo))
		return "", fmt.Errorf("failed to write data to GCS object %s: %w", objectName, err)
	}

	// Close must be called to finalize the upload. It flushes any buffered data.
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer for object %s: %w", objectName, err)
	}

	return fmt.Sprintf("gs://%s/%s", g.BucketName, objectName), nil
}

// Get downloads the object's content from the GCS bucket.
func (g *GCSProvider) Get(ctx context.Context, objectName string) ([]byte, error) {
	rc, err := g.Client.Bucket(g.BucketName).Object(objectName).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to open GCS object %s: %w", objectName, err)
	}
	data, err := io.ReadAll(rc)
	if err != nil {
		if closeErr := rc.Close(); closeErr != nil {
			zap.L().Warn("Failed to close GCS reader after read failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("failed to read GCS object %s: %w", objectName, err)
	}
	if err := rc.Close(); err != nil {
		return nil, fmt.Errorf("failed to close GCS reader for object %s: %w", objectName, err)
	}
	return data, nil
}
