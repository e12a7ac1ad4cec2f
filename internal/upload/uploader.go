// Package upload copies generated ledger files to Google Cloud Storage.
package upload

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// DefaultTimeout bounds a single upload.
const DefaultTimeout = 2 * time.Minute

// Bucket opens object writers. *storage.BucketHandle satisfies it through
// GCSBucket.
type Bucket interface {
	NewWriter(ctx context.Context, object string) io.WriteCloser
}

// GCSBucket adapts a storage bucket handle.
type GCSBucket struct {
	*storage.BucketHandle
}

// NewWriter implements Bucket.
func (b GCSBucket) NewWriter(ctx context.Context, object string) io.WriteCloser {
	return b.Object(object).NewWriter(ctx)
}

// Uploader writes local files under a prefix of one bucket.
type Uploader struct {
	bucket  Bucket
	name    string
	prefix  string
	Timeout time.Duration
}

// New creates an Uploader. name is the bucket name used in returned URIs.
func New(bucket Bucket, name, prefix string) *Uploader {
	return &Uploader{
		bucket:  bucket,
		name:    name,
		prefix:  prefix,
		Timeout: DefaultTimeout,
	}
}

// NewGCS connects with Application Default Credentials. The returned close
// function releases the client.
func NewGCS(ctx context.Context, bucketName, prefix string) (*Uploader, func() error, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("create storage client: %w", err)
	}
	return New(GCSBucket{client.Bucket(bucketName)}, bucketName, prefix), client.Close, nil
}

// ObjectName returns the object name a local file is uploaded to.
func (u *Uploader) ObjectName(filePath string) string {
	base := filepath.Base(filePath)
	if u.prefix == "" {
		return base
	}
	return path.Join(strings.TrimSuffix(u.prefix, "/"), base)
}

// UploadFile uploads filePath and returns its gs:// URI.
func (u *Uploader) UploadFile(ctx context.Context, filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("open file %q: %w", filePath, err)
	}
	defer f.Close()

	if u.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.Timeout)
		defer cancel()
	}

	object := u.ObjectName(filePath)
	w := u.bucket.NewWriter(ctx, object)

	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("copy file to GCS writer: %w", err)
	}

	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize upload: %w", err)
	}

	return ObjectURI(u.name, object), nil
}

// ObjectURI formats a gs:// URI.
func ObjectURI(bucket, object string) string {
	return "gs://" + bucket + "/" + object
}
