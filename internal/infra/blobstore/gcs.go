// Package blobstore writes and reads generated export artifacts (FIT/ZWO/
// YAML files produced by a bulk-import execute phase) to a blob bucket.
package blobstore

import (
	"context"
	"io"

	"cloud.google.com/go/storage"
)

// Store is implemented by anything that can persist and retrieve artifact
// bytes by bucket/object name.
type Store interface {
	Write(ctx context.Context, bucket, object string, data []byte) error
	Read(ctx context.Context, bucket, object string) ([]byte, error)
}

// GCSStore adapts Google Cloud Storage to Store.
type GCSStore struct {
	Client *storage.Client
}

func (a *GCSStore) Write(ctx context.Context, bucketName, objectName string, data []byte) error {
	wc := a.Client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	if _, err := wc.Write(data); err != nil {
		return err
	}
	return wc.Close()
}

func (a *GCSStore) Read(ctx context.Context, bucketName, objectName string) ([]byte, error) {
	rc, err := a.Client.Bucket(bucketName).Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
