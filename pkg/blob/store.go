// Package blob provides the BlobStore contract the dataset and key-value
// store services are built on; S3/MinIO is one implementation").
package blob

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"
)

// Object describes a stored blob's metadata, returned from List and Get.
type Object struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// Store is the contract consumed by the dataset and KV store services. It
// never assumes any particular key layout — callers (pkg/dataset,
// pkg/kvstore) compose keys via the helpers below.
type Store interface {
	// Put uploads data under key, overwriting any existing object.
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// Get retrieves an object by key. Returns ErrNotFound if absent.
	Get(ctx context.Context, key string) (io.ReadCloser, Object, error)

	// List lists objects with the given prefix in lexicographic key order.
	List(ctx context.Context, prefix string) ([]Object, error)

	// Delete removes an object by key. Idempotent: no error if absent.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes every object under prefix.
	DeletePrefix(ctx context.Context, prefix string) error

	// PresignedURL returns a time-bounded URL for downloading key.
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)

	// EnsureBucket creates the backing bucket/container if it is missing.
	EnsureBucket(ctx context.Context) error
}

// DatasetItemKey returns the blob key for item index idx of dataset
// datasetID: "datasets/<id>/<9-digit-zero-padded-index>.json".
func DatasetItemKey(datasetID string, idx int64) string {
	return fmt.Sprintf("datasets/%s/%09d.json", datasetID, idx)
}

// DatasetPrefix returns the blob prefix covering all items of a dataset.
func DatasetPrefix(datasetID string) string {
	return fmt.Sprintf("datasets/%s/", datasetID)
}

// KeyValueRecordKey returns the blob key for a KV record:
// "key-value-stores/<id>/<url-encoded-key>".
func KeyValueRecordKey(storeID, key string) string {
	return fmt.Sprintf("key-value-stores/%s/%s", storeID, url.QueryEscape(key))
}

// KeyValuePrefix returns the blob prefix covering all records of a store.
func KeyValuePrefix(storeID string) string {
	return fmt.Sprintf("key-value-stores/%s/", storeID)
}
