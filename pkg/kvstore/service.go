// Package kvstore implements the key→(blob, content-type) map: overwrite semantics, 204-vs-404 distinction, lexicographic
// key listing. Grounded on the same services layout as pkg/dataset.
package kvstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"sort"
	"time"

	"github.com/crawlee-cloud/crawlee-cloud/pkg/apierr"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/blob"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/db/models"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/ids"
	"github.com/uptrace/bun"
)

type Service struct {
	db    *bun.DB
	store blob.Store
}

func NewService(db *bun.DB, store blob.Store) *Service {
	return &Service{db: db, store: store}
}

// Record is a retrieved value plus its content-type.
type Record struct {
	Body        []byte
	ContentType string
}

// Put writes key under storeIDOrName, overwriting any existing value.
// Auto-creates the store if absent.
func (s *Service) Put(ctx context.Context, storeIDOrName, key string, body []byte, contentType string) error {
	store, err := s.getOrCreate(ctx, storeIDOrName)
	if err != nil {
		return err
	}
	if err := s.store.Put(ctx, blob.KeyValueRecordKey(store.ID, key), bytes.NewReader(body), int64(len(body)), contentType); err != nil {
		return apierr.New(apierr.CodeDependencyUnavailable, "failed to write record", err)
	}
	return nil
}

// Get retrieves a record. Returns (nil, nil) — not an error — when the
// key is absent from an existing store, so callers can render 204; a
// missing store is still a NOT_FOUND 404.
func (s *Service) Get(ctx context.Context, storeIDOrName, key string) (*Record, error) {
	store, err := s.lookup(ctx, storeIDOrName)
	if err != nil {
		return nil, err
	}

	rc, obj, err := s.store.Get(ctx, blob.KeyValueRecordKey(store.ID, key))
	if err == blob.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, apierr.New(apierr.CodeDependencyUnavailable, "failed to read record", err)
	}
	defer rc.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rc); err != nil {
		return nil, apierr.New(apierr.CodeDependencyUnavailable, "failed to read record", err)
	}
	return &Record{Body: buf.Bytes(), ContentType: obj.ContentType}, nil
}

// Delete removes key. Idempotent: no error if the key or store is absent.
func (s *Service) Delete(ctx context.Context, storeIDOrName, key string) error {
	store, err := s.lookup(ctx, storeIDOrName)
	if err != nil {
		if apierr.Is(err, apierr.CodeNotFound) {
			return nil
		}
		return err
	}
	if err := s.store.Delete(ctx, blob.KeyValueRecordKey(store.ID, key)); err != nil {
		return apierr.New(apierr.CodeDependencyUnavailable, "failed to delete record", err)
	}
	return nil
}

// PresignedURL returns a time-bounded download URL for key, for clients
// that pass ?download=presigned instead of fetching the record body
// through this service.
func (s *Service) PresignedURL(ctx context.Context, storeIDOrName, key string, expiry time.Duration) (string, error) {
	store, err := s.lookup(ctx, storeIDOrName)
	if err != nil {
		return "", err
	}
	url, err := s.store.PresignedURL(ctx, blob.KeyValueRecordKey(store.ID, key), expiry)
	if err != nil {
		return "", apierr.New(apierr.CodeDependencyUnavailable, "failed to presign record url", err)
	}
	return url, nil
}

// ListResult is a page of keys plus continuation metadata.
type ListResult struct {
	Keys                  []string
	IsTruncated           bool
	NextExclusiveStartKey string
}

// ListKeys returns up to limit keys in lexicographic order starting
// strictly after exclusiveStartKey.
func (s *Service) ListKeys(ctx context.Context, storeIDOrName string, limit int, exclusiveStartKey string) (*ListResult, error) {
	store, err := s.lookup(ctx, storeIDOrName)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 1000
	}

	objs, err := s.store.List(ctx, blob.KeyValuePrefix(store.ID))
	if err != nil {
		return nil, apierr.New(apierr.CodeDependencyUnavailable, "failed to list records", err)
	}

	keys := make([]string, 0, len(objs))
	prefix := blob.KeyValuePrefix(store.ID)
	for _, obj := range objs {
		keys = append(keys, decodeRecordKey(obj.Key, prefix))
	}
	sort.Strings(keys)

	start := 0
	if exclusiveStartKey != "" {
		start = sort.SearchStrings(keys, exclusiveStartKey)
		if start < len(keys) && keys[start] == exclusiveStartKey {
			start++
		}
	}

	end := start + limit
	truncated := end < len(keys)
	if end > len(keys) {
		end = len(keys)
	}

	page := keys[start:end]
	next := ""
	if truncated && len(page) > 0 {
		next = page[len(page)-1]
	}

	return &ListResult{Keys: page, IsTruncated: truncated, NextExclusiveStartKey: next}, nil
}

func decodeRecordKey(objectKey, prefix string) string {
	if len(objectKey) > len(prefix) {
		escaped := objectKey[len(prefix):]
		if key, err := url.QueryUnescape(escaped); err == nil {
			return key
		}
		return escaped
	}
	return objectKey
}

func (s *Service) getOrCreate(ctx context.Context, idOrName string) (*models.KeyValueStore, error) {
	store := new(models.KeyValueStore)
	err := s.db.NewSelect().Model(store).Where("id = ? OR name = ?", idOrName, idOrName).Scan(ctx)
	if err == nil {
		return store, nil
	}

	var name *string
	if !isHiddenOrDefaultAlias(idOrName) {
		n := idOrName
		name = &n
	}
	store = &models.KeyValueStore{ID: ids.New(), Name: name}
	if _, err := s.db.NewInsert().Model(store).Exec(ctx); err != nil {
		return nil, apierr.New(apierr.CodeDependencyUnavailable, "failed to create key-value store", err)
	}
	return store, nil
}

// ResolveDefault returns the key-value store backing principalID's
// "default" alias, creating it on first use (see dataset.ResolveDefault
// for why this is not resolved generically inside Put/Get).
func (s *Service) ResolveDefault(ctx context.Context, principalID string) (*models.KeyValueStore, error) {
	hiddenName := defaultAliasName(principalID)

	store := new(models.KeyValueStore)
	if err := s.db.NewSelect().Model(store).Where("name = ?", hiddenName).Scan(ctx); err == nil {
		return store, nil
	}

	store = &models.KeyValueStore{ID: ids.New(), Name: &hiddenName}
	if _, err := s.db.NewInsert().Model(store).Exec(ctx); err != nil {
		return nil, apierr.New(apierr.CodeDependencyUnavailable, "failed to create default key-value store", err)
	}
	return store, nil
}

func defaultAliasName(principalID string) string {
	return fmt.Sprintf("__default_kvs__%s", principalID)
}

func isHiddenOrDefaultAlias(idOrName string) bool {
	return ids.IsDefaultAlias(idOrName)
}

func (s *Service) lookup(ctx context.Context, idOrName string) (*models.KeyValueStore, error) {
	store := new(models.KeyValueStore)
	err := s.db.NewSelect().Model(store).Where("id = ? OR name = ?", idOrName, idOrName).Scan(ctx)
	if err != nil {
		return nil, apierr.NotFound("key-value store", idOrName)
	}
	return store, nil
}
