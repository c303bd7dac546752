// Package dataset implements the append-only ordered item store:
// PushItems/ListItems over a blob-backed item layout with bun-tracked
// item counts.
package dataset

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/crawlee-cloud/crawlee-cloud/pkg/apierr"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/blob"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/db/models"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/ids"
	"github.com/uptrace/bun"
)

// Service implements dataset operations against a metadata store and a blob store.
type Service struct {
	db    *bun.DB
	store blob.Store
}

func NewService(db *bun.DB, store blob.Store) *Service {
	return &Service{db: db, store: store}
}

// PushResult reports how many items a PushItems call persisted and at
// which indices, for building the wire response.
type PushResult struct {
	FirstIndex int64
	ItemCount  int
}

// PushItems appends items in order, each assigned an index in
// [itemCount, itemCount+len(items)). The index-to-item mapping is fixed
// (computed from the pre-push count) before any blob write starts; if any
// write fails, the whole call fails as PARTIAL_WRITE and itemCount is not
// advanced.
func (s *Service) PushItems(ctx context.Context, datasetIDOrName string, items []json.RawMessage) (*PushResult, error) {
	var result *PushResult

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		ds, err := s.getOrCreate(ctx, tx, datasetIDOrName)
		if err != nil {
			return err
		}

		firstIndex := ds.ItemCount
		if err := s.writeItems(ctx, ds.ID, firstIndex, items); err != nil {
			return apierr.New(apierr.CodePartialWrite, fmt.Sprintf("failed to persist dataset items: %v", err), err)
		}

		if _, err := tx.NewUpdate().
			Model(ds).
			Set("item_count = item_count + ?", len(items)).
			Set("updated_at = current_timestamp").
			Where("id = ?", ds.ID).
			Exec(ctx); err != nil {
			return apierr.New(apierr.CodeDependencyUnavailable, "failed to advance item count", err)
		}

		result = &PushResult{FirstIndex: firstIndex, ItemCount: len(items)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// writeItems persists each item at its fixed blob key. All-or-nothing:
// the caller's transaction is rolled back if any write fails, and no
// partial range is left reachable through ListItems since itemCount was
// never advanced.
func (s *Service) writeItems(ctx context.Context, datasetID string, firstIndex int64, items []json.RawMessage) error {
	for i, item := range items {
		idx := firstIndex + int64(i)
		key := blob.DatasetItemKey(datasetID, idx)
		if err := s.store.Put(ctx, key, bytes.NewReader(item), int64(len(item)), "application/json"); err != nil {
			return fmt.Errorf("item %d: %w", idx, err)
		}
	}
	return nil
}

// ListResult is a page of dataset items plus pagination metadata for the
// wire response's x-apify-pagination-* headers.
type ListResult struct {
	Items  []json.RawMessage
	Total  int64
	Offset int64
	Limit  int64
}

// ListItems returns items in index order, paginated.
func (s *Service) ListItems(ctx context.Context, datasetIDOrName string, offset, limit int64) (*ListResult, error) {
	ds, err := s.lookup(ctx, datasetIDOrName)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = 1000
	}

	items := make([]json.RawMessage, 0, limit)
	for i := offset; i < offset+limit && i < ds.ItemCount; i++ {
		rc, _, err := s.store.Get(ctx, blob.DatasetItemKey(ds.ID, i))
		if err != nil {
			return nil, apierr.New(apierr.CodeDependencyUnavailable, fmt.Sprintf("failed to read item %d", i), err)
		}
		var buf bytes.Buffer
		_, copyErr := buf.ReadFrom(rc)
		rc.Close()
		if copyErr != nil {
			return nil, apierr.New(apierr.CodeDependencyUnavailable, fmt.Sprintf("failed to read item %d", i), copyErr)
		}
		items = append(items, json.RawMessage(buf.Bytes()))
	}

	return &ListResult{Items: items, Total: ds.ItemCount, Offset: offset, Limit: limit}, nil
}

// PresignedURL returns a time-bounded download URL for one item in a
// dataset, by index, without routing the item's bytes through this
// process.
func (s *Service) PresignedURL(ctx context.Context, datasetIDOrName string, index int64, expiry time.Duration) (string, error) {
	ds, err := s.lookup(ctx, datasetIDOrName)
	if err != nil {
		return "", err
	}
	if index < 0 || index >= ds.ItemCount {
		return "", apierr.NotFound("dataset item", fmt.Sprintf("%s[%d]", ds.ID, index))
	}

	url, err := s.store.PresignedURL(ctx, blob.DatasetItemKey(ds.ID, index), expiry)
	if err != nil {
		return "", apierr.New(apierr.CodeDependencyUnavailable, "failed to presign item url", err)
	}
	return url, nil
}

// getOrCreate resolves datasetIDOrName to a row, auto-creating a dataset
// named idOrName if it matches no row. Callers
// must resolve the reserved "default" alias to a concrete per-principal
// id first via ResolveDefault — PushItems/ListItems never see the alias
// itself, since a literal re-lookup of "default" on every call could
// race two principals onto the same anonymous dataset. The select takes
// a row lock so two concurrent PushItems calls against the same dataset
// serialize on firstIndex instead of racing to the same blob keys.
func (s *Service) getOrCreate(ctx context.Context, tx bun.Tx, idOrName string) (*models.Dataset, error) {
	ds := new(models.Dataset)

	err := tx.NewSelect().Model(ds).Where("id = ? OR name = ?", idOrName, idOrName).For("UPDATE").Scan(ctx)
	if err == nil {
		return ds, nil
	}

	var name *string
	if !ids.IsDefaultAlias(idOrName) {
		n := idOrName
		name = &n
	}
	return s.create(ctx, tx, name)
}

// ResolveDefault returns the dataset backing principalID's "default"
// alias, creating it on first use. The backing row carries a hidden
// name (not surfaced to ListItems/name lookups by other principals)
// so repeated resolution is idempotent without a separate mapping table.
func (s *Service) ResolveDefault(ctx context.Context, principalID string) (*models.Dataset, error) {
	hiddenName := defaultAliasName(principalID)

	ds := new(models.Dataset)
	if err := s.db.NewSelect().Model(ds).Where("name = ?", hiddenName).Scan(ctx); err == nil {
		return ds, nil
	}

	ds = &models.Dataset{ID: ids.New(), Name: &hiddenName}
	if _, err := s.db.NewInsert().Model(ds).Exec(ctx); err != nil {
		return nil, apierr.New(apierr.CodeDependencyUnavailable, "failed to create default dataset", err)
	}
	return ds, nil
}

func defaultAliasName(principalID string) string {
	return fmt.Sprintf("__default_ds__%s", principalID)
}

func (s *Service) create(ctx context.Context, tx bun.Tx, name *string) (*models.Dataset, error) {
	ds := &models.Dataset{ID: ids.New(), Name: name}
	if _, err := tx.NewInsert().Model(ds).Exec(ctx); err != nil {
		return nil, apierr.New(apierr.CodeDependencyUnavailable, "failed to create dataset", err)
	}
	return ds, nil
}

func (s *Service) lookup(ctx context.Context, idOrName string) (*models.Dataset, error) {
	ds := new(models.Dataset)
	err := s.db.NewSelect().Model(ds).Where("id = ? OR name = ?", idOrName, idOrName).Scan(ctx)
	if err != nil {
		return nil, apierr.NotFound("dataset", idOrName)
	}
	return ds, nil
}
