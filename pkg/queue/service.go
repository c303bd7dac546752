// Package queue implements the deduplicated, lease-locked FIFO request
// queue engine — the subsystem that governs distributed crawling
// correctness. Dedup is enforced by the metadata store's (queue_id,
// unique_key) unique constraint; lease ownership is enforced by the
// coordination store's CAS lock primitives, which are authoritative
// over the row-mirrored lockedUntil/lockedBy fields.
package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/crawlee-cloud/crawlee-cloud/pkg/apierr"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/coord"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/db/models"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/ids"
	"github.com/uptrace/bun"
)

type Service struct {
	db    *bun.DB
	coord coord.Store
}

func NewService(db *bun.DB, coord coord.Store) *Service {
	return &Service{db: db, coord: coord}
}

// RequestInput is the caller-supplied shape for AddRequest/AddRequestsBatch.
type RequestInput struct {
	UniqueKey string
	URL       string
	Method    string
	Payload   []byte
	Headers   []byte // pre-serialized JSON, opaque to this package
	UserData  []byte // pre-serialized JSON, opaque to this package
	NoRetry   bool
}

// AddResult mirrors the wire shape {requestId, wasAlreadyPresent, wasAlreadyHandled}.
type AddResult struct {
	RequestID         string
	WasAlreadyPresent bool
	WasAlreadyHandled bool
}

func lockKey(queueID string) string {
	return fmt.Sprintf("queue:%s:order", queueID)
}

func leaseKey(queueID, requestID string) string {
	return fmt.Sprintf("queue:%s:lease:%s", queueID, requestID)
}

// AddRequest inserts req into queueID, or returns the existing row's id
// if its uniqueKey (derived if absent) already exists.
func (s *Service) AddRequest(ctx context.Context, queueID string, req RequestInput, forefront bool) (*AddResult, error) {
	if req.UniqueKey == "" {
		req.UniqueKey = DeriveUniqueKey(req.Method, req.URL, req.Payload)
	}

	var result *AddResult
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		q, err := s.getOrCreate(ctx, tx, queueID)
		if err != nil {
			return err
		}
		queueID = q.ID

		existing := new(models.Request)
		err = tx.NewSelect().Model(existing).
			Where("queue_id = ? AND unique_key = ?", queueID, req.UniqueKey).
			Scan(ctx)
		if err == nil {
			result = &AddResult{
				RequestID:         existing.ID,
				WasAlreadyPresent: true,
				WasAlreadyHandled: existing.HandledAt != nil,
			}
			return nil
		}

		orderNo, err := s.nextOrderNo(ctx, tx, queueID, forefront)
		if err != nil {
			return err
		}

		row := &models.Request{
			ID:           ids.New(),
			QueueID:      queueID,
			UniqueKey:    req.UniqueKey,
			URL:          req.URL,
			Method:       req.Method,
			Payload:      req.Payload,
			HeadersJSON:  req.Headers,
			UserDataJSON: req.UserData,
			NoRetry:      req.NoRetry,
			OrderNo:      orderNo,
		}
		if _, err := tx.NewInsert().Model(row).Exec(ctx); err != nil {
			return apierr.New(apierr.CodeDependencyUnavailable, "failed to insert request", err)
		}

		if err := s.incrementCounters(ctx, tx, queueID, 1, 0); err != nil {
			return err
		}

		if err := s.coord.ZAdd(ctx, lockKey(queueID), row.ID, float64(orderNo)); err != nil {
			return apierr.New(apierr.CodeDependencyUnavailable, "failed to index request order", err)
		}

		result = &AddResult{RequestID: row.ID}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// BatchResult mirrors the wire shape {processed:[...], unprocessed:[...]}.
type BatchResult struct {
	Processed   []AddResult
	Unprocessed []RequestInput
}

// AddRequestsBatch adds many requests; a per-item failure is reported in
// Unprocessed rather than aborting the whole call.
func (s *Service) AddRequestsBatch(ctx context.Context, queueID string, reqs []RequestInput, forefront bool) *BatchResult {
	result := &BatchResult{}
	for _, req := range reqs {
		added, err := s.AddRequest(ctx, queueID, req, forefront)
		if err != nil {
			result.Unprocessed = append(result.Unprocessed, req)
			continue
		}
		result.Processed = append(result.Processed, *added)
	}
	return result
}

// nextOrderNo assigns the next FIFO order (max+1) or forefront order
// (min-1, guaranteed negative-or-more-negative) for queueID, serialized
// by a row lock on the owning RequestQueue so concurrent inserts don't
// race on the same extremum.
func (s *Service) nextOrderNo(ctx context.Context, tx bun.Tx, queueID string, forefront bool) (int64, error) {
	q := new(models.RequestQueue)
	if err := tx.NewSelect().Model(q).Where("id = ?", queueID).For("UPDATE").Scan(ctx); err != nil {
		return 0, apierr.NotFound("request queue", queueID)
	}

	var extremum int64
	aggExpr := "COALESCE(MAX(order_no), 0) + 1"
	if forefront {
		aggExpr = "COALESCE(MIN(order_no), 0) - 1"
	}
	if err := tx.NewSelect().
		Model((*models.Request)(nil)).
		ColumnExpr(aggExpr).
		Where("queue_id = ?", queueID).
		Scan(ctx, &extremum); err != nil {
		return 0, apierr.New(apierr.CodeDependencyUnavailable, "failed to compute order number", err)
	}
	if forefront && extremum >= 0 {
		extremum = -1
	}
	return extremum, nil
}

func (s *Service) incrementCounters(ctx context.Context, tx bun.Tx, queueID string, totalDelta, handledDelta int64) error {
	_, err := tx.NewUpdate().
		Model((*models.RequestQueue)(nil)).
		Set("total_request_count = total_request_count + ?", totalDelta).
		Set("handled_request_count = handled_request_count + ?", handledDelta).
		Set("pending_request_count = pending_request_count + ? - ?", totalDelta, handledDelta).
		Set("updated_at = current_timestamp").
		Where("id = ?", queueID).
		Exec(ctx)
	if err != nil {
		return apierr.New(apierr.CodeDependencyUnavailable, "failed to update queue counters", err)
	}
	return nil
}

// GetHead peeks the oldest-first pending, unlocked requests without
// locking them.
func (s *Service) GetHead(ctx context.Context, queueID string, limit int) ([]models.Request, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.Request
	err := s.db.NewSelect().Model(&rows).
		Where("queue_id = ? AND handled_at IS NULL", queueID).
		Where("locked_until IS NULL OR locked_until < ?", time.Now()).
		Order("order_no ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, apierr.New(apierr.CodeDependencyUnavailable, "failed to read queue head", err)
	}
	return rows, nil
}

// AcquireResult mirrors AcquireHead's wire shape.
type AcquireResult struct {
	Requests               []models.Request
	QueueHasLockedRequests bool
	HadMultipleClients     bool
	LockExpiresAt          time.Time
}

// AcquireHead locks up to limit pending, unlocked requests for lockSecs
// under clientKey. The coordination store is the authority for whether a
// request is actually free: a row that looks unlocked
// may still hold a live lease there from a stale row mirror.
func (s *Service) AcquireHead(ctx context.Context, queueID string, limit int, lockSecs int, clientKey string) (*AcquireResult, error) {
	if limit <= 0 {
		limit = 100
	}
	ttl := time.Duration(lockSecs) * time.Second
	expiresAt := time.Now().Add(ttl)

	var candidates []models.Request
	if err := s.db.NewSelect().Model(&candidates).
		Where("queue_id = ? AND handled_at IS NULL", queueID).
		Where("locked_until IS NULL OR locked_until < ?", time.Now()).
		Order("order_no ASC").
		Limit(limit * 3).
		Scan(ctx); err != nil {
		return nil, apierr.New(apierr.CodeDependencyUnavailable, "failed to read queue candidates", err)
	}

	var acquired []models.Request
	for _, req := range candidates {
		if len(acquired) >= limit {
			break
		}
		ok, err := s.coord.AcquireLock(ctx, leaseKey(queueID, req.ID), clientKey, ttl)
		if err != nil {
			return nil, apierr.New(apierr.CodeDependencyUnavailable, "lock backend unavailable", err)
		}
		if !ok {
			continue
		}

		if _, err := s.db.NewUpdate().Model((*models.Request)(nil)).
			Set("locked_until = ?", expiresAt).
			Set("locked_by = ?", clientKey).
			Where("id = ?", req.ID).
			Exec(ctx); err != nil {
			_ = s.coord.ReleaseLock(ctx, leaseKey(queueID, req.ID), clientKey)
			continue
		}

		if err := s.markSeenClient(ctx, queueID, clientKey); err != nil {
			return nil, err
		}

		req.LockedUntil = &expiresAt
		req.LockedBy = &clientKey
		acquired = append(acquired, req)
	}

	hadMultiple, err := s.hadMultipleClients(ctx, queueID)
	if err != nil {
		return nil, err
	}

	var lockedCount int
	lockedCount, err = s.db.NewSelect().Model((*models.Request)(nil)).
		Where("queue_id = ? AND handled_at IS NULL AND locked_until > ?", queueID, time.Now()).
		Count(ctx)
	if err != nil {
		return nil, apierr.New(apierr.CodeDependencyUnavailable, "failed to count locked requests", err)
	}

	return &AcquireResult{
		Requests:               acquired,
		QueueHasLockedRequests: lockedCount > 0,
		HadMultipleClients:     hadMultiple,
		LockExpiresAt:          expiresAt,
	}, nil
}

// markSeenClient flips the sticky hadMultipleClients flag the first time
// a second distinct clientKey is observed locking this queue.
func (s *Service) markSeenClient(ctx context.Context, queueID, clientKey string) error {
	seenKey := fmt.Sprintf("queue:%s:clients:%s", queueID, clientKey)
	isFirstSeen, err := s.coord.SetNX(ctx, seenKey, []byte("1"), 0)
	if err != nil {
		return apierr.New(apierr.CodeDependencyUnavailable, "failed to track client key", err)
	}
	if !isFirstSeen {
		return nil
	}

	anyClientKey := fmt.Sprintf("queue:%s:clients:any", queueID)
	isFirstClientEver, err := s.coord.SetNX(ctx, anyClientKey, []byte(clientKey), 0)
	if err != nil {
		return apierr.New(apierr.CodeDependencyUnavailable, "failed to track client key", err)
	}
	if isFirstClientEver {
		return nil
	}

	if _, err := s.db.NewUpdate().Model((*models.RequestQueue)(nil)).
		Set("had_multiple_clients = true").
		Where("id = ? AND had_multiple_clients = false", queueID).
		Exec(ctx); err != nil {
		return apierr.New(apierr.CodeDependencyUnavailable, "failed to update queue", err)
	}
	return nil
}

func (s *Service) hadMultipleClients(ctx context.Context, queueID string) (bool, error) {
	q := new(models.RequestQueue)
	if err := s.db.NewSelect().Model(q).Column("had_multiple_clients").Where("id = ?", queueID).Scan(ctx); err != nil {
		return false, apierr.NotFound("request queue", queueID)
	}
	return q.HadMultipleClients, nil
}

// ProlongLock extends a lease's TTL. Fails NOT_LOCK_OWNER if clientKey
// does not currently hold it.
func (s *Service) ProlongLock(ctx context.Context, queueID, requestID, clientKey string, lockSecs int) error {
	ttl := time.Duration(lockSecs) * time.Second
	if err := s.coord.ProlongLock(ctx, leaseKey(queueID, requestID), clientKey, ttl); err != nil {
		if err == coord.ErrLockNotHeld {
			return apierr.New(apierr.CodeNotLockOwner, "request is not locked by this client", err)
		}
		return apierr.New(apierr.CodeDependencyUnavailable, "lock backend unavailable", err)
	}

	expiresAt := time.Now().Add(ttl)
	_, _ = s.db.NewUpdate().Model((*models.Request)(nil)).
		Set("locked_until = ?", expiresAt).
		Where("id = ? AND queue_id = ?", requestID, queueID).
		Exec(ctx)
	return nil
}

// ReleaseLock clears a lease. Fails NOT_LOCK_OWNER if clientKey does not
// currently hold it.
func (s *Service) ReleaseLock(ctx context.Context, queueID, requestID, clientKey string) error {
	if err := s.coord.ReleaseLock(ctx, leaseKey(queueID, requestID), clientKey); err != nil {
		if err == coord.ErrLockNotHeld {
			return apierr.New(apierr.CodeNotLockOwner, "request is not locked by this client", err)
		}
		return apierr.New(apierr.CodeDependencyUnavailable, "lock backend unavailable", err)
	}

	_, _ = s.db.NewUpdate().Model((*models.Request)(nil)).
		Set("locked_until = NULL").
		Set("locked_by = NULL").
		Where("id = ? AND queue_id = ?", requestID, queueID).
		Exec(ctx)
	return nil
}

// UpdatePatch carries the mutable fields UpdateRequest may change.
type UpdatePatch struct {
	HandledAt     *time.Time
	RetryCount    *int
	ErrorMessages []string
	UserData      []byte
}

// UpdateRequest applies patch to requestID. If the request is currently
// locked by a different clientKey than the caller's, fails
// LOCKED_BY_OTHER. A successful update implicitly clears the lease. If
// handledAt transitions from null to set, queue counters are updated in
// the same transaction.
func (s *Service) UpdateRequest(ctx context.Context, queueID, requestID string, patch UpdatePatch, clientKey string) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		row := new(models.Request)
		if err := tx.NewSelect().Model(row).Where("id = ? AND queue_id = ?", requestID, queueID).For("UPDATE").Scan(ctx); err != nil {
			return apierr.NotFound("request", requestID)
		}

		if row.LockedBy != nil && *row.LockedBy != clientKey && row.LockedUntil != nil && row.LockedUntil.After(time.Now()) {
			return apierr.New(apierr.CodeLockedByOther, "request is locked by another client", nil)
		}

		becameHandled := row.HandledAt == nil && patch.HandledAt != nil

		q := tx.NewUpdate().Model(row).
			Set("locked_until = NULL").
			Set("locked_by = NULL")
		if patch.HandledAt != nil {
			q = q.Set("handled_at = ?", *patch.HandledAt)
		}
		if patch.RetryCount != nil {
			q = q.Set("retry_count = ?", *patch.RetryCount)
		}
		if patch.ErrorMessages != nil {
			q = q.Set("error_messages = ?", patch.ErrorMessages)
		}
		if patch.UserData != nil {
			q = q.Set("user_data_json = ?", patch.UserData)
		}
		if _, err := q.Where("id = ?", row.ID).Exec(ctx); err != nil {
			return apierr.New(apierr.CodeDependencyUnavailable, "failed to update request", err)
		}

		if clientKey != "" {
			_ = s.coord.ReleaseLock(ctx, leaseKey(queueID, requestID), clientKey)
		}

		if becameHandled {
			if err := s.incrementCounters(ctx, tx, queueID, 0, 1); err != nil {
				return err
			}
			_ = s.coord.ZRem(ctx, lockKey(queueID), requestID)
		}

		return nil
	})
}

// getOrCreate resolves queueIDOrName to a row, auto-creating a queue named
// idOrName if it matches none (mirrors dataset.Service.getOrCreate). Callers
// must resolve the reserved "default" alias via ResolveDefault first.
func (s *Service) getOrCreate(ctx context.Context, tx bun.Tx, idOrName string) (*models.RequestQueue, error) {
	q := new(models.RequestQueue)
	if err := tx.NewSelect().Model(q).Where("id = ? OR name = ?", idOrName, idOrName).Scan(ctx); err == nil {
		return q, nil
	}

	var name *string
	if !ids.IsDefaultAlias(idOrName) {
		n := idOrName
		name = &n
	}
	q = &models.RequestQueue{ID: ids.New(), Name: name}
	if _, err := tx.NewInsert().Model(q).Exec(ctx); err != nil {
		return nil, apierr.New(apierr.CodeDependencyUnavailable, "failed to create request queue", err)
	}
	return q, nil
}

// ResolveDefault returns the request queue backing principalID's
// "default" alias, creating it on first use (see dataset.ResolveDefault
// for why this is not resolved generically inside AddRequest).
func (s *Service) ResolveDefault(ctx context.Context, principalID string) (*models.RequestQueue, error) {
	hiddenName := defaultAliasName(principalID)

	q := new(models.RequestQueue)
	if err := s.db.NewSelect().Model(q).Where("name = ?", hiddenName).Scan(ctx); err == nil {
		return q, nil
	}

	q = &models.RequestQueue{ID: ids.New(), Name: &hiddenName}
	if _, err := s.db.NewInsert().Model(q).Exec(ctx); err != nil {
		return nil, apierr.New(apierr.CodeDependencyUnavailable, "failed to create default request queue", err)
	}
	return q, nil
}

func defaultAliasName(principalID string) string {
	return fmt.Sprintf("__default_rq__%s", principalID)
}

func (s *Service) lookup(ctx context.Context, idOrName string) (*models.RequestQueue, error) {
	q := new(models.RequestQueue)
	if err := s.db.NewSelect().Model(q).Where("id = ? OR name = ?", idOrName, idOrName).Scan(ctx); err != nil {
		return nil, apierr.NotFound("request queue", idOrName)
	}
	return q, nil
}
