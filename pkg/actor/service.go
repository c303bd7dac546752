// Package actor implements the named deployable scraping-job definition:
// creation on first push, owner-scoped mutation, and dangling-
// reference-safe deletion (runs keep a possibly-stale actorId after
// their actor is gone).
package actor

import (
	"context"
	"database/sql"
	"errors"

	"github.com/crawlee-cloud/crawlee-cloud/pkg/apierr"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/db/models"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/ids"
	"github.com/uptrace/bun"
)

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db: db}
}

// CreateInput is the caller-supplied shape for CreateOrUpdate.
type CreateInput struct {
	Name                string
	Title               string
	Description         string
	DefaultImage        string
	DefaultMemoryMbytes int
	DefaultTimeoutSecs  int
}

// CreateOrUpdate creates ownerID's actor named in.Name on first push, or
// updates the existing one in place.
func (s *Service) CreateOrUpdate(ctx context.Context, ownerID string, in CreateInput) (*models.Actor, error) {
	existing := new(models.Actor)
	err := s.db.NewSelect().Model(existing).
		Where("owner_id = ? AND name = ?", ownerID, in.Name).
		Scan(ctx)
	if err == nil {
		existing.Title = in.Title
		existing.Description = in.Description
		if in.DefaultImage != "" {
			existing.DefaultImage = in.DefaultImage
		}
		if in.DefaultMemoryMbytes > 0 {
			existing.DefaultMemoryMbytes = in.DefaultMemoryMbytes
		}
		if in.DefaultTimeoutSecs > 0 {
			existing.DefaultTimeoutSecs = in.DefaultTimeoutSecs
		}
		if _, err := s.db.NewUpdate().Model(existing).
			Set("title = ?", existing.Title).
			Set("description = ?", existing.Description).
			Set("default_image = ?", existing.DefaultImage).
			Set("default_memory_mbytes = ?", existing.DefaultMemoryMbytes).
			Set("default_timeout_secs = ?", existing.DefaultTimeoutSecs).
			Set("updated_at = current_timestamp").
			Where("id = ?", existing.ID).
			Exec(ctx); err != nil {
			return nil, apierr.New(apierr.CodeDependencyUnavailable, "failed to update actor", err)
		}
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, apierr.New(apierr.CodeDependencyUnavailable, "failed to look up actor", err)
	}

	a := &models.Actor{
		ID:                  ids.New(),
		OwnerID:             ownerID,
		Name:                in.Name,
		Title:               in.Title,
		Description:         in.Description,
		DefaultImage:        in.DefaultImage,
		DefaultMemoryMbytes: in.DefaultMemoryMbytes,
		DefaultTimeoutSecs:  in.DefaultTimeoutSecs,
	}
	if a.DefaultMemoryMbytes == 0 {
		a.DefaultMemoryMbytes = 1024
	}
	if a.DefaultTimeoutSecs == 0 {
		a.DefaultTimeoutSecs = 300
	}
	if _, err := s.db.NewInsert().Model(a).Exec(ctx); err != nil {
		return nil, apierr.New(apierr.CodeDependencyUnavailable, "failed to create actor", err)
	}
	return a, nil
}

// Get resolves idOrName to an Actor row. A single query matches either the
// id (global) or, when ownerID is non-empty, the name scoped to ownerID.
func (s *Service) Get(ctx context.Context, idOrName, ownerID string) (*models.Actor, error) {
	a := new(models.Actor)
	q := s.db.NewSelect().Model(a).Where("id = ?", idOrName)
	if ownerID != "" {
		q = q.WhereOr("owner_id = ? AND name = ?", ownerID, idOrName)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, apierr.NotFound("actor", idOrName)
	}
	return a, nil
}

// Delete removes ownerID's actor. Runs referencing it keep their actorId
// as a dangling reference since Run.ActorID is not a
// foreign key.
func (s *Service) Delete(ctx context.Context, actorID, ownerID string) error {
	res, err := s.db.NewDelete().Model((*models.Actor)(nil)).
		Where("id = ? AND owner_id = ?", actorID, ownerID).
		Exec(ctx)
	if err != nil {
		return apierr.New(apierr.CodeDependencyUnavailable, "failed to delete actor", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apierr.NotFound("actor", actorID)
	}
	return nil
}

// List returns ownerID's actors.
func (s *Service) List(ctx context.Context, ownerID string) ([]models.Actor, error) {
	var actors []models.Actor
	if err := s.db.NewSelect().Model(&actors).Where("owner_id = ?", ownerID).Order("created_at ASC").Scan(ctx); err != nil {
		return nil, apierr.New(apierr.CodeDependencyUnavailable, "failed to list actors", err)
	}
	return actors, nil
}
