package property_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"metaprops/internal/core/apperror"
	"metaprops/internal/core/entity"
	"metaprops/internal/core/id"
	"metaprops/internal/infrastructure/storage/postgres"
)

var entityColumns = postgres.ExtractDBColumns[entity.Entity]()

func selectEntities() squirrel.SelectBuilder {
	return builder().Select(entityColumns...).From(entitiesTable)
}

func getEntityQuery(entityID id.ID) squirrel.SelectBuilder {
	return selectEntities().Where(squirrel.Eq{"id": entityID}).Limit(1)
}

func listEntitiesQuery(entityType string) squirrel.SelectBuilder {
	q := selectEntities()
	if entityType != "" {
		q = q.Where(squirrel.Eq{"entity_type": entityType})
	}
	return q.OrderBy("registration_date", "id")
}

func insertEntityQuery(e *entity.Entity) squirrel.InsertBuilder {
	return builder().Insert(entitiesTable).SetMap(postgres.StructToMap(e))
}

// updateEntityQuery rewrites mutable columns guarded by the expected version.
func updateEntityQuery(e *entity.Entity) squirrel.UpdateBuilder {
	data := postgres.StructToMap(e)
	set := make(map[string]any, len(data))
	for col, val := range data {
		switch col {
		case "id", "version", "registration_date":
			continue
		}
		set[col] = val
	}
	return builder().
		Update(entitiesTable).
		SetMap(set).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": e.ID}).
		Where(squirrel.Eq{"version": e.Version})
}

// GetEntity implements domain.EntityRepository.
func (r *Repo) GetEntity(ctx context.Context, entityID id.ID) (*entity.Entity, error) {
	sql, args, err := getEntityQuery(entityID).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	e := &entity.Entity{}
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), e, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("entity", entityID.String())
		}
		return nil, fmt.Errorf("get entity: %w", err)
	}
	return e, nil
}

// ListEntities implements domain.EntityRepository. An empty type lists all.
func (r *Repo) ListEntities(ctx context.Context, entityType string) ([]*entity.Entity, error) {
	sql, args, err := listEntitiesQuery(entityType).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var list []*entity.Entity
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &list, sql, args...); err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	return list, nil
}

// SaveEntity implements domain.EntityRepository. A stored entity is updated
// only when its version still matches; e.Version is then advanced.
func (r *Repo) SaveEntity(ctx context.Context, e *entity.Entity) error {
	if id.IsNil(e.ID) {
		e.ID = id.New()
	}
	querier := r.txm.GetQuerier(ctx)

	sql, args, err := updateEntityQuery(e).ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	result, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update entity: %w", err)
	}
	if result.RowsAffected() == 1 {
		e.Version++
		return nil
	}

	exists, err := r.entityExists(ctx, e.ID)
	if err != nil {
		return err
	}
	if exists {
		return apperror.NewConflict("entity was modified concurrently").
			WithDetail("id", e.ID.String()).
			WithDetail("version", e.Version)
	}

	if e.Version == 0 {
		e.Version = 1
	}
	if e.RegistrationDate.IsZero() {
		e.RegistrationDate = time.Now()
	}
	sql, args, err = insertEntityQuery(e).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert entity: %w", err)
	}
	return nil
}

func (r *Repo) entityExists(ctx context.Context, entityID id.ID) (bool, error) {
	sql, args, err := builder().
		Select("1").From(entitiesTable).
		Where(squirrel.Eq{"id": entityID}).
		Prefix("SELECT EXISTS (").Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}
	var exists bool
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("check entity: %w", err)
	}
	return exists, nil
}

// ImportEntities implements domain.EntityImporter with COPY. It runs in the
// caller's transaction; entities must be new.
func (r *Repo) ImportEntities(ctx context.Context, entities []*entity.Entity) (int64, error) {
	now := time.Now()
	for _, e := range entities {
		if id.IsNil(e.ID) {
			e.ID = id.New()
		}
		if e.Version == 0 {
			e.Version = 1
		}
		if e.RegistrationDate.IsZero() {
			e.RegistrationDate = now
		}
	}
	columns, rows := postgres.StructRows(entities)
	return r.txm.CopyFrom(ctx, entitiesTable, columns, rows)
}
