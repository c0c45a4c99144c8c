// Package property_repo stores property assignments and entities in
// PostgreSQL. Entity properties live in a JSONB column keyed by property code.
package property_repo

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/Masterminds/squirrel"

	"metaprops/internal/domain"
	"metaprops/internal/infrastructure/storage/postgres"
)

//go:embed schema.sql
var schemaSQL string

const (
	propertyTypesTable = "property_types"
	assignmentsTable   = "property_assignments"
	entitiesTable      = "entities"
)

var (
	_ domain.AssignmentRepository    = (*Repo)(nil)
	_ domain.PropertyValueRepository = (*Repo)(nil)
	_ domain.EntityRepository        = (*Repo)(nil)
	_ domain.EntityImporter          = (*Repo)(nil)
)

// Repo implements the domain repositories over one TxManager. Queries run
// in the transaction carried by the context when there is one.
type Repo struct {
	txm *postgres.TxManager
}

// NewRepo creates a repository.
func NewRepo(txm *postgres.TxManager) *Repo {
	return &Repo{txm: txm}
}

// EnsureSchema creates the tables if they do not exist.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}
