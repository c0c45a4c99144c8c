// Package domain declares the collaborators the constraint and search
// services depend on.
package domain

import (
	"context"

	"metaprops/internal/core/entity"
	"metaprops/internal/core/id"
	"metaprops/internal/metadata"
)

// --- Repository Interfaces ---

// AssignmentRepository stores property assignments.
type AssignmentRepository interface {
	// GetAssignment returns the current assignment. Called inside the
	// caller's transaction so the constraint read is consistent with the write.
	GetAssignment(ctx context.Context, assignmentID id.ID) (metadata.PropertyAssignment, error)

	// ListAssignments returns the assignments of an entity type ordered by ordinal.
	ListAssignments(ctx context.Context, entityType string) ([]metadata.PropertyAssignment, error)

	// SaveAssignment inserts or updates an assignment.
	SaveAssignment(ctx context.Context, a metadata.PropertyAssignment) error
}

// PropertyValueRepository streams stored property values.
type PropertyValueRepository interface {
	// ExistingValues calls fn for every stored value of the assignment.
	// An error from fn stops the stream and is returned unchanged.
	ExistingValues(ctx context.Context, assignmentID id.ID, fn func(value string) error) error
}

// EntityRepository stores entities with their properties.
type EntityRepository interface {
	GetEntity(ctx context.Context, entityID id.ID) (*entity.Entity, error)
	ListEntities(ctx context.Context, entityType string) ([]*entity.Entity, error)

	// SaveEntity inserts or updates an entity (optimistic locking on Version).
	SaveEntity(ctx context.Context, e *entity.Entity) error
}

// EntityImporter stores many new entities in one round trip. Optional:
// services fall back to SaveEntity when the repository lacks it.
type EntityImporter interface {
	ImportEntities(ctx context.Context, entities []*entity.Entity) (int64, error)
}

// --- Metrics ---

// Recorder receives engine outcomes. Implementations must be safe for
// concurrent use.
type Recorder interface {
	ConstraintCompiled(patternType metadata.PatternType, err error)
	ValueValidated(dataType metadata.DataType, err error)
	SearchEvaluated(matched int, err error)
}

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) ConstraintCompiled(metadata.PatternType, error) {}
func (NopRecorder) ValueValidated(metadata.DataType, error)        {}
func (NopRecorder) SearchEvaluated(int, error)                     {}

// RecorderOrNop returns r, or NopRecorder when r is nil.
func RecorderOrNop(r Recorder) Recorder {
	if r == nil {
		return NopRecorder{}
	}
	return r
}
