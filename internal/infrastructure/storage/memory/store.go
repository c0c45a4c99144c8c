// Package memory implements the domain repositories in process memory.
// Used by tests and by the CLI when it runs over a fixture file.
package memory

import (
	"context"
	"slices"
	"sync"

	"metaprops/internal/core/apperror"
	"metaprops/internal/core/entity"
	"metaprops/internal/core/id"
	"metaprops/internal/domain"
	"metaprops/internal/metadata"
)

var (
	_ domain.AssignmentRepository    = (*Store)(nil)
	_ domain.PropertyValueRepository = (*Store)(nil)
	_ domain.EntityRepository        = (*Store)(nil)
)

// Store keeps assignments in a metadata.Registry and entities in insertion
// order. It is safe for concurrent use.
type Store struct {
	registry *metadata.Registry

	mu       sync.RWMutex
	entities []*entity.Entity
}

// NewStore creates an empty store over registry. A nil registry gets a fresh one.
func NewStore(registry *metadata.Registry) *Store {
	if registry == nil {
		registry = metadata.NewRegistry()
	}
	return &Store{registry: registry}
}

// Registry returns the underlying registry.
func (s *Store) Registry() *metadata.Registry {
	return s.registry
}

// --- AssignmentRepository ---

func (s *Store) GetAssignment(_ context.Context, assignmentID id.ID) (metadata.PropertyAssignment, error) {
	a, ok := s.registry.FindAssignment(assignmentID)
	if !ok {
		return metadata.PropertyAssignment{}, apperror.NewNotFound("property assignment", assignmentID.String())
	}
	return a, nil
}

func (s *Store) ListAssignments(_ context.Context, entityType string) ([]metadata.PropertyAssignment, error) {
	def, ok := s.registry.EntityType(entityType)
	if !ok {
		return nil, nil
	}
	list := slices.Clone(def.Assignments)
	slices.SortStableFunc(list, func(a, b metadata.PropertyAssignment) int {
		return a.Ordinal - b.Ordinal
	})
	return list, nil
}

func (s *Store) SaveAssignment(_ context.Context, a metadata.PropertyAssignment) error {
	pt, ok := s.registry.PropertyType(a.PropertyType.Code)
	switch {
	case !ok:
		if err := s.registry.RegisterPropertyType(a.PropertyType); err != nil {
			return err
		}
	case pt.DataType != a.PropertyType.DataType:
		return metadata.NewDataTypeConflict(pt.Code, pt.DataType, a.PropertyType.DataType)
	}
	s.registry.PutAssignment(a)
	return nil
}

// --- PropertyValueRepository ---

func (s *Store) ExistingValues(_ context.Context, assignmentID id.ID, fn func(string) error) error {
	a, ok := s.registry.FindAssignment(assignmentID)
	if !ok {
		return apperror.NewNotFound("property assignment", assignmentID.String())
	}

	s.mu.RLock()
	snapshot := slices.Clone(s.entities)
	s.mu.RUnlock()

	for _, e := range snapshot {
		if e.EntityType != a.EntityType {
			continue
		}
		pv, ok := e.Properties.Get(a.PropertyType.Code)
		if !ok {
			continue
		}
		for _, v := range pv.Values {
			if err := fn(v); err != nil {
				return err
			}
		}
	}
	return nil
}

// --- EntityRepository ---

func (s *Store) GetEntity(_ context.Context, entityID id.ID) (*entity.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(entityID); i >= 0 {
		return clone(s.entities[i]), nil
	}
	return nil, apperror.NewNotFound("entity", entityID.String())
}

// ListEntities returns entities of a type; an empty type lists all.
func (s *Store) ListEntities(_ context.Context, entityType string) ([]*entity.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*entity.Entity, 0, len(s.entities))
	for _, e := range s.entities {
		if entityType == "" || e.EntityType == entityType {
			out = append(out, clone(e))
		}
	}
	return out, nil
}

// SaveEntity inserts a new entity or replaces a stored one whose Version
// matches. On success the entity's Version is the stored version.
func (s *Store) SaveEntity(_ context.Context, e *entity.Entity) error {
	if id.IsNil(e.ID) {
		e.ID = id.New()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(e.ID)
	if i < 0 {
		if e.Version == 0 {
			e.Version = 1
		}
		s.entities = append(s.entities, clone(e))
		return nil
	}
	if s.entities[i].Version != e.Version {
		return apperror.NewConflict("entity was modified concurrently").
			WithDetail("id", e.ID.String()).
			WithDetail("version", e.Version)
	}
	e.Version++
	s.entities[i] = clone(e)
	return nil
}

func (s *Store) indexOf(entityID id.ID) int {
	return slices.IndexFunc(s.entities, func(e *entity.Entity) bool { return e.ID == entityID })
}

func clone(e *entity.Entity) *entity.Entity {
	c := *e
	c.Properties = e.Properties.Clone()
	return &c
}
