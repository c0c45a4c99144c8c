// Package property validates entity property writes against the
// constraints of their assignments.
package property

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"metaprops/internal/core/apperror"
	"metaprops/internal/core/entity"
	"metaprops/internal/core/id"
	"metaprops/internal/core/tx"
	"metaprops/internal/domain"
	"metaprops/internal/domain/constraint"
	"metaprops/internal/metadata"
	"metaprops/pkg/logger"
)

// ServiceConfig holds dependencies for Service.
type ServiceConfig struct {
	Assignments domain.AssignmentRepository
	Entities    domain.EntityRepository
	TxManager   tx.Manager
	Compiler    *constraint.Compiler
	Validator   *constraint.Validator
	Metrics     domain.Recorder
}

// Service guards entity writes: every stored property is assigned to the
// entity type, carries canonical values and satisfies its constraint.
type Service struct {
	assignments domain.AssignmentRepository
	entities    domain.EntityRepository
	txManager   tx.Manager
	compiler    *constraint.Compiler
	validator   *constraint.Validator
	metrics     domain.Recorder
	tracer      trace.Tracer
}

// NewService creates a property service.
func NewService(cfg ServiceConfig) *Service {
	txm := cfg.TxManager
	if txm == nil {
		txm = tx.Noop{}
	}
	return &Service{
		assignments: cfg.Assignments,
		entities:    cfg.Entities,
		txManager:   txm,
		compiler:    cfg.Compiler,
		validator:   cfg.Validator,
		metrics:     domain.RecorderOrNop(cfg.Metrics),
		tracer:      otel.Tracer("metaprops/property"),
	}
}

// ValidateEntity checks every property of e and rewrites its values to
// canonical form in place. Properties with no values are dropped before
// the mandatory check.
func (s *Service) ValidateEntity(ctx context.Context, e *entity.Entity) error {
	ctx, span := s.tracer.Start(ctx, "property.validate", trace.WithAttributes(
		attribute.String("entity_type", e.EntityType),
		attribute.Int("properties", len(e.Properties)),
	))
	defer span.End()

	if err := s.validate(ctx, e); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// Create validates and stores a new entity.
func (s *Service) Create(ctx context.Context, e *entity.Entity) (*entity.Entity, error) {
	if id.IsNil(e.ID) {
		e.ID = id.New()
	}
	if e.Version == 0 {
		e.Version = 1
	}
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.ValidateEntity(ctx, e); err != nil {
			return err
		}
		if err := s.entities.SaveEntity(ctx, e); err != nil {
			return fmt.Errorf("save entity: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "entity created", "entity_id", e.ID.String(), "code", e.Code, "entity_type", e.EntityType)
	return e, nil
}

// Import validates a set of new entities and stores them together. All
// entities are validated before anything is written; the first failure
// aborts the import.
func (s *Service) Import(ctx context.Context, entities []*entity.Entity) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "property.import", trace.WithAttributes(
		attribute.Int("entities", len(entities)),
	))
	defer span.End()

	var stored int64
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, e := range entities {
			if err := s.ValidateEntity(ctx, e); err != nil {
				return fmt.Errorf("entity %s: %w", e.Code, err)
			}
		}
		if importer, ok := s.entities.(domain.EntityImporter); ok {
			n, err := importer.ImportEntities(ctx, entities)
			if err != nil {
				return fmt.Errorf("import entities: %w", err)
			}
			stored = n
			return nil
		}
		for _, e := range entities {
			if id.IsNil(e.ID) {
				e.ID = id.New()
			}
			if err := s.entities.SaveEntity(ctx, e); err != nil {
				return fmt.Errorf("save entity %s: %w", e.Code, err)
			}
			stored++
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	logger.Info(ctx, "entities imported", "count", stored)
	return stored, nil
}

// Update merges changes into the stored properties of an entity. A change
// with no values removes the property.
func (s *Service) Update(ctx context.Context, entityID id.ID, changes entity.Properties) (*entity.Entity, error) {
	var updated *entity.Entity
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		stored, err := s.entities.GetEntity(ctx, entityID)
		if err != nil {
			return err
		}
		next := *stored
		next.Properties = stored.Properties.Clone()
		for code, pv := range changes {
			next.Properties.Set(code, pv)
		}
		if err := s.ValidateEntity(ctx, &next); err != nil {
			return err
		}
		if err := s.entities.SaveEntity(ctx, &next); err != nil {
			return fmt.Errorf("save entity: %w", err)
		}
		updated = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "entity updated", "entity_id", updated.ID.String(), "version", updated.Version)
	return updated, nil
}

func (s *Service) validate(ctx context.Context, e *entity.Entity) error {
	assignments, err := s.assignments.ListAssignments(ctx, e.EntityType)
	if err != nil {
		return err
	}
	def := metadata.EntityTypeDef{Code: e.EntityType, Assignments: assignments}

	for _, code := range e.Properties.Codes() {
		pv := e.Properties[code]
		if len(pv.Values) == 0 {
			delete(e.Properties, code)
			continue
		}
		a, ok := def.Assignment(code)
		if !ok {
			return apperror.NewBadRequest(apperror.CodeUnassignedPropertyType,
				fmt.Sprintf("Property type '%s' is not assigned to entity type '%s'", code, e.EntityType)).
				WithDetail("property", code)
		}
		canonical, err := s.validateProperty(a, pv)
		if err != nil {
			logger.Debug(ctx, "property value rejected", "property", code, "error", err)
			return err
		}
		e.Properties[code] = canonical
	}

	for _, a := range assignments {
		if !a.Mandatory {
			continue
		}
		if _, ok := e.Properties.Get(a.PropertyType.Code); !ok {
			return apperror.NewBadRequest(apperror.CodeMandatoryPropertyMissing,
				fmt.Sprintf("Value of mandatory property '%s' not specified.", a.PropertyType.Code)).
				WithDetail("property", a.PropertyType.Code)
		}
	}
	return nil
}

func (s *Service) validateProperty(a metadata.PropertyAssignment, pv entity.PropertyValue) (entity.PropertyValue, error) {
	dt := a.PropertyType.DataType
	if pv.DataType != "" && pv.DataType != dt {
		err := apperror.NewBadRequest(apperror.CodeInvalidPropertyValue,
			fmt.Sprintf("Property '%s' is of data type %s, not %s", a.PropertyType.Code, dt, pv.DataType)).
			WithDetail("property", a.PropertyType.Code)
		s.metrics.ValueValidated(dt, err)
		return pv, err
	}
	c, err := s.compiler.CompileAssignment(a)
	s.metrics.ConstraintCompiled(a.PatternType, err)
	if err != nil {
		return pv, err
	}
	values, err := s.validator.ValidateValues(c, dt, pv.Values)
	s.metrics.ValueValidated(dt, err)
	if err != nil {
		return pv, err
	}
	return entity.PropertyValue{DataType: dt, Values: values}, nil
}
