// Package assignment manages property assignments and the constraints
// attached to them.
package assignment

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
	Repo      domain.AssignmentRepository
	Values    domain.PropertyValueRepository
	Entities  domain.EntityRepository
	TxManager tx.Manager
	Compiler  *constraint.Compiler
	Validator *constraint.Validator
	Metrics   domain.Recorder
}

// Service creates and updates assignments. Every accepted write leaves the
// stored values, the initial value and the constraint mutually consistent.
type Service struct {
	repo      domain.AssignmentRepository
	values    domain.PropertyValueRepository
	entities  domain.EntityRepository
	txManager tx.Manager
	compiler  *constraint.Compiler
	validator *constraint.Validator
	metrics   domain.Recorder
	tracer    trace.Tracer
}

// NewService creates an assignment service.
func NewService(cfg ServiceConfig) *Service {
	txm := cfg.TxManager
	if txm == nil {
		txm = tx.Noop{}
	}
	return &Service{
		repo:      cfg.Repo,
		values:    cfg.Values,
		entities:  cfg.Entities,
		txManager: txm,
		compiler:  cfg.Compiler,
		validator: cfg.Validator,
		metrics:   domain.RecorderOrNop(cfg.Metrics),
		tracer:    otel.Tracer("metaprops/assignment"),
	}
}

// Get returns an assignment by ID.
func (s *Service) Get(ctx context.Context, assignmentID id.ID) (metadata.PropertyAssignment, error) {
	return s.repo.GetAssignment(ctx, assignmentID)
}

// List returns the assignments of an entity type.
func (s *Service) List(ctx context.Context, entityType string) ([]metadata.PropertyAssignment, error) {
	return s.repo.ListAssignments(ctx, entityType)
}

// Create validates and stores a new assignment. The constraint must compile
// for the property's data type and accept the initial value. A property
// type is assigned at most once per entity type. A mandatory assignment
// writes the initial value into every existing entity that lacks it.
func (s *Service) Create(ctx context.Context, a metadata.PropertyAssignment) (metadata.PropertyAssignment, error) {
	ctx, span := s.start(ctx, "assignment.create", a)
	defer span.End()

	if err := validateShape(a); err != nil {
		return fail(span, a, err)
	}
	c, err := s.compile(a)
	if err != nil {
		return fail(span, a, err)
	}
	if err := s.validator.CheckDefault(c, a.PropertyType.DataType, a.InitialValue); err != nil {
		logger.Warn(ctx, "initial value rejected", "property", a.PropertyType.Code, "pattern", a.Pattern)
		return fail(span, a, err)
	}
	if id.IsNil(a.ID) {
		a.ID = id.New()
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.ListAssignments(ctx, a.EntityType)
		if err != nil {
			return err
		}
		def := metadata.EntityTypeDef{Code: a.EntityType, Assignments: existing}
		if _, ok := def.Assignment(a.PropertyType.Code); ok {
			return apperror.NewConflict(fmt.Sprintf("Property type '%s' is already assigned to entity type '%s'.",
				a.PropertyType.Code, a.EntityType)).
				WithDetail("property", a.PropertyType.Code)
		}
		if a.Mandatory {
			if err := s.applyInitialValue(ctx, a, c); err != nil {
				return err
			}
		}
		if err := s.repo.SaveAssignment(ctx, a); err != nil {
			return fmt.Errorf("save assignment: %w", err)
		}
		return nil
	})
	if err != nil {
		return fail(span, a, err)
	}

	logger.Info(ctx, "assignment created",
		"assignment_id", a.ID.String(),
		"entity_type", a.EntityType,
		"property", a.PropertyType.Code,
		"pattern_type", string(a.PatternType))
	return a, nil
}

// Update replaces the constraint (and flags) of an existing assignment.
// Inside one transaction the current assignment is reloaded, every stored
// value is checked against the new constraint and only then is it saved.
// The first stored value that fails aborts the update.
func (s *Service) Update(ctx context.Context, a metadata.PropertyAssignment) (metadata.PropertyAssignment, error) {
	ctx, span := s.start(ctx, "assignment.update", a)
	defer span.End()

	if id.IsNil(a.ID) {
		return fail(span, a, apperror.NewValidation("Assignment id is required"))
	}

	var saved metadata.PropertyAssignment
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetAssignment(ctx, a.ID)
		if err != nil {
			return err
		}

		// entity type and property type are immutable
		next := current
		next.Mandatory = a.Mandatory
		next.PatternType = a.PatternType
		next.Pattern = a.Pattern
		next.InitialValue = a.InitialValue
		next.Ordinal = a.Ordinal

		c, err := s.compile(next)
		if err != nil {
			return err
		}
		dt := next.PropertyType.DataType
		if err := s.validator.CheckDefault(c, dt, next.InitialValue); err != nil {
			return err
		}
		if constraintChanged(current, next) {
			err := s.validator.CheckExisting(c, dt, func(fn func(string) error) error {
				return s.values.ExistingValues(ctx, next.ID, fn)
			})
			if err != nil {
				logger.Warn(ctx, "stored value violates new constraint",
					"assignment_id", next.ID.String(), "pattern", next.Pattern)
				return err
			}
		}

		if next.Mandatory && !current.Mandatory {
			if err := s.applyInitialValue(ctx, next, c); err != nil {
				return err
			}
		}
		if err := s.repo.SaveAssignment(ctx, next); err != nil {
			return fmt.Errorf("save assignment: %w", err)
		}
		saved = next
		return nil
	})
	if err != nil {
		return fail(span, a, err)
	}

	logger.Info(ctx, "assignment updated",
		"assignment_id", saved.ID.String(),
		"pattern_type", string(saved.PatternType))
	return saved, nil
}

// applyInitialValue stores the canonical initial value in every entity of
// the assignment's type that has no value for the property. Without an
// initial value such entities make the assignment impossible.
func (s *Service) applyInitialValue(ctx context.Context, a metadata.PropertyAssignment, c *constraint.Constraint) error {
	entities, err := s.entities.ListEntities(ctx, a.EntityType)
	if err != nil {
		return err
	}
	code := a.PropertyType.Code
	var missing []*entity.Entity
	for _, e := range entities {
		if _, ok := e.Properties.Get(code); !ok {
			missing = append(missing, e)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	if a.InitialValue == "" {
		return apperror.NewBadRequest(apperror.CodeMandatoryPropertyMissing,
			fmt.Sprintf("Mandatory property '%s' needs an initial value for the %d existing entities of type '%s'.",
				code, len(missing), a.EntityType)).
			WithDetail("property", code)
	}

	dt := a.PropertyType.DataType
	canonical, err := s.validator.Validate(c, dt, a.InitialValue)
	if err != nil {
		return err
	}
	for _, e := range missing {
		e.Properties.Set(code, entity.Single(dt, canonical))
		if err := s.entities.SaveEntity(ctx, e); err != nil {
			return fmt.Errorf("apply initial value to entity %s: %w", e.Code, err)
		}
	}
	logger.Info(ctx, "initial value applied",
		"property", code, "entity_type", a.EntityType, "entities", len(missing))
	return nil
}

func (s *Service) compile(a metadata.PropertyAssignment) (*constraint.Constraint, error) {
	c, err := s.compiler.CompileAssignment(a)
	s.metrics.ConstraintCompiled(a.PatternType, err)
	return c, err
}

func (s *Service) start(ctx context.Context, name string, a metadata.PropertyAssignment) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("entity_type", a.EntityType),
		attribute.String("property", a.PropertyType.Code),
		attribute.String("pattern_type", string(a.PatternType)),
	))
}

func fail(span trace.Span, a metadata.PropertyAssignment, err error) (metadata.PropertyAssignment, error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return a, err
}

func validateShape(a metadata.PropertyAssignment) error {
	if a.EntityType == "" {
		return apperror.NewValidation("Entity type is required")
	}
	if a.PropertyType.Code == "" {
		return apperror.NewValidation("Property type is required")
	}
	if !a.PropertyType.DataType.Valid() {
		return apperror.NewValidation("Unknown data type: " + string(a.PropertyType.DataType)).
			WithDetail("property", a.PropertyType.Code)
	}
	return nil
}

func constraintChanged(current, next metadata.PropertyAssignment) bool {
	return current.PatternType != next.PatternType || current.Pattern != next.Pattern
}
