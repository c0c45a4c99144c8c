// Package search runs predicate trees over the entities of a type.
package search

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"metaprops/internal/core/apperror"
	"metaprops/internal/core/entity"
	"metaprops/internal/core/tx"
	"metaprops/internal/domain"
	"metaprops/internal/domain/filter"
	"metaprops/pkg/logger"
)

// ServiceConfig holds dependencies for Service.
type ServiceConfig struct {
	Assignments domain.AssignmentRepository
	Entities    domain.EntityRepository
	TxManager   tx.Manager
	Evaluator   *filter.Evaluator
	Metrics     domain.Recorder
}

// Service evaluates search criteria.
type Service struct {
	assignments domain.AssignmentRepository
	entities    domain.EntityRepository
	txManager   tx.Manager
	evaluator   *filter.Evaluator
	metrics     domain.Recorder
	tracer      trace.Tracer
}

// NewService creates a search service.
func NewService(cfg ServiceConfig) *Service {
	txm := cfg.TxManager
	if txm == nil {
		txm = tx.Noop{}
	}
	return &Service{
		assignments: cfg.Assignments,
		entities:    cfg.Entities,
		txManager:   txm,
		evaluator:   cfg.Evaluator,
		metrics:     domain.RecorderOrNop(cfg.Metrics),
		tracer:      otel.Tracer("metaprops/search"),
	}
}

// Search returns the entities of entityType satisfying node, in storage
// order. When entityType is set, typed criteria are checked against the
// declared property types before any entity is read.
func (s *Service) Search(ctx context.Context, entityType string, node filter.Node) ([]*entity.Entity, error) {
	ctx, span := s.tracer.Start(ctx, "search.evaluate", trace.WithAttributes(
		attribute.String("entity_type", entityType),
		attribute.String("criteria", node.String()),
	))
	defer span.End()

	var result []*entity.Entity
	err := s.readOnly(ctx, func(ctx context.Context) error {
		if entityType != "" {
			types, err := s.declaredTypes(ctx, entityType)
			if err != nil {
				return err
			}
			if err := s.evaluator.Check(node, types); err != nil {
				return err
			}
		}

		entities, err := s.entities.ListEntities(ctx, entityType)
		if err != nil {
			return fmt.Errorf("list entities: %w", err)
		}
		result, err = s.evaluator.Filter(node, entities)
		return err
	})

	s.metrics.SearchEvaluated(len(result), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("matched", len(result)))
	logger.Debug(ctx, "search evaluated", "entity_type", entityType, "criteria", node.String(), "matched", len(result))
	return result, nil
}

// SearchQuery parses a selector ("anyNumber", "number:SIZE") and a query
// expression ("> 13 and <= 19.5") and runs the resulting predicate.
func (s *Service) SearchQuery(ctx context.Context, entityType, selector, query string) ([]*entity.Entity, error) {
	sel, ok := filter.ParseSelector(selector)
	if !ok {
		return nil, apperror.NewBadRequest(apperror.CodeInvalidQuery, "Unknown field selector '"+selector+"'").
			WithDetail("selector", selector)
	}
	node, err := filter.ParseQuery(sel, query, s.evaluator.Normalizer())
	if err != nil {
		return nil, err
	}
	return s.Search(ctx, entityType, node)
}

func (s *Service) declaredTypes(ctx context.Context, entityType string) (filter.TypeMap, error) {
	assignments, err := s.assignments.ListAssignments(ctx, entityType)
	if err != nil {
		return nil, err
	}
	types := make(filter.TypeMap, len(assignments))
	for _, a := range assignments {
		types[a.PropertyType.Code] = a.PropertyType.DataType
	}
	return types, nil
}

func (s *Service) readOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	if ro, ok := s.txManager.(tx.ReadOnlyManager); ok {
		return ro.ReadOnly(ctx, fn)
	}
	return s.txManager.RunInTransaction(ctx, fn)
}
