package filter

import (
	"fmt"
	"strings"

	"metaprops/internal/core/apperror"
	"metaprops/internal/core/entity"
	"metaprops/internal/core/temporal"
	"metaprops/internal/core/types"
	"metaprops/internal/metadata"
)

// TypeResolver maps property codes to declared data types.
type TypeResolver interface {
	DataTypeOf(code string) (metadata.DataType, bool)
}

// TypeMap is a TypeResolver backed by a map.
type TypeMap map[string]metadata.DataType

func (m TypeMap) DataTypeOf(code string) (metadata.DataType, bool) {
	dt, ok := m[code]
	return dt, ok
}

// Evaluator applies predicate trees to entities. It holds no mutable state.
type Evaluator struct {
	norm *temporal.Normalizer
}

// NewEvaluator creates an Evaluator comparing dates in norm's timezone.
func NewEvaluator(norm *temporal.Normalizer) *Evaluator {
	return &Evaluator{norm: norm}
}

// Normalizer returns the temporal normalizer used for date comparisons.
func (ev *Evaluator) Normalizer() *temporal.Normalizer {
	return ev.norm
}

// Check verifies every leaf against the declared property types before any
// entity is inspected. Properties unknown to the resolver are not checked.
func (ev *Evaluator) Check(node Node, resolver TypeResolver) error {
	switch n := node.(type) {
	case *Combinator:
		for _, child := range n.Children {
			if err := ev.Check(child, resolver); err != nil {
				return err
			}
		}
		return nil
	case *Leaf:
		if n.Selector.Scope != ScopeProperty {
			return checkWildcardOperator(n)
		}
		if dt, ok := resolver.DataTypeOf(n.Selector.Code); ok {
			return checkLeaf(n, dt)
		}
		return nil
	}
	return apperror.NewInternal(fmt.Errorf("unknown node type %T", node))
}

// Evaluate reports whether e satisfies node. Children are evaluated left to
// right with short-circuiting; a leaf on a property of an unsupported type is
// an error, never a silent false.
func (ev *Evaluator) Evaluate(node Node, e *entity.Entity) (bool, error) {
	switch n := node.(type) {
	case *Combinator:
		return ev.evalCombinator(n, e)
	case *Leaf:
		return ev.evalLeaf(n, e)
	}
	return false, apperror.NewInternal(fmt.Errorf("unknown node type %T", node))
}

// Filter returns the entities satisfying node, preserving order.
func (ev *Evaluator) Filter(node Node, entities []*entity.Entity) ([]*entity.Entity, error) {
	out := make([]*entity.Entity, 0, len(entities))
	for _, e := range entities {
		ok, err := ev.Evaluate(node, e)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (ev *Evaluator) evalCombinator(n *Combinator, e *entity.Entity) (bool, error) {
	if len(n.Children) == 0 {
		return true, nil
	}
	for _, child := range n.Children {
		ok, err := ev.Evaluate(child, e)
		if err != nil {
			return false, err
		}
		if n.Logic == LogicOr && ok {
			return true, nil
		}
		if n.Logic != LogicOr && !ok {
			return false, nil
		}
	}
	return n.Logic != LogicOr, nil
}

func (ev *Evaluator) evalLeaf(l *Leaf, e *entity.Entity) (bool, error) {
	switch l.Selector.Scope {
	case ScopeProperty:
		pv, ok := e.Properties.Get(l.Selector.Code)
		if !ok {
			return false, nil
		}
		if err := checkLeaf(l, pv.DataType); err != nil {
			return false, err
		}
		return ev.matchProperty(l, pv)
	case ScopeAnyField:
		if err := checkWildcardOperator(l); err != nil {
			return false, err
		}
		for _, attr := range e.Attributes() {
			if matchText(l.Operator, attr.Value, l.Operand.Text) {
				return true, nil
			}
		}
		return ev.anyProperty(l, e)
	case ScopeAnyProperty:
		if err := checkWildcardOperator(l); err != nil {
			return false, err
		}
		return ev.anyProperty(l, e)
	}
	return false, apperror.NewInternal(fmt.Errorf("unknown selector scope %q", l.Selector.Scope))
}

func (ev *Evaluator) anyProperty(l *Leaf, e *entity.Entity) (bool, error) {
	for _, code := range e.Properties.Codes() {
		pv := e.Properties[code]
		if !l.Selector.Accepts(pv.DataType) {
			continue
		}
		// a textual operand with a time of day never matches a day-only value
		if l.Selector.Domain == DomainDate && l.Operand.FromText && l.Operand.Instant.HasTime &&
			pv.DataType.Domain() == metadata.DomainDate {
			continue
		}
		ok, err := ev.matchProperty(l, pv)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// matchProperty ORs over the elements of a (possibly multi-valued) property.
func (ev *Evaluator) matchProperty(l *Leaf, pv entity.PropertyValue) (bool, error) {
	for _, value := range pv.Values {
		ok, err := ev.matchValue(l, pv.DataType, value)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (ev *Evaluator) matchValue(l *Leaf, dt metadata.DataType, value string) (bool, error) {
	switch l.Selector.Domain {
	case DomainNumber:
		n, err := types.ParseNumber(value)
		if err != nil {
			return false, storedValueError(dt, value, err)
		}
		return l.Operator.compareResult(n.Cmp(l.Operand.Number)), nil
	case DomainBoolean:
		return strings.EqualFold(value, l.Operand.Text), nil
	case DomainDate:
		var (
			stored temporal.Instant
			err    error
		)
		if dt.Domain() == metadata.DomainDate {
			stored, err = ev.norm.ParseDate(value)
		} else {
			stored, err = ev.norm.ParseTimestamp(value)
		}
		if err != nil {
			return false, storedValueError(dt, value, err)
		}
		return l.Operator.compareResult(ev.norm.Compare(stored, l.Operand.Instant)), nil
	}
	return matchText(l.Operator, value, l.Operand.Text), nil
}

// matchText compares canonical renderings: lexicographic ordering plus
// substring operators.
func matchText(op Operator, value, operand string) bool {
	switch op {
	case Contains:
		return strings.Contains(value, operand)
	case StartsWith:
		return strings.HasPrefix(value, operand)
	case EndsWith:
		return strings.HasSuffix(value, operand)
	}
	return op.compareResult(strings.Compare(value, operand))
}

func checkLeaf(l *Leaf, dt metadata.DataType) error {
	if !l.Selector.Accepts(dt) {
		return apperror.NewUnsupportedOperator(fmt.Sprintf(
			"Criterion of type %s cannot be applied to the data type %s. [field=%s]",
			l.Selector.CriterionName(), dt, l.Selector.Code)).
			WithDetail("field", l.Selector.Code).
			WithDetail("data_type", string(dt))
	}
	if !l.Selector.Supports(l.Operator) {
		return apperror.NewUnsupportedOperator(fmt.Sprintf(
			"Operator %s cannot be applied to the data type %s", l.Operator, dt)).
			WithDetail("field", l.Selector.Code).
			WithDetail("operator", string(l.Operator))
	}
	return nil
}

func checkWildcardOperator(l *Leaf) error {
	if l.Selector.Supports(l.Operator) {
		return nil
	}
	names := make([]string, 0)
	for _, dt := range l.Selector.DataTypes() {
		names = append(names, string(dt))
	}
	return apperror.NewUnsupportedOperator(fmt.Sprintf(
		"Operator %s cannot be applied to the data type %s", l.Operator, strings.Join(names, "/"))).
		WithDetail("operator", string(l.Operator))
}

func storedValueError(dt metadata.DataType, value string, cause error) error {
	return apperror.NewInternal(fmt.Errorf("stored %s value %q is not canonical: %w", dt, value, cause))
}
