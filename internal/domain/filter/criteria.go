package filter

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"metaprops/internal/core/apperror"
	"metaprops/internal/core/temporal"
)

// Criteria builds a predicate tree programmatically:
//
//	c := filter.NewCriteria(norm).WithOrOperator()
//	c.WithNumberProperty("SIZE").ThatIsGreaterThan(13)
//	c.WithDateProperty("BORN").ThatEquals(time.Now())
//	node, err := c.Build()
//
// Errors from individual calls are collected and returned by Build.
type Criteria struct {
	norm     *temporal.Normalizer
	logic    Logic
	children []Node
	errs     []error
}

// NewCriteria creates an AND-joined criteria builder.
func NewCriteria(norm *temporal.Normalizer) *Criteria {
	return &Criteria{norm: norm, logic: LogicAnd}
}

func (c *Criteria) WithAndOperator() *Criteria {
	c.logic = LogicAnd
	return c
}

func (c *Criteria) WithOrOperator() *Criteria {
	c.logic = LogicOr
	return c
}

func (c *Criteria) WithProperty(code string) *FieldCriteria { return c.field(Property(code)) }

func (c *Criteria) WithStringProperty(code string) *FieldCriteria {
	return c.field(StringProperty(code))
}

func (c *Criteria) WithNumberProperty(code string) *FieldCriteria {
	return c.field(NumberProperty(code))
}

func (c *Criteria) WithDateProperty(code string) *FieldCriteria { return c.field(DateProperty(code)) }

func (c *Criteria) WithBooleanProperty(code string) *FieldCriteria {
	return c.field(BooleanProperty(code))
}

func (c *Criteria) WithVocabularyProperty(code string) *FieldCriteria {
	return c.field(VocabularyProperty(code))
}

func (c *Criteria) WithAnyField() *FieldCriteria { return c.field(AnyField()) }

func (c *Criteria) WithAnyProperty() *FieldCriteria { return c.field(AnyProperty()) }

func (c *Criteria) WithAnyStringProperty() *FieldCriteria { return c.field(AnyStringProperty()) }

func (c *Criteria) WithAnyNumberProperty() *FieldCriteria { return c.field(AnyNumberProperty()) }

func (c *Criteria) WithAnyDateProperty() *FieldCriteria { return c.field(AnyDateProperty()) }

func (c *Criteria) WithAnyBooleanProperty() *FieldCriteria { return c.field(AnyBooleanProperty()) }

// WithQuery adds a textual expression ("> 13 and <= 19.5") for sel as a
// nested combinator.
func (c *Criteria) WithQuery(sel Selector, query string) *Criteria {
	node, err := ParseQuery(sel, query, c.norm)
	if err != nil {
		c.errs = append(c.errs, err)
		return c
	}
	c.children = append(c.children, node)
	return c
}

// WithSubcriteria nests another builder, allowing AND and OR to be mixed.
func (c *Criteria) WithSubcriteria(sub *Criteria) *Criteria {
	node, err := sub.Build()
	if err != nil {
		c.errs = append(c.errs, err)
		return c
	}
	c.children = append(c.children, node)
	return c
}

// Build returns the predicate tree or the collected errors.
func (c *Criteria) Build() (Node, error) {
	if len(c.errs) > 0 {
		return nil, errors.Join(c.errs...)
	}
	return &Combinator{Logic: c.logic, Children: append([]Node(nil), c.children...)}, nil
}

func (c *Criteria) field(sel Selector) *FieldCriteria {
	return &FieldCriteria{parent: c, sel: sel}
}

// FieldCriteria adds one leaf for a selector.
type FieldCriteria struct {
	parent *Criteria
	sel    Selector
}

func (f *FieldCriteria) ThatEquals(v any) *Criteria { return f.add(Equal, v) }

func (f *FieldCriteria) ThatIsLessThan(v any) *Criteria { return f.add(Less, v) }

func (f *FieldCriteria) ThatIsLessThanOrEqualTo(v any) *Criteria { return f.add(LessOrEqual, v) }

func (f *FieldCriteria) ThatIsGreaterThan(v any) *Criteria { return f.add(Greater, v) }

func (f *FieldCriteria) ThatIsGreaterThanOrEqualTo(v any) *Criteria {
	return f.add(GreaterOrEqual, v)
}

func (f *FieldCriteria) ThatContains(s string) *Criteria { return f.add(Contains, s) }

func (f *FieldCriteria) ThatStartsWith(s string) *Criteria { return f.add(StartsWith, s) }

func (f *FieldCriteria) ThatEndsWith(s string) *Criteria { return f.add(EndsWith, s) }

func (f *FieldCriteria) add(op Operator, v any) *Criteria {
	c := f.parent
	operand, err := f.operand(v)
	if err != nil {
		c.errs = append(c.errs, err)
		return c
	}
	c.children = append(c.children, &Leaf{Selector: f.sel, Operator: op, Operand: operand})
	return c
}

func (f *FieldCriteria) operand(v any) (Operand, error) {
	switch x := v.(type) {
	case string:
		return ParseOperand(f.sel, x, f.parent.norm)
	case time.Time:
		if f.sel.Domain == DomainDate {
			return TimeOperand(x), nil
		}
	case bool:
		if f.sel.Domain == DomainBoolean {
			return BoolOperand(x), nil
		}
	case decimal.Decimal:
		if f.sel.Domain == DomainNumber {
			return NumberOperand(x), nil
		}
	case int:
		if f.sel.Domain == DomainNumber {
			return NumberOperand(decimal.NewFromInt(int64(x))), nil
		}
	case int64:
		if f.sel.Domain == DomainNumber {
			return NumberOperand(decimal.NewFromInt(x)), nil
		}
	case float64:
		if f.sel.Domain == DomainNumber {
			return NumberOperand(decimal.NewFromFloat(x)), nil
		}
	}
	return Operand{}, apperror.NewBadRequest(apperror.CodeInvalidQuery,
		fmt.Sprintf("Operand of type %T cannot be used with %s", v, f.sel))
}
