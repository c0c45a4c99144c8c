package filter

import (
	"strings"
	"time"

	"metaprops/internal/core/temporal"
	"metaprops/internal/core/types"
)

// Logic joins the children of a Combinator.
type Logic string

const (
	LogicAnd Logic = "AND"
	LogicOr  Logic = "OR"
)

// Node is a predicate tree node: *Leaf or *Combinator. Trees are immutable
// once built and may be evaluated concurrently.
type Node interface {
	String() string
	node()
}

// Leaf compares the selected field(s) with an operand.
type Leaf struct {
	Selector Selector
	Operator Operator
	Operand  Operand
}

func (*Leaf) node() {}

func (l *Leaf) String() string {
	return l.Selector.String() + " " + l.Operator.Token() + " " + l.Operand.String()
}

// Combinator joins children with one logic. Mixing AND and OR requires
// nesting. An empty combinator matches everything.
type Combinator struct {
	Logic    Logic
	Children []Node
}

func (*Combinator) node() {}

func (c *Combinator) String() string {
	parts := make([]string, len(c.Children))
	for i, child := range c.Children {
		parts[i] = child.String()
	}
	return "(" + strings.Join(parts, " "+string(c.Logic)+" ") + ")"
}

// And joins nodes with AND.
func And(children ...Node) *Combinator {
	return &Combinator{Logic: LogicAnd, Children: children}
}

// Or joins nodes with OR.
func Or(children ...Node) *Combinator {
	return &Combinator{Logic: LogicOr, Children: children}
}

// OperandKind tells which field of Operand is set.
type OperandKind int

const (
	OperandString OperandKind = iota
	OperandNumber
	OperandBoolean
	OperandTemporal
)

// Operand is the typed right-hand side of a leaf.
type Operand struct {
	Kind    OperandKind
	Text    string
	Number  types.Number
	Bool    bool
	Instant temporal.Instant
	// FromText is set for temporal operands parsed from a query literal, as
	// opposed to a programmatic time value. Wildcard date scans skip DATE
	// properties for textual operands that carry a time of day.
	FromText bool
}

// StringOperand wraps a string literal.
func StringOperand(s string) Operand {
	return Operand{Kind: OperandString, Text: s}
}

// NumberOperand wraps a decimal.
func NumberOperand(n types.Number) Operand {
	return Operand{Kind: OperandNumber, Number: n, Text: n.String()}
}

// BoolOperand wraps a boolean.
func BoolOperand(b bool) Operand {
	text := "false"
	if b {
		text = "true"
	}
	return Operand{Kind: OperandBoolean, Bool: b, Text: text}
}

// TimeOperand wraps a programmatic time value. It always carries a time of day.
func TimeOperand(t time.Time) Operand {
	return Operand{
		Kind:    OperandTemporal,
		Instant: temporal.Instant{Time: t.Truncate(time.Second), HasTime: true},
		Text:    t.Format(temporal.TimestampLayout),
	}
}

// TemporalOperand wraps a parsed query literal.
func TemporalOperand(text string, in temporal.Instant) Operand {
	return Operand{Kind: OperandTemporal, Instant: in, Text: text, FromText: true}
}

func (o Operand) String() string {
	if o.Kind == OperandString {
		return `"` + o.Text + `"`
	}
	return o.Text
}
