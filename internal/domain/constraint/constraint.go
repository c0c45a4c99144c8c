// Package constraint compiles PATTERN, RANGES and VALUES specifications into
// immutable validators and checks property values against them.
package constraint

import (
	"regexp"
	"slices"
	"strings"

	"metaprops/internal/core/types"
	"metaprops/internal/metadata"
)

// Interval is an inclusive numeric range with Low <= High.
type Interval struct {
	Low  types.Number
	High types.Number
}

// Contains reports Low <= n <= High.
func (i Interval) Contains(n types.Number) bool {
	return n.GreaterThanOrEqual(i.Low) && n.LessThanOrEqual(i.High)
}

func (i Interval) String() string {
	return "[" + i.Low.String() + ", " + i.High.String() + "]"
}

// Constraint is a compiled value gate. It is immutable and safe to share
// between goroutines.
type Constraint struct {
	kind    metadata.PatternType
	source  string
	pattern *regexp.Regexp
	ranges  []Interval
	values  []string
}

// Kind returns PATTERN, RANGES or VALUES.
func (c *Constraint) Kind() metadata.PatternType { return c.kind }

// Source returns the specification the constraint was compiled from.
func (c *Constraint) Source() string { return c.source }

// Pattern returns the anchored regular expression of a PATTERN constraint.
func (c *Constraint) Pattern() *regexp.Regexp { return c.pattern }

// Ranges returns the intervals of a RANGES constraint.
func (c *Constraint) Ranges() []Interval { return slices.Clone(c.ranges) }

// Values returns the sorted literal set of a VALUES constraint.
func (c *Constraint) Values() []string { return slices.Clone(c.values) }

// String renders the compiled form.
func (c *Constraint) String() string {
	switch c.kind {
	case metadata.PatternTypePattern:
		return "PATTERN " + c.pattern.String()
	case metadata.PatternTypeRanges:
		parts := make([]string, len(c.ranges))
		for i, r := range c.ranges {
			parts[i] = r.String()
		}
		return "RANGES " + strings.Join(parts, " OR ")
	case metadata.PatternTypeValues:
		quoted := make([]string, len(c.values))
		for i, v := range c.values {
			quoted[i] = `"` + v + `"`
		}
		return "VALUES {" + strings.Join(quoted, ", ") + "}"
	}
	return string(c.kind)
}
