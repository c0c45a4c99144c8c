package constraint

import (
	"regexp"

	"metaprops/internal/core/apperror"
	"metaprops/internal/metadata"
)

// Compile turns a (PatternType, spec) pair into a Constraint for a
// property of data type dt. An empty pattern type yields a nil constraint.
func Compile(dt metadata.DataType, patternType metadata.PatternType, spec string) (*Constraint, error) {
	if patternType == metadata.PatternTypeNone {
		return nil, nil
	}
	if !dt.AcceptsConstraints() {
		return nil, apperror.NewUnsupportedDataType(string(dt))
	}

	c := &Constraint{kind: patternType, source: spec}
	switch patternType {
	case metadata.PatternTypePattern:
		re, err := regexp.Compile(`^(?:` + spec + `)$`)
		if err != nil {
			return nil, apperror.NewMalformedConstraint("Invalid pattern '" + spec + "'").
				WithDetail("pattern", spec).
				WithCause(err)
		}
		c.pattern = re
	case metadata.PatternTypeRanges:
		ranges, err := parseRanges(spec)
		if err != nil {
			return nil, err
		}
		c.ranges = ranges
	case metadata.PatternTypeValues:
		values, err := parseValues(spec)
		if err != nil {
			return nil, err
		}
		c.values = values
	default:
		return nil, apperror.NewMalformedConstraint("Unknown pattern type specified!").
			WithDetail("pattern_type", string(patternType))
	}
	return c, nil
}

// ParsePatternType resolves a pattern type name. "" means no constraint.
func ParsePatternType(s string) (metadata.PatternType, error) {
	switch pt := metadata.PatternType(s); pt {
	case metadata.PatternTypeNone, metadata.PatternTypePattern, metadata.PatternTypeRanges, metadata.PatternTypeValues:
		return pt, nil
	}
	return "", apperror.NewMalformedConstraint("Unknown pattern type specified!").
		WithDetail("pattern_type", s)
}
