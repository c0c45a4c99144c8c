package constraint

import (
	"fmt"
	"strings"

	"metaprops/internal/core/apperror"
	"metaprops/internal/core/temporal"
	"metaprops/internal/core/types"
	"metaprops/internal/metadata"
)

// ValueStream feeds stored values to fn one at a time and stops at the first
// error fn returns.
type ValueStream func(fn func(value string) error) error

// Validator checks values against a data type and an optional constraint.
// Temporal values are normalized in the server timezone of norm.
type Validator struct {
	norm *temporal.Normalizer
}

// NewValidator creates a Validator.
func NewValidator(norm *temporal.Normalizer) *Validator {
	return &Validator{norm: norm}
}

// Normalizer returns the temporal normalizer in use.
func (v *Validator) Normalizer() *temporal.Normalizer {
	return v.norm
}

// Canonicalize parses raw under dt and returns its stored form.
func (v *Validator) Canonicalize(dt metadata.DataType, raw string) (string, error) {
	switch dt.Domain() {
	case metadata.DomainBoolean:
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "true":
			return "true", nil
		case "false":
			return "false", nil
		}
		return "", apperror.NewBadRequest(apperror.CodeInvalidPropertyValue,
			fmt.Sprintf("Value '%s' is not a boolean", raw)).WithDetail("value", raw)
	case metadata.DomainInteger:
		return types.CanonicalInteger(raw)
	case metadata.DomainReal:
		return types.CanonicalReal(raw)
	case metadata.DomainDate:
		return v.norm.CanonicalDate(raw)
	case metadata.DomainTimestamp:
		return v.norm.CanonicalTimestamp(raw)
	}
	return raw, nil
}

// Validate canonicalizes raw and checks it against c. A nil constraint
// accepts every parseable value. Validating an already canonical value
// returns it unchanged.
func (v *Validator) Validate(c *Constraint, dt metadata.DataType, raw string) (string, error) {
	canonical, err := v.Canonicalize(dt, raw)
	if err != nil {
		return "", err
	}
	if c == nil || v.matches(c, dt, canonical) {
		return canonical, nil
	}
	if dt == metadata.DataTypeTimestamp {
		return "", apperror.NewPatternMismatch(canonical+" is not matching defined pattern!").
			WithDetail("value", raw).
			WithDetail("normalized", canonical).
			WithDetail("note", "timestamps are matched in their normalized form "+temporal.TimestampLayout)
	}
	return "", apperror.NewPatternMismatch(fmt.Sprintf("Value: '%s' is not matching defined pattern!", raw)).
		WithDetail("value", raw).
		WithDetail("pattern", c.Source())
}

// ValidateValues validates every element of a property. Single-valued data
// types take exactly one element.
func (v *Validator) ValidateValues(c *Constraint, dt metadata.DataType, raw []string) ([]string, error) {
	if !dt.IsMultiValue() && len(raw) != 1 {
		return nil, apperror.NewBadRequest(apperror.CodeInvalidPropertyValue,
			fmt.Sprintf("Property of data type %s takes exactly one value, got %d", dt, len(raw)))
	}
	out := make([]string, len(raw))
	for i, r := range raw {
		canonical, err := v.Validate(c, dt, r)
		if err != nil {
			return nil, err
		}
		out[i] = canonical
	}
	return out, nil
}

// CheckExisting verifies that every stored value satisfies c. The first
// violation aborts the stream.
func (v *Validator) CheckExisting(c *Constraint, dt metadata.DataType, existing ValueStream) error {
	if c == nil {
		return nil
	}
	return existing(func(value string) error {
		canonical, err := v.Canonicalize(dt, value)
		if err != nil || !v.matches(c, dt, canonical) {
			return apperror.NewBusinessRule(apperror.CodeRetroactiveMismatch,
				fmt.Sprintf("Existing property '%s' does not match the new pattern!", value)).
				WithDetail("value", value).
				WithDetail("pattern", c.Source())
		}
		return nil
	})
}

// CheckDefault verifies the initial value of an assignment against c.
func (v *Validator) CheckDefault(c *Constraint, dt metadata.DataType, defaultValue string) error {
	if c == nil || defaultValue == "" {
		return nil
	}
	canonical, err := v.Canonicalize(dt, defaultValue)
	if err != nil || !v.matches(c, dt, canonical) {
		return apperror.NewPatternMismatch("New pattern does not match default value!").
			WithDetail("value", defaultValue).
			WithDetail("pattern", c.Source())
	}
	return nil
}

func (v *Validator) matches(c *Constraint, dt metadata.DataType, canonical string) bool {
	switch c.kind {
	case metadata.PatternTypePattern:
		return c.pattern.MatchString(canonical)
	case metadata.PatternTypeRanges:
		n, err := types.ParseNumber(canonical)
		if err != nil {
			return false
		}
		for _, r := range c.ranges {
			if r.Contains(n) {
				return true
			}
		}
		return false
	case metadata.PatternTypeValues:
		for _, lit := range c.values {
			if lit == canonical {
				return true
			}
			if norm, err := v.Canonicalize(dt, lit); err == nil && norm == canonical {
				return true
			}
		}
		return false
	}
	return false
}
