// Package types provides numeric parsing and canonical rendering for
// INTEGER and REAL property values.
package types

import (
	"strings"

	"github.com/shopspring/decimal"

	"metaprops/internal/core/apperror"
)

// Number is an arbitrary-precision decimal. Property values and range
// bounds use it so that "4.5000" and "4.5" compare equal.
type Number = decimal.Decimal

// ParseNumber parses a decimal literal. A leading '+' is accepted.
func ParseNumber(s string) (Number, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "+")
	if s == "" {
		return decimal.Zero, apperror.NewBadRequest(apperror.CodeInvalidPropertyValue, "Empty number")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, apperror.NewBadRequest(apperror.CodeInvalidPropertyValue,
			"Value '"+s+"' is not a number").WithCause(err)
	}
	return d, nil
}

// MustNumber parses a literal, panics on error.
// Use only for constants and tests.
func MustNumber(s string) Number {
	d, err := ParseNumber(s)
	if err != nil {
		panic(err)
	}
	return d
}

// CanonicalInteger renders an integral value without sign prefix or
// fractional part. Non-integral input is rejected.
func CanonicalInteger(s string) (string, error) {
	d, err := ParseNumber(s)
	if err != nil {
		return "", err
	}
	if !d.IsInteger() {
		return "", apperror.NewBadRequest(apperror.CodeInvalidPropertyValue,
			"Value '"+s+"' is not an integer").WithDetail("value", s)
	}
	return d.Truncate(0).String(), nil
}

// CanonicalReal renders a real value with trailing zeros trimmed and at
// least one fractional digit: "2" -> "2.0", "2.50" -> "2.5".
func CanonicalReal(s string) (string, error) {
	d, err := ParseNumber(s)
	if err != nil {
		return "", err
	}
	out := d.String()
	if !strings.Contains(out, ".") {
		out += ".0"
	}
	return out, nil
}
