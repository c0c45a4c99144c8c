// Package filter compiles search criteria into predicate trees and evaluates
// them against entity properties.
package filter

import (
	"slices"
)

// Operator is a comparison applied by a leaf predicate.
type Operator string

const (
	Equal          Operator = "EQUAL"
	Less           Operator = "LESS"
	LessOrEqual    Operator = "LESS_OR_EQUAL"
	Greater        Operator = "GREATER"
	GreaterOrEqual Operator = "GREATER_OR_EQUAL"
	Contains       Operator = "CONTAINS"
	StartsWith     Operator = "STARTS_WITH"
	EndsWith       Operator = "ENDS_WITH"
)

// Query DSL tokens.
var operatorsByToken = map[string]Operator{
	"==":         Equal,
	"<":          Less,
	"<=":         LessOrEqual,
	">":          Greater,
	">=":         GreaterOrEqual,
	"contains":   Contains,
	"startsWith": StartsWith,
	"endsWith":   EndsWith,
}

var (
	allOperators      = []Operator{Equal, Less, LessOrEqual, Greater, GreaterOrEqual, Contains, StartsWith, EndsWith}
	orderingOperators = []Operator{Equal, Less, LessOrEqual, Greater, GreaterOrEqual}
	equalityOperators = []Operator{Equal}
)

// Token returns the query DSL spelling of the operator.
func (o Operator) Token() string {
	for tok, op := range operatorsByToken {
		if op == o {
			return tok
		}
	}
	return string(o)
}

// ParseOperator resolves a query DSL token.
func ParseOperator(token string) (Operator, bool) {
	op, ok := operatorsByToken[token]
	return op, ok
}

// Valid reports whether o is a known operator.
func (o Operator) Valid() bool {
	return slices.Contains(allOperators, o)
}

// compareResult maps a three-way comparison to the operator outcome.
// Text operators never reach here.
func (o Operator) compareResult(cmp int) bool {
	switch o {
	case Equal:
		return cmp == 0
	case Less:
		return cmp < 0
	case LessOrEqual:
		return cmp <= 0
	case Greater:
		return cmp > 0
	case GreaterOrEqual:
		return cmp >= 0
	}
	return false
}
