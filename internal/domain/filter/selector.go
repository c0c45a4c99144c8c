package filter

import (
	"slices"
	"strings"

	"metaprops/internal/metadata"
)

// Scope selects which fields a leaf inspects.
type Scope string

const (
	// ScopeProperty targets one property by code.
	ScopeProperty Scope = "PROPERTY"
	// ScopeAnyProperty ORs over every eligible property.
	ScopeAnyProperty Scope = "ANY_PROPERTY"
	// ScopeAnyField ORs over declared attributes and every property.
	ScopeAnyField Scope = "ANY_FIELD"
)

// Domain selects how values are typed and compared.
type Domain string

const (
	// DomainGeneric compares the canonical string rendering of any data type.
	DomainGeneric    Domain = ""
	DomainString     Domain = "String"
	DomainNumber     Domain = "Number"
	DomainDate       Domain = "Date"
	DomainBoolean    Domain = "Boolean"
	DomainVocabulary Domain = "Vocabulary"
)

var (
	stringTypes = []metadata.DataType{
		metadata.DataTypeVarchar, metadata.DataTypeMultilineVarchar, metadata.DataTypeHyperlink,
		metadata.DataTypeXML, metadata.DataTypeJSON, metadata.DataTypeArrayString,
	}
	anyStringTypes = append(slices.Clone(stringTypes), metadata.DataTypeControlledVocabulary)
	numberTypes    = []metadata.DataType{
		metadata.DataTypeInteger, metadata.DataTypeReal, metadata.DataTypeArrayInteger, metadata.DataTypeArrayReal,
	}
	dateTypes = []metadata.DataType{
		metadata.DataTypeDate, metadata.DataTypeTimestamp, metadata.DataTypeArrayTimestamp,
	}
	booleanTypes    = []metadata.DataType{metadata.DataTypeBoolean}
	vocabularyTypes = []metadata.DataType{metadata.DataTypeControlledVocabulary}
)

// Selector identifies the field(s) a leaf predicate applies to.
type Selector struct {
	Scope  Scope
	Domain Domain
	Code   string
}

func Property(code string) Selector {
	return Selector{Scope: ScopeProperty, Code: code}
}

func StringProperty(code string) Selector {
	return Selector{Scope: ScopeProperty, Domain: DomainString, Code: code}
}

func NumberProperty(code string) Selector {
	return Selector{Scope: ScopeProperty, Domain: DomainNumber, Code: code}
}

func DateProperty(code string) Selector {
	return Selector{Scope: ScopeProperty, Domain: DomainDate, Code: code}
}

func BooleanProperty(code string) Selector {
	return Selector{Scope: ScopeProperty, Domain: DomainBoolean, Code: code}
}

func VocabularyProperty(code string) Selector {
	return Selector{Scope: ScopeProperty, Domain: DomainVocabulary, Code: code}
}

func AnyField() Selector { return Selector{Scope: ScopeAnyField} }

func AnyProperty() Selector { return Selector{Scope: ScopeAnyProperty} }

func AnyStringProperty() Selector {
	return Selector{Scope: ScopeAnyProperty, Domain: DomainString}
}

func AnyNumberProperty() Selector {
	return Selector{Scope: ScopeAnyProperty, Domain: DomainNumber}
}

func AnyDateProperty() Selector {
	return Selector{Scope: ScopeAnyProperty, Domain: DomainDate}
}

func AnyBooleanProperty() Selector {
	return Selector{Scope: ScopeAnyProperty, Domain: DomainBoolean}
}

// ParseSelector reads the textual form used by the CLI: "any", "anyProperty",
// "anyString", "anyNumber", "anyDate", "anyBoolean", or "<domain>:<CODE>"
// with domain one of property, string, number, date, boolean, vocabulary.
func ParseSelector(s string) (Selector, bool) {
	switch s {
	case "any", "anyField":
		return AnyField(), true
	case "anyProperty":
		return AnyProperty(), true
	case "anyString":
		return AnyStringProperty(), true
	case "anyNumber":
		return AnyNumberProperty(), true
	case "anyDate":
		return AnyDateProperty(), true
	case "anyBoolean":
		return AnyBooleanProperty(), true
	}
	kind, code, ok := strings.Cut(s, ":")
	if !ok || code == "" {
		return Selector{}, false
	}
	switch kind {
	case "property":
		return Property(code), true
	case "string":
		return StringProperty(code), true
	case "number":
		return NumberProperty(code), true
	case "date":
		return DateProperty(code), true
	case "boolean":
		return BooleanProperty(code), true
	case "vocabulary":
		return VocabularyProperty(code), true
	}
	return Selector{}, false
}

// CriterionName names the selector in error messages, e.g. "NumberProperty"
// or "AnyDateProperty".
func (s Selector) CriterionName() string {
	switch s.Scope {
	case ScopeAnyField:
		return "AnyField"
	case ScopeAnyProperty:
		return "Any" + string(s.Domain) + "Property"
	}
	return string(s.Domain) + "Property"
}

func (s Selector) String() string {
	if s.Scope == ScopeProperty {
		return s.CriterionName() + "(" + s.Code + ")"
	}
	return s.CriterionName()
}

// DataTypes returns the data types the selector applies to; nil means all.
func (s Selector) DataTypes() []metadata.DataType {
	switch s.Domain {
	case DomainString:
		if s.Scope == ScopeAnyProperty {
			return anyStringTypes
		}
		return stringTypes
	case DomainNumber:
		return numberTypes
	case DomainDate:
		return dateTypes
	case DomainBoolean:
		return booleanTypes
	case DomainVocabulary:
		return vocabularyTypes
	}
	return nil
}

// Accepts reports whether a property of type dt is within the selector's domain.
func (s Selector) Accepts(dt metadata.DataType) bool {
	types := s.DataTypes()
	return types == nil || slices.Contains(types, dt)
}

// Operators returns the operators the selector's domain supports.
func (s Selector) Operators() []Operator {
	switch s.Domain {
	case DomainNumber, DomainDate:
		return orderingOperators
	case DomainBoolean, DomainVocabulary:
		return equalityOperators
	}
	return allOperators
}

// Supports reports whether op is valid for the selector's domain.
func (s Selector) Supports(op Operator) bool {
	return slices.Contains(s.Operators(), op)
}
