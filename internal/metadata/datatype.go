package metadata

import (
	"slices"
	"strings"

	"metaprops/internal/core/apperror"
)

// DataType is the declared type of a property.
type DataType string

const (
	DataTypeVarchar              DataType = "VARCHAR"
	DataTypeMultilineVarchar     DataType = "MULTILINE_VARCHAR"
	DataTypeBoolean              DataType = "BOOLEAN"
	DataTypeInteger              DataType = "INTEGER"
	DataTypeReal                 DataType = "REAL"
	DataTypeDate                 DataType = "DATE"
	DataTypeTimestamp            DataType = "TIMESTAMP"
	DataTypeHyperlink            DataType = "HYPERLINK"
	DataTypeControlledVocabulary DataType = "CONTROLLEDVOCABULARY"
	DataTypeMaterial             DataType = "MATERIAL"
	DataTypeSample               DataType = "SAMPLE"
	DataTypeXML                  DataType = "XML"
	DataTypeJSON                 DataType = "JSON"
	DataTypeArrayString          DataType = "ARRAY_STRING"
	DataTypeArrayInteger         DataType = "ARRAY_INTEGER"
	DataTypeArrayReal            DataType = "ARRAY_REAL"
	DataTypeArrayTimestamp       DataType = "ARRAY_TIMESTAMP"
)

// Domain is the comparison domain of a data type.
type Domain string

const (
	DomainString    Domain = "string"
	DomainInteger   Domain = "integer"
	DomainReal      Domain = "real"
	DomainDate      Domain = "date"
	DomainTimestamp Domain = "timestamp"
	DomainBoolean   Domain = "boolean"
)

type dataTypeTraits struct {
	domain      Domain
	constraints bool
	multiValue  bool
}

var traitsByDataType = map[DataType]dataTypeTraits{
	DataTypeVarchar:              {domain: DomainString, constraints: true},
	DataTypeMultilineVarchar:     {domain: DomainString, constraints: true},
	DataTypeBoolean:              {domain: DomainBoolean},
	DataTypeInteger:              {domain: DomainInteger, constraints: true},
	DataTypeReal:                 {domain: DomainReal, constraints: true},
	DataTypeDate:                 {domain: DomainDate, constraints: true},
	DataTypeTimestamp:            {domain: DomainTimestamp, constraints: true},
	DataTypeHyperlink:            {domain: DomainString, constraints: true},
	DataTypeControlledVocabulary: {domain: DomainString},
	DataTypeMaterial:             {domain: DomainString},
	DataTypeSample:               {domain: DomainString},
	DataTypeXML:                  {domain: DomainString},
	DataTypeJSON:                 {domain: DomainString},
	DataTypeArrayString:          {domain: DomainString, multiValue: true},
	DataTypeArrayInteger:         {domain: DomainInteger, multiValue: true},
	DataTypeArrayReal:            {domain: DomainReal, multiValue: true},
	DataTypeArrayTimestamp:       {domain: DomainTimestamp, multiValue: true},
}

// ParseDataType resolves a data type name case-insensitively.
func ParseDataType(s string) (DataType, error) {
	dt := DataType(strings.ToUpper(strings.TrimSpace(s)))
	if !dt.Valid() {
		return "", apperror.NewValidation("Unknown data type: " + s).WithDetail("data_type", s)
	}
	return dt, nil
}

// AllDataTypes returns every data type in name order.
func AllDataTypes() []DataType {
	out := make([]DataType, 0, len(traitsByDataType))
	for dt := range traitsByDataType {
		out = append(out, dt)
	}
	slices.Sort(out)
	return out
}

func (dt DataType) String() string { return string(dt) }

// Valid reports whether dt is a known data type.
func (dt DataType) Valid() bool {
	_, ok := traitsByDataType[dt]
	return ok
}

// Domain returns the comparison domain. Multi-value types report their element domain.
func (dt DataType) Domain() Domain {
	return traitsByDataType[dt].domain
}

// AcceptsConstraints reports whether PATTERN, RANGES or VALUES may be attached.
func (dt DataType) AcceptsConstraints() bool {
	return traitsByDataType[dt].constraints
}

// IsMultiValue reports whether a property of this type holds an ordered list.
func (dt DataType) IsMultiValue() bool {
	return traitsByDataType[dt].multiValue
}

// IsNumeric reports integer or real domain.
func (dt DataType) IsNumeric() bool {
	d := dt.Domain()
	return d == DomainInteger || d == DomainReal
}

// IsTemporal reports date or timestamp domain.
func (dt DataType) IsTemporal() bool {
	d := dt.Domain()
	return d == DomainDate || d == DomainTimestamp
}
