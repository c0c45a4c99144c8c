package entity

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"metaprops/internal/metadata"
)

// PropertyValue is the stored, canonical form of one property.
// Single-valued types hold exactly one element.
type PropertyValue struct {
	DataType metadata.DataType `json:"dataType"`
	Values   []string          `json:"values"`
}

// Single builds a single-valued property.
func Single(dt metadata.DataType, v string) PropertyValue {
	return PropertyValue{DataType: dt, Values: []string{v}}
}

// Multi builds a multi-valued property.
func Multi(dt metadata.DataType, vs ...string) PropertyValue {
	return PropertyValue{DataType: dt, Values: slices.Clone(vs)}
}

// First returns the first element or "".
func (p PropertyValue) First() string {
	if len(p.Values) == 0 {
		return ""
	}
	return p.Values[0]
}

// Properties maps property codes to values.
// Implements sql.Scanner and driver.Valuer for PostgreSQL JSONB mapping.
type Properties map[string]PropertyValue

// Scan implements sql.Scanner for reading from PostgreSQL JSONB.
func (p *Properties) Scan(src any) error {
	if src == nil {
		*p = nil
		return nil
	}

	var source []byte
	switch v := src.(type) {
	case []byte:
		source = v
	case string:
		source = []byte(v)
	default:
		return fmt.Errorf("unsupported type for Properties: %T", src)
	}

	if len(bytes.TrimSpace(source)) == 0 {
		*p = nil
		return nil
	}

	var result map[string]PropertyValue
	if err := json.Unmarshal(source, &result); err != nil {
		return fmt.Errorf("decode properties: %w", err)
	}

	*p = result
	return nil
}

// Value implements driver.Valuer for writing to PostgreSQL JSONB. A nil
// map is stored as an empty object; the column is NOT NULL.
func (p Properties) Value() (driver.Value, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p)
}

// Get returns a property value.
func (p Properties) Get(code string) (PropertyValue, bool) {
	if p == nil {
		return PropertyValue{}, false
	}
	v, ok := p[code]
	return v, ok
}

// Set adds or replaces a value. Returns self for chaining.
func (p *Properties) Set(code string, v PropertyValue) Properties {
	if *p == nil {
		*p = make(Properties)
	}
	(*p)[code] = v
	return *p
}

// Codes returns property codes in sorted order, giving wildcard scans a
// deterministic order.
func (p Properties) Codes() []string {
	return slices.Sorted(maps.Keys(p))
}

// Clone creates a copy with independent value slices.
func (p Properties) Clone() Properties {
	if p == nil {
		return nil
	}
	result := make(Properties, len(p))
	for k, v := range p {
		result[k] = PropertyValue{DataType: v.DataType, Values: slices.Clone(v.Values)}
	}
	return result
}
