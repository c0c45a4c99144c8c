package metadata

import (
	"fmt"
	"slices"
	"sync"

	"metaprops/internal/core/apperror"
	"metaprops/internal/core/id"
)

// EntityKind is the category of an entity type.
type EntityKind string

const (
	KindSample     EntityKind = "SAMPLE"
	KindExperiment EntityKind = "EXPERIMENT"
	KindDataSet    EntityKind = "DATA_SET"
	KindMaterial   EntityKind = "MATERIAL"
)

// PatternType selects the constraint DSL of an assignment.
type PatternType string

const (
	PatternTypeNone    PatternType = ""
	PatternTypePattern PatternType = "PATTERN"
	PatternTypeRanges  PatternType = "RANGES"
	PatternTypeValues  PatternType = "VALUES"
)

// PropertyType is a globally defined, typed property.
type PropertyType struct {
	ID       id.ID    `json:"id" yaml:"-" db:"id"`
	Code     string   `json:"code" yaml:"code" db:"code"`
	Label    string   `json:"label,omitempty" yaml:"label" db:"label"`
	DataType DataType `json:"dataType" yaml:"dataType" db:"data_type"`
}

// PropertyAssignment binds a property type to an entity type, optionally
// with a constraint.
type PropertyAssignment struct {
	ID           id.ID        `json:"id" db:"id"`
	EntityType   string       `json:"entityType" db:"entity_type"`
	PropertyType PropertyType `json:"propertyType" db:"-"`
	Mandatory    bool         `json:"mandatory" db:"mandatory"`
	PatternType  PatternType  `json:"patternType,omitempty" db:"pattern_type"`
	Pattern      string       `json:"pattern,omitempty" db:"pattern"`
	// InitialValue is applied to existing entities when a mandatory
	// assignment is added; it must satisfy the constraint.
	InitialValue string `json:"initialValue,omitempty" db:"initial_value"`
	Ordinal      int    `json:"ordinal" db:"ordinal"`
}

// HasConstraint reports whether a constraint is attached.
func (a PropertyAssignment) HasConstraint() bool {
	return a.PatternType != PatternTypeNone
}

// EntityTypeDef describes an entity type and its assigned properties.
type EntityTypeDef struct {
	Code        string               `json:"code"`
	Kind        EntityKind           `json:"kind"`
	Description string               `json:"description,omitempty"`
	Assignments []PropertyAssignment `json:"assignments"`
}

// Assignment returns the assignment of a property code.
func (d EntityTypeDef) Assignment(code string) (PropertyAssignment, bool) {
	for _, a := range d.Assignments {
		if a.PropertyType.Code == code {
			return a, true
		}
	}
	return PropertyAssignment{}, false
}

// Registry stores property types and entity type definitions.
// It is safe for concurrent use.
type Registry struct {
	mu            sync.RWMutex
	propertyTypes map[string]PropertyType
	entityTypes   map[string]EntityTypeDef
}

func NewRegistry() *Registry {
	return &Registry{
		propertyTypes: make(map[string]PropertyType),
		entityTypes:   make(map[string]EntityTypeDef),
	}
}

// RegisterPropertyType adds or replaces a property type.
func (r *Registry) RegisterPropertyType(pt PropertyType) error {
	if pt.Code == "" {
		return apperror.NewValidation("Property type code is required")
	}
	if !pt.DataType.Valid() {
		return apperror.NewValidation("Unknown data type: " + string(pt.DataType)).
			WithDetail("property_type", pt.Code)
	}
	if id.IsNil(pt.ID) {
		pt.ID = id.New()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.propertyTypes[pt.Code] = pt
	return nil
}

// NewDataTypeConflict reports a property code reused with another data type.
// The data type of a property type never changes once stored.
func NewDataTypeConflict(code string, stored, requested DataType) error {
	return apperror.NewValidation(fmt.Sprintf("Property type '%s' is of data type %s, not %s", code, stored, requested)).
		WithDetail("property_type", code).
		WithDetail("data_type", string(stored))
}

// PropertyType looks up a property type by code.
func (r *Registry) PropertyType(code string) (PropertyType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pt, ok := r.propertyTypes[code]
	return pt, ok
}

// DataTypeOf resolves the declared data type of a property code.
func (r *Registry) DataTypeOf(code string) (DataType, bool) {
	pt, ok := r.PropertyType(code)
	return pt.DataType, ok
}

// RegisterEntityType adds or replaces an entity type definition.
func (r *Registry) RegisterEntityType(def EntityTypeDef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entityTypes[def.Code] = def
}

// EntityType looks up an entity type by code.
func (r *Registry) EntityType(code string) (EntityTypeDef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.entityTypes[code]
	return d, ok
}

// PutAssignment inserts or replaces an assignment on its entity type,
// creating the entity type on first use.
func (r *Registry) PutAssignment(a PropertyAssignment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	def, ok := r.entityTypes[a.EntityType]
	if !ok {
		def = EntityTypeDef{Code: a.EntityType}
	}
	assignments := slices.Clone(def.Assignments)
	idx := slices.IndexFunc(assignments, func(x PropertyAssignment) bool { return x.ID == a.ID })
	if idx >= 0 {
		assignments[idx] = a
	} else {
		assignments = append(assignments, a)
	}
	def.Assignments = assignments
	r.entityTypes[a.EntityType] = def
}

// FindAssignment looks up an assignment by ID across entity types.
func (r *Registry) FindAssignment(assignmentID id.ID) (PropertyAssignment, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, def := range r.entityTypes {
		for _, a := range def.Assignments {
			if a.ID == assignmentID {
				return a, true
			}
		}
	}
	return PropertyAssignment{}, false
}

// ListEntityTypes returns all definitions ordered by code.
func (r *Registry) ListEntityTypes() []EntityTypeDef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]EntityTypeDef, 0, len(r.entityTypes))
	for _, def := range r.entityTypes {
		list = append(list, def)
	}
	slices.SortFunc(list, func(a, b EntityTypeDef) int {
		if a.Code < b.Code {
			return -1
		}
		if a.Code > b.Code {
			return 1
		}
		return 0
	})
	return list
}
