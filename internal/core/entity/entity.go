// Package entity provides the searchable entity model.
package entity

import (
	"time"

	"metaprops/internal/core/id"
	"metaprops/internal/metadata"
)

// Entity is a typed record (sample, experiment, data set) with declared
// attributes and a property map.
type Entity struct {
	// ID is the primary key (UUIDv7)
	ID id.ID `db:"id" json:"id" search:"-"`

	Code             string              `db:"code" json:"code"`
	PermID           string              `db:"perm_id" json:"permId"`
	EntityType       string              `db:"entity_type" json:"type"`
	Kind             metadata.EntityKind `db:"kind" json:"kind"`
	RegistrationDate time.Time           `db:"registration_date" json:"registrationDate"`

	// Version for optimistic locking (incremented on each update)
	Version int `db:"version" json:"version" search:"-"`

	// Properties stores property values (JSONB in PostgreSQL)
	Properties Properties `db:"properties" json:"properties,omitempty"`
}

// New creates an entity with a generated ID.
func New(code, entityType string, kind metadata.EntityKind) *Entity {
	return &Entity{
		ID:         id.New(),
		Code:       code,
		EntityType: entityType,
		Kind:       kind,
		Version:    1,
	}
}

// Attributes returns declared (non-property) fields rendered as text.
func (e *Entity) Attributes() []metadata.Attribute {
	return metadata.InspectAttributes(e)
}

// Property returns the value of a property code.
func (e *Entity) Property(code string) (PropertyValue, bool) {
	return e.Properties.Get(code)
}
