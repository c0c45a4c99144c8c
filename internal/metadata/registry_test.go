package metadata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metaprops/internal/core/id"
)

func TestRegistry_PropertyTypes(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterPropertyType(PropertyType{Code: "SIZE", DataType: DataTypeInteger}))
	assert.Error(t, r.RegisterPropertyType(PropertyType{Code: "BAD", DataType: "FLOAT"}))
	assert.Error(t, r.RegisterPropertyType(PropertyType{DataType: DataTypeInteger}))

	dt, ok := r.DataTypeOf("SIZE")
	assert.True(t, ok)
	assert.Equal(t, DataTypeInteger, dt)

	pt, _ := r.PropertyType("SIZE")
	assert.False(t, id.IsNil(pt.ID))

	_, ok = r.DataTypeOf("MISSING")
	assert.False(t, ok)
}

func TestRegistry_Assignments(t *testing.T) {
	r := NewRegistry()
	a := PropertyAssignment{
		ID:           id.New(),
		EntityType:   "CELL",
		PropertyType: PropertyType{Code: "SIZE", DataType: DataTypeInteger},
		PatternType:  PatternTypeRanges,
		Pattern:      "1-10",
	}
	r.PutAssignment(a)

	a.Pattern = "1-20"
	r.PutAssignment(a)

	def, ok := r.EntityType("CELL")
	require.True(t, ok)
	require.Len(t, def.Assignments, 1)
	assert.Equal(t, "1-20", def.Assignments[0].Pattern)

	got, ok := r.FindAssignment(a.ID)
	assert.True(t, ok)
	assert.True(t, got.HasConstraint())

	byCode, ok := def.Assignment("SIZE")
	assert.True(t, ok)
	assert.Equal(t, a.ID, byCode.ID)

	r.RegisterEntityType(EntityTypeDef{Code: "ANIMAL"})
	list := r.ListEntityTypes()
	require.Len(t, list, 2)
	assert.Equal(t, "ANIMAL", list[0].Code)
}

type inspected struct {
	Code       string            `json:"code"`
	PermID     string            `json:"permId"`
	Registered time.Time         `json:"registrationDate"`
	Frozen     bool              `json:"frozen"`
	Secret     string            `json:"-"`
	Hidden     string            `json:"hidden" search:"-"`
	Properties map[string]string `json:"properties"`
	Ref        id.ID             `json:"ref"`
	Empty      string
}

func TestInspectAttributes(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	ref := id.New()
	attrs := InspectAttributes(&inspected{
		Code:       "S1",
		PermID:     "20200215-1",
		Registered: time.Date(2020, 2, 15, 10, 0, 1, 0, loc),
		Secret:     "x",
		Hidden:     "y",
		Properties: map[string]string{"A": "B"},
		Ref:        ref,
	})

	got := map[string]string{}
	for _, a := range attrs {
		got[a.Name] = a.Value
	}
	assert.Equal(t, map[string]string{
		"code":             "S1",
		"permId":           "20200215-1",
		"registrationDate": "2020-02-15 10:00:01 +0100",
		"frozen":           "false",
		"ref":              ref.String(),
	}, got)

	assert.Nil(t, InspectAttributes(nil))
	assert.Nil(t, InspectAttributes("scalar"))
}
