package assignment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metaprops/internal/core/apperror"
	"metaprops/internal/core/entity"
	"metaprops/internal/core/id"
	"metaprops/internal/core/temporal"
	"metaprops/internal/domain/constraint"
	"metaprops/internal/domain/property"
	"metaprops/internal/infrastructure/storage/memory"
	"metaprops/internal/metadata"
)

type compileCall struct {
	patternType metadata.PatternType
	failed      bool
}

type recorder struct {
	mu       sync.Mutex
	compiles []compileCall
}

func (r *recorder) ConstraintCompiled(pt metadata.PatternType, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.compiles = append(r.compiles, compileCall{patternType: pt, failed: err != nil})
}
func (r *recorder) ValueValidated(metadata.DataType, error) {}
func (r *recorder) SearchEvaluated(int, error)              {}

func newService(store *memory.Store, rec *recorder) *Service {
	return NewService(ServiceConfig{
		Repo:      store,
		Values:    store,
		Entities:  store,
		Compiler:  constraint.NewCompiler(16),
		Validator: constraint.NewValidator(temporal.New(time.UTC)),
		Metrics:   rec,
	})
}

func sizeAssignment() metadata.PropertyAssignment {
	return metadata.PropertyAssignment{
		EntityType:   "CELL",
		PropertyType: metadata.PropertyType{Code: "SIZE", DataType: metadata.DataTypeInteger},
	}
}

func TestCreate_AssignsIDAndStores(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(nil)
	rec := &recorder{}
	svc := newService(store, rec)

	a := sizeAssignment()
	a.PatternType = metadata.PatternTypeRanges
	a.Pattern = "1-10"
	a.InitialValue = "5"

	created, err := svc.Create(ctx, a)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, created.ID)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "1-10", got.Pattern)

	list, err := svc.List(ctx, "CELL")
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, []compileCall{{patternType: metadata.PatternTypeRanges}}, rec.compiles)
}

func TestCreate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*metadata.PropertyAssignment)
		code   string
		msg    string
	}{
		{
			name: "initial value outside range",
			modify: func(a *metadata.PropertyAssignment) {
				a.PatternType, a.Pattern, a.InitialValue = metadata.PatternTypeRanges, "1-10", "11"
			},
			code: apperror.CodePatternMismatch,
			msg:  "New pattern does not match default value!",
		},
		{
			name: "constraint on boolean",
			modify: func(a *metadata.PropertyAssignment) {
				a.PropertyType.DataType = metadata.DataTypeBoolean
				a.PatternType, a.Pattern = metadata.PatternTypePattern, "true"
			},
			code: apperror.CodeUnsupportedDataType,
			msg:  "Pattern validation can not be assigned for property of data type: BOOLEAN",
		},
		{
			name: "malformed ranges",
			modify: func(a *metadata.PropertyAssignment) {
				a.PatternType, a.Pattern = metadata.PatternTypeRanges, "1-"
			},
			code: apperror.CodeMalformedConstraintSpec,
		},
		{
			name:   "missing entity type",
			modify: func(a *metadata.PropertyAssignment) { a.EntityType = "" },
			code:   apperror.CodeValidation,
		},
		{
			name:   "unknown data type",
			modify: func(a *metadata.PropertyAssignment) { a.PropertyType.DataType = "BLOB" },
			code:   apperror.CodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewStore(nil)
			svc := newService(store, &recorder{})

			a := sizeAssignment()
			tt.modify(&a)
			_, err := svc.Create(context.Background(), a)
			require.Error(t, err)
			assert.True(t, apperror.IsCode(err, tt.code), "got %v", err)
			if tt.msg != "" {
				appErr, _ := apperror.AsAppError(err)
				assert.Equal(t, tt.msg, appErr.Message)
			}

			list, _ := store.ListAssignments(context.Background(), "CELL")
			assert.Empty(t, list)
		})
	}
}

func seedValues(t *testing.T, store *memory.Store, values ...string) {
	t.Helper()
	for _, v := range values {
		e := entity.New("C-"+v, "CELL", metadata.KindSample)
		e.Properties.Set("SIZE", entity.Single(metadata.DataTypeInteger, v))
		require.NoError(t, store.SaveEntity(context.Background(), e))
	}
}

func TestUpdate_RetroactiveCheck(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(nil)
	svc := newService(store, &recorder{})

	created, err := svc.Create(ctx, sizeAssignment())
	require.NoError(t, err)
	seedValues(t, store, "3", "8", "12")

	next := created
	next.PatternType = metadata.PatternTypeRanges
	next.Pattern = "1-10"
	_, err = svc.Update(ctx, next)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeRetroactiveMismatch))
	assert.Contains(t, err.Error(), "Existing property '12' does not match the new pattern!")

	current, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, current.HasConstraint(), "rejected update must not be stored")

	next.Pattern = "1-10, 11-20"
	updated, err := svc.Update(ctx, next)
	require.NoError(t, err)
	assert.Equal(t, "1-10, 11-20", updated.Pattern)

	current, err = svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, metadata.PatternTypeRanges, current.PatternType)
}

func TestUpdate_KeepsImmutableFields(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(nil)
	svc := newService(store, &recorder{})

	created, err := svc.Create(ctx, sizeAssignment())
	require.NoError(t, err)

	next := created
	next.EntityType = "OTHER"
	next.Mandatory = true
	next.InitialValue = "4"
	updated, err := svc.Update(ctx, next)
	require.NoError(t, err)
	assert.Equal(t, "CELL", updated.EntityType)
	assert.True(t, updated.Mandatory)
}

func TestUpdate_DefaultValueChecked(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(nil)
	svc := newService(store, &recorder{})

	created, err := svc.Create(ctx, sizeAssignment())
	require.NoError(t, err)

	next := created
	next.PatternType = metadata.PatternTypeValues
	next.Pattern = `"1", "2"`
	next.InitialValue = "3"
	_, err = svc.Update(ctx, next)
	assert.ErrorContains(t, err, "New pattern does not match default value!")
}

func TestUpdate_NotFound(t *testing.T) {
	svc := newService(memory.NewStore(nil), &recorder{})
	a := sizeAssignment()

	_, err := svc.Update(context.Background(), a)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	a.ID = id.New()
	_, err = svc.Update(context.Background(), a)
	assert.True(t, apperror.IsNotFound(err))
}

func saveCell(t *testing.T, store *memory.Store, code string, props entity.Properties) *entity.Entity {
	t.Helper()
	e := entity.New(code, "CELL", metadata.KindSample)
	e.Properties = props
	require.NoError(t, store.SaveEntity(context.Background(), e))
	return e
}

func TestCreate_MandatoryAppliesInitialValue(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(nil)
	svc := newService(store, &recorder{})

	name := metadata.PropertyAssignment{
		EntityType:   "CELL",
		PropertyType: metadata.PropertyType{Code: "NAME", DataType: metadata.DataTypeVarchar},
	}
	_, err := svc.Create(ctx, name)
	require.NoError(t, err)

	bare := saveCell(t, store, "E1", entity.Properties{"NAME": entity.Single(metadata.DataTypeVarchar, "x")})
	sized := saveCell(t, store, "E2", entity.Properties{"SIZE": entity.Single(metadata.DataTypeInteger, "7")})

	a := sizeAssignment()
	a.Mandatory = true
	a.PatternType, a.Pattern, a.InitialValue = metadata.PatternTypeRanges, "1-10", "+5"
	_, err = svc.Create(ctx, a)
	require.NoError(t, err)

	got, err := store.GetEntity(ctx, bare.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.Single(metadata.DataTypeInteger, "5"), got.Properties["SIZE"])
	assert.Equal(t, 2, got.Version)

	got, err = store.GetEntity(ctx, sized.ID)
	require.NoError(t, err)
	assert.Equal(t, "7", got.Properties["SIZE"].First())
	assert.Equal(t, 1, got.Version)

	properties := property.NewService(property.ServiceConfig{
		Assignments: store,
		Entities:    store,
		Compiler:    constraint.NewCompiler(16),
		Validator:   constraint.NewValidator(temporal.New(time.UTC)),
	})
	updated, err := properties.Update(ctx, bare.ID, entity.Properties{"NAME": entity.Single("", "y")})
	require.NoError(t, err)
	assert.Equal(t, "5", updated.Properties["SIZE"].First())
	assert.Equal(t, "y", updated.Properties["NAME"].First())
}

func TestCreate_MandatoryWithoutInitialValue(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(nil)
	svc := newService(store, &recorder{})
	e := saveCell(t, store, "E1", nil)

	a := sizeAssignment()
	a.Mandatory = true
	_, err := svc.Create(ctx, a)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeMandatoryPropertyMissing))
	assert.ErrorContains(t, err, "Mandatory property 'SIZE' needs an initial value")

	list, err := svc.List(ctx, "CELL")
	require.NoError(t, err)
	assert.Empty(t, list)

	got, err := store.GetEntity(ctx, e.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Properties)
}

func TestCreate_MandatoryWithoutEntities(t *testing.T) {
	a := sizeAssignment()
	a.Mandatory = true
	_, err := newService(memory.NewStore(nil), &recorder{}).Create(context.Background(), a)
	assert.NoError(t, err)
}

func TestCreate_DuplicateProperty(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(nil)
	svc := newService(store, &recorder{})

	_, err := svc.Create(ctx, sizeAssignment())
	require.NoError(t, err)
	seedValues(t, store, "12")

	again := sizeAssignment()
	again.PatternType, again.Pattern = metadata.PatternTypeRanges, "1-10"
	_, err = svc.Create(ctx, again)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeConflict))
	assert.ErrorContains(t, err, "Property type 'SIZE' is already assigned to entity type 'CELL'.")

	list, err := svc.List(ctx, "CELL")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].HasConstraint())
}

func TestUpdate_BecomingMandatoryAppliesInitialValue(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(nil)
	svc := newService(store, &recorder{})

	created, err := svc.Create(ctx, sizeAssignment())
	require.NoError(t, err)
	e := saveCell(t, store, "E1", nil)

	next := created
	next.Mandatory = true
	_, err = svc.Update(ctx, next)
	assert.True(t, apperror.IsCode(err, apperror.CodeMandatoryPropertyMissing))

	next.InitialValue = "3"
	_, err = svc.Update(ctx, next)
	require.NoError(t, err)

	got, err := store.GetEntity(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "3", got.Properties["SIZE"].First())
}

func TestCreate_DataTypeOfExistingPropertyType(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(nil)
	svc := newService(store, &recorder{})

	_, err := svc.Create(ctx, sizeAssignment())
	require.NoError(t, err)

	other := sizeAssignment()
	other.EntityType = "PLATE"
	other.PropertyType.DataType = metadata.DataTypeVarchar
	other.PatternType, other.Pattern = metadata.PatternTypePattern, "[a-z]+"
	_, err = svc.Create(ctx, other)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	list, err := svc.List(ctx, "PLATE")
	require.NoError(t, err)
	assert.Empty(t, list)
}
