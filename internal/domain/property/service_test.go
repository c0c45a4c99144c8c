package property

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metaprops/internal/core/apperror"
	"metaprops/internal/core/entity"
	"metaprops/internal/core/id"
	"metaprops/internal/core/temporal"
	"metaprops/internal/domain/constraint"
	"metaprops/internal/infrastructure/storage/memory"
	"metaprops/internal/metadata"
)

func assign(code string, dt metadata.DataType, pt metadata.PatternType, pattern string, mandatory bool) metadata.PropertyAssignment {
	return metadata.PropertyAssignment{
		ID:           id.New(),
		EntityType:   "CELL",
		PropertyType: metadata.PropertyType{Code: code, DataType: dt},
		PatternType:  pt,
		Pattern:      pattern,
		Mandatory:    mandatory,
	}
}

func setup(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore(nil)
	ctx := context.Background()
	for _, a := range []metadata.PropertyAssignment{
		assign("SIZE", metadata.DataTypeInteger, metadata.PatternTypeRanges, "1-10", true),
		assign("CODE", metadata.DataTypeVarchar, metadata.PatternTypePattern, `[a-z]{3}\d`, false),
		assign("DAY", metadata.DataTypeDate, metadata.PatternTypePattern, "2022.*", false),
		assign("SEEN", metadata.DataTypeTimestamp, metadata.PatternTypeNone, "", false),
		assign("TAGS", metadata.DataTypeArrayString, metadata.PatternTypeNone, "", false),
	} {
		require.NoError(t, store.SaveAssignment(ctx, a))
	}
	svc := NewService(ServiceConfig{
		Assignments: store,
		Entities:    store,
		Compiler:    constraint.NewCompiler(constraint.DefaultCacheSize),
		Validator:   constraint.NewValidator(temporal.New(time.FixedZone("CET", 3600))),
	})
	return svc, store
}

func cell(props map[string][]string) *entity.Entity {
	e := entity.New("C1", "CELL", metadata.KindSample)
	for code, values := range props {
		e.Properties.Set(code, entity.PropertyValue{Values: values})
	}
	return e
}

func TestValidateEntity_Canonicalizes(t *testing.T) {
	svc, _ := setup(t)
	e := cell(map[string][]string{
		"SIZE": {"+5"},
		"CODE": {"abc1"},
		"DAY":  {"2022-04-08"},
		"SEEN": {"2022-04-08 10:00:00"},
		"TAGS": {"a", "b"},
	})

	require.NoError(t, svc.ValidateEntity(context.Background(), e))
	assert.Equal(t, entity.Single(metadata.DataTypeInteger, "5"), e.Properties["SIZE"])
	assert.Equal(t, "2022-04-08 10:00:00 +0100", e.Properties["SEEN"].First())
	assert.Equal(t, []string{"a", "b"}, e.Properties["TAGS"].Values)
	assert.Equal(t, metadata.DataTypeDate, e.Properties["DAY"].DataType)
}

func TestValidateEntity_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		props map[string][]string
		code  string
		msg   string
	}{
		{
			name:  "range",
			props: map[string][]string{"SIZE": {"11"}},
			code:  apperror.CodePatternMismatch,
			msg:   "Value: '11' is not matching defined pattern!",
		},
		{
			name:  "pattern",
			props: map[string][]string{"SIZE": {"5"}, "CODE": {"Abc1"}},
			code:  apperror.CodePatternMismatch,
			msg:   "Value: 'Abc1' is not matching defined pattern!",
		},
		{
			name:  "date pattern",
			props: map[string][]string{"SIZE": {"5"}, "DAY": {"2024-05-16"}},
			code:  apperror.CodePatternMismatch,
		},
		{
			name:  "not an integer",
			props: map[string][]string{"SIZE": {"five"}},
			code:  apperror.CodeInvalidPropertyValue,
		},
		{
			name:  "unassigned",
			props: map[string][]string{"SIZE": {"5"}, "COLOR": {"red"}},
			code:  apperror.CodeUnassignedPropertyType,
			msg:   "Property type 'COLOR' is not assigned to entity type 'CELL'",
		},
		{
			name:  "mandatory missing",
			props: map[string][]string{"CODE": {"abc1"}},
			code:  apperror.CodeMandatoryPropertyMissing,
		},
		{
			name:  "mandatory emptied",
			props: map[string][]string{"SIZE": {}},
			code:  apperror.CodeMandatoryPropertyMissing,
		},
		{
			name:  "several values on single-valued type",
			props: map[string][]string{"SIZE": {"1", "2"}},
			code:  apperror.CodeInvalidPropertyValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := setup(t)
			err := svc.ValidateEntity(context.Background(), cell(tt.props))
			require.Error(t, err)
			assert.True(t, apperror.IsCode(err, tt.code), "got %v", err)
			if tt.msg != "" {
				appErr, _ := apperror.AsAppError(err)
				assert.Equal(t, tt.msg, appErr.Message)
			}
		})
	}
}

func TestValidateEntity_DataTypeMismatch(t *testing.T) {
	svc, _ := setup(t)
	e := entity.New("C1", "CELL", metadata.KindSample)
	e.Properties.Set("SIZE", entity.Single(metadata.DataTypeReal, "5"))

	err := svc.ValidateEntity(context.Background(), e)
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidPropertyValue))
}

func TestCreateAndUpdate(t *testing.T) {
	ctx := context.Background()
	svc, store := setup(t)

	created, err := svc.Create(ctx, cell(map[string][]string{"SIZE": {"5"}}))
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, entity.Properties{
		"CODE": {Values: []string{"xyz9"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, "5", updated.Properties["SIZE"].First())
	assert.Equal(t, "xyz9", updated.Properties["CODE"].First())

	_, err = svc.Update(ctx, created.ID, entity.Properties{"SIZE": {Values: []string{"42"}}})
	assert.True(t, apperror.IsCode(err, apperror.CodePatternMismatch))

	stored, err := store.GetEntity(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "5", stored.Properties["SIZE"].First())
	assert.Equal(t, 2, stored.Version)

	_, err = svc.Update(ctx, id.New(), nil)
	assert.True(t, apperror.IsNotFound(err))
}

func TestImport(t *testing.T) {
	svc, store := setup(t)
	ctx := context.Background()

	good := cell(map[string][]string{"SIZE": {"3"}})
	bad := cell(map[string][]string{"SIZE": {"30"}})
	bad.Code = "C2"

	_, err := svc.Import(ctx, []*entity.Entity{good, bad})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodePatternMismatch))
	assert.Contains(t, err.Error(), "entity C2")

	stored, err := store.ListEntities(ctx, "CELL")
	require.NoError(t, err)
	assert.Empty(t, stored, "nothing is written when one entity fails")

	bad.Properties.Set("SIZE", entity.PropertyValue{Values: []string{"+7"}})
	n, err := svc.Import(ctx, []*entity.Entity{good, bad})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	stored, err = store.ListEntities(ctx, "CELL")
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "7", stored[1].Properties["SIZE"].First())
}
