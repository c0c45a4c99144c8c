package constraint

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metaprops/internal/core/apperror"
	"metaprops/internal/core/temporal"
	"metaprops/internal/metadata"
)

func newValidator() *Validator {
	return NewValidator(temporal.New(time.FixedZone("CET", 3600)))
}

func mustCompile(t *testing.T, dt metadata.DataType, pt metadata.PatternType, spec string) *Constraint {
	t.Helper()
	c, err := Compile(dt, pt, spec)
	require.NoError(t, err)
	return c
}

func TestValidate_Table(t *testing.T) {
	v := newValidator()

	tests := []struct {
		name     string
		dataType metadata.DataType
		pattern  metadata.PatternType
		spec     string
		value    string
		accept   bool
	}{
		{"integer in range", metadata.DataTypeInteger, metadata.PatternTypeRanges, "1-10", "5", true},
		{"integer out of range", metadata.DataTypeInteger, metadata.PatternTypeRanges, "1-10", "11", false},
		{"reversed range", metadata.DataTypeInteger, metadata.PatternTypeRanges, "100-10", "50", true},
		{"real numeric compare", metadata.DataTypeReal, metadata.PatternTypeRanges, "1-5", "4.5000", true},
		{"real above range", metadata.DataTypeReal, metadata.PatternTypeRanges, "1-5", "5.5", false},
		{"real bound inclusive", metadata.DataTypeReal, metadata.PatternTypeRanges, "1-5", "5", true},
		{"negative range", metadata.DataTypeInteger, metadata.PatternTypeRanges, "(-5)-(-3)", "-4", true},
		{"varchar ranges", metadata.DataTypeVarchar, metadata.PatternTypeRanges, "1-5, 10-100, (-3)-(-5)", "-4", true},
		{"varchar ranges non number", metadata.DataTypeVarchar, metadata.PatternTypeRanges, "1-5", "abc", false},
		{"varchar pattern", metadata.DataTypeVarchar, metadata.PatternTypePattern, `[a-z]{3}\d`, "abc1", true},
		{"varchar pattern case", metadata.DataTypeVarchar, metadata.PatternTypePattern, `[a-z]{3}\d`, "Abc1", false},
		{"varchar pattern full match", metadata.DataTypeVarchar, metadata.PatternTypePattern, `[a-z]{3}\d`, "abc31", false},
		{"multiline pattern", metadata.DataTypeMultilineVarchar, metadata.PatternTypePattern, `(?s)line.*`, "line1\nline2", true},
		{"hyperlink pattern", metadata.DataTypeHyperlink, metadata.PatternTypePattern, `https://.*`, "https://example.org", true},
		{"real pattern canonical", metadata.DataTypeReal, metadata.PatternTypePattern, `[1-3]{3}\.0`, "123.00", true},
		{"integer pattern", metadata.DataTypeInteger, metadata.PatternTypePattern, `4\d`, "42", true},
		{"date pattern", metadata.DataTypeDate, metadata.PatternTypePattern, "2022.*", "2022-04-08", true},
		{"date pattern reject", metadata.DataTypeDate, metadata.PatternTypePattern, "2022.*", "2024-05-16", false},
		{"timestamp pattern normalized", metadata.DataTypeTimestamp, metadata.PatternTypePattern, `.*\+0100`, "2022-05-16 03:24:00 +0000", true},
		{"timestamp pattern prefix", metadata.DataTypeTimestamp, metadata.PatternTypePattern, "2022.*", "2022-05-16 04:22", true},
		{"values exact", metadata.DataTypeInteger, metadata.PatternTypeValues, `"2"`, "2", true},
		{"values reject", metadata.DataTypeInteger, metadata.PatternTypeValues, `"2"`, "3", false},
		{"values canonical real", metadata.DataTypeReal, metadata.PatternTypeValues, `"2.0", "3.5"`, "2", true},
		{"values case sensitive", metadata.DataTypeVarchar, metadata.PatternTypeValues, `"Alpha", "Beta"`, "alpha", false},
		{"values date canonical", metadata.DataTypeDate, metadata.PatternTypeValues, `"2022-04-08"`, "2022-04-08 10:00", true},
		{"values timestamp canonical", metadata.DataTypeTimestamp, metadata.PatternTypeValues, `"2022-05-16 04:22:00"`, "2022-05-16 03:22:00 +0000", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := mustCompile(t, tt.dataType, tt.pattern, tt.spec)
			_, err := v.Validate(c, tt.dataType, tt.value)
			if tt.accept {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperror.IsCode(err, apperror.CodePatternMismatch), err.Error())
		})
	}
}

func TestValidate_Messages(t *testing.T) {
	v := newValidator()

	_, err := v.Validate(mustCompile(t, metadata.DataTypeInteger, metadata.PatternTypeRanges, "1-10"), metadata.DataTypeInteger, "11")
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "Value: '11' is not matching defined pattern!", appErr.Message)

	_, err = v.Validate(mustCompile(t, metadata.DataTypeTimestamp, metadata.PatternTypePattern, "2021.*"), metadata.DataTypeTimestamp, "2022-05-16 04:22")
	appErr, ok = apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "2022-05-16 04:22:00 +0100 is not matching defined pattern!", appErr.Message)
	assert.Equal(t, "2022-05-16 04:22", appErr.Details["value"])
}

func TestValidate_NoConstraintStillParses(t *testing.T) {
	v := newValidator()

	got, err := v.Validate(nil, metadata.DataTypeTimestamp, "2022-05-16")
	require.NoError(t, err)
	assert.Equal(t, "2022-05-16 00:00:00 +0100", got)

	got, err = v.Validate(nil, metadata.DataTypeBoolean, "TRUE")
	require.NoError(t, err)
	assert.Equal(t, "true", got)

	_, err = v.Validate(nil, metadata.DataTypeDate, "tomorrow")
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidTemporalLiteral))

	_, err = v.Validate(nil, metadata.DataTypeInteger, "1.5")
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidPropertyValue))

	_, err = v.Validate(nil, metadata.DataTypeBoolean, "yes")
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidPropertyValue))

	got, err = v.Validate(nil, metadata.DataTypeXML, "<a/>")
	require.NoError(t, err)
	assert.Equal(t, "<a/>", got)
}

func TestValidate_Idempotent(t *testing.T) {
	v := newValidator()
	cases := []struct {
		dt    metadata.DataType
		pt    metadata.PatternType
		spec  string
		value string
	}{
		{metadata.DataTypeReal, metadata.PatternTypeRanges, "1-5", "4.5000"},
		{metadata.DataTypeTimestamp, metadata.PatternTypePattern, "2022.*", "2022-05-16 04:22"},
		{metadata.DataTypeDate, metadata.PatternTypeValues, `"2022-04-08"`, "2022-04-08"},
		{metadata.DataTypeInteger, metadata.PatternTypeValues, `"7"`, "+7"},
	}
	for _, tc := range cases {
		c := mustCompile(t, tc.dt, tc.pt, tc.spec)
		first, err := v.Validate(c, tc.dt, tc.value)
		require.NoError(t, err)
		second, err := v.Validate(c, tc.dt, first)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	}
}

func TestValidateValues(t *testing.T) {
	v := newValidator()

	got, err := v.ValidateValues(nil, metadata.DataTypeArrayInteger, []string{"1", "+2", "03"})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, got)

	_, err = v.ValidateValues(nil, metadata.DataTypeArrayReal, []string{"1.5", "x"})
	assert.Error(t, err)

	_, err = v.ValidateValues(nil, metadata.DataTypeInteger, []string{"1", "2"})
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidPropertyValue))

	c := mustCompile(t, metadata.DataTypeInteger, metadata.PatternTypeRanges, "1-10")
	_, err = v.ValidateValues(c, metadata.DataTypeInteger, []string{"12"})
	assert.True(t, apperror.IsCode(err, apperror.CodePatternMismatch))
}

func streamOf(values ...string) ValueStream {
	return func(fn func(string) error) error {
		for _, v := range values {
			if err := fn(v); err != nil {
				return err
			}
		}
		return nil
	}
}

func TestCheckExisting(t *testing.T) {
	v := newValidator()
	c := mustCompile(t, metadata.DataTypeInteger, metadata.PatternTypeRanges, "1-10")

	assert.NoError(t, v.CheckExisting(c, metadata.DataTypeInteger, streamOf("1", "5", "10")))
	assert.NoError(t, v.CheckExisting(nil, metadata.DataTypeInteger, streamOf("100")))

	err := v.CheckExisting(c, metadata.DataTypeInteger, streamOf("3", "42", "99"))
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeRetroactiveMismatch))
	assert.Contains(t, err.Error(), "Existing property '42' does not match the new pattern!")

	boom := errors.New("connection reset")
	err = v.CheckExisting(c, metadata.DataTypeInteger, func(func(string) error) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestCheckDefault(t *testing.T) {
	v := newValidator()
	c := mustCompile(t, metadata.DataTypeVarchar, metadata.PatternTypeValues, `"a", "b"`)

	assert.NoError(t, v.CheckDefault(c, metadata.DataTypeVarchar, "a"))
	assert.NoError(t, v.CheckDefault(c, metadata.DataTypeVarchar, ""))
	assert.NoError(t, v.CheckDefault(nil, metadata.DataTypeVarchar, "zzz"))

	err := v.CheckDefault(c, metadata.DataTypeVarchar, "c")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "New pattern does not match default value!")
}
