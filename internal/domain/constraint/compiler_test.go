package constraint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metaprops/internal/core/apperror"
	"metaprops/internal/core/types"
	"metaprops/internal/metadata"
)

func TestCompile_PatternAcrossDataTypes(t *testing.T) {
	for _, dt := range metadata.AllDataTypes() {
		t.Run(string(dt), func(t *testing.T) {
			c, err := Compile(dt, metadata.PatternTypePattern, ".*")
			if dt.AcceptsConstraints() {
				require.NoError(t, err)
				assert.Equal(t, metadata.PatternTypePattern, c.Kind())
				return
			}
			require.Error(t, err)
			assert.True(t, apperror.IsCode(err, apperror.CodeUnsupportedDataType))
			assert.Contains(t, err.Error(), "Pattern validation can not be assigned for property of data type: "+string(dt))
		})
	}
}

func TestCompile_NoConstraint(t *testing.T) {
	c, err := Compile(metadata.DataTypeBoolean, metadata.PatternTypeNone, "")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestCompile_Malformed(t *testing.T) {
	tests := []struct {
		name        string
		patternType metadata.PatternType
		spec        string
		wantInMsg   string
	}{
		{name: "bad regex", patternType: metadata.PatternTypePattern, spec: "[a-z", wantInMsg: "[a-z"},
		{name: "unknown type", patternType: "GLOB", spec: "*", wantInMsg: "Unknown pattern type specified!"},
		{name: "empty ranges", patternType: metadata.PatternTypeRanges, spec: ""},
		{name: "letter in range", patternType: metadata.PatternTypeRanges, spec: "1-x", wantInMsg: "1-x"},
		{name: "missing high", patternType: metadata.PatternTypeRanges, spec: "1-", wantInMsg: "1-"},
		{name: "bare negative", patternType: metadata.PatternTypeRanges, spec: "-5-3"},
		{name: "trailing dash", patternType: metadata.PatternTypeRanges, spec: "1-5-"},
		{name: "unbalanced bracket", patternType: metadata.PatternTypeRanges, spec: "[1-5", wantInMsg: "Unbalanced"},
		{name: "unterminated quote", patternType: metadata.PatternTypeValues, spec: `"a", "b`},
		{name: "missing comma", patternType: metadata.PatternTypeValues, spec: `"a" "b"`},
		{name: "unquoted", patternType: metadata.PatternTypeValues, spec: `a, b`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(metadata.DataTypeVarchar, tt.patternType, tt.spec)
			require.Error(t, err)
			assert.True(t, apperror.IsCode(err, apperror.CodeMalformedConstraintSpec), err.Error())
			if tt.wantInMsg != "" {
				assert.Contains(t, err.Error(), tt.wantInMsg)
			}
		})
	}
}

func TestCompile_Ranges(t *testing.T) {
	c, err := Compile(metadata.DataTypeInteger, metadata.PatternTypeRanges, "1-5, 100-10,(-5)-(-3), [ (-1)-2.5 ], (-3) - (-7)")
	require.NoError(t, err)

	want := []Interval{
		{Low: types.MustNumber("1"), High: types.MustNumber("5")},
		{Low: types.MustNumber("10"), High: types.MustNumber("100")},
		{Low: types.MustNumber("-5"), High: types.MustNumber("-3")},
		{Low: types.MustNumber("-1"), High: types.MustNumber("2.5")},
		{Low: types.MustNumber("-7"), High: types.MustNumber("-3")},
	}
	got := c.Ranges()
	require.Len(t, got, len(want))
	for i := range want {
		assert.True(t, want[i].Low.Equal(got[i].Low), "low %d: %s", i, got[i].Low)
		assert.True(t, want[i].High.Equal(got[i].High), "high %d: %s", i, got[i].High)
	}
	assert.Equal(t, "1-5, 100-10,(-5)-(-3), [ (-1)-2.5 ], (-3) - (-7)", c.Source())
}

func TestCompile_ReversedRangesAreEquivalent(t *testing.T) {
	a, err := Compile(metadata.DataTypeReal, metadata.PatternTypeRanges, "10-100")
	require.NoError(t, err)
	b, err := Compile(metadata.DataTypeReal, metadata.PatternTypeRanges, "100-10")
	require.NoError(t, err)
	assert.Equal(t, a.String(), b.String())
}

func TestCompile_Values(t *testing.T) {
	c, err := Compile(metadata.DataTypeVarchar, metadata.PatternTypeValues, `"b", "a, with comma", "say \"hi\"", "b", ""`)
	require.NoError(t, err)
	assert.Equal(t, []string{"", "a, with comma", "b", `say "hi"`}, c.Values())
	assert.Contains(t, c.String(), "VALUES {")
}

func TestCompile_PatternIsAnchored(t *testing.T) {
	c, err := Compile(metadata.DataTypeVarchar, metadata.PatternTypePattern, `[a-z]{3}\d`)
	require.NoError(t, err)
	assert.True(t, c.Pattern().MatchString("abc1"))
	assert.False(t, c.Pattern().MatchString("abc31"))
	assert.False(t, c.Pattern().MatchString("xabc1"))
}

func TestCompiler_Cache(t *testing.T) {
	comp := NewCompiler(2)

	a, err := comp.Compile(metadata.DataTypeInteger, metadata.PatternTypeRanges, "1-10")
	require.NoError(t, err)
	b, err := comp.Compile(metadata.DataTypeInteger, metadata.PatternTypeRanges, "1-10")
	require.NoError(t, err)
	assert.Same(t, a, b)

	_, err = comp.Compile(metadata.DataTypeInteger, metadata.PatternTypeRanges, "1-")
	require.Error(t, err)
	assert.Equal(t, 1, comp.Len())

	_, err = comp.Compile(metadata.DataTypeBoolean, metadata.PatternTypeRanges, "1-10")
	assert.True(t, apperror.IsCode(err, apperror.CodeUnsupportedDataType))

	uncached := NewCompiler(0)
	x, _ := uncached.Compile(metadata.DataTypeInteger, metadata.PatternTypeRanges, "1-10")
	y, _ := uncached.Compile(metadata.DataTypeInteger, metadata.PatternTypeRanges, "1-10")
	assert.NotSame(t, x, y)
	assert.Equal(t, 0, uncached.Len())
}

func TestCompileAssignment_RoundTrip(t *testing.T) {
	a := metadata.PropertyAssignment{
		PropertyType: metadata.PropertyType{Code: "SIZE", DataType: metadata.DataTypeInteger},
		PatternType:  metadata.PatternTypeRanges,
		Pattern:      "(-5)-(-3)",
	}
	c, err := NewCompiler(DefaultCacheSize).CompileAssignment(a)
	require.NoError(t, err)
	assert.Equal(t, a.PatternType, c.Kind())
	assert.Equal(t, a.Pattern, c.Source())
}

func TestParsePatternType(t *testing.T) {
	pt, err := ParsePatternType("VALUES")
	require.NoError(t, err)
	assert.Equal(t, metadata.PatternTypeValues, pt)

	_, err = ParsePatternType("values")
	assert.True(t, apperror.IsCode(err, apperror.CodeMalformedConstraintSpec))
}
