package metadata

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"

	"metaprops/internal/core/temporal"
)

// Attribute is a declared (non-property) field of an entity rendered as text.
type Attribute struct {
	Name  string
	Value string
}

// InspectAttributes walks the exported scalar fields of an entity struct and
// renders them for any-field matching. Embedded structs are flattened;
// fields tagged json:"-" or search:"-" are skipped, as are maps, slices and
// nested structs.
func InspectAttributes(entity any) []Attribute {
	v := reflect.ValueOf(entity)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}
	attrs := make([]Attribute, 0, v.NumField())
	inspectStruct(v, &attrs)
	return attrs
}

func inspectStruct(v reflect.Value, attrs *[]Attribute) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.PkgPath != "" { // unexported
			continue
		}
		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			inspectStruct(v.Field(i), attrs)
			continue
		}
		name := jsonName(field)
		if name == "-" || field.Tag.Get("search") == "-" {
			continue
		}
		if s, ok := renderScalar(v.Field(i)); ok {
			*attrs = append(*attrs, Attribute{Name: name, Value: s})
		}
	}
}

func renderScalar(v reflect.Value) (string, bool) {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return "", false
		}
		v = v.Elem()
	}
	if t, ok := v.Interface().(time.Time); ok {
		if t.IsZero() {
			return "", false
		}
		return t.Format(temporal.TimestampLayout), true
	}
	if s, ok := v.Interface().(fmt.Stringer); ok && v.Kind() != reflect.String {
		if v.IsZero() {
			return "", false
		}
		return s.String(), true
	}
	switch v.Kind() {
	case reflect.String:
		if v.String() == "" {
			return "", false
		}
		return v.String(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10), true
	case reflect.Bool:
		return strconv.FormatBool(v.Bool()), true
	}
	return "", false
}

func jsonName(field reflect.StructField) string {
	if tag, ok := field.Tag.Lookup("json"); ok {
		parts := strings.Split(tag, ",")
		if parts[0] != "" {
			return parts[0]
		}
	}
	runes := []rune(field.Name)
	runes[0] = unicode.ToLower(runes[0])
	return string(runes)
}
