package postgres

import (
	"reflect"
	"sync"
)

// columnPlan lists the db-tagged fields of a struct type by index path,
// so embedded structs are flattened in declaration order.
type columnPlan struct {
	columns []string
	paths   [][]int
}

var plans sync.Map // map[reflect.Type]*columnPlan

func planFor(t reflect.Type) *columnPlan {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if cached, ok := plans.Load(t); ok {
		return cached.(*columnPlan)
	}
	plan := &columnPlan{}
	if t.Kind() == reflect.Struct {
		collectColumns(t, nil, plan)
	}
	actual, _ := plans.LoadOrStore(t, plan)
	return actual.(*columnPlan)
}

func collectColumns(t reflect.Type, prefix []int, plan *columnPlan) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		path := append(append([]int(nil), prefix...), i)
		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			collectColumns(field.Type, path, plan)
			continue
		}
		tag := field.Tag.Get("db")
		if tag == "" || tag == "-" || !field.IsExported() {
			continue
		}
		plan.columns = append(plan.columns, tag)
		plan.paths = append(plan.paths, path)
	}
}

// ExtractDBColumns returns the "db" column names of T in field order.
func ExtractDBColumns[T any]() []string {
	plan := planFor(reflect.TypeFor[T]())
	return append([]string(nil), plan.columns...)
}

// StructToMap maps the db-tagged fields of v (a struct or pointer to one)
// to their values. Fields tagged "-" are omitted.
func StructToMap(v any) map[string]any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}
	plan := planFor(rv.Type())
	res := make(map[string]any, len(plan.columns))
	for i, col := range plan.columns {
		res[col] = rv.FieldByIndex(plan.paths[i]).Interface()
	}
	return res
}
