package postgres

import (
	"context"
	"fmt"
	"reflect"

	"github.com/jackc/pgx/v5"
)

// StructRows converts items into COPY rows. Columns follow the "db" tags of
// T in field order, the same order ExtractDBColumns returns.
func StructRows[T any](items []T) ([]string, [][]any) {
	plan := planFor(reflect.TypeFor[T]())
	rows := make([][]any, 0, len(items))
	for _, item := range items {
		rv := reflect.ValueOf(item)
		if rv.Kind() == reflect.Pointer {
			if rv.IsNil() {
				continue
			}
			rv = rv.Elem()
		}
		row := make([]any, len(plan.paths))
		for i, path := range plan.paths {
			row[i] = rv.FieldByIndex(path).Interface()
		}
		rows = append(rows, row)
	}
	return append([]string(nil), plan.columns...), rows
}

// CopyFrom bulk inserts rows using the COPY protocol. It must run inside a
// transaction started by RunInTransaction.
func (m *TxManager) CopyFrom(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	tx := m.GetTx(ctx)
	if tx == nil {
		return 0, fmt.Errorf("CopyFrom requires transaction context")
	}
	n, err := tx.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return n, fmt.Errorf("copy into %s: %w", table, err)
	}
	return n, nil
}
