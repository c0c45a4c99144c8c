package property_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"metaprops/internal/core/apperror"
	"metaprops/internal/core/id"
	"metaprops/internal/metadata"
)

// assignmentRow is the joined assignment/property type row.
type assignmentRow struct {
	ID             id.ID                `db:"id"`
	EntityType     string               `db:"entity_type"`
	Mandatory      bool                 `db:"mandatory"`
	PatternType    metadata.PatternType `db:"pattern_type"`
	Pattern        string               `db:"pattern"`
	InitialValue   string               `db:"initial_value"`
	Ordinal        int                  `db:"ordinal"`
	PropertyTypeID id.ID                `db:"property_type_id"`
	PropertyCode   string               `db:"property_code"`
	PropertyLabel  string               `db:"property_label"`
	DataType       metadata.DataType    `db:"data_type"`
}

func (r assignmentRow) toDomain() metadata.PropertyAssignment {
	return metadata.PropertyAssignment{
		ID:         r.ID,
		EntityType: r.EntityType,
		PropertyType: metadata.PropertyType{
			ID:       r.PropertyTypeID,
			Code:     r.PropertyCode,
			Label:    r.PropertyLabel,
			DataType: r.DataType,
		},
		Mandatory:    r.Mandatory,
		PatternType:  r.PatternType,
		Pattern:      r.Pattern,
		InitialValue: r.InitialValue,
		Ordinal:      r.Ordinal,
	}
}

func selectAssignments() squirrel.SelectBuilder {
	return builder().
		Select(
			"a.id", "a.entity_type", "a.mandatory", "a.pattern_type", "a.pattern",
			"a.initial_value", "a.ordinal", "a.property_type_id",
			"p.code AS property_code", "p.label AS property_label", "p.data_type",
		).
		From(assignmentsTable + " a").
		Join(propertyTypesTable + " p ON p.id = a.property_type_id")
}

func getAssignmentQuery(assignmentID id.ID) squirrel.SelectBuilder {
	return selectAssignments().Where(squirrel.Eq{"a.id": assignmentID}).Limit(1)
}

func listAssignmentsQuery(entityType string) squirrel.SelectBuilder {
	return selectAssignments().
		Where(squirrel.Eq{"a.entity_type": entityType}).
		OrderBy("a.ordinal", "p.code")
}

// GetAssignment implements domain.AssignmentRepository. Inside a read-write
// transaction the row is locked until commit.
func (r *Repo) GetAssignment(ctx context.Context, assignmentID id.ID) (metadata.PropertyAssignment, error) {
	q := getAssignmentQuery(assignmentID)
	if r.txm.GetTx(ctx) != nil {
		q = q.Suffix("FOR UPDATE OF a")
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return metadata.PropertyAssignment{}, fmt.Errorf("build query: %w", err)
	}

	var row assignmentRow
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return metadata.PropertyAssignment{}, apperror.NewNotFound("property assignment", assignmentID.String())
		}
		return metadata.PropertyAssignment{}, fmt.Errorf("get assignment: %w", err)
	}
	return row.toDomain(), nil
}

// ListAssignments implements domain.AssignmentRepository.
func (r *Repo) ListAssignments(ctx context.Context, entityType string) ([]metadata.PropertyAssignment, error) {
	sql, args, err := listAssignmentsQuery(entityType).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []assignmentRow
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	out := make([]metadata.PropertyAssignment, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

func upsertPropertyTypeQuery(pt metadata.PropertyType) squirrel.InsertBuilder {
	return builder().
		Insert(propertyTypesTable).
		Columns("id", "code", "label", "data_type").
		Values(pt.ID, pt.Code, pt.Label, pt.DataType).
		Suffix("ON CONFLICT (code) DO UPDATE SET label = EXCLUDED.label RETURNING id, data_type")
}

func upsertAssignmentQuery(a metadata.PropertyAssignment, propertyTypeID id.ID) squirrel.InsertBuilder {
	return builder().
		Insert(assignmentsTable).
		Columns("id", "entity_type", "property_type_id", "mandatory", "pattern_type", "pattern", "initial_value", "ordinal").
		Values(a.ID, a.EntityType, propertyTypeID, a.Mandatory, a.PatternType, a.Pattern, a.InitialValue, a.Ordinal).
		Suffix("ON CONFLICT (id) DO UPDATE SET " +
			"mandatory = EXCLUDED.mandatory, pattern_type = EXCLUDED.pattern_type, pattern = EXCLUDED.pattern, " +
			"initial_value = EXCLUDED.initial_value, ordinal = EXCLUDED.ordinal")
}

// SaveAssignment implements domain.AssignmentRepository. The property type
// is registered on first use; an assignment carrying another data type for
// a stored code is rejected.
func (r *Repo) SaveAssignment(ctx context.Context, a metadata.PropertyAssignment) error {
	pt := a.PropertyType
	if id.IsNil(pt.ID) {
		pt.ID = id.New()
	}
	querier := r.txm.GetQuerier(ctx)

	sql, args, err := upsertPropertyTypeQuery(pt).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	var (
		propertyTypeID id.ID
		storedType     metadata.DataType
	)
	if err := querier.QueryRow(ctx, sql, args...).Scan(&propertyTypeID, &storedType); err != nil {
		return fmt.Errorf("upsert property type: %w", err)
	}
	if storedType != pt.DataType {
		return metadata.NewDataTypeConflict(pt.Code, storedType, pt.DataType)
	}

	sql, args, err = upsertAssignmentQuery(a, propertyTypeID).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("upsert assignment: %w", err)
	}
	return nil
}

func existingValuesQuery(assignmentID id.ID) squirrel.SelectBuilder {
	return builder().
		Select("v.value").
		From(assignmentsTable + " a").
		Join(propertyTypesTable + " p ON p.id = a.property_type_id").
		Join(entitiesTable + " e ON e.entity_type = a.entity_type").
		JoinClause("CROSS JOIN LATERAL jsonb_array_elements_text(e.properties -> p.code -> 'values') AS v(value)").
		Where(squirrel.Eq{"a.id": assignmentID}).
		OrderBy("e.id")
}

// ExistingValues implements domain.PropertyValueRepository. Rows are
// streamed; the first error from fn closes the cursor.
func (r *Repo) ExistingValues(ctx context.Context, assignmentID id.ID, fn func(string) error) error {
	sql, args, err := existingValuesQuery(assignmentID).ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	rows, err := r.txm.GetQuerier(ctx).Query(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("query existing values: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return fmt.Errorf("scan value: %w", err)
		}
		if err := fn(value); err != nil {
			return err
		}
	}
	return rows.Err()
}
