package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/samirrijal/geofields/internal/core/domain"
	"github.com/samirrijal/geofields/internal/core/ports"
	"github.com/samirrijal/geofields/internal/core/resource"
	"github.com/samirrijal/geofields/internal/pkg/geospatial"
)

// RecordRepo implements ports.RecordRepository over arbitrary PostGIS tables.
type RecordRepo struct {
	db *DB
}

// NewRecordRepo creates a new RecordRepo.
func NewRecordRepo(db *DB) *RecordRepo {
	return &RecordRepo{db: db}
}

// Columns introspects table through information_schema, joining
// geometry_columns for the geometry type and SRID.
func (r *RecordRepo) Columns(ctx context.Context, table string) ([]domain.Column, error) {
	schema, name := splitTable(table)
	rows, err := r.db.Pool.Query(ctx, `
		SELECT c.column_name, c.udt_name,
		       c.is_nullable = 'YES',
		       c.column_default IS NOT NULL OR c.is_identity = 'YES',
		       COALESCE(gc.type, ''), COALESCE(gc.srid, 0)
		FROM information_schema.columns c
		LEFT JOIN geometry_columns gc
		       ON gc.f_table_schema = c.table_schema
		      AND gc.f_table_name = c.table_name
		      AND gc.f_geometry_column = c.column_name
		WHERE c.table_schema = COALESCE(NULLIF($1, ''), current_schema())
		  AND c.table_name = $2
		ORDER BY c.ordinal_position
	`, schema, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []domain.Column
	for rows.Next() {
		var c domain.Column
		if err := rows.Scan(&c.Name, &c.DBType, &c.Nullable, &c.HasDefault, &c.GeometryType, &c.SRID); err != nil {
			return nil, err
		}
		c.Type = columnType(c.DBType)
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %s has no columns or does not exist", table)
	}
	return cols, nil
}

// List returns a page of records ordered by primary key plus the total count.
func (r *RecordRepo) List(ctx context.Context, table string, cols []domain.Column, opts ports.ListOptions) ([]domain.Record, int, error) {
	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM `+quoteTable(table)).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Pool.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM %s ORDER BY %s LIMIT $1 OFFSET $2`,
		selectList(cols), quoteTable(table), orderBy(cols),
	), opts.Limit, opts.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var recs []domain.Record
	for rows.Next() {
		rec, err := scanRecord(rows, cols)
		if err != nil {
			return nil, 0, err
		}
		recs = append(recs, rec)
	}
	return recs, total, rows.Err()
}

// Get returns one record by primary key.
func (r *RecordRepo) Get(ctx context.Context, table string, cols []domain.Column, pk, id string) (domain.Record, error) {
	rows, err := r.db.Pool.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM %s WHERE %s`,
		selectList(cols), quoteTable(table), pkMatch(cols, pk, 1),
	), id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, domain.ErrNotFound
	}
	return scanRecord(rows, cols)
}

// Insert stores rec and returns the new primary key as text.
func (r *RecordRepo) Insert(ctx context.Context, table string, cols []domain.Column, pk string, rec domain.Record) (string, error) {
	names, exprs, args, err := bindRecord(cols, rec, 1)
	if err != nil {
		return "", err
	}

	var query string
	if len(names) == 0 {
		query = fmt.Sprintf(`INSERT INTO %s DEFAULT VALUES RETURNING %s::text`,
			quoteTable(table), quoteIdent(pk))
	} else {
		query = fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) RETURNING %s::text`,
			quoteTable(table), strings.Join(names, ", "), strings.Join(exprs, ", "), quoteIdent(pk))
	}

	var id string
	if err := r.db.Pool.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

// Update writes the columns present in rec.
func (r *RecordRepo) Update(ctx context.Context, table string, cols []domain.Column, pk, id string, rec domain.Record) error {
	names, exprs, args, err := bindRecord(cols, rec, 2)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		_, err := r.Get(ctx, table, cols, pk, id)
		return err
	}

	sets := make([]string, len(names))
	for i := range names {
		sets[i] = names[i] + " = " + exprs[i]
	}
	tag, err := r.db.Pool.Exec(ctx, fmt.Sprintf(
		`UPDATE %s SET %s WHERE %s`,
		quoteTable(table), strings.Join(sets, ", "), pkMatch(cols, pk, 1),
	), append([]any{id}, args...)...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a record by primary key.
func (r *RecordRepo) Delete(ctx context.Context, table, pk, id string) error {
	tag, err := r.db.Pool.Exec(ctx, fmt.Sprintf(
		`DELETE FROM %s WHERE %s`, quoteTable(table), pkMatch(nil, pk, 1),
	), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// columnType maps a PostgreSQL udt_name to a column type tag.
func columnType(udt string) domain.ColumnType {
	switch udt {
	case "geometry", "geography":
		return domain.ColumnGeometry
	case "int2", "int4", "int8":
		return domain.ColumnInteger
	case "float4", "float8", "numeric":
		return domain.ColumnFloat
	case "bool":
		return domain.ColumnBoolean
	case "timestamp", "timestamptz", "date":
		return domain.ColumnDateTime
	case "json", "jsonb":
		return domain.ColumnJSON
	default:
		return domain.ColumnText
	}
}

func splitTable(table string) (schema, name string) {
	if i := strings.IndexByte(table, '.'); i >= 0 {
		return table[:i], table[i+1:]
	}
	return "", table
}

func quoteIdent(name string) string { return pgx.Identifier{name}.Sanitize() }

func quoteTable(table string) string {
	schema, name := splitTable(table)
	if schema == "" {
		return pgx.Identifier{name}.Sanitize()
	}
	return pgx.Identifier{schema, name}.Sanitize()
}

// selectExpr reads a column in a form pgx scans into a plain Go value.
// Geometries come back as EWKB.
func selectExpr(c domain.Column) string {
	id := quoteIdent(c.Name)
	switch {
	case c.Type == domain.ColumnGeometry:
		return fmt.Sprintf("ST_AsEWKB(%s::geometry) AS %s", id, id)
	case c.DBType == "numeric":
		return fmt.Sprintf("%s::float8 AS %s", id, id)
	case c.Type == domain.ColumnText && c.DBType != "text" && c.DBType != "varchar":
		return fmt.Sprintf("%s::text AS %s", id, id)
	default:
		return id
	}
}

func selectList(cols []domain.Column) string {
	exprs := make([]string, len(cols))
	for i, c := range cols {
		exprs[i] = selectExpr(c)
	}
	return strings.Join(exprs, ", ")
}

func orderBy(cols []domain.Column) string {
	for _, c := range cols {
		if c.PrimaryKey {
			return quoteIdent(c.Name)
		}
	}
	return "1"
}

// pkMatch compares the primary key with a text parameter. When the key's
// storage type is known the parameter is cast to it so indexes apply.
func pkMatch(cols []domain.Column, pk string, n int) string {
	for _, c := range cols {
		if c.Name == pk && c.DBType != "" {
			return fmt.Sprintf("%s = $%d::text::%s", quoteIdent(pk), n, quoteIdent(c.DBType))
		}
	}
	return fmt.Sprintf("%s::text = $%d", quoteIdent(pk), n)
}

// bindRecord turns rec into column names, parameter expressions and
// arguments, numbering parameters from first. Columns are visited in table
// order.
func bindRecord(cols []domain.Column, rec domain.Record, first int) (names, exprs []string, args []any, err error) {
	n := first
	for _, c := range cols {
		v, ok := rec[c.Name]
		if !ok {
			continue
		}
		expr := fmt.Sprintf("$%d", n)
		switch {
		case c.Type == domain.ColumnGeometry:
			v, err = geometryParam(c, v)
			if err != nil {
				return nil, nil, nil, &resource.FieldError{Field: c.Name, Err: err}
			}
			expr += "::text::geometry"
		case c.Type == domain.ColumnJSON:
			expr += "::" + c.DBType
		case c.Type == domain.ColumnText && v != nil && c.DBType != "text" && c.DBType != "varchar":
			expr += "::text::" + quoteIdent(c.DBType)
		}
		names = append(names, quoteIdent(c.Name))
		exprs = append(exprs, expr)
		args = append(args, v)
		n++
	}
	return names, exprs, args, nil
}

// geometryParam parses a hydrated geometry value (GeoJSON, WKT, EWKT or
// HEXEWKB text, a GeoJSON object, or a geom.T) into HEXEWKB. The column
// SRID is applied when the input carries none.
func geometryParam(c domain.Column, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	g, err := geospatial.Parse(v)
	if err != nil {
		return nil, fmt.Errorf("invalid geometry: %w", err)
	}
	if g.SRID() == 0 && c.SRID > 0 {
		if g, err = geospatial.WithSRID(g, c.SRID); err != nil {
			return nil, fmt.Errorf("invalid geometry: %w", err)
		}
	}
	hex, err := geospatial.HexEWKB(g)
	if err != nil {
		return nil, err
	}
	return hex, nil
}

func scanRecord(rows pgx.Rows, cols []domain.Column) (domain.Record, error) {
	values, err := rows.Values()
	if err != nil {
		return nil, err
	}
	rec := make(domain.Record, len(cols))
	for i, c := range cols {
		v := values[i]
		if c.Type == domain.ColumnGeometry && v != nil {
			b, ok := v.([]byte)
			if !ok {
				return nil, fmt.Errorf("column %s: unexpected %T for geometry", c.Name, v)
			}
			g, err := ewkb.Unmarshal(b)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", c.Name, err)
			}
			v = g
		}
		rec[c.Name] = v
	}
	return rec, nil
}
