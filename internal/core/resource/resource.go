package resource

import (
	"errors"
	"fmt"

	"github.com/samirrijal/geofields/internal/core/domain"
	"github.com/samirrijal/geofields/internal/core/fields"
)

// URIPrefix is the path under which resources are served.
const URIPrefix = "/v1/resources/"

// FieldError reports a conversion failure for a single field.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string { return e.Field + ": " + e.Err.Error() }
func (e *FieldError) Unwrap() error { return e.Err }

// Resource is a table exposed through the API with one field per column.
// It is immutable once built.
type Resource struct {
	def     domain.ResourceDef
	columns []domain.Column
	fields  []fields.Field
	byName  map[string]fields.Field
}

// New builds the field set of def from its columns, asking reg for the
// field of every column that is not excluded.
func New(def domain.ResourceDef, columns []domain.Column, reg fields.Registry) (*Resource, error) {
	if def.Name == "" {
		return nil, errors.New("resource name is required")
	}
	excluded := make(map[string]bool, len(def.Excludes))
	for _, name := range def.Excludes {
		excluded[name] = true
	}

	r := &Resource{def: def, byName: make(map[string]fields.Field)}
	pkFound := false
	for _, col := range columns {
		if col.Name == def.PrimaryKey {
			col.PrimaryKey = true
			pkFound = true
		}
		r.columns = append(r.columns, col)
		if excluded[col.Name] && !col.PrimaryKey {
			continue
		}
		f := reg.FieldFor(col)
		r.fields = append(r.fields, f)
		r.byName[col.Name] = f
	}
	if !pkFound {
		return nil, fmt.Errorf("resource %s: primary key %q not found in table %s", def.Name, def.PrimaryKey, def.Table)
	}
	return r, nil
}

func (r *Resource) Name() string                   { return r.def.Name }
func (r *Resource) Def() domain.ResourceDef        { return r.def }
func (r *Resource) Columns() []domain.Column       { return r.columns }
func (r *Resource) Fields() []fields.Field         { return r.fields }
func (r *Resource) Field(name string) fields.Field { return r.byName[name] }

// ExposedColumns returns the columns that have a field, in table order.
func (r *Resource) ExposedColumns() []domain.Column {
	out := make([]domain.Column, 0, len(r.fields))
	for _, c := range r.columns {
		if _, ok := r.byName[c.Name]; ok {
			out = append(out, c)
		}
	}
	return out
}

// ListURI is the list endpoint of the resource.
func (r *Resource) ListURI() string { return URIPrefix + r.def.Name + "/" }

// URI is the detail endpoint of a record.
func (r *Resource) URI(id any) string {
	if id == nil {
		return ""
	}
	return fmt.Sprintf("%s%v/", r.ListURI(), id)
}

// Dehydrate converts a stored record for API output. Every field is
// present in the result; null values stay explicit.
func (r *Resource) Dehydrate(rec domain.Record) (map[string]any, error) {
	out := make(map[string]any, len(r.fields)+1)
	for _, f := range r.fields {
		v, err := f.Dehydrate(rec[f.Attribute()])
		if err != nil {
			return nil, &FieldError{Field: f.Attribute(), Err: err}
		}
		out[f.Attribute()] = v
	}
	out["resource_uri"] = r.URI(rec[r.def.PrimaryKey])
	return out, nil
}

// Hydrate converts an API payload into a record for storage. Read-only
// fields and unknown keys are ignored. With partial set, absent keys are
// left out; otherwise an absent non-nullable column without a database
// default is an error.
func (r *Resource) Hydrate(payload map[string]any, partial bool) (domain.Record, error) {
	rec := make(domain.Record, len(r.fields))
	for _, col := range r.ExposedColumns() {
		f := r.byName[col.Name]
		if f.ReadOnly() {
			continue
		}
		v, present := payload[col.Name]
		if !present {
			if partial || f.Nullable() || col.HasDefault {
				continue
			}
			return nil, &FieldError{Field: col.Name, Err: fields.ErrFieldRequired}
		}
		if v == nil && !f.Nullable() {
			return nil, &FieldError{Field: col.Name, Err: fields.ErrFieldRequired}
		}
		hv, err := f.Hydrate(v)
		if err != nil {
			return nil, &FieldError{Field: col.Name, Err: err}
		}
		rec[col.Name] = hv
	}
	return rec, nil
}
