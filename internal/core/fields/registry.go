package fields

import "github.com/samirrijal/geofields/internal/core/domain"

// Registry maps a column type tag to the field used for it.
type Registry map[domain.ColumnType]Factory

// DefaultRegistry covers the plain column types. Geometry columns are not
// listed and fall back to a CharField.
func DefaultRegistry() Registry {
	return Registry{
		domain.ColumnText:     NewCharField,
		domain.ColumnInteger:  NewIntegerField,
		domain.ColumnFloat:    NewFloatField,
		domain.ColumnBoolean:  NewBooleanField,
		domain.ColumnDateTime: NewDateTimeField,
		domain.ColumnJSON:     NewDictField,
	}
}

// GeoJSONRegistry exposes geometry columns as GeoJSON.
func GeoJSONRegistry() Registry {
	r := DefaultRegistry()
	r[domain.ColumnGeometry] = NewGeoJSONField
	return r
}

// PolylineRegistry exposes geometry columns as encoded polylines.
func PolylineRegistry() Registry {
	r := DefaultRegistry()
	r[domain.ColumnGeometry] = NewPolylineField
	return r
}

// RegistryFor picks the registry for a resource's geometry format.
func RegistryFor(format domain.GeometryFormat) Registry {
	if format == domain.FormatPolyline {
		return PolylineRegistry()
	}
	return GeoJSONRegistry()
}

// Lookup returns the factory for col, or fallback when its type is not
// registered. A nil fallback means NewCharField.
func (r Registry) Lookup(col domain.Column, fallback Factory) Factory {
	if f, ok := r[col.Type]; ok {
		return f
	}
	if fallback != nil {
		return fallback
	}
	return NewCharField
}

// FieldFor builds the field for col. Primary keys are read-only.
func (r Registry) FieldFor(col domain.Column) Field {
	return r.Lookup(col, NewCharField)(Options{
		Attribute: col.Name,
		Null:      col.Nullable,
		ReadOnly:  col.PrimaryKey,
	})
}
