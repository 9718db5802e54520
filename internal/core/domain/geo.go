package domain

// ColumnType tags a storage column by the kind of value it holds. Field
// registries dispatch on this tag when a resource's field set is built.
type ColumnType string

const (
	ColumnGeometry ColumnType = "geometry"
	ColumnText     ColumnType = "text"
	ColumnInteger  ColumnType = "integer"
	ColumnFloat    ColumnType = "float"
	ColumnBoolean  ColumnType = "boolean"
	ColumnDateTime ColumnType = "datetime"
	ColumnJSON     ColumnType = "json"
)

// Column describes a single column of a resource table.
type Column struct {
	Name       string     `json:"name"`
	Type       ColumnType `json:"type"`
	Nullable   bool       `json:"nullable"`
	PrimaryKey bool       `json:"primary_key"`
	HasDefault bool       `json:"has_default"`
	DBType     string     `json:"-"` // storage type name, e.g. int4, geometry

	// Geometry columns only.
	GeometryType string `json:"geometry_type,omitempty"` // e.g. MULTIPOLYGON, or GEOMETRY when unconstrained
	SRID         int    `json:"srid,omitempty"`
}

// IsGeometry reports whether the column stores spatial values.
func (c Column) IsGeometry() bool { return c.Type == ColumnGeometry }

// GeometryFormat selects how geometry columns are exposed by a resource.
type GeometryFormat string

const (
	FormatGeoJSON  GeometryFormat = "geojson"
	FormatPolyline GeometryFormat = "polyline"
)

// Valid reports whether f is a known format.
func (f GeometryFormat) Valid() bool {
	return f == FormatGeoJSON || f == FormatPolyline
}
