package fields

import (
	"encoding/json"
	"fmt"

	"github.com/samirrijal/geofields/internal/pkg/geospatial"
)

// GeoJSONField serialises geometry columns as GeoJSON objects and accepts
// GeoJSON objects on write.
type GeoJSONField struct{ base }

func NewGeoJSONField(opts Options) Field {
	return &GeoJSONField{newBase(opts, "geometry", "Geometry data.")}
}

// Hydrate turns the payload value into JSON text. Storage parses that text
// into a geometry.
func (f *GeoJSONField) Hydrate(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("geojson: %w", err)
	}
	return string(data), nil
}

func (f *GeoJSONField) Dehydrate(v any) (any, error) {
	return f.Convert(ValueOf(v))
}

// Convert returns the GeoJSON structure of v as plain maps and slices, so
// the response encoder embeds it instead of a quoted string.
func (f *GeoJSONField) Convert(v Value) (any, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case Normalized:
		return map[string]any(v), nil
	case Native:
		g, err := geospatial.Parse(v.Raw)
		if err != nil {
			return nil, err
		}
		data, err := geospatial.GeoJSON(g)
		if err != nil {
			return nil, err
		}
		var out map[string]any
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("geojson: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("geojson: unexpected value %T", v)
	}
}
