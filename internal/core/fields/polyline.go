package fields

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/samirrijal/geofields/internal/pkg/geospatial"
)

// EncodedGeometry holds one encoded polyline per geometry part, indexed by
// part position. It marshals to {"0": "...", "1": "..."} in part order.
type EncodedGeometry []string

func (e EncodedGeometry) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, s := range e {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		buf.WriteString(strconv.Itoa(i))
		buf.WriteString(`":`)
		enc, err := json.Marshal(s)
		if err != nil {
			return nil, err
		}
		buf.Write(enc)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// EncodedGeometryFromMap rebuilds an EncodedGeometry from its decoded JSON
// form. ok is false unless m holds exactly the keys "0".."n-1" with string
// values.
func EncodedGeometryFromMap(m map[string]any) (e EncodedGeometry, ok bool) {
	e = make(EncodedGeometry, len(m))
	for i := range e {
		s, isString := m[strconv.Itoa(i)].(string)
		if !isString {
			return nil, false
		}
		e[i] = s
	}
	return e, true
}

// PolylineField serialises geometry columns as encoded polylines, one per
// part, for map clients. Writes use the base pass-through.
type PolylineField struct{ base }

func NewPolylineField(opts Options) Field {
	return &PolylineField{newBase(opts, "geometry", "Geometry data.")}
}

func (f *PolylineField) Dehydrate(v any) (any, error) {
	return f.Convert(ValueOf(v))
}

// Convert encodes the first coordinate sequence of every part of v. Interior
// rings of polygons are not encoded, and empty parts are left out, so an
// empty geometry converts to an empty mapping.
func (f *PolylineField) Convert(v Value) (any, error) {
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
		parts := geospatial.Parts(g)
		encoded := make(EncodedGeometry, 0, len(parts))
		for _, part := range parts {
			s, err := geospatial.EncodePart(part)
			if err != nil {
				return nil, err
			}
			if s == "" {
				continue
			}
			encoded = append(encoded, s)
		}
		return encoded, nil
	default:
		return nil, fmt.Errorf("polyline: unexpected value %T", v)
	}
}
