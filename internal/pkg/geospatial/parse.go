// Package geospatial parses, exports and encodes geometry values.
package geospatial

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"github.com/twpayne/go-geom/encoding/ewkbhex"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkt"
)

var (
	ErrEmptyInput          = errors.New("empty geometry input")
	ErrUnsupportedGeometry = errors.New("unsupported geometry")
)

// Parse builds a geometry from any of the representations storage or API
// clients hand us: a geom.T (returned as is), GeoJSON / WKT / EWKT / HEXEWKB
// text, EWKB bytes, or a decoded GeoJSON object.
func Parse(v any) (geom.T, error) {
	switch v := v.(type) {
	case nil:
		return nil, ErrEmptyInput
	case geom.T:
		return v, nil
	case string:
		return ParseText(v)
	case json.RawMessage:
		return ParseText(string(v))
	case []byte:
		if looksLikeText(v) {
			return ParseText(string(v))
		}
		g, err := ewkb.Unmarshal(v)
		if err != nil {
			return nil, fmt.Errorf("decode ewkb: %w", err)
		}
		return g, nil
	case map[string]any:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode geojson object: %w", err)
		}
		return parseGeoJSON(string(data))
	default:
		return nil, fmt.Errorf("%w: cannot parse %T", ErrUnsupportedGeometry, v)
	}
}

// ParseText detects the text format and decodes it.
func ParseText(s string) (geom.T, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return nil, ErrEmptyInput
	case strings.HasPrefix(s, "{"):
		return parseGeoJSON(s)
	case isHex(s):
		g, err := ewkbhex.Decode(s)
		if err != nil {
			return nil, fmt.Errorf("decode hexewkb: %w", err)
		}
		return g, nil
	case len(s) > 5 && strings.EqualFold(s[:5], "SRID="):
		head, body, ok := strings.Cut(s[5:], ";")
		if !ok {
			return nil, fmt.Errorf("decode ewkt: missing ';' after SRID")
		}
		srid, err := strconv.Atoi(strings.TrimSpace(head))
		if err != nil {
			return nil, fmt.Errorf("decode ewkt: bad srid %q: %w", head, err)
		}
		g, err := parseWKT(body)
		if err != nil {
			return nil, err
		}
		return WithSRID(g, srid)
	default:
		return parseWKT(s)
	}
}

// GeoJSON returns the canonical GeoJSON text of g.
func GeoJSON(g geom.T) ([]byte, error) {
	data, err := geojson.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("encode geojson: %w", err)
	}
	return data, nil
}

// WKT returns the well-known text of g.
func WKT(g geom.T) (string, error) {
	s, err := wkt.Marshal(g)
	if err != nil {
		return "", fmt.Errorf("encode wkt: %w", err)
	}
	return s, nil
}

// HexEWKB encodes g as little-endian hex EWKB, the text form PostGIS casts
// to geometry.
func HexEWKB(g geom.T) (string, error) {
	s, err := ewkbhex.Encode(g, ewkb.NDR)
	if err != nil {
		return "", fmt.Errorf("encode hexewkb: %w", err)
	}
	return s, nil
}

// WithSRID returns g with its SRID set. Geometries are updated in place.
func WithSRID(g geom.T, srid int) (geom.T, error) {
	switch g := g.(type) {
	case *geom.Point:
		return g.SetSRID(srid), nil
	case *geom.LineString:
		return g.SetSRID(srid), nil
	case *geom.Polygon:
		return g.SetSRID(srid), nil
	case *geom.MultiPoint:
		return g.SetSRID(srid), nil
	case *geom.MultiLineString:
		return g.SetSRID(srid), nil
	case *geom.MultiPolygon:
		return g.SetSRID(srid), nil
	case *geom.GeometryCollection:
		return g.SetSRID(srid), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedGeometry, g)
	}
}

func parseGeoJSON(s string) (geom.T, error) {
	var g geom.T
	if err := geojson.Unmarshal([]byte(s), &g); err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}
	if g == nil {
		return nil, ErrEmptyInput
	}
	return g, nil
}

func parseWKT(s string) (geom.T, error) {
	g, err := wkt.Unmarshal(strings.ToUpper(strings.TrimSpace(s)))
	if err != nil {
		return nil, fmt.Errorf("decode wkt: %w", err)
	}
	return g, nil
}

func isHex(s string) bool {
	if len(s)%2 != 0 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F') {
			return false
		}
	}
	return true
}

// EWKB always starts with a byte-order marker (0x00 or 0x01).
func looksLikeText(b []byte) bool {
	return len(b) > 0 && b[0] > 0x01
}
