package geospatial

import (
	"fmt"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-polyline"
)

// Parts splits g into the geometries a map client draws separately: the
// members of a multi-geometry or collection, or g itself otherwise.
func Parts(g geom.T) []geom.T {
	switch g := g.(type) {
	case *geom.MultiPoint:
		parts := make([]geom.T, 0, g.NumPoints())
		for i := 0; i < g.NumPoints(); i++ {
			parts = append(parts, g.Point(i))
		}
		return parts
	case *geom.MultiLineString:
		parts := make([]geom.T, 0, g.NumLineStrings())
		for i := 0; i < g.NumLineStrings(); i++ {
			parts = append(parts, g.LineString(i))
		}
		return parts
	case *geom.MultiPolygon:
		parts := make([]geom.T, 0, g.NumPolygons())
		for i := 0; i < g.NumPolygons(); i++ {
			parts = append(parts, g.Polygon(i))
		}
		return parts
	case *geom.GeometryCollection:
		return g.Geoms()
	default:
		return []geom.T{g}
	}
}

// FirstSequence returns the first coordinate sequence of a part. For a
// polygon that is the exterior ring; interior rings are dropped. Empty parts
// yield an empty sequence.
func FirstSequence(part geom.T) ([]geom.Coord, error) {
	switch p := part.(type) {
	case *geom.Point:
		if p.Empty() {
			return nil, nil
		}
		return []geom.Coord{p.Coords()}, nil
	case *geom.LineString:
		return p.Coords(), nil
	case *geom.LinearRing:
		return p.Coords(), nil
	case *geom.Polygon:
		if p.NumLinearRings() == 0 {
			return nil, nil
		}
		return p.LinearRing(0).Coords(), nil
	case *geom.MultiPoint, *geom.MultiLineString, *geom.MultiPolygon, *geom.GeometryCollection:
		parts := Parts(p)
		if len(parts) == 0 {
			return nil, nil
		}
		return FirstSequence(parts[0])
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedGeometry, part)
	}
}

// EncodePart encodes the first coordinate sequence of part as a Google
// encoded polyline (1e5 precision, latitude first). An empty part encodes
// to "".
func EncodePart(part geom.T) (string, error) {
	seq, err := FirstSequence(part)
	if err != nil {
		return "", err
	}
	coords := make([][]float64, 0, len(seq))
	for _, c := range seq {
		if len(c) < 2 {
			continue
		}
		coords = append(coords, []float64{c.Y(), c.X()})
	}
	return string(polyline.EncodeCoords(coords)), nil
}
