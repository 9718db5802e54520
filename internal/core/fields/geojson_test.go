package fields_test

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/twpayne/go-geom"

	"github.com/samirrijal/geofields/internal/core/fields"
	"github.com/samirrijal/geofields/internal/pkg/geospatial"
)

func TestGeoJSONField_DehydratePoint(t *testing.T) {
	f := fields.NewGeoJSONField(fields.Options{Attribute: "location"})

	got, err := f.Dehydrate(geom.NewPointFlat(geom.XY, []float64{1, 2}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]any{"type": "Point", "coordinates": []any{1.0, 2.0}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestGeoJSONField_DehydrateText(t *testing.T) {
	f := fields.NewGeoJSONField(fields.Options{Attribute: "location"})

	got, err := f.Dehydrate("SRID=4326;POINT (1 2)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m, ok := got.(map[string]any)
	if !ok || m["type"] != "Point" {
		t.Errorf("expected a Point object, got %#v", got)
	}
}

func TestGeoJSONField_Nil(t *testing.T) {
	f := fields.NewGeoJSONField(fields.Options{Attribute: "location", Null: true})

	got, err := f.Dehydrate(nil)
	if err != nil || got != nil {
		t.Errorf("expected nil, nil; got %v, %v", got, err)
	}
	got, err = f.Hydrate(nil)
	if err != nil || got != nil {
		t.Errorf("expected nil, nil; got %v, %v", got, err)
	}
}

func TestGeoJSONField_NormalizedPassThrough(t *testing.T) {
	f := fields.NewGeoJSONField(fields.Options{Attribute: "location"}).(*fields.GeoJSONField)
	in := map[string]any{"type": "Point", "coordinates": []any{9.0, 9.0}, "extra": true}

	got, err := f.Convert(fields.Normalized(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, in) {
		t.Errorf("expected unchanged %v, got %v", in, got)
	}

	// Same through Dehydrate with a bare map.
	got, _ = f.Dehydrate(in)
	if !reflect.DeepEqual(got, in) {
		t.Errorf("expected unchanged %v, got %v", in, got)
	}
}

func TestGeoJSONField_Hydrate(t *testing.T) {
	f := fields.NewGeoJSONField(fields.Options{Attribute: "location"})

	var payload map[string]any
	if err := json.Unmarshal([]byte(`{"type":"Point","coordinates":[3,4]}`), &payload); err != nil {
		t.Fatal(err)
	}
	got, err := f.Hydrate(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text, ok := got.(string)
	if !ok {
		t.Fatalf("expected JSON text, got %T", got)
	}
	var back map[string]any
	if err := json.Unmarshal([]byte(text), &back); err != nil {
		t.Fatalf("hydrated value is not JSON: %v", err)
	}
	if !reflect.DeepEqual(back, payload) {
		t.Errorf("expected %v, got %v", payload, back)
	}
}

func TestGeoJSONField_RoundTrip(t *testing.T) {
	f := fields.NewGeoJSONField(fields.Options{Attribute: "area"})
	poly := geom.NewPolygonFlat(geom.XY, []float64{0, 0, 4, 0, 4, 4, 0, 0}, []int{8})

	out, err := f.Dehydrate(poly)
	if err != nil {
		t.Fatalf("dehydrate: %v", err)
	}
	text, err := f.Hydrate(out)
	if err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	g, err := geospatial.Parse(text)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	back, ok := g.(*geom.Polygon)
	if !ok {
		t.Fatalf("expected *geom.Polygon, got %T", g)
	}
	if !reflect.DeepEqual(back.FlatCoords(), poly.FlatCoords()) {
		t.Errorf("coordinates changed: %v != %v", back.FlatCoords(), poly.FlatCoords())
	}
}

func TestGeoJSONField_BadGeometry(t *testing.T) {
	f := fields.NewGeoJSONField(fields.Options{Attribute: "location"})
	if _, err := f.Dehydrate("POINT (1"); err == nil {
		t.Error("expected error for malformed geometry text")
	}
}
