package resource_test

import (
	"errors"
	"testing"

	"github.com/twpayne/go-geom"

	"github.com/samirrijal/geofields/internal/core/domain"
	"github.com/samirrijal/geofields/internal/core/fields"
	"github.com/samirrijal/geofields/internal/core/resource"
)

var parkColumns = []domain.Column{
	{Name: "id", Type: domain.ColumnInteger, HasDefault: true},
	{Name: "name", Type: domain.ColumnText},
	{Name: "slug", Type: domain.ColumnText, Nullable: true},
	{Name: "area", Type: domain.ColumnGeometry, Nullable: true, GeometryType: "MULTIPOLYGON", SRID: 4326},
	{Name: "internal_notes", Type: domain.ColumnText, Nullable: true},
}

var parkDef = domain.ResourceDef{
	Name:           "parks",
	Table:          "parks",
	PrimaryKey:     "id",
	GeometryFormat: domain.FormatGeoJSON,
	Excludes:       []string{"internal_notes"},
}

func newParks(t *testing.T, reg fields.Registry) *resource.Resource {
	t.Helper()
	r, err := resource.New(parkDef, parkColumns, reg)
	if err != nil {
		t.Fatalf("new resource: %v", err)
	}
	return r
}

func TestNew_Fields(t *testing.T) {
	r := newParks(t, fields.GeoJSONRegistry())

	if len(r.Fields()) != 4 {
		t.Fatalf("expected 4 fields (one excluded), got %d", len(r.Fields()))
	}
	if r.Field("internal_notes") != nil {
		t.Error("excluded column should have no field")
	}
	if _, ok := r.Field("area").(*fields.GeoJSONField); !ok {
		t.Errorf("expected GeoJSONField for area, got %T", r.Field("area"))
	}
	if !r.Field("id").ReadOnly() {
		t.Error("primary key should be read-only")
	}
}

func TestNew_MissingPrimaryKey(t *testing.T) {
	def := parkDef
	def.PrimaryKey = "uuid"
	if _, err := resource.New(def, parkColumns, fields.GeoJSONRegistry()); err == nil {
		t.Error("expected error for missing primary key")
	}
}

func TestDehydrate(t *testing.T) {
	r := newParks(t, fields.PolylineRegistry())

	out, err := r.Dehydrate(domain.Record{
		"id":             int32(7),
		"name":           "Doña Casilda",
		"slug":           nil,
		"area":           geom.NewMultiPolygonFlat(geom.XY, []float64{0, 0, 1, 0, 1, 1, 0, 0}, [][]int{{8}}),
		"internal_notes": "secret",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out["id"] != int64(7) {
		t.Errorf("expected id 7, got %#v", out["id"])
	}
	if v, ok := out["slug"]; !ok || v != nil {
		t.Errorf("expected explicit null slug, got %#v (present=%v)", v, ok)
	}
	if _, ok := out["internal_notes"]; ok {
		t.Error("excluded column leaked into output")
	}
	if enc, ok := out["area"].(fields.EncodedGeometry); !ok || len(enc) != 1 {
		t.Errorf("expected one encoded part, got %#v", out["area"])
	}
	if out["resource_uri"] != "/v1/resources/parks/7/" {
		t.Errorf("unexpected resource_uri %v", out["resource_uri"])
	}
}

func TestDehydrate_NullGeometry(t *testing.T) {
	for _, reg := range []fields.Registry{fields.GeoJSONRegistry(), fields.PolylineRegistry()} {
		r := newParks(t, reg)
		out, err := r.Dehydrate(domain.Record{"id": int64(1), "name": "x"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v, ok := out["area"]; !ok || v != nil {
			t.Errorf("expected explicit null area, got %#v", v)
		}
	}
}

func TestDehydrate_FieldError(t *testing.T) {
	r := newParks(t, fields.GeoJSONRegistry())
	_, err := r.Dehydrate(domain.Record{"id": int64(1), "name": "x", "area": "MULTIPOLYGON (("})

	var fe *resource.FieldError
	if !errors.As(err, &fe) || fe.Field != "area" {
		t.Errorf("expected FieldError for area, got %v", err)
	}
}

func TestHydrate(t *testing.T) {
	r := newParks(t, fields.GeoJSONRegistry())

	rec, err := r.Hydrate(map[string]any{
		"id":      99.0,
		"name":    "Parque Europa",
		"area":    map[string]any{"type": "Point", "coordinates": []any{3.0, 4.0}},
		"unknown": "ignored",
	}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := rec["id"]; ok {
		t.Error("read-only primary key should not be hydrated")
	}
	if _, ok := rec["unknown"]; ok {
		t.Error("unknown key should be ignored")
	}
	if rec["name"] != "Parque Europa" {
		t.Errorf("unexpected name %v", rec["name"])
	}
	if text, ok := rec["area"].(string); !ok || text == "" {
		t.Errorf("expected GeoJSON text for area, got %#v", rec["area"])
	}
}

func TestHydrate_Required(t *testing.T) {
	r := newParks(t, fields.GeoJSONRegistry())

	_, err := r.Hydrate(map[string]any{"slug": "x"}, false)
	if !errors.Is(err, fields.ErrFieldRequired) {
		t.Errorf("expected ErrFieldRequired for missing name, got %v", err)
	}

	_, err = r.Hydrate(map[string]any{"name": nil}, true)
	if !errors.Is(err, fields.ErrFieldRequired) {
		t.Errorf("expected ErrFieldRequired for null name, got %v", err)
	}

	rec, err := r.Hydrate(map[string]any{"slug": "x"}, true)
	if err != nil {
		t.Fatalf("partial update should accept missing name: %v", err)
	}
	if len(rec) != 1 {
		t.Errorf("expected only slug, got %v", rec)
	}
}

func TestSchema(t *testing.T) {
	def := parkDef
	def.Methods = []string{"get"}
	r, err := resource.New(def, parkColumns, fields.GeoJSONRegistry())
	if err != nil {
		t.Fatal(err)
	}

	s := r.Schema()
	if s.Fields["area"].Type != "geometry" {
		t.Errorf("expected geometry type, got %q", s.Fields["area"].Type)
	}
	if !s.Fields["id"].ReadOnly || !s.Fields["resource_uri"].ReadOnly {
		t.Error("id and resource_uri should be read-only")
	}
	if len(s.AllowedListHTTPMethods) != 1 || s.AllowedListHTTPMethods[0] != "get" {
		t.Errorf("unexpected list methods %v", s.AllowedListHTTPMethods)
	}
	if len(s.AllowedDetailHTTPMethods) != 1 {
		t.Errorf("unexpected detail methods %v", s.AllowedDetailHTTPMethods)
	}
}
