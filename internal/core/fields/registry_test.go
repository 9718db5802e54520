package fields_test

import (
	"testing"
	"time"

	"github.com/twpayne/go-geom"

	"github.com/samirrijal/geofields/internal/core/domain"
	"github.com/samirrijal/geofields/internal/core/fields"
)

func TestRegistry_Lookup(t *testing.T) {
	geomCol := domain.Column{Name: "area", Type: domain.ColumnGeometry}

	tests := []struct {
		name     string
		registry fields.Registry
		col      domain.Column
		want     string // dehydrated type
		wantType any
	}{
		{"geojson geometry", fields.GeoJSONRegistry(), geomCol, "geometry", &fields.GeoJSONField{}},
		{"polyline geometry", fields.PolylineRegistry(), geomCol, "geometry", &fields.PolylineField{}},
		{"default geometry falls back", fields.DefaultRegistry(), geomCol, "string", &fields.CharField{}},
		{"geojson delegates text", fields.GeoJSONRegistry(), domain.Column{Name: "name", Type: domain.ColumnText}, "string", &fields.CharField{}},
		{"polyline delegates integer", fields.PolylineRegistry(), domain.Column{Name: "n", Type: domain.ColumnInteger}, "integer", &fields.IntegerField{}},
		{"unknown tag", fields.GeoJSONRegistry(), domain.Column{Name: "x", Type: "interval"}, "string", &fields.CharField{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.registry.FieldFor(tt.col)
			if f.DehydratedType() != tt.want {
				t.Errorf("expected type %s, got %s", tt.want, f.DehydratedType())
			}
			if got, want := typeName(f), typeName(tt.wantType); got != want {
				t.Errorf("expected %s, got %s", want, got)
			}
			if f.Attribute() != tt.col.Name {
				t.Errorf("expected attribute %s, got %s", tt.col.Name, f.Attribute())
			}
		})
	}
}

func TestRegistry_LookupFallback(t *testing.T) {
	r := fields.DefaultRegistry()
	f := r.Lookup(domain.Column{Type: domain.ColumnGeometry}, fields.NewDictField)(fields.Options{Attribute: "g"})
	if f.DehydratedType() != "dict" {
		t.Errorf("expected explicit fallback, got %s", f.DehydratedType())
	}
}

func TestRegistryFor(t *testing.T) {
	col := domain.Column{Name: "g", Type: domain.ColumnGeometry}
	if _, ok := fields.RegistryFor(domain.FormatPolyline).FieldFor(col).(*fields.PolylineField); !ok {
		t.Error("polyline format should select PolylineField")
	}
	if _, ok := fields.RegistryFor(domain.FormatGeoJSON).FieldFor(col).(*fields.GeoJSONField); !ok {
		t.Error("geojson format should select GeoJSONField")
	}
}

func TestFieldFor_PrimaryKeyReadOnly(t *testing.T) {
	f := fields.GeoJSONRegistry().FieldFor(domain.Column{Name: "id", Type: domain.ColumnInteger, PrimaryKey: true})
	if !f.ReadOnly() {
		t.Error("primary key field should be read-only")
	}
}

func TestStandardFields(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		factory fields.Factory
		in      any
		want    any
		wantErr bool
	}{
		{"char from bytes", fields.NewCharField, []byte("abc"), "abc", false},
		{"char from int", fields.NewCharField, 7, "7", false},
		{"char from geometry", fields.NewCharField, geom.NewPointFlat(geom.XY, []float64{1, 2}), "POINT (1 2)", false},
		{"int from float", fields.NewIntegerField, 3.0, int64(3), false},
		{"int from fraction", fields.NewIntegerField, 3.5, nil, true},
		{"int from string", fields.NewIntegerField, "42", int64(42), false},
		{"int from int32", fields.NewIntegerField, int32(9), int64(9), false},
		{"float from string", fields.NewFloatField, "2.5", 2.5, false},
		{"float from bool", fields.NewFloatField, true, nil, true},
		{"bool from string", fields.NewBooleanField, "true", true, false},
		{"datetime from string", fields.NewDateTimeField, "2024-05-01T12:00:00Z", ts, false},
		{"datetime bad", fields.NewDateTimeField, "yesterday", nil, true},
		{"nil stays nil", fields.NewIntegerField, nil, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.factory(fields.Options{Attribute: "x"}).Hydrate(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if wt, ok := tt.want.(time.Time); ok {
				if gt, _ := got.(time.Time); !gt.Equal(wt) {
					t.Errorf("expected %v, got %v", wt, got)
				}
				return
			}
			if got != tt.want {
				t.Errorf("expected %#v, got %#v", tt.want, got)
			}
		})
	}
}

func TestDictField_Dehydrate(t *testing.T) {
	f := fields.NewDictField(fields.Options{Attribute: "meta"})
	got, err := f.Dehydrate([]byte(`{"a":1}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m, ok := got.(map[string]any); !ok || m["a"] != 1.0 {
		t.Errorf("expected decoded map, got %#v", got)
	}
}

func typeName(v any) string {
	switch v.(type) {
	case *fields.GeoJSONField:
		return "GeoJSONField"
	case *fields.PolylineField:
		return "PolylineField"
	case *fields.CharField:
		return "CharField"
	case *fields.IntegerField:
		return "IntegerField"
	default:
		return "other"
	}
}
