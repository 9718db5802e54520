package fields_test

import (
	"testing"

	"github.com/twpayne/go-geom"

	"github.com/samirrijal/geofields/internal/core/fields"
)

func TestValueOf(t *testing.T) {
	if v := fields.ValueOf(nil); v != nil {
		t.Errorf("nil: got %#v", v)
	}

	if _, ok := fields.ValueOf(map[string]any{"type": "Point"}).(fields.Normalized); !ok {
		t.Error("map should classify as Normalized")
	}

	p := geom.NewPointFlat(geom.XY, []float64{1, 2})
	n, ok := fields.ValueOf(p).(fields.Native)
	if !ok || n.Raw != p {
		t.Errorf("geometry should classify as Native, got %#v", n)
	}

	if _, ok := fields.ValueOf("POINT(1 2)").(fields.Native); !ok {
		t.Error("text should classify as Native")
	}

	already := fields.Normalized{"type": "LineString"}
	if _, ok := fields.ValueOf(already).(fields.Normalized); !ok {
		t.Error("a Value should be returned as is")
	}
}
