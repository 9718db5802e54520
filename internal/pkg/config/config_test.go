package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/samirrijal/geofields/internal/core/domain"
)

func validConfig() *Config {
	return &Config{
		Server:   ServerConfig{Port: 8080, ReadTimeout: 10, WriteTimeout: 10},
		Database: DatabaseConfig{Host: "localhost", Port: 5432, User: "geofields", DBName: "geofields"},
		NATS:     NATSConfig{URL: "nats://localhost:4222"},
		Valkey:   ValkeyConfig{Addr: "localhost:6379"},
		Resources: []domain.ResourceDef{
			{Name: "parks", Table: "parks", PrimaryKey: "id", GeometryFormat: domain.FormatGeoJSON},
		},
	}
}

func TestValidate_OK(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	cfg.Database.Host = ""
	cfg.Resources = append(cfg.Resources,
		domain.ResourceDef{Name: "parks", Table: "parks", GeometryFormat: domain.FormatGeoJSON},
		domain.ResourceDef{Name: "trails", Table: "trails; drop table x", GeometryFormat: "kml", Methods: []string{"head"}},
	)

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"server.port", "database.host", "duplicate name", "invalid table", "geometry_format", "unknown method"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %v", want, err)
		}
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 9090
cache:
  ttl_seconds: 5
resources:
  - name: parks
    geometry_format: geojson
  - name: trails
    table: public.trails
    primary_key: gid
    geometry_format: polyline
    excludes: [internal_note]
    methods: [GET]
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile("geofields-test", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Cache.TTLSeconds != 5 {
		t.Errorf("expected ttl 5, got %d", cfg.Cache.TTLSeconds)
	}
	if cfg.Telemetry.ServiceName != "geofields-test" {
		t.Errorf("expected service name default, got %q", cfg.Telemetry.ServiceName)
	}
	if len(cfg.Resources) != 2 {
		t.Fatalf("expected 2 resources, got %d", len(cfg.Resources))
	}

	parks := cfg.Resources[0]
	if parks.Table != "parks" || parks.PrimaryKey != "id" {
		t.Errorf("expected defaults applied, got %+v", parks)
	}
	trails := cfg.Resources[1]
	if trails.GeometryFormat != domain.FormatPolyline || trails.PrimaryKey != "gid" {
		t.Errorf("unexpected trails definition %+v", trails)
	}
	if !trails.Allows("get") || trails.Allows("post") {
		t.Errorf("expected trails to be read-only, got methods %v", trails.Methods)
	}
	if len(trails.Excludes) != 1 || trails.Excludes[0] != "internal_note" {
		t.Errorf("unexpected excludes %v", trails.Excludes)
	}
}

func TestLoadFile_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GEOFIELDS_SERVER_PORT", "7070")

	cfg, err := LoadFile("geofields-test", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("expected env override 7070, got %d", cfg.Server.Port)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile("geofields-test", filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
