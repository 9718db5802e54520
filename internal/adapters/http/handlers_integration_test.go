//go:build integration
// +build integration

package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	handler "github.com/samirrijal/geofields/internal/adapters/http"
	"github.com/samirrijal/geofields/internal/adapters/postgres"
	"github.com/samirrijal/geofields/internal/core/domain"
	"github.com/samirrijal/geofields/internal/core/usecases"
	"github.com/samirrijal/geofields/internal/pkg/config"
)

// setupTestDB connects to the test database and creates a scratch table.
func setupTestDB(t *testing.T) (*postgres.DB, string) {
	cfg, err := config.Load("geofields-test")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(db.Close)

	table := fmt.Sprintf("it_parks_%d", time.Now().UnixNano())
	if _, err := db.Pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS postgis`); err != nil {
		t.Fatalf("postgis: %v", err)
	}
	if _, err := db.Pool.Exec(ctx, `
		CREATE TABLE `+table+` (
			id   serial PRIMARY KEY,
			name text NOT NULL,
			area geometry(Geometry, 4326)
		)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	t.Cleanup(func() {
		_, _ = db.Pool.Exec(context.Background(), `DROP TABLE IF EXISTS `+table)
	})
	return db, table
}

func setupTestDeps(t *testing.T, db *postgres.DB, table string, format domain.GeometryFormat) *handler.Dependencies {
	svc := usecases.NewResourceService(
		[]domain.ResourceDef{{Name: "parks", Table: table, PrimaryKey: "id", GeometryFormat: format}},
		postgres.NewRecordRepo(db), nil, nil, 0,
	)
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return &handler.Dependencies{Resources: svc, DB: db}
}

// TestGeoJSONRoundTrip_Integration stores a GeoJSON polygon through the API
// and reads it back from PostGIS.
func TestGeoJSONRoundTrip_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db, table := setupTestDB(t)
	app := setupApp(setupTestDeps(t, db, table, domain.FormatGeoJSON))

	polygon := `{"type":"Polygon","coordinates":[[[-2.94,43.26],[-2.93,43.26],[-2.93,43.27],[-2.94,43.26]]]}`
	status, body := doJSON(t, app, "POST", "/v1/resources/parks", `{"name":"Doña Casilda","area":`+polygon+`}`)
	if status != 201 {
		t.Fatalf("expected 201, got %d: %s", status, body)
	}

	var created map[string]any
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatal(err)
	}
	var want map[string]any
	if err := json.Unmarshal([]byte(polygon), &want); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(created["area"], want) {
		t.Errorf("round trip mismatch:\n got %v\nwant %v", created["area"], want)
	}

	var srid int
	if err := db.Pool.QueryRow(context.Background(), `SELECT ST_SRID(area) FROM `+table).Scan(&srid); err != nil {
		t.Fatal(err)
	}
	if srid != 4326 {
		t.Errorf("expected column SRID 4326, got %d", srid)
	}
}

// TestPolylineRead_Integration reads a multi line string as encoded parts.
func TestPolylineRead_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db, table := setupTestDB(t)
	var id int
	if err := db.Pool.QueryRow(context.Background(), `
		INSERT INTO `+table+` (name, area)
		VALUES ('GR 38', ST_GeomFromText('MULTILINESTRING((-120.2 38.5, -120.95 40.7, -126.453 43.252), (0 0, 1 1))', 4326))
		RETURNING id`).Scan(&id); err != nil {
		t.Fatalf("seed: %v", err)
	}

	app := setupApp(setupTestDeps(t, db, table, domain.FormatPolyline))
	status, body := doJSON(t, app, "GET", fmt.Sprintf("/v1/resources/parks/%d", id), "")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	if !strings.Contains(string(body), `"0":"_p~iF~ps|U_ulLnnqC_mqNvxq`+"`"+`@"`) {
		t.Errorf("unexpected body %s", body)
	}
}

// TestInvalidGeometry_Integration rejects unparseable geometry text.
func TestInvalidGeometry_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db, table := setupTestDB(t)
	app := setupApp(setupTestDeps(t, db, table, domain.FormatPolyline))

	status, body := doJSON(t, app, "POST", "/v1/resources/parks", `{"name":"x","area":"POINT(1"}`)
	if status != 400 {
		t.Fatalf("expected 400, got %d: %s", status, body)
	}
}
