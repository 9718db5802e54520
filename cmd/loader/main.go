// Command loader imports a GeoJSON FeatureCollection into a resource. Every
// feature goes through the same hydrate path as an API POST, so field
// validation and change events behave exactly as for API writes.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/twpayne/go-geom/encoding/geojson"

	natsadapter "github.com/samirrijal/geofields/internal/adapters/nats"
	"github.com/samirrijal/geofields/internal/adapters/postgres"
	"github.com/samirrijal/geofields/internal/core/ports"
	"github.com/samirrijal/geofields/internal/core/resource"
	"github.com/samirrijal/geofields/internal/core/usecases"
	"github.com/samirrijal/geofields/internal/pkg/config"
	"github.com/samirrijal/geofields/internal/pkg/geospatial"
	"github.com/samirrijal/geofields/internal/pkg/logging"
	"github.com/samirrijal/geofields/internal/pkg/metrics"
)

func main() {
	name := flag.String("resource", "", "resource to load into (required)")
	field := flag.String("geometry-field", "", "geometry field receiving feature geometries (default: first geometry column)")
	workers := flag.Int("workers", 4, "concurrent inserts")
	publish := flag.Bool("publish", true, "publish change events to NATS")
	flag.Parse()

	if *name == "" || flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: loader -resource <name> [flags] <features.geojson>")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := config.Load("geofields-loader")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	ctx := context.Background()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	var publisher ports.EventPublisher
	if *publish {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable, loading without change events", "error", err)
		} else {
			defer pub.Close()
			publisher = pub
		}
	}

	svc := usecases.NewResourceService(cfg.Resources, postgres.NewRecordRepo(db), nil, publisher, 0)
	if err := svc.Load(ctx); err != nil {
		log.Fatalf("load resources: %v", err)
	}
	res, err := svc.Resource(*name)
	if err != nil {
		log.Fatalf("%v", err)
	}

	geomField, err := geometryField(res, *field)
	if err != nil {
		log.Fatalf("%v", err)
	}

	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatalf("read %s: %v", flag.Arg(0), err)
	}
	payloads, err := featurePayloads(data, geomField)
	if err != nil {
		log.Fatalf("parse %s: %v", flag.Arg(0), err)
	}

	slog.Info("loading features", "resource", *name, "features", len(payloads), "geometry_field", geomField)

	loaded, failed := load(ctx, payloads, *workers, func(ctx context.Context, p map[string]any) error {
		_, err := svc.Create(ctx, *name, p)
		return err
	}, func(i int, err error) {
		if err != nil {
			metrics.FeaturesLoaded.WithLabelValues(*name, "error").Inc()
			slog.Error("feature rejected", "index", i, "error", err)
			return
		}
		metrics.FeaturesLoaded.WithLabelValues(*name, "ok").Inc()
	})

	slog.Info("load complete", "resource", *name, "loaded", loaded, "failed", failed)
	if failed > 0 {
		os.Exit(1)
	}
}

type indexedPayload struct {
	index   int
	payload map[string]any
}

// load runs create over payloads with a fixed pool of workers and reports
// every outcome to done. It returns the success and failure counts.
func load(ctx context.Context, payloads []map[string]any, workers int,
	create func(context.Context, map[string]any) error,
	done func(index int, err error),
) (loaded, failed int64) {
	var (
		wg  sync.WaitGroup
		ok  atomic.Int64
		bad atomic.Int64
	)
	jobs := make(chan indexedPayload)

	for w := 0; w < max(workers, 1); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				err := create(ctx, job.payload)
				if err != nil {
					bad.Add(1)
				} else {
					ok.Add(1)
				}
				done(job.index, err)
			}
		}()
	}

	for i, p := range payloads {
		jobs <- indexedPayload{index: i, payload: p}
	}
	close(jobs)
	wg.Wait()
	return ok.Load(), bad.Load()
}

// geometryField picks the field receiving feature geometries: the named one,
// which must be a geometry column, or the first geometry column.
func geometryField(r *resource.Resource, name string) (string, error) {
	for _, c := range r.ExposedColumns() {
		if !c.IsGeometry() {
			continue
		}
		if name == "" || c.Name == name {
			return c.Name, nil
		}
	}
	if name != "" {
		return "", fmt.Errorf("resource %s has no geometry field %q", r.Name(), name)
	}
	return "", fmt.Errorf("resource %s has no geometry field", r.Name())
}

// featurePayloads turns every feature into an API payload: its properties
// plus its geometry, as a GeoJSON object, under geomField. A single Feature
// is accepted as a collection of one.
func featurePayloads(data []byte, geomField string) ([]map[string]any, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}

	var features []*geojson.Feature
	switch head.Type {
	case "FeatureCollection":
		var fc geojson.FeatureCollection
		if err := json.Unmarshal(data, &fc); err != nil {
			return nil, err
		}
		features = fc.Features
	case "Feature":
		var f geojson.Feature
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, err
		}
		features = []*geojson.Feature{&f}
	default:
		return nil, errors.New("expected a GeoJSON Feature or FeatureCollection, got " + head.Type)
	}

	payloads := make([]map[string]any, 0, len(features))
	for i, f := range features {
		p := make(map[string]any, len(f.Properties)+1)
		for k, v := range f.Properties {
			p[k] = v
		}
		if f.Geometry == nil {
			p[geomField] = nil
		} else {
			text, err := geospatial.GeoJSON(f.Geometry)
			if err != nil {
				return nil, fmt.Errorf("feature %d: %w", i, err)
			}
			var obj map[string]any
			if err := json.Unmarshal(text, &obj); err != nil {
				return nil, fmt.Errorf("feature %d: %w", i, err)
			}
			p[geomField] = obj
		}
		payloads = append(payloads, p)
	}
	return payloads, nil
}
