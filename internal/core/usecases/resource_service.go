package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/geofields/internal/core/domain"
	"github.com/samirrijal/geofields/internal/core/fields"
	"github.com/samirrijal/geofields/internal/core/ports"
	"github.com/samirrijal/geofields/internal/core/resource"
	"github.com/samirrijal/geofields/internal/pkg/metrics"
)

var tracer = otel.Tracer("github.com/samirrijal/geofields/internal/core/usecases")

// Page is one page of dehydrated records.
type Page struct {
	Objects []map[string]any `json:"objects"`
	Total   int              `json:"total"`
}

// ResourceService serves the configured resources.
type ResourceService struct {
	defs      []domain.ResourceDef
	records   ports.RecordRepository
	cache     ports.CacheService
	publisher ports.EventPublisher
	cacheTTL  int

	order     []string
	resources map[string]*resource.Resource
}

// NewResourceService creates a new ResourceService. cache and publisher may
// be nil.
func NewResourceService(
	defs []domain.ResourceDef,
	records ports.RecordRepository,
	cache ports.CacheService,
	publisher ports.EventPublisher,
	cacheTTL int,
) *ResourceService {
	return &ResourceService{
		defs:      defs,
		records:   records,
		cache:     cache,
		publisher: publisher,
		cacheTTL:  cacheTTL,
		resources: make(map[string]*resource.Resource),
	}
}

// Load introspects every resource table and builds its field set. It must
// run before the service handles requests.
func (s *ResourceService) Load(ctx context.Context) error {
	for _, def := range s.defs {
		cols, err := s.records.Columns(ctx, def.Table)
		if err != nil {
			return fmt.Errorf("introspect %s: %w", def.Table, err)
		}
		r, err := resource.New(def, cols, fields.RegistryFor(def.GeometryFormat))
		if err != nil {
			return err
		}
		if _, dup := s.resources[def.Name]; !dup {
			s.order = append(s.order, def.Name)
		}
		s.resources[def.Name] = r
		slog.Info("resource loaded", "resource", def.Name, "table", def.Table,
			"fields", len(r.Fields()), "geometry_format", def.GeometryFormat)
	}
	return nil
}

// Resources returns the loaded resources in configuration order.
func (s *ResourceService) Resources() []*resource.Resource {
	out := make([]*resource.Resource, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.resources[name])
	}
	return out
}

// Resource returns a loaded resource by name.
func (s *ResourceService) Resource(name string) (*resource.Resource, error) {
	r, ok := s.resources[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownResource, name)
	}
	return r, nil
}

// List returns a page of dehydrated records.
func (s *ResourceService) List(ctx context.Context, name string, offset, limit int) (page *Page, err error) {
	ctx, span := startSpan(ctx, "ResourceService.List", name)
	defer func() { endSpan(span, err) }()

	r, err := s.Resource(name)
	if err != nil {
		return nil, err
	}
	if !r.Def().Allows("get") {
		return nil, domain.ErrMethodNotAllowed
	}
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = resource.DefaultLimit
	}

	cacheKey := fmt.Sprintf("%slist:%d:%d", cachePrefix(name), offset, limit)
	page = &Page{}
	if s.cacheGet(ctx, "list", cacheKey, page) {
		for _, obj := range page.Objects {
			restoreEncoded(r, obj)
		}
		return page, nil
	}

	recs, total, err := s.records.List(ctx, r.Def().Table, r.ExposedColumns(), ports.ListOptions{Offset: offset, Limit: limit})
	if err != nil {
		return nil, err
	}
	page = &Page{Objects: make([]map[string]any, 0, len(recs)), Total: total}
	for _, rec := range recs {
		obj, err := s.dehydrate(r, rec)
		if err != nil {
			return nil, err
		}
		page.Objects = append(page.Objects, obj)
	}

	s.cacheSet(ctx, cacheKey, page)
	return page, nil
}

// Get returns a single dehydrated record.
func (s *ResourceService) Get(ctx context.Context, name, id string) (obj map[string]any, err error) {
	ctx, span := startSpan(ctx, "ResourceService.Get", name)
	defer func() { endSpan(span, err) }()

	r, err := s.Resource(name)
	if err != nil {
		return nil, err
	}
	if !r.Def().Allows("get") {
		return nil, domain.ErrMethodNotAllowed
	}

	cacheKey := cachePrefix(name) + "id:" + id
	if s.cacheGet(ctx, "get", cacheKey, &obj) {
		restoreEncoded(r, obj)
		return obj, nil
	}

	rec, err := s.records.Get(ctx, r.Def().Table, r.ExposedColumns(), r.Def().PrimaryKey, id)
	if err != nil {
		return nil, err
	}
	obj, err = s.dehydrate(r, rec)
	if err != nil {
		return nil, err
	}

	s.cacheSet(ctx, cacheKey, obj)
	return obj, nil
}

// Create hydrates payload, stores it and returns the stored record.
func (s *ResourceService) Create(ctx context.Context, name string, payload map[string]any) (obj map[string]any, err error) {
	ctx, span := startSpan(ctx, "ResourceService.Create", name)
	defer func() { endSpan(span, err) }()

	r, err := s.writable(name, "post")
	if err != nil {
		return nil, err
	}
	rec, err := s.hydrate(r, payload, false)
	if err != nil {
		return nil, err
	}
	id, err := s.records.Insert(ctx, r.Def().Table, r.ExposedColumns(), r.Def().PrimaryKey, rec)
	if err != nil {
		return nil, err
	}
	return s.afterWrite(ctx, r, id, domain.ActionCreated)
}

// Update replaces (or with partial set, patches) a record.
func (s *ResourceService) Update(ctx context.Context, name, id string, payload map[string]any, partial bool) (obj map[string]any, err error) {
	ctx, span := startSpan(ctx, "ResourceService.Update", name)
	defer func() { endSpan(span, err) }()

	method := "put"
	if partial {
		method = "patch"
	}
	r, err := s.writable(name, method)
	if err != nil {
		return nil, err
	}
	rec, err := s.hydrate(r, payload, partial)
	if err != nil {
		return nil, err
	}
	if err := s.records.Update(ctx, r.Def().Table, r.ExposedColumns(), r.Def().PrimaryKey, id, rec); err != nil {
		return nil, err
	}
	return s.afterWrite(ctx, r, id, domain.ActionUpdated)
}

// Delete removes a record.
func (s *ResourceService) Delete(ctx context.Context, name, id string) (err error) {
	ctx, span := startSpan(ctx, "ResourceService.Delete", name)
	defer func() { endSpan(span, err) }()

	r, err := s.writable(name, "delete")
	if err != nil {
		return err
	}
	if err := s.records.Delete(ctx, r.Def().Table, r.Def().PrimaryKey, id); err != nil {
		return err
	}
	s.Invalidate(ctx, name, id)
	s.publish(ctx, &domain.ChangeEvent{Resource: name, ID: id, Action: domain.ActionDeleted, Time: time.Now().UTC()})
	return nil
}

// Invalidate drops cached responses touching a record of resource name.
func (s *ResourceService) Invalidate(ctx context.Context, name, id string) {
	if s.cache == nil {
		return
	}
	if id != "" {
		if err := s.cache.Delete(ctx, cachePrefix(name)+"id:"+id); err != nil {
			slog.WarnContext(ctx, "cache delete failed", "resource", name, "id", id, "error", err)
		}
	}
	if err := s.cache.DeletePrefix(ctx, cachePrefix(name)+"list:"); err != nil {
		slog.WarnContext(ctx, "cache invalidation failed", "resource", name, "error", err)
	}
}

func (s *ResourceService) writable(name, method string) (*resource.Resource, error) {
	r, err := s.Resource(name)
	if err != nil {
		return nil, err
	}
	if !r.Def().Allows(method) {
		return nil, domain.ErrMethodNotAllowed
	}
	return r, nil
}

func (s *ResourceService) afterWrite(ctx context.Context, r *resource.Resource, id string, action domain.ChangeAction) (map[string]any, error) {
	s.Invalidate(ctx, r.Name(), id)

	rec, err := s.records.Get(ctx, r.Def().Table, r.ExposedColumns(), r.Def().PrimaryKey, id)
	if err != nil {
		return nil, fmt.Errorf("reload %s/%s: %w", r.Name(), id, err)
	}
	obj, err := s.dehydrate(r, rec)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, &domain.ChangeEvent{Resource: r.Name(), ID: id, Action: action, Record: obj, Time: time.Now().UTC()})
	return obj, nil
}

func (s *ResourceService) dehydrate(r *resource.Resource, rec domain.Record) (map[string]any, error) {
	format := string(r.Def().GeometryFormat)
	obj, err := r.Dehydrate(rec)
	if err != nil {
		metrics.ConversionErrors.WithLabelValues(r.Name(), "dehydrate").Inc()
		return nil, err
	}
	metrics.RecordsDehydrated.WithLabelValues(r.Name(), format).Inc()
	return obj, nil
}

func (s *ResourceService) hydrate(r *resource.Resource, payload map[string]any, partial bool) (domain.Record, error) {
	rec, err := r.Hydrate(payload, partial)
	if err != nil {
		metrics.ConversionErrors.WithLabelValues(r.Name(), "hydrate").Inc()
		return nil, err
	}
	return rec, nil
}

func (s *ResourceService) publish(ctx context.Context, event *domain.ChangeEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishChange(ctx, event); err != nil {
		slog.WarnContext(ctx, "publish change failed", "resource", event.Resource, "id", event.ID, "error", err)
		return
	}
	metrics.ChangeEventsPublished.WithLabelValues(event.Resource, string(event.Action)).Inc()
}

func (s *ResourceService) cacheGet(ctx context.Context, op, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		metrics.CacheMisses.WithLabelValues(op).Inc()
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		metrics.CacheMisses.WithLabelValues(op).Inc()
		return false
	}
	metrics.CacheHits.WithLabelValues(op).Inc()
	return true
}

func (s *ResourceService) cacheSet(ctx context.Context, key string, v any) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}
	if data, err := json.Marshal(v); err == nil {
		_ = s.cache.Set(ctx, key, data, s.cacheTTL)
	}
}

// restoreEncoded turns polyline mappings decoded from the cache back into
// EncodedGeometry, which keeps parts in index order when re-encoded.
func restoreEncoded(r *resource.Resource, obj map[string]any) {
	for _, col := range r.ExposedColumns() {
		if _, ok := r.Field(col.Name).(*fields.PolylineField); !ok {
			continue
		}
		m, ok := obj[col.Name].(map[string]any)
		if !ok {
			continue
		}
		if e, ok := fields.EncodedGeometryFromMap(m); ok {
			obj[col.Name] = e
		}
	}
}

func cachePrefix(name string) string { return "res:" + name + ":" }

func startSpan(ctx context.Context, op, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, op, trace.WithAttributes(attribute.String("resource", name)))
}

func endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
