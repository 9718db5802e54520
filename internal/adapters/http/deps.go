package http

import (
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/geofields/internal/adapters/postgres"
	"github.com/samirrijal/geofields/internal/adapters/valkey"
	"github.com/samirrijal/geofields/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Resources *usecases.ResourceService
	NATS      *nats.Conn
	DB        *postgres.DB
	Cache     *valkey.Cache

	// CacheMaxAge is the Cache-Control max-age of resource GETs, in seconds.
	CacheMaxAge int
}
