package ports

import (
	"context"

	"github.com/samirrijal/geofields/internal/core/domain"
)

// ListOptions selects a page of records.
type ListOptions struct {
	Offset int
	Limit  int
}

// RecordRepository reads and writes the rows behind a resource.
type RecordRepository interface {
	// Columns introspects the columns of table, in table order.
	Columns(ctx context.Context, table string) ([]domain.Column, error)
	// List returns one page of records and the total row count.
	List(ctx context.Context, table string, cols []domain.Column, opts ListOptions) ([]domain.Record, int, error)
	Get(ctx context.Context, table string, cols []domain.Column, pk string, id string) (domain.Record, error)
	// Insert stores rec and returns the new primary key.
	Insert(ctx context.Context, table string, cols []domain.Column, pk string, rec domain.Record) (string, error)
	Update(ctx context.Context, table string, cols []domain.Column, pk string, id string, rec domain.Record) error
	Delete(ctx context.Context, table string, pk string, id string) error
}
