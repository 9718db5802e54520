package fields

import (
	"errors"
)

// ErrFieldRequired is returned when a non-nullable field receives no data.
var ErrFieldRequired = errors.New("field has no data and doesn't allow a null value")

// Field converts one column between its stored and its API representation.
type Field interface {
	Attribute() string
	DehydratedType() string
	HelpText() string
	Nullable() bool
	ReadOnly() bool

	// Dehydrate converts a stored value for API output.
	Dehydrate(v any) (any, error)
	// Hydrate converts an API input value for storage.
	Hydrate(v any) (any, error)
}

// Options are shared by every field constructor.
type Options struct {
	Attribute string
	Null      bool
	ReadOnly  bool
	HelpText  string
}

// Factory constructs a field. Registries map column types to factories.
type Factory func(Options) Field

type base struct {
	opts     Options
	typeName string
	help     string
}

func newBase(opts Options, typeName, help string) base {
	if opts.HelpText != "" {
		help = opts.HelpText
	}
	return base{opts: opts, typeName: typeName, help: help}
}

func (b base) Attribute() string      { return b.opts.Attribute }
func (b base) DehydratedType() string { return b.typeName }
func (b base) HelpText() string       { return b.help }
func (b base) Nullable() bool         { return b.opts.Null }
func (b base) ReadOnly() bool         { return b.opts.ReadOnly }

// Dehydrate and Hydrate pass values through unchanged.
func (b base) Dehydrate(v any) (any, error) { return v, nil }
func (b base) Hydrate(v any) (any, error)   { return v, nil }
