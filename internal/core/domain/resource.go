package domain

import (
	"errors"
	"time"
)

var (
	ErrNotFound         = errors.New("record not found")
	ErrUnknownResource  = errors.New("unknown resource")
	ErrMethodNotAllowed = errors.New("method not allowed")
)

// Record is a single table row keyed by column name. Geometry columns hold a
// geom.T (or nil) as read from storage.
type Record map[string]any

// ResourceDef declares a table exposed through the API.
type ResourceDef struct {
	Name           string         `mapstructure:"name" json:"name"`
	Table          string         `mapstructure:"table" json:"table"`
	PrimaryKey     string         `mapstructure:"primary_key" json:"primary_key"`
	GeometryFormat GeometryFormat `mapstructure:"geometry_format" json:"geometry_format"`
	Excludes       []string       `mapstructure:"excludes" json:"excludes,omitempty"`
	Methods        []string       `mapstructure:"methods" json:"methods,omitempty"` // empty = all
}

// DefaultMethods are allowed when a definition does not restrict them.
var DefaultMethods = []string{"get", "post", "put", "patch", "delete"}

// Allows reports whether the HTTP method (lower case) is enabled.
func (d ResourceDef) Allows(method string) bool {
	methods := d.Methods
	if len(methods) == 0 {
		methods = DefaultMethods
	}
	for _, m := range methods {
		if m == method {
			return true
		}
	}
	return false
}

// ChangeAction is the kind of write applied to a record.
type ChangeAction string

const (
	ActionCreated ChangeAction = "created"
	ActionUpdated ChangeAction = "updated"
	ActionDeleted ChangeAction = "deleted"
)

// ChangeEvent is published after every successful write.
type ChangeEvent struct {
	Resource string         `json:"resource"`
	ID       string         `json:"id"`
	Action   ChangeAction   `json:"action"`
	Record   map[string]any `json:"record,omitempty"` // dehydrated; absent on delete
	Time     time.Time      `json:"time"`
}
