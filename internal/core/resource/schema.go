package resource

import "github.com/samirrijal/geofields/internal/core/domain"

// FieldSchema describes one field of a resource.
type FieldSchema struct {
	Type     string `json:"type"`
	HelpText string `json:"help_text"`
	Nullable bool   `json:"nullable"`
	ReadOnly bool   `json:"readonly"`
}

// Schema describes a resource for API clients.
type Schema struct {
	Fields                   map[string]FieldSchema `json:"fields"`
	AllowedListHTTPMethods   []string               `json:"allowed_list_http_methods"`
	AllowedDetailHTTPMethods []string               `json:"allowed_detail_http_methods"`
	DefaultFormat            string                 `json:"default_format"`
	GeometryFormat           domain.GeometryFormat  `json:"geometry_format"`
	DefaultLimit             int                    `json:"default_limit"`
}

// DefaultLimit is the page size used when a list request has none.
const DefaultLimit = 20

func (r *Resource) Schema() Schema {
	s := Schema{
		Fields:         make(map[string]FieldSchema, len(r.fields)+1),
		DefaultFormat:  "application/json",
		GeometryFormat: r.def.GeometryFormat,
		DefaultLimit:   DefaultLimit,
	}
	for _, f := range r.fields {
		s.Fields[f.Attribute()] = FieldSchema{
			Type:     f.DehydratedType(),
			HelpText: f.HelpText(),
			Nullable: f.Nullable(),
			ReadOnly: f.ReadOnly(),
		}
	}
	s.Fields["resource_uri"] = FieldSchema{
		Type:     "string",
		HelpText: "Unicode string data. Ex: \"Hello World\"",
		ReadOnly: true,
	}

	for _, m := range []string{"get", "post"} {
		if r.def.Allows(m) {
			s.AllowedListHTTPMethods = append(s.AllowedListHTTPMethods, m)
		}
	}
	for _, m := range []string{"get", "put", "patch", "delete"} {
		if r.def.Allows(m) {
			s.AllowedDetailHTTPMethods = append(s.AllowedDetailHTTPMethods, m)
		}
	}
	return s
}
