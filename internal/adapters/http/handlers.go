package http

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// ResourceIndexEntry links to the endpoints of one resource.
type ResourceIndexEntry struct {
	ListEndpoint   string `json:"list_endpoint"`
	Schema         string `json:"schema"`
	GeometryFormat string `json:"geometry_format"`
}

// IndexHandler lists every resource with its endpoints.
func IndexHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		index := make(map[string]ResourceIndexEntry)
		for _, r := range deps.Resources.Resources() {
			index[r.Name()] = ResourceIndexEntry{
				ListEndpoint:   r.ListURI(),
				Schema:         r.ListURI() + "schema/",
				GeometryFormat: string(r.Def().GeometryFormat),
			}
		}
		return c.JSON(index)
	}
}

// SchemaHandler describes the fields of a resource.
func SchemaHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		r, err := deps.Resources.Resource(c.Params("name"))
		if err != nil {
			return errService(c, err)
		}
		return c.JSON(r.Schema())
	}
}

// ListRecordsHandler returns a page of records.
func ListRecordsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		offset, limit, err := parsePagination(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		page, err := deps.Resources.List(c.UserContext(), c.Params("name"), offset, limit)
		if err != nil {
			return errService(c, err)
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: page.Total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: page.Objects, Pagination: pg})
	}
}

// GetRecordHandler returns a single record.
func GetRecordHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		obj, err := deps.Resources.Get(c.UserContext(), c.Params("name"), c.Params("id"))
		if err != nil {
			return errService(c, err)
		}
		return c.JSON(obj)
	}
}

// CreateRecordHandler stores a new record and returns it with 201.
func CreateRecordHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload, err := parsePayload(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		obj, err := deps.Resources.Create(c.UserContext(), c.Params("name"), payload)
		if err != nil {
			return errService(c, err)
		}
		if uri, ok := obj["resource_uri"].(string); ok && uri != "" {
			c.Location(uri)
		}
		return c.Status(fiber.StatusCreated).JSON(obj)
	}
}

// UpdateRecordHandler serves PUT (full replace) and PATCH (partial update).
func UpdateRecordHandler(deps *Dependencies, partial bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload, err := parsePayload(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		obj, err := deps.Resources.Update(c.UserContext(), c.Params("name"), c.Params("id"), payload, partial)
		if err != nil {
			return errService(c, err)
		}
		return c.JSON(obj)
	}
}

// DeleteRecordHandler removes a record and answers 204.
func DeleteRecordHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Resources.Delete(c.UserContext(), c.Params("name"), c.Params("id")); err != nil {
			return errService(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// parsePayload decodes the request body as a JSON object.
func parsePayload(c *fiber.Ctx) (map[string]any, error) {
	body := c.Body()
	if len(body) == 0 {
		return nil, errors.New("request body is required")
	}
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	if payload == nil {
		return nil, errors.New("request body must be a JSON object")
	}
	return payload, nil
}
