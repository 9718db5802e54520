package http

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/geofields/internal/core/resource"
)

// maxLimit caps the page size of list requests.
const maxLimit = 1000

// PaginatedResponse wraps list results with pagination metadata.
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

// Pagination contains offset-based pagination info.
type Pagination struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
	Total  int `json:"total"`
}

// parsePagination reads offset and limit from the query string. A missing
// or zero limit means the default page size; larger limits are capped.
func parsePagination(c *fiber.Ctx) (offset, limit int, err error) {
	offset = c.QueryInt("offset", 0)
	limit = c.QueryInt("limit", resource.DefaultLimit)
	if offset < 0 {
		return 0, 0, errors.New("offset must not be negative")
	}
	if limit < 0 {
		return 0, 0, errors.New("limit must not be negative")
	}
	if limit == 0 {
		limit = resource.DefaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return offset, limit, nil
}

// SetLinkHeaders adds RFC 8288 Link headers for paginated responses.
func SetLinkHeaders(c *fiber.Ctx, p Pagination) {
	base := c.Path()
	link := func(offset int, rel string) string {
		return fmt.Sprintf(`<%s?offset=%d&limit=%d>; rel="%s"`, base, offset, p.Limit, rel)
	}

	links := []string{link(0, "first")}
	if p.Offset > 0 {
		links = append(links, link(max(p.Offset-p.Limit, 0), "prev"))
	}
	if p.Offset+p.Limit < p.Total {
		links = append(links, link(p.Offset+p.Limit, "next"))
	}
	links = append(links, link(max(p.Total-p.Limit, 0), "last"))

	c.Set(fiber.HeaderLink, strings.Join(links, ", "))
}
