package http

import (
	"bytes"
	"html/template"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/geofields/internal/core/domain"
)

var docsPage = template.Must(template.New("docs").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>geofields API</title>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
  <style>
    body{margin:0;background:#fafafa;font-family:sans-serif}
    header{padding:12px 20px;background:#1f3a2e;color:#fff}
    header a{color:#cde8d6;margin-right:14px}
    table{border-collapse:collapse;margin-top:8px}
    td,th{padding:2px 12px 2px 0;text-align:left}
  </style>
</head>
<body>
  <header>
    <strong>geofields</strong>
    <a href="/v1/resources">resource index</a>
    <a href="/graphql">graphql</a>
    <a href="/v1/health">health</a>
    <a href="/metrics">metrics</a>
    <a href="/docs/openapi.yaml">openapi.yaml</a>
    {{if .}}
    <table>
      <tr><th>resource</th><th>geometry</th><th>methods</th><th></th></tr>
      {{range .}}
      <tr>
        <td><a href="{{.List}}">{{.Name}}</a></td>
        <td>{{.Format}}</td>
        <td>{{.Methods}}</td>
        <td><a href="{{.Schema}}">schema</a></td>
      </tr>
      {{end}}
    </table>
    {{end}}
  </header>
  <div id="swagger-ui"></div>
  <script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({
      url: '/docs/openapi.yaml',
      dom_id: '#swagger-ui',
      deepLinking: true,
      presets: [SwaggerUIBundle.presets.apis],
    });
  </script>
</body>
</html>`))

type docsResource struct {
	Name, Format, Methods, List, Schema string
}

// OpenAPIPath is where the OpenAPI document is read from, relative to the
// working directory.
var OpenAPIPath = "api/openapi.yaml"

// SetupDocs registers the API overview at /docs, listing every configured
// resource above Swagger UI, and the raw OpenAPI document at
// /docs/openapi.yaml.
func SetupDocs(app *fiber.App, deps *Dependencies) {
	app.Get("/docs", func(c *fiber.Ctx) error {
		var rows []docsResource
		for _, r := range deps.Resources.Resources() {
			methods := r.Def().Methods
			if len(methods) == 0 {
				methods = domain.DefaultMethods
			}
			rows = append(rows, docsResource{
				Name:    r.Name(),
				Format:  string(r.Def().GeometryFormat),
				Methods: strings.Join(methods, ", "),
				List:    r.ListURI(),
				Schema:  r.ListURI() + "schema/",
			})
		}
		var buf bytes.Buffer
		if err := docsPage.Execute(&buf, rows); err != nil {
			LoggerFromCtx(c.UserContext()).Error("render docs", "error", err)
			return errInternal(c, "internal error")
		}
		c.Set("Content-Type", "text/html; charset=utf-8")
		return c.Send(buf.Bytes())
	})

	app.Get("/docs/openapi.yaml", func(c *fiber.Ctx) error {
		data, err := os.ReadFile(OpenAPIPath)
		if err != nil {
			return errNotFound(c, "openapi.yaml not found")
		}
		c.Set("Content-Type", "application/yaml")
		return c.Send(data)
	})
}
