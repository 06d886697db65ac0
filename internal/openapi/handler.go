package openapi

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"gopkg.in/yaml.v3"
)

// Handler provides HTTP endpoints for serving a generated OpenAPI
// document, backing the CLI's preview server.
type Handler struct {
	spec      *OpenAPI
	specJSON  []byte
	specYAML  []byte
	buildOnce sync.Once
}

// NewHandler creates a new OpenAPI HTTP handler.
func NewHandler(spec *OpenAPI) *Handler {
	return &Handler{spec: spec}
}

// buildCachedSpec pre-renders the JSON and YAML representations.
func (h *Handler) buildCachedSpec() {
	h.buildOnce.Do(func() {
		h.specJSON, _ = json.MarshalIndent(h.spec, "", "  ")
		h.specYAML, _ = yaml.Marshal(h.spec)
	})
}

// RegisterRoutes registers the OpenAPI HTTP routes on a chi router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/openapi.json", h.ServeJSON)
	r.Get("/openapi.yaml", h.ServeYAML)
	r.Get("/docs", h.ServeSwaggerUI)
	r.Get("/redoc", h.ServeReDoc)
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, "/docs", http.StatusFound)
	})
}

// ServeJSON serves the OpenAPI document as JSON.
func (h *Handler) ServeJSON(w http.ResponseWriter, r *http.Request) {
	h.buildCachedSpec()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(h.specJSON)
}

// ServeYAML serves the OpenAPI document as YAML.
func (h *Handler) ServeYAML(w http.ResponseWriter, r *http.Request) {
	h.buildCachedSpec()
	w.Header().Set("Content-Type", "application/x-yaml")
	w.WriteHeader(http.StatusOK)
	w.Write(h.specYAML)
}

// ServeSwaggerUI serves a Swagger UI page for the document.
func (h *Handler) ServeSwaggerUI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(swaggerUIHTML("/openapi.json", h.spec.Info.Title)))
}

// ServeReDoc serves a ReDoc page for the document.
func (h *Handler) ServeReDoc(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(reDocHTML("/openapi.json", h.spec.Info.Title)))
}

// swaggerUIHTML builds an HTML page that loads Swagger UI from a CDN.
func swaggerUIHTML(specURL, title string) string {
	if title == "" {
		title = "API Documentation"
	}
	return `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>` + title + `</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
    <style>
        body { margin: 0; background: #fafafa; }
        .swagger-ui .topbar { display: none; }
    </style>
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
        window.onload = function() {
            window.ui = SwaggerUIBundle({
                url: "` + specURL + `",
                dom_id: '#swagger-ui',
                deepLinking: true,
                validatorUrl: null
            });
        };
    </script>
</body>
</html>`
}

// reDocHTML builds an HTML page that loads ReDoc from a CDN.
func reDocHTML(specURL, title string) string {
	if title == "" {
		title = "API Documentation"
	}
	return `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>` + title + `</title>
    <style>
        body { margin: 0; padding: 0; }
    </style>
</head>
<body>
    <redoc spec-url="` + specURL + `"></redoc>
    <script src="https://cdn.redoc.ly/redoc/latest/bundles/redoc.standalone.js"></script>
</body>
</html>`
}
