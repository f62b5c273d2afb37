package swagger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	texttemplate "text/template"
)

// Error constants.
var (
	ErrServe  = errors.New("swagger serve failed")
	ErrRender = errors.New("openapi render failed")
)

const defaultRedocURL = "https://cdn.redoc.ly/redoc/v2.1.5/bundles/redoc.standalone.js"

type config struct {
	title    string
	basePath string
	redocURL string
}

// Option configures the documentation routes.
type Option func(*config)

// WithTitle sets the document and page title.
func WithTitle(title string) Option {
	return func(c *config) {
		if title != "" {
			c.title = title
		}
	}
}

// WithBasePath sets the server URL the data routes are mounted under.
func WithBasePath(base string) Option {
	return func(c *config) {
		if base != "" {
			c.basePath = base
		}
	}
}

// WithRedocURL points the docs page at another ReDoc bundle.
func WithRedocURL(u string) Option {
	return func(c *config) {
		if u != "" {
			c.redocURL = u
		}
	}
}

// Render fills the embedded OpenAPI template.
func Render(title, basePath string) ([]byte, error) {
	tmpl, err := texttemplate.New("openapi").Parse(string(OpenAPI))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRender, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct{ Title, BasePath string }{title, basePath}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRender, err)
	}
	return buf.Bytes(), nil
}

// Register attaches the ReDoc page and the OpenAPI document to mux.
// Routes:
//
//	GET /api-docs      -> ReDoc HTML
//	GET /openapi.yaml  -> rendered OpenAPI spec
func Register(_ context.Context, mux *http.ServeMux, opts ...Option) {
	if mux == nil {
		panic("mux is nil")
	}
	cfg := config{title: "app1 API", basePath: "/api", redocURL: defaultRedocURL}
	for _, opt := range opts {
		opt(&cfg)
	}

	doc, err := Render(cfg.title, cfg.basePath)
	if err != nil {
		// The template is embedded at build time.
		panic(err)
	}
	var page bytes.Buffer
	if err := indexHTML.Execute(&page, cfg.view()); err != nil {
		panic(fmt.Errorf("%w: %w", ErrServe, err))
	}
	html := page.Bytes()

	mux.HandleFunc("GET /api-docs", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(html)
	})

	mux.HandleFunc("GET /openapi.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
		_, _ = w.Write(doc)
	})
}

func (c config) view() map[string]string {
	return map[string]string{"Title": c.title, "RedocURL": c.redocURL}
}

var indexHTML = template.Must(template.New("index").Parse(`<!doctype html>
<html>
  <head>
    <meta charset="utf-8">
    <title>{{ .Title }} - ReDoc</title>
    <style>body{margin:0;padding:0}</style>
  </head>
  <body>
    <redoc id="redoc-container"></redoc>
    <script src="{{ .RedocURL }}"></script>
    <script>Redoc.init('/openapi.yaml', { suppressWarnings: true }, document.getElementById('redoc-container'));</script>
  </body>
</html>`))
