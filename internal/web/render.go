package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/hpungsan/tabstash/internal/errors"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
	Nav     string // active nav item: "groups", "deleted"
}

// MarkdownPageData is the template data for pages rendered from markdown.
type MarkdownPageData struct {
	PageData
	RenderedHTML template.HTML
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

const layoutTemplate = `{{define "layout"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}} · tabstash</title>
</head>
<body>
<nav>
<a href="/groups"{{if eq .Nav "groups"}} aria-current="page"{{end}}>Groups</a>
<a href="/deleted"{{if eq .Nav "deleted"}} aria-current="page"{{end}}>Recently deleted</a>
</nav>
<main>{{template "content" .}}</main>
<footer>tabstash {{.Version}}</footer>
</body>
</html>{{end}}`

var pageTemplates = map[string]string{
	"markdown": `{{define "content"}}{{.RenderedHTML}}{{end}}`,
	"error":    `{{define "content"}}<h1>Error {{.StatusCode}}</h1><p class="error-message">{{.Message}}</p>{{end}}`,
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	version   string
	logger    *slog.Logger
}

// NewRenderer parses the page templates.
func NewRenderer(version string, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	layout := template.Must(template.New("layout").Parse(layoutTemplate))

	templates := make(map[string]*template.Template, len(pageTemplates))
	for name, body := range pageTemplates {
		t := template.Must(layout.Clone())
		template.Must(t.Parse(body))
		templates[name] = t
	}

	return &Renderer{templates: templates, version: version, logger: logger}
}

// renderMarkdownPage renders md inside the layout with HTTP 200 status.
func (r *Renderer) renderMarkdownPage(w http.ResponseWriter, title, nav, md string) {
	r.renderPageStatus(w, http.StatusOK, "markdown", MarkdownPageData{
		PageData:     PageData{Title: title, Version: r.version, Nav: nav},
		RenderedHTML: renderMarkdown(md),
	})
}

// renderPageStatus renders a named page template with the given data and HTTP status code.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, status int, name string, data any) {
	t, ok := r.templates[name]
	if !ok {
		r.logger.Error("template not found", "name", name)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		r.logger.Error("template execution failed", "name", name, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderError renders an error response with content negotiation.
// Internal error details are not exposed.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	se := errors.As(err)
	status := se.Status
	message := se.Message
	if se.Code == errors.ErrInternal {
		r.logger.Error("request failed", "path", req.URL.Path, "error", err)
		message = "an internal error occurred"
	}

	if wantsJSON(req) {
		renderJSON(w, status, map[string]any{
			"error": map[string]any{
				"code":    string(se.Code),
				"message": message,
				"status":  status,
			},
		})
		return
	}

	r.renderPageStatus(w, status, "error", ErrorPageData{
		PageData: PageData{
			Title:   fmt.Sprintf("Error %d", status),
			Version: r.version,
		},
		StatusCode: status,
		Message:    message,
	})
}

// wantsJSON reports whether the client asked for a JSON response.
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		r.URL.Query().Get("format") == "json"
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// renderMarkdown converts markdown text to HTML using goldmark.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

// formatMillis formats a Unix millisecond timestamp as "2006-01-02 15:04" UTC.
func formatMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04")
}
