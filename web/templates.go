package web

import (
	"embed"
	"html/template"
	"io/fs"
	"sync"
)

//go:embed error_log.html app.css error-collector.js debug-button.js
var content embed.FS

var (
	tmpl *template.Template
	once sync.Once
)

// Templates returns the parsed HTML templates for the dashboard,
// embedded at build time.
func Templates() *template.Template {
	once.Do(func() {
		tmpl = template.Must(template.ParseFS(content, "*.html"))
	})
	return tmpl
}

// StaticFS exposes embedded static assets (CSS, collector scripts).
func StaticFS() fs.FS {
	return content
}
