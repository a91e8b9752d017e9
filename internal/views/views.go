// Package views renders the site's HTML pages from embedded templates.
package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page names.
const (
	PageHome     = "home"
	PageColleges = "colleges"
	PageLogin    = "login"
	PageRegister = "register"
	PageProfile  = "profile"
	PageUpload   = "upload"
	PageDebug    = "debug"
	PageError    = "error"
)

// Renderer executes page templates inside the shared layout.
type Renderer struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"join":    strings.Join,
	"isPage":  func(current, name string) bool { return current == name },
	"hasText": func(s string) bool { return strings.TrimSpace(s) != "" },
}

// New parses every embedded page template.
func New() (*Renderer, error) {
	return parse(templateFS)
}

func parse(fsys fs.FS) (*Renderer, error) {
	names, err := fs.Glob(fsys, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}

	pages := make(map[string]*template.Template)
	for _, name := range names {
		page := strings.TrimSuffix(strings.TrimPrefix(name, "templates/"), ".html")
		if page == "layout" {
			continue
		}
		tmpl, err := template.New("layout").Funcs(funcs).ParseFS(fsys, "templates/layout.html", name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		pages[page] = tmpl
	}
	return &Renderer{pages: pages}, nil
}

// Render writes page with status. The page is rendered into a buffer first
// so a template error never leaves a half-written response.
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data LayoutProvider) error {
	tmpl, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("render %s: %w", page, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
