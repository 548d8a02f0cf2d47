package web

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"

	ab "github.com/panyam/addrbook"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer turns a page name and its data into a response body. Page
// rendering is a pluggable collaborator: the handlers only decide WHICH page
// and WHAT data, never how it looks.
type Renderer interface {
	Render(w http.ResponseWriter, page string, data any) error
}

// TemplateRenderer is the default Renderer, backed by the embedded
// html/template set. Deployments with their own frontend can swap it out.
type TemplateRenderer struct {
	templates *template.Template
}

func NewTemplateRenderer() (*TemplateRenderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &TemplateRenderer{templates: tmpl}, nil
}

func (t *TemplateRenderer) Render(w http.ResponseWriter, page string, data any) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return t.templates.ExecuteTemplate(w, page+".html", data)
}

// BookData is the payload for the address book page, shared by the full
// book, search results and per-group views.
type BookData struct {
	Heading string
	Book    []ab.Contact
}

// GroupsData is the payload for pages that show the derived group list.
type GroupsData struct {
	Groups []string
}
