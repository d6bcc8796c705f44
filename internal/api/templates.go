package api

import (
	"fmt"
	"html/template"

	"github.com/kdimtricp/moviesearch/web"
)

// ParseTemplates loads every page and partial template.
func ParseTemplates() (*template.Template, error) {
	tmpl, err := template.ParseFS(web.Templates, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	return tmpl, nil
}
