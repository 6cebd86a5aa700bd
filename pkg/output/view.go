package output

import (
	"fmt"
	"html/template"
	"io"
)

// ViewRenderer renders a named view.
type ViewRenderer interface {
	Render(w io.Writer, view string, data map[string]any) error
}

// TemplateRenderer renders views from a set of html/template templates. The
// view name is the template name.
type TemplateRenderer struct {
	templates *template.Template
}

// NewTemplateRenderer wraps already parsed templates.
func NewTemplateRenderer(t *template.Template) *TemplateRenderer {
	return &TemplateRenderer{templates: t}
}

// LoadTemplates parses every template matching pattern.
func LoadTemplates(pattern string) (*TemplateRenderer, error) {
	t, err := template.ParseGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates %q: %w", pattern, err)
	}
	return NewTemplateRenderer(t), nil
}

// Render executes the template named view.
func (r *TemplateRenderer) Render(w io.Writer, view string, data map[string]any) error {
	t := r.templates.Lookup(view)
	if t == nil {
		return fmt.Errorf("%w: %s", ErrUnknownView, view)
	}
	if err := t.Execute(w, data); err != nil {
		return fmt.Errorf("failed to render view %s: %w", view, err)
	}
	return nil
}
