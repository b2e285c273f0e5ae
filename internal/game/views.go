package game

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/brizzai/mobsq/internal/logger"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

// Views renders the HTML pages.
type Views struct {
	templates *template.Template
}

func NewViews() (*Views, error) {
	t, err := template.New("").Funcs(template.FuncMap{
		"field": field,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Views{templates: t}, nil
}

// Render executes the named template into a buffer first so a failing template
// never leaves a half-written page.
func (v *Views) Render(w http.ResponseWriter, status int, name string, data interface{}) error {
	var buf bytes.Buffer
	if err := v.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		logger.Debug("Failed to write page", zap.String("template", name), zap.Error(err))
	}
	return nil
}

// field reads a string-ish value from a Graph object for display.
func field(object map[string]interface{}, key string) string {
	v, ok := object[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
