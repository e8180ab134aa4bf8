package rendering

import (
	"embed"
	"strings"
	"text/template"

	"github.com/jonathan/kb-refresh/internal/types"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("kb").Funcs(template.FuncMap{
	"esc":    EscapeHTML,
	"br":     escapeMultiline,
	"hashes": func(n int) string { return strings.Repeat("#", n) },
}).ParseFS(templateFS, "templates/*.tmpl"))

// Output holds both rendered KB documents.
type Output struct {
	Markdown string
	HTML     string
}

// Render builds the document model for facts and renders both formats.
func Render(facts *types.Facts) (*Output, error) {
	if facts == nil {
		return nil, &RenderError{Message: "facts are required"}
	}
	doc := NewDocument(facts)

	md, err := Markdown(doc)
	if err != nil {
		return nil, err
	}
	html, err := HTML(doc)
	if err != nil {
		return nil, err
	}
	return &Output{Markdown: md, HTML: html}, nil
}

// Markdown renders doc as the Markdown KB.
func Markdown(doc *Document) (string, error) {
	return execute("kb.md.tmpl", doc)
}

// HTML renders doc as the HTML KB. Every interpolated field is escaped with EscapeHTML.
func HTML(doc *Document) (string, error) {
	return execute("kb.html.tmpl", doc)
}

func execute(name string, doc *Document) (string, error) {
	var result strings.Builder
	if err := templates.ExecuteTemplate(&result, name, doc); err != nil {
		return "", &TemplateError{
			Name:    name,
			Message: "failed to execute template",
			Cause:   err,
		}
	}
	return strings.TrimSpace(result.String()) + "\n", nil
}
