// Package web holds the embedded page templates and static assets of the
// résumé UI.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"

	"resumaker/internal/types"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

const (
	// PageTitle is shown in the header and the browser tab.
	PageTitle = "AI Resume Builder"

	exampleLabelLength = 30
	previewLength      = 100
)

// Example is one clickable example prompt.
type Example struct {
	Index int
	Label string
	Text  string
}

// PageData is everything the index template renders.
type PageData struct {
	Title        string
	State        types.StateSnapshot
	Placeholder  string
	Examples     []Example
	Preview      string
	Formatted    template.HTML
	SectionLines []template.HTML
}

// PrintData feeds the print page.
type PrintData struct {
	Formatted template.HTML
}

// Renderer executes the embedded templates.
type Renderer struct {
	templates *template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	return &Renderer{templates: tmpl}, nil
}

// RenderPage writes the main page.
func (r *Renderer) RenderPage(w io.Writer, data PageData) error {
	if data.Title == "" {
		data.Title = PageTitle
	}
	return r.templates.ExecuteTemplate(w, "index", data)
}

// RenderPrint writes the print-ready page.
func (r *Renderer) RenderPrint(w io.Writer, data PrintData) error {
	return r.templates.ExecuteTemplate(w, "print", data)
}

// StaticHandler serves the embedded CSS and JS under the path it is mounted on.
func StaticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FileServerFS(sub)
}

// Examples builds the example buttons from the configured prompts.
func Examples(prompts []string) []Example {
	examples := make([]Example, 0, len(prompts))
	for i, p := range prompts {
		examples = append(examples, Example{Index: i, Label: truncate(p, exampleLabelLength), Text: p})
	}
	return examples
}

// Preview returns the prompt excerpt shown in the live preview panel.
func Preview(prompt string) string {
	return truncate(prompt, previewLength)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
