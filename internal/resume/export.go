package resume

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

// markdown renders without WithUnsafe, so raw HTML in generated text is omitted.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
)

// Export serializes the sections back to plain text: each section is its
// bold title line followed by its lines, sections separated by a blank line.
// This is the text used for copy and TXT download.
func (sm *SectionMap) Export() string {
	blocks := make([]string, 0, len(sm.order))
	for _, title := range sm.order {
		blocks = append(blocks, boldMarker+title+boldMarker+"\n"+strings.Join(sm.lines[title], "\n"))
	}
	return strings.Join(blocks, "\n\n")
}

// ExportMarkdown serializes the sections as a Markdown document with one
// level-two heading per section. Bullet lines become list items.
func (sm *SectionMap) ExportMarkdown() string {
	var b strings.Builder
	for i, title := range sm.order {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "## %s\n\n", title)
		for _, line := range sm.lines[title] {
			if item, ok := strings.CutPrefix(line, bullet); ok {
				fmt.Fprintf(&b, "- %s\n", strings.TrimSpace(item))
				continue
			}
			fmt.Fprintf(&b, "%s\n\n", line)
		}
	}
	return b.String()
}

// RenderHTML converts the Markdown export to an HTML fragment.
func (sm *SectionMap) RenderHTML() (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(sm.ExportMarkdown()), &buf); err != nil {
		return "", fmt.Errorf("converting markdown: %w", err)
	}
	return template.HTML(buf.String()), nil
}

// Result is a generated résumé in every shape the UI needs.
type Result struct {
	Raw       string
	Formatted template.HTML
	Sections  *SectionMap
}

// NewResult formats and parses raw generated text.
func NewResult(raw string) *Result {
	return &Result{
		Raw:       raw,
		Formatted: Format(raw),
		Sections:  Parse(raw),
	}
}

// Text returns the export text for copy and TXT download.
func (r *Result) Text() string {
	if r == nil || r.Sections == nil {
		return ""
	}
	return r.Sections.Export()
}
