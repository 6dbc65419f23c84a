package formatters

import (
	"encoding/json"
	"fmt"
	"slices"

	"resumaker/internal/resume"
	"resumaker/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", "ResumeDocument", &TextFormatter{})
	registry.RegisterFormatter("markdown", "ResumeDocument", &MarkdownFormatter{})
	registry.RegisterFormatter("html", "ResumeDocument", &HTMLFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats, sorted.
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	slices.Sort(formats)
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case types.ResumeDocument:
		return "ResumeDocument"
	default:
		return "any"
	}
}

func asDocument(data any) (types.ResumeDocument, error) {
	doc, ok := data.(types.ResumeDocument)
	if !ok {
		return types.ResumeDocument{}, fmt.Errorf("expected ResumeDocument, got %T", data)
	}
	return doc, nil
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData) + "\n", nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// TextFormatter writes the export text, the same text the UI copies and
// downloads as resume.txt.
type TextFormatter struct{}

func (tf *TextFormatter) Format(data any) (string, error) {
	doc, err := asDocument(data)
	if err != nil {
		return "", err
	}
	if doc.Text == "" {
		return "", nil
	}
	return doc.Text + "\n", nil
}

func (tf *TextFormatter) SupportedType() string {
	return "ResumeDocument"
}

// MarkdownFormatter writes one "##" heading per section.
type MarkdownFormatter struct{}

func (mf *MarkdownFormatter) Format(data any) (string, error) {
	doc, err := asDocument(data)
	if err != nil {
		return "", err
	}
	return sectionMap(doc).ExportMarkdown(), nil
}

func (mf *MarkdownFormatter) SupportedType() string {
	return "ResumeDocument"
}

// HTMLFormatter writes a standalone HTML page rendered from the Markdown.
type HTMLFormatter struct{}

func (hf *HTMLFormatter) Format(data any) (string, error) {
	doc, err := asDocument(data)
	if err != nil {
		return "", err
	}
	body, err := sectionMap(doc).RenderHTML()
	if err != nil {
		return "", err
	}
	return "<!DOCTYPE html>\n<html lang=\"en\">\n<head><meta charset=\"utf-8\"><title>Resume</title></head>\n<body>\n" +
		string(body) + "</body>\n</html>\n", nil
}

func (hf *HTMLFormatter) SupportedType() string {
	return "ResumeDocument"
}

// sectionMap rebuilds the sections from the export text, which parses
// back to the same map.
func sectionMap(doc types.ResumeDocument) *resume.SectionMap {
	return resume.Parse(doc.Text)
}

var GlobalRegistry = NewFormatterRegistry()
