package common

import (
	"fmt"
	"slices"

	"resumaker/internal/utils"
)

// ValidateOutputFormat validates format against configured supported formats
func ValidateOutputFormat(format string, supportedFormats []string) error {
	if len(supportedFormats) == 0 {
		return nil // No restrictions configured
	}

	if slices.Contains(supportedFormats, format) {
		return nil
	}

	return fmt.Errorf("unsupported output format '%s'. Supported formats: %v",
		format, supportedFormats)
}

// ResolveOutputFormat picks the output format: an explicit flag wins, then
// the output file's extension, then the configured default.
func ResolveOutputFormat(flag, outputFile, defaultFormat string) string {
	if flag != "" {
		return flag
	}
	switch utils.GetFileExtension(outputFile) {
	case ".md", ".markdown":
		return "markdown"
	case ".json":
		return "json"
	case ".html", ".htm":
		return "html"
	case ".txt", ".text":
		return "text"
	}
	return defaultFormat
}

// GetSupportedFormats returns the list of supported formats
func GetSupportedFormats(supportedFormats []string) []string {
	return supportedFormats
}
