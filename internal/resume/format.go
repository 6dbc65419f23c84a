// Package resume turns raw generated résumé text into display HTML and an
// ordered map of sections.
package resume

import (
	"html"
	"html/template"
	"regexp"
	"strings"
)

// AllSections is the sentinel section name meaning "show everything".
const AllSections = "All"

const (
	boldMarker = "**"
	bullet     = "•"
)

// Bold spans never cross a line terminator: \n, \r, U+2028 or U+2029.
var boldPattern = regexp.MustCompile(`\*\*([^\n\r\x{2028}\x{2029}]*?)\*\*`)

// Format renders generated text as HTML. The text is escaped first, then
// bold markers become <strong>, a space is added after every bullet glyph
// and newlines become <br />. Format is not idempotent: running it twice
// escapes the markup produced by the first pass.
func Format(text string) template.HTML {
	out := html.EscapeString(text)
	out = boldPattern.ReplaceAllString(out, "<strong>$1</strong>")
	out = strings.ReplaceAll(out, bullet, bullet+" ")
	out = strings.ReplaceAll(out, "\n", "<br />")
	return template.HTML(out)
}

// FormatLine renders a single section line. Only the first bullet glyph
// gets the extra space.
func FormatLine(line string) template.HTML {
	out := html.EscapeString(line)
	out = strings.Replace(out, bullet, bullet+" ", 1)
	return template.HTML(out)
}

func isHeader(line string) bool {
	return strings.HasPrefix(line, boldMarker) && strings.HasSuffix(line, boldMarker)
}

func headerTitle(line string) string {
	return boldPattern.ReplaceAllString(line, "$1")
}
