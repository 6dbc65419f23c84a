package resume

import (
	"html/template"
	"strings"
)

// Section is one titled block of résumé lines.
type Section struct {
	Title string   `json:"title"`
	Lines []string `json:"lines"`
}

// SectionMap is an insertion-ordered mapping of section title to lines.
// Re-opening an existing title resets its lines but keeps its position.
type SectionMap struct {
	order []string
	lines map[string][]string
}

// NewSectionMap returns an empty map.
func NewSectionMap() *SectionMap {
	return &SectionMap{lines: make(map[string][]string)}
}

// Parse splits generated text into sections. A trimmed line wrapped in
// "**" opens a section; other non-empty lines belong to the open section.
// Lines seen before the first header, or after a header with an empty
// title such as "****", are dropped.
func Parse(text string) *SectionMap {
	sm := NewSectionMap()
	current := ""

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case isHeader(line):
			current = headerTitle(line)
			sm.reset(current)
		case line != "" && current != "":
			sm.lines[current] = append(sm.lines[current], line)
		}
	}
	return sm
}

func (sm *SectionMap) reset(title string) {
	if _, exists := sm.lines[title]; !exists {
		sm.order = append(sm.order, title)
	}
	sm.lines[title] = []string{}
}

// Keys returns section titles in insertion order.
func (sm *SectionMap) Keys() []string {
	keys := make([]string, len(sm.order))
	copy(keys, sm.order)
	return keys
}

// Lines returns the lines of a section, or nil when it does not exist.
func (sm *SectionMap) Lines(title string) []string {
	lines, ok := sm.lines[title]
	if !ok {
		return nil
	}
	out := make([]string, len(lines))
	copy(out, lines)
	return out
}

// FormattedLines returns the lines of a section rendered for display.
func (sm *SectionMap) FormattedLines(title string) []template.HTML {
	lines := sm.lines[title]
	out := make([]template.HTML, 0, len(lines))
	for _, line := range lines {
		out = append(out, FormatLine(line))
	}
	return out
}

func (sm *SectionMap) Has(title string) bool {
	_, ok := sm.lines[title]
	return ok
}

func (sm *SectionMap) Len() int {
	return len(sm.order)
}

// Sections returns the map as an ordered slice.
func (sm *SectionMap) Sections() []Section {
	out := make([]Section, 0, len(sm.order))
	for _, title := range sm.order {
		out = append(out, Section{Title: title, Lines: sm.Lines(title)})
	}
	return out
}

// Only returns a map holding just the named section. The "All" sentinel
// returns sm itself; an unknown title returns an empty map.
func (sm *SectionMap) Only(title string) *SectionMap {
	if title == AllSections {
		return sm
	}
	out := NewSectionMap()
	if lines, ok := sm.lines[title]; ok {
		out.reset(title)
		out.lines[title] = append(out.lines[title], lines...)
	}
	return out
}
