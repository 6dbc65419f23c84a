package ai

import (
	"fmt"
	"strings"
)

// DefaultSystemPrompt instructs the model to produce text the résumé
// parser understands: bold section headers on their own line and bullet
// glyphs for list items.
const DefaultSystemPrompt = `You are an expert resume writer. Write a complete, realistic, professional resume for the person described by the user.

Follow these formatting rules exactly:
- Put every section header on its own line, wrapped in double asterisks, for example **Professional Summary**
- Use sections such as Contact Information, Professional Summary, Skills, Work Experience, Education and Certifications when they apply
- Start every list item with the bullet character "•" followed by a space
- You may use **bold** inline for job titles or company names
- Do not use Markdown headings (#), tables, code blocks or HTML
- Do not add commentary before or after the resume

Keep the content plausible and consistent with the description. Use placeholder contact details rather than inventing real personal data.`

// DefaultUserPrompt wraps the user's description.
const DefaultUserPrompt = `Create a resume for the following person:

%s`

// buildUserPrompt inserts the trimmed description into the user template.
func buildUserPrompt(description string) string {
	return fmt.Sprintf(DefaultUserPrompt, strings.TrimSpace(description))
}

// resolveSystemPrompt prefers a configured prompt over the default.
func resolveSystemPrompt(configured string) string {
	if strings.TrimSpace(configured) != "" {
		return configured
	}
	return DefaultSystemPrompt
}
