package types

import "resumaker/internal/resume"

// GenerateResumeRequest is the body of POST /api/generate-resume.
// UserPrompt is the legacy field name some clients still send; servers
// accept either and prefer Prompt.
type GenerateResumeRequest struct {
	Prompt     string `json:"prompt,omitempty"`
	UserPrompt string `json:"userPrompt,omitempty"`
}

// PromptText returns whichever prompt field was supplied.
func (r GenerateResumeRequest) PromptText() string {
	if r.Prompt != "" {
		return r.Prompt
	}
	return r.UserPrompt
}

// GenerateResumeResponse is the success body of POST /api/generate-resume.
type GenerateResumeResponse struct {
	Resume string `json:"resume"`
}

// GenerationErrorResponse is the failure body of POST /api/generate-resume.
type GenerationErrorResponse struct {
	Detail string `json:"detail"`
}

// ErrorResponse is the error body used by the UI server's own endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// FormatRequest is the body of POST /api/format.
type FormatRequest struct {
	Text string `json:"text"`
}

// FormatResponse is the body returned by POST /api/format.
type FormatResponse struct {
	Formatted string           `json:"formatted"`
	Sections  []resume.Section `json:"sections"`
}

// ResumeDocument is the JSON shape written by the CLI json output format.
type ResumeDocument struct {
	Prompt   string           `json:"prompt,omitempty"`
	Raw      string           `json:"raw"`
	Sections []resume.Section `json:"sections"`
	Text     string           `json:"text"`
}

// StateSnapshot is a read-only view of one browser session's UI state.
type StateSnapshot struct {
	Prompt        string   `json:"prompt"`
	HasResult     bool     `json:"hasResult"`
	Error         string   `json:"error,omitempty"`
	Loading       bool     `json:"loading"`
	ActiveSection string   `json:"activeSection"`
	DarkMode      bool     `json:"darkMode"`
	SidebarOpen   bool     `json:"sidebarOpen"`
	Sections      []string `json:"sections"`
}
