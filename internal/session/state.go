// Package session holds per-browser UI state for the web interface.
package session

import (
	"context"
	"slices"
	"strings"
	"sync"

	"resumaker/internal/client"
	"resumaker/internal/errors"
	"resumaker/internal/resume"
	"resumaker/internal/types"
)

// State is the UI state of one browser session. All methods are safe for
// concurrent use; the lock is never held across a generation request.
type State struct {
	mu            sync.Mutex
	prompt        string
	result        *resume.Result
	errMsg        string
	loading       bool
	activeSection string
	darkMode      bool
	sidebarOpen   bool
}

// NewState returns the state of a freshly loaded page.
func NewState() *State {
	return &State{activeSection: resume.AllSections}
}

// SetPrompt replaces the prompt text.
func (s *State) SetPrompt(prompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompt = prompt
}

// Prompt returns the current prompt text.
func (s *State) Prompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prompt
}

// Submit sends the current prompt through gen and records the outcome.
//
// An empty prompt only sets the validation message. A submission while
// another is in flight is rejected and leaves the state untouched.
// Otherwise the previous result and error are cleared, loading is set for
// the duration of the call, and on success the section filter resets to
// All. The call is detached from ctx cancellation: a request abandoned by
// the browser still completes and overwrites the state.
func (s *State) Submit(ctx context.Context, gen client.Generator) error {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return errors.NewValidationError(errors.ErrCodeGenerationBusy, errors.MsgGenerationBusy, nil)
	}
	prompt := s.prompt
	if strings.TrimSpace(prompt) == "" {
		s.errMsg = errors.MsgEmptyPrompt
		s.mu.Unlock()
		return errors.NewValidationError(errors.ErrCodeEmptyPrompt, errors.MsgEmptyPrompt, nil)
	}
	s.loading = true
	s.result = nil
	s.errMsg = ""
	s.mu.Unlock()

	raw, err := gen.Generate(context.WithoutCancel(ctx), prompt)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.errMsg = errors.UserMessage(err)
		return err
	}
	s.result = resume.NewResult(raw)
	s.activeSection = resume.AllSections
	return nil
}

// Result returns the last generated résumé, or nil.
func (s *State) Result() *resume.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Err returns the message of the last failed submission.
func (s *State) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// Loading reports whether a submission is in flight.
func (s *State) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// SelectSection sets the section filter and closes the sidebar. Titles
// that are not in the current result select All.
func (s *State) SelectSection(title string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if title != resume.AllSections && (s.result == nil || !s.result.Sections.Has(title)) {
		title = resume.AllSections
	}
	s.activeSection = title
	s.sidebarOpen = false
	return title
}

// ActiveSection returns the current section filter.
func (s *State) ActiveSection() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeSection
}

// ToggleTheme flips dark mode and returns the new value.
func (s *State) ToggleTheme() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.darkMode = !s.darkMode
	return s.darkMode
}

// ToggleSidebar flips sidebar visibility and returns the new value.
func (s *State) ToggleSidebar() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sidebarOpen = !s.sidebarOpen
	return s.sidebarOpen
}

// Sections returns the sidebar entries: All followed by the section
// titles in order.
func (s *State) Sections() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sectionsLocked()
}

func (s *State) sectionsLocked() []string {
	entries := []string{resume.AllSections}
	if s.result != nil {
		entries = append(entries, s.result.Sections.Keys()...)
	}
	return entries
}

// Snapshot returns a copy of the state for rendering or JSON output.
func (s *State) Snapshot() types.StateSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return types.StateSnapshot{
		Prompt:        s.prompt,
		HasResult:     s.result != nil,
		Error:         s.errMsg,
		Loading:       s.loading,
		ActiveSection: s.activeSection,
		DarkMode:      s.darkMode,
		SidebarOpen:   s.sidebarOpen,
		Sections:      slices.Clone(s.sectionsLocked()),
	}
}
