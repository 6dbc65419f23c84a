package errors

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"testing"
)

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"validation", NewValidationError(ErrCodeEmptyPrompt, MsgEmptyPrompt, nil), MsgEmptyPrompt},
		{"backend detail", NewBackendError(ErrCodeBackendRejected, "quota exceeded", nil), "quota exceeded"},
		{"wrapped", fmt.Errorf("submit: %w", NewNetworkError(ErrCodeBackendUnavail, MsgBackendUnreachable, nil)), MsgBackendUnreachable},
		{"plain error", stderrors.New("boom"), MsgGenerationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.want {
				t.Errorf("UserMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsType(t *testing.T) {
	cause := stderrors.New("dial tcp: connection refused")
	err := fmt.Errorf("wrapped: %w", NewNetworkError(ErrCodeBackendUnavail, MsgBackendUnreachable, cause))

	if !IsType(err, ErrorTypeNetwork) {
		t.Error("expected network error type")
	}
	if IsType(err, ErrorTypeBackend) {
		t.Error("did not expect backend error type")
	}
	if !stderrors.Is(err, cause) {
		t.Error("expected cause to be reachable through Unwrap")
	}
}

func TestAppErrorString(t *testing.T) {
	err := NewBackendError(ErrCodeBackendRejected, "quota exceeded", nil).WithContext("status", 429)
	if err.Error() != "BACKEND_REJECTED: quota exceeded" {
		t.Errorf("unexpected error string: %s", err.Error())
	}
	if err.Context["status"] != 429 {
		t.Errorf("expected context to be recorded, got %v", err.Context)
	}
}

func TestNewLoggerLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		if _, err := New(level); err != nil {
			t.Errorf("New(%q) returned error: %v", level, err)
		}
	}
	if _, err := New("verbose"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestLoggerSetLevel(t *testing.T) {
	logger := NewLogger(slog.LevelInfo)
	if err := logger.SetLevel("debug"); err != nil {
		t.Fatalf("SetLevel failed: %v", err)
	}
	if logger.level.Level() != slog.LevelDebug {
		t.Errorf("level = %v, want debug", logger.level.Level())
	}
	if err := logger.SetLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
	if logger.level.Level() != slog.LevelDebug {
		t.Error("failed SetLevel must not change the level")
	}
}
