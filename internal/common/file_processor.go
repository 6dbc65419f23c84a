package common

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"resumaker/internal/errors"
	"resumaker/internal/utils"
)

// FileProcessor reads prompt files and writes exports.
type FileProcessor struct {
	logger      *errors.Logger
	maxFileSize int64
}

// NewFileProcessor creates a file processor. maxFileSize bounds prompt
// files; zero means unlimited.
func NewFileProcessor(logger *errors.Logger, maxFileSize int64) *FileProcessor {
	return &FileProcessor{logger: logger, maxFileSize: maxFileSize}
}

// ReadFile reads content from a file with proper error handling
func (fp *FileProcessor) ReadFile(filename string) (string, error) {
	file, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.NewIOError(errors.ErrCodeFileNotFound,
				fmt.Sprintf("File not found: %s", filename), err)
		}
		return "", errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", filename), err)
	}
	defer func() {
		if err := file.Close(); err != nil && fp.logger != nil {
			fp.logger.Warn("Failed to close file", "filename", filename, "error", err)
		}
	}()

	content, err := io.ReadAll(file)
	if err != nil {
		return "", errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Failed to read file content: %s", filename), err)
	}

	return string(content), nil
}

// WriteFile writes content to a file, creating its directory first.
func (fp *FileProcessor) WriteFile(filename, content string) error {
	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return errors.NewIOError(errors.ErrCodeFileNotWritable,
				fmt.Sprintf("Cannot create directory: %s", dir), err)
		}
	}

	if err := os.WriteFile(filename, []byte(content), 0600); err != nil {
		return errors.NewIOError(errors.ErrCodeFileNotWritable,
			fmt.Sprintf("Cannot write file: %s", filename), err)
	}

	return nil
}

// ReadPromptFile validates and reads a prompt from disk. Surrounding
// whitespace is kept; emptiness is judged after trimming.
func (fp *FileProcessor) ReadPromptFile(filename string) (string, error) {
	if err := utils.ValidateInputFile(filename, fp.maxFileSize); err != nil {
		return "", errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("Invalid prompt file %s", filename), err)
	}

	if !utils.IsTextFile(filename) && fp.logger != nil {
		fp.logger.Warn("Prompt file may not be a text file", "filename", filename)
	}

	content, err := fp.ReadFile(filename)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(content) == "" {
		return "", errors.NewValidationError(errors.ErrCodeEmptyPrompt, errors.MsgEmptyPrompt, nil).
			WithContext("file", filename)
	}
	return content, nil
}

// ValidateOutputFile validates output file path
func (fp *FileProcessor) ValidateOutputFile(filename string) error {
	if err := utils.ValidateOutputFile(filename); err != nil {
		return errors.NewValidationError(errors.ErrCodeFileNotWritable,
			fmt.Sprintf("Invalid output file: %s", filename), err)
	}
	return nil
}
