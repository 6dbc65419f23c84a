package server

import (
	"encoding/json"
	stderrors "errors"
	"mime"
	"net/http"

	"resumaker/internal/errors"
	"resumaker/internal/types"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErrorResponse writes the {"error","message"} body used by the UI
// server and its JSON API.
func writeErrorResponse(w http.ResponseWriter, code, message string, status int) {
	writeJSON(w, status, types.ErrorResponse{Error: code, Message: message})
}

// writeDetailResponse writes the {"detail"} body of the generation contract.
func writeDetailResponse(w http.ResponseWriter, _, message string, status int) {
	writeJSON(w, status, types.GenerationErrorResponse{Detail: message})
}

// decodeJSON reads a JSON request body into v. The returned error is a
// validation AppError with a message fit for the response, and the status
// to answer with.
func decodeJSON(r *http.Request, v any) (*errors.AppError, int) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "Content-Type must be application/json", err),
			http.StatusUnsupportedMediaType
	}

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if stderrors.As(err, &maxErr) {
			return errors.NewValidationError(errors.ErrCodeInvalidRequest, "Request body exceeds the allowed size", err),
				http.StatusRequestEntityTooLarge
		}
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "Invalid JSON in request body", err),
			http.StatusBadRequest
	}
	return nil, 0
}
