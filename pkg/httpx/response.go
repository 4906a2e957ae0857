package httpx

import (
	"encoding/json"
	"net/http"
)

// FieldError is a single flat (field, violation) pair produced by request
// validation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrorResponse is the uniform error envelope rendered at the transport
// boundary. Internal error detail never goes into Description.
type ErrorResponse struct {
	Code             int          `json:"code"`
	Message          string       `json:"message"`
	Description      string       `json:"description"`
	ValidationErrors []FieldError `json:"validation_errors,omitempty"`
}

// WriteJSON writes a JSON response with the given status code. Auth responses
// must never be cached, so Cache-Control headers are always set.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError renders the uniform error envelope.
func WriteError(w http.ResponseWriter, status int, message, description string) {
	WriteJSON(w, status, ErrorResponse{
		Code:        status,
		Message:     message,
		Description: description,
	})
}

// WriteValidationError renders a 422 with the flattened field errors.
func WriteValidationError(w http.ResponseWriter, errs []FieldError) {
	WriteJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
		Code:             http.StatusUnprocessableEntity,
		Message:          "VALIDATION",
		Description:      "Invalid input",
		ValidationErrors: errs,
	})
}

// NoCache sets the Cache-Control and Pragma headers to prevent caching.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}
