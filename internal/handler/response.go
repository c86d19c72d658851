package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// WriteJSON writes a JSON response with the given status code and data.
// Sets Content-Type to application/json before writing the status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data) // Write error intentionally ignored in response helper
}

// errorResponse is the standard error response format.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Details string `json:"details,omitempty"`
}

// WriteError writes a standard error response with the given status code,
// error title, and human-readable message.
func WriteError(w http.ResponseWriter, status int, title, message string) {
	WriteJSON(w, status, errorResponse{
		Error:   title,
		Message: message,
	})
}

// WriteErrorDetails writes an error response carrying a downstream failure
// detail instead of a message.
func WriteErrorDetails(w http.ResponseWriter, status int, title, details string) {
	WriteJSON(w, status, errorResponse{
		Error:   title,
		Details: details,
	})
}

// errBodyTooLarge is returned by ReadBody when the body exceeds the limit.
var errBodyTooLarge = errors.New("request body too large")

// ReadBody reads the whole request body, refusing bodies larger than limit
// bytes.
func ReadBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, fmt.Errorf("%w: limit is %d bytes", errBodyTooLarge, limit)
		}
		return nil, fmt.Errorf("read request body: %w", err)
	}
	return body, nil
}
