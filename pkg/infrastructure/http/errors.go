// Package httputil provides HTTP error handling utilities.
package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
)

// MaxErrorBodySize is the maximum size of error message sent to clients
const MaxErrorBodySize = 500

// HTTPError is an error with the status code it should be reported with
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s (status %d): %s", e.Status, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s (status %d)", e.Status, e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// NewError wraps err with a status code. The client sees err's message.
func NewError(code int, err error) *HTTPError {
	body := ""
	if err != nil {
		body = truncate(err.Error(), MaxErrorBodySize)
	}
	return &HTTPError{
		StatusCode: code,
		Status:     http.StatusText(code),
		Body:       body,
		Err:        err,
	}
}

// truncate truncates a string to maxLen, adding "..." if truncated
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// ErrorResponse is the JSON body written for failed requests
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteJSON writes v with the given status code.
func WriteJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to encode response", "error", err)
	}
}

// WriteError reports err as JSON. Errors that are not an *HTTPError become a
// 500 without leaking their message.
func WriteError(w http.ResponseWriter, err error) {
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		httpErr = &HTTPError{
			StatusCode: http.StatusInternalServerError,
			Status:     http.StatusText(http.StatusInternalServerError),
			Err:        err,
		}
	}
	msg := httpErr.Body
	if msg == "" {
		msg = httpErr.Status
	}
	WriteJSON(w, httpErr.StatusCode, ErrorResponse{Error: msg})
}
