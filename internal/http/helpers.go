package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"settlements/internal/log"
)

const requestIDHeader = "X-Request-ID"

// sanitizeInput drops control characters other than tab and newlines, then
// trims whitespace.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s))
}

// requestID reuses a well-formed incoming X-Request-ID and mints a new one
// otherwise.
func requestID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(requestIDHeader)); id != "" {
		if _, err := uuid.Parse(id); err == nil {
			return id
		}
	}
	return uuid.NewString()
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Failed to encode JSON response", log.FieldError, err)
	}
}

type apiError struct {
	Error string `json:"error"`
}

// writeError answers HTMX requests with an HTML fragment and everything
// else with a JSON error body.
func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	if isHTMX(r) {
		ErrorResponse(status, msg).Write(w)
		return
	}
	writeJSON(r.Context(), w, status, apiError{Error: msg})
}
