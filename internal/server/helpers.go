package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/bobmcallan/folio/internal/models"
)

// ErrorResponse is the standard error format for REST API responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Error codes returned alongside 4xx responses.
const (
	codeInvalidRequest = "invalid_request"
	codeInvalidTicker  = "invalid_ticker"
	codeInvalidDate    = "invalid_date"
	codeDuplicateFile  = "duplicate_file"
	codeInvalidFile    = "invalid_file"
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message})
}

// WriteErrorWithCode writes a JSON error response with an error code.
func WriteErrorWithCode(w http.ResponseWriter, statusCode int, message, code string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message, Code: code})
}

// DecodeJSON reads and decodes JSON from the request body into v.
// Returns false and writes a 400 error if decoding fails.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Body == nil || r.Body == http.NoBody {
		WriteError(w, http.StatusBadRequest, "Request body is required")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteErrorWithCode(w, http.StatusBadRequest, "Invalid JSON: "+err.Error(), codeInvalidRequest)
		return false
	}
	return true
}

// UnmarshalArrayParam handles array parameters that may contain either native
// JSON objects or string-encoded JSON objects. MCP proxies often send array items
// as strings ("[\"{ ... }\", \"{ ... }\"]") instead of objects ("[{ ... }, { ... }]").
// raw is the JSON-encoded array, dest is a pointer to the target slice (e.g. *[]MyStruct).
func UnmarshalArrayParam(raw json.RawMessage, dest interface{}) error {
	if len(raw) == 0 {
		return errors.New("missing array")
	}

	// Try native array of objects first.
	if err := json.Unmarshal(raw, dest); err == nil {
		return nil
	}

	// Fall back to array of string-encoded objects.
	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		return json.Unmarshal(raw, dest) // return the original error
	}

	// Reconstruct a JSON array from the unwrapped strings and unmarshal.
	parts := make([]json.RawMessage, len(items))
	for i, s := range items {
		parts[i] = json.RawMessage(s)
	}
	rebuilt, err := json.Marshal(parts)
	if err != nil {
		return err
	}
	return json.Unmarshal(rebuilt, dest)
}

// parseDateParam parses an optional YYYY-MM-DD value; empty means "current".
func parseDateParam(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
