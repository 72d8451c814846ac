package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/fluxbpm/script-registry/logger"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ValidationErrorResponse represents a 422 response. Message names the first
// violated constraint; Errors groups every message by field.
type ValidationErrorResponse struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// CollectionResponse wraps list payloads with their metadata block.
type CollectionResponse struct {
	Data interface{} `json:"data"`
	Meta interface{} `json:"meta"`
}

// ListMeta echoes the pagination, sorting and filter values a listing applied.
type ListMeta struct {
	Total       int64  `json:"total"`
	PerPage     int    `json:"per_page"`
	CurrentPage int    `json:"current_page"`
	LastPage    int    `json:"last_page"`
	Filter      string `json:"filter"`
	SortBy      string `json:"sort_by"`
	SortOrder   string `json:"sort_order"`
}

// HistoryMeta carries the version count for a history listing.
type HistoryMeta struct {
	Total int64 `json:"total"`
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error response with the given status code.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

// respondValidationError writes a 422 response naming the offending field.
func respondValidationError(w http.ResponseWriter, field, message string) {
	respondJSON(w, http.StatusUnprocessableEntity, newValidationError(field, message))
}

// newValidationError builds the single-field 422 payload.
func newValidationError(field, message string) ValidationErrorResponse {
	return ValidationErrorResponse{
		Message: message,
		Errors:  map[string][]string{field: {message}},
	}
}

// parseJSON parses JSON from the request body into the given destination.
func parseJSON(r *http.Request, dest interface{}, log logger.Logger) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		log.Error(r.Context(), "failed to parse JSON", map[string]interface{}{
			"error": err.Error(),
		})
		return err
	}
	return nil
}

// parseUUID parses a UUID from the request path parameters.
func parseUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	vars := mux.Vars(r)
	uuidStr := vars[paramName]
	return uuid.Parse(uuidStr)
}

// parseUUIDOrRespond parses a UUID from path parameters and responds with an error if invalid.
// Returns the UUID and true if successful, or uuid.Nil and false if parsing failed (error response already sent).
func parseUUIDOrRespond(w http.ResponseWriter, r *http.Request, paramName, entityName string) (uuid.UUID, bool) {
	id, err := parseUUID(r, paramName)
	if err != nil {
		respondError(w, http.StatusBadRequest,
			fmt.Sprintf("invalid %s ID: must be a valid UUID", entityName))
		return uuid.Nil, false
	}
	return id, true
}
