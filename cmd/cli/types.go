package main

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ErrorResponse matches handlers.ErrorResponse.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ValidationErrorResponse matches handlers.ValidationErrorResponse.
type ValidationErrorResponse struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// ListMeta matches handlers.ListMeta.
type ListMeta struct {
	Total       int64  `json:"total"`
	PerPage     int    `json:"per_page"`
	CurrentPage int    `json:"current_page"`
	LastPage    int    `json:"last_page"`
	Filter      string `json:"filter"`
	SortBy      string `json:"sort_by"`
	SortOrder   string `json:"sort_order"`
}

// CreateScriptRequest matches handlers.CreateScriptRequest.
type CreateScriptRequest struct {
	Title       string  `json:"title"`
	Language    string  `json:"language"`
	Code        string  `json:"code"`
	Description string  `json:"description"`
	Key         *string `json:"key,omitempty"`
}

// UpdateScriptRequest matches handlers.UpdateScriptRequest.
type UpdateScriptRequest struct {
	Title       *string `json:"title,omitempty"`
	Language    *string `json:"language,omitempty"`
	Code        *string `json:"code,omitempty"`
	Description *string `json:"description,omitempty"`
}

// DuplicateScriptRequest matches handlers.DuplicateScriptRequest.
type DuplicateScriptRequest struct {
	Title string `json:"title"`
}

// PreviewResponse matches handlers.PreviewResponse.
type PreviewResponse struct {
	Output json.RawMessage `json:"output"`
}

// ScriptResponse is used for deserializing script responses.
type ScriptResponse struct {
	ID          uuid.UUID `json:"id"`
	VersionID   uuid.UUID `json:"version_id"`
	Title       string    `json:"title"`
	Language    string    `json:"language"`
	Code        string    `json:"code"`
	Description string    `json:"description"`
	Key         *string   `json:"key,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// VersionResponse is used for deserializing version history entries.
type VersionResponse struct {
	ID          uuid.UUID `json:"id"`
	ScriptID    uuid.UUID `json:"script_id"`
	Title       string    `json:"title"`
	Language    string    `json:"language"`
	Code        string    `json:"code"`
	Description string    `json:"description"`
	Key         *string   `json:"key,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ScriptListResponse matches the scripts listing envelope.
type ScriptListResponse struct {
	Data []ScriptResponse `json:"data"`
	Meta ListMeta         `json:"meta"`
}

// HistoryListResponse matches the version listing envelope.
type HistoryListResponse struct {
	Data []VersionResponse `json:"data"`
	Meta struct {
		Total int64 `json:"total"`
	} `json:"meta"`
}
