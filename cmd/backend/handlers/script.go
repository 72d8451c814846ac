package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/fluxbpm/script-registry/internal/metrics"
	"github.com/fluxbpm/script-registry/logger"
	"github.com/fluxbpm/script-registry/sandbox"
	"github.com/fluxbpm/script-registry/script"
)

// Contract messages for the uniqueness rules. Integrations match on these
// strings, so they must not change.
const (
	duplicateTitleMessage = "This title has already been used."
	duplicateKeyMessage   = "The key has already been taken."
)

// ScriptHandler handles script-related requests.
type ScriptHandler struct {
	store   script.Store
	ledger  script.Ledger
	runner  sandbox.Runner
	metrics *metrics.Metrics
	logger  logger.Logger
}

// NewScriptHandler creates a new script handler.
func NewScriptHandler(store script.Store, ledger script.Ledger, runner sandbox.Runner, m *metrics.Metrics, log logger.Logger) *ScriptHandler {
	return &ScriptHandler{
		store:   store,
		ledger:  ledger,
		runner:  runner,
		metrics: m,
		logger:  log,
	}
}

// CreateScriptRequest represents a script creation request.
type CreateScriptRequest struct {
	Title       string          `json:"title"`
	Language    script.Language `json:"language"`
	Code        string          `json:"code"`
	Description string          `json:"description"`
	Key         *string         `json:"key,omitempty"`
}

// UpdateScriptRequest represents a script update request. Absent fields keep
// their current values. The key is not updatable; it is fixed at creation and
// carried forward by every update.
type UpdateScriptRequest struct {
	Title       *string          `json:"title,omitempty"`
	Language    *script.Language `json:"language,omitempty"`
	Code        *string          `json:"code,omitempty"`
	Description *string          `json:"description,omitempty"`
}

// DuplicateScriptRequest represents a duplication request. The copy needs its
// own title because the source's title stays in use.
type DuplicateScriptRequest struct {
	Title string `json:"title"`
}

// PreviewResponse represents the sandbox output of a preview run.
type PreviewResponse struct {
	Output json.RawMessage `json:"output"`
}

// Create handles registering a new script with its first version.
func (h *ScriptHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateScriptRequest
	if err := parseJSON(r, &req, h.logger); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	version := &script.ScriptVersion{
		Title:       req.Title,
		Language:    req.Language,
		Code:        req.Code,
		Description: req.Description,
		Key:         req.Key,
	}
	// An empty key means no key was requested.
	if req.Key != nil && *req.Key == "" {
		version.Key = nil
	}

	created, err := h.store.Create(r.Context(), version)
	if err != nil {
		if resp, ok := validationResponse(err); ok {
			respondJSON(w, http.StatusUnprocessableEntity, resp)
			return
		}
		h.logger.Error(r.Context(), "failed to create script", map[string]interface{}{
			"error": err.Error(),
			"title": req.Title,
		})
		respondError(w, http.StatusInternalServerError, "failed to create script")
		return
	}

	h.metrics.ScriptsCreatedTotal.Inc()
	respondJSON(w, http.StatusCreated, summaryOf(created, version))
}

// List handles listing scripts with pagination, sorting and filtering.
// Scripts whose current version carries a key are not included.
func (h *ScriptHandler) List(w http.ResponseWriter, r *http.Request) {
	result, err := h.store.List(r.Context(), listParamsFromQuery(r))
	if err != nil {
		if resp, ok := validationResponse(err); ok {
			respondJSON(w, http.StatusUnprocessableEntity, resp)
			return
		}
		h.logger.Error(r.Context(), "failed to list scripts", map[string]interface{}{
			"error": err.Error(),
		})
		respondError(w, http.StatusInternalServerError, "failed to list scripts")
		return
	}

	respondJSON(w, http.StatusOK, CollectionResponse{
		Data: result.Scripts,
		Meta: ListMeta{
			Total:       result.Total,
			PerPage:     result.Params.PerPage,
			CurrentPage: result.Params.Page,
			LastPage:    result.LastPage(),
			Filter:      result.Params.Filter,
			SortBy:      result.Params.OrderBy,
			SortOrder:   result.Params.OrderDirection,
		},
	})
}

// Get handles retrieving a single script with its current version.
func (h *ScriptHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDOrRespond(w, r, "id", "script")
	if !ok {
		return
	}

	summary, err := h.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, script.ErrScriptNotFound) {
			respondError(w, http.StatusNotFound, "script not found")
			return
		}
		h.logger.Error(r.Context(), "failed to get script", map[string]interface{}{
			"error":     err.Error(),
			"script_id": id.String(),
		})
		respondError(w, http.StatusInternalServerError, "failed to get script")
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

// Update handles appending a new version to a script. Success responds 204
// with an empty body.
func (h *ScriptHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDOrRespond(w, r, "id", "script")
	if !ok {
		return
	}

	var req UpdateScriptRequest
	if err := parseJSON(r, &req, h.logger); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var setters []script.UpdateSetter
	if req.Title != nil {
		setters = append(setters, script.SetTitle(*req.Title))
	}
	if req.Language != nil {
		setters = append(setters, script.SetLanguage(*req.Language))
	}
	if req.Code != nil {
		setters = append(setters, script.SetCode(*req.Code))
	}
	if req.Description != nil {
		setters = append(setters, script.SetDescription(*req.Description))
	}

	if len(setters) == 0 {
		respondValidationError(w, "fields", "no fields to update")
		return
	}

	if _, err := h.store.Update(r.Context(), id, setters...); err != nil {
		if errors.Is(err, script.ErrScriptNotFound) {
			respondError(w, http.StatusNotFound, "script not found")
			return
		}
		if resp, ok := validationResponse(err); ok {
			respondJSON(w, http.StatusUnprocessableEntity, resp)
			return
		}
		h.logger.Error(r.Context(), "failed to update script", map[string]interface{}{
			"error":     err.Error(),
			"script_id": id.String(),
		})
		respondError(w, http.StatusInternalServerError, "failed to update script")
		return
	}

	h.metrics.VersionsAppendedTotal.Inc()
	w.WriteHeader(http.StatusNoContent)
}

// Delete handles removing a script and its whole version history. A miss
// responds 405, not 404: integrations depend on the documented status.
func (h *ScriptHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDOrRespond(w, r, "id", "script")
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, script.ErrScriptNotFound) {
			respondError(w, http.StatusMethodNotAllowed, "script does not exist")
			return
		}
		h.logger.Error(r.Context(), "failed to delete script", map[string]interface{}{
			"error":     err.Error(),
			"script_id": id.String(),
		})
		respondError(w, http.StatusInternalServerError, "failed to delete script")
		return
	}

	h.metrics.ScriptsDeletedTotal.Inc()
	w.WriteHeader(http.StatusNoContent)
}

// History handles listing every version of a script, newest first.
func (h *ScriptHandler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDOrRespond(w, r, "id", "script")
	if !ok {
		return
	}

	versions, err := h.store.History(r.Context(), id)
	if err != nil {
		if errors.Is(err, script.ErrScriptNotFound) {
			respondError(w, http.StatusNotFound, "script not found")
			return
		}
		h.logger.Error(r.Context(), "failed to list versions", map[string]interface{}{
			"error":     err.Error(),
			"script_id": id.String(),
		})
		respondError(w, http.StatusInternalServerError, "failed to list versions")
		return
	}

	total, err := h.ledger.CountByScript(r.Context(), id)
	if err != nil {
		h.logger.Error(r.Context(), "failed to count versions", map[string]interface{}{
			"error":     err.Error(),
			"script_id": id.String(),
		})
		respondError(w, http.StatusInternalServerError, "failed to list versions")
		return
	}

	respondJSON(w, http.StatusOK, CollectionResponse{
		Data: versions,
		Meta: HistoryMeta{Total: total},
	})
}

// GetVersion handles retrieving a single historical version of a script.
func (h *ScriptHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDOrRespond(w, r, "id", "script")
	if !ok {
		return
	}
	versionID, ok := parseUUIDOrRespond(w, r, "version_id", "version")
	if !ok {
		return
	}

	version, err := h.ledger.GetByID(r.Context(), versionID)
	if err != nil {
		if errors.Is(err, script.ErrVersionNotFound) {
			respondError(w, http.StatusNotFound, "version not found")
			return
		}
		h.logger.Error(r.Context(), "failed to get version", map[string]interface{}{
			"error":      err.Error(),
			"version_id": versionID.String(),
		})
		respondError(w, http.StatusInternalServerError, "failed to get version")
		return
	}

	// A version reached through the wrong script id is not exposed.
	if version.ScriptID != id {
		respondError(w, http.StatusNotFound, "version not found")
		return
	}

	respondJSON(w, http.StatusOK, version)
}

// Duplicate handles copying a script's current version into a new script
// under a fresh title. The copy never carries the source's key, so a hidden
// script duplicates into a listable one.
func (h *ScriptHandler) Duplicate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDOrRespond(w, r, "id", "script")
	if !ok {
		return
	}

	var req DuplicateScriptRequest
	if err := parseJSON(r, &req, h.logger); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	source, err := h.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, script.ErrScriptNotFound) {
			respondError(w, http.StatusNotFound, "script not found")
			return
		}
		h.logger.Error(r.Context(), "failed to load script for duplication", map[string]interface{}{
			"error":     err.Error(),
			"script_id": id.String(),
		})
		respondError(w, http.StatusInternalServerError, "failed to duplicate script")
		return
	}

	version := &script.ScriptVersion{
		Title:       req.Title,
		Language:    source.Language,
		Code:        source.Code,
		Description: source.Description,
	}

	created, err := h.store.Create(r.Context(), version)
	if err != nil {
		if resp, ok := validationResponse(err); ok {
			respondJSON(w, http.StatusUnprocessableEntity, resp)
			return
		}
		h.logger.Error(r.Context(), "failed to duplicate script", map[string]interface{}{
			"error":     err.Error(),
			"script_id": id.String(),
		})
		respondError(w, http.StatusInternalServerError, "failed to duplicate script")
		return
	}

	h.metrics.ScriptsCreatedTotal.Inc()
	h.logger.Info(r.Context(), "script duplicated", map[string]interface{}{
		"source_id": id.String(),
		"script_id": created.ID.String(),
		"title":     req.Title,
	})

	respondJSON(w, http.StatusCreated, summaryOf(created, version))
}

// Preview handles running a script body without persisting anything.
// Parameters arrive as query or form values; absent data defaults to an
// empty JSON object. Execution failures respond 500 with the sandbox's
// message verbatim.
func (h *ScriptHandler) Preview(w http.ResponseWriter, r *http.Request) {
	data := r.FormValue("data")
	if data == "" {
		data = "{}"
	}

	req := sandbox.RunRequest{
		Language: script.Language(r.FormValue("language")),
		Code:     r.FormValue("code"),
		Data:     json.RawMessage(data),
	}

	output, err := h.runner.Run(r.Context(), req)
	if err != nil {
		h.metrics.RecordPreview("error")
		h.logger.Error(r.Context(), "preview execution failed", map[string]interface{}{
			"error":    err.Error(),
			"language": string(req.Language),
		})
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.metrics.RecordPreview("ok")
	respondJSON(w, http.StatusOK, PreviewResponse{Output: output})
}

// summaryOf assembles the flat response payload from a registry row and its
// current version.
func summaryOf(sc *script.Script, version *script.ScriptVersion) *script.Summary {
	return &script.Summary{
		ID:          sc.ID,
		VersionID:   version.ID,
		Title:       version.Title,
		Language:    version.Language,
		Code:        version.Code,
		Description: version.Description,
		Key:         version.Key,
		CreatedAt:   sc.CreatedAt,
		UpdatedAt:   sc.UpdatedAt,
	}
}

// listParamsFromQuery reads the pagination, sorting and filter query
// parameters. Out-of-range values pass through for the store to normalize or
// reject.
func listParamsFromQuery(r *http.Request) script.ListParams {
	q := r.URL.Query()

	params := script.ListParams{
		OrderBy:        q.Get("order_by"),
		OrderDirection: q.Get("order_direction"),
		Filter:         q.Get("filter"),
	}
	if page, err := strconv.Atoi(q.Get("page")); err == nil {
		params.Page = page
	}
	if perPage, err := strconv.Atoi(q.Get("per_page")); err == nil {
		params.PerPage = perPage
	}
	return params
}

// validationResponse maps a domain constraint error onto the 422 payload.
// The two uniqueness rules keep their documented messages.
func validationResponse(err error) (ValidationErrorResponse, bool) {
	switch {
	case errors.Is(err, script.ErrDuplicateTitle):
		return newValidationError("title", duplicateTitleMessage), true
	case errors.Is(err, script.ErrDuplicateKey):
		return newValidationError("key", duplicateKeyMessage), true
	case errors.Is(err, script.ErrInvalidTitle):
		return newValidationError("title", err.Error()), true
	case errors.Is(err, script.ErrInvalidLanguage):
		return newValidationError("language", err.Error()), true
	case errors.Is(err, script.ErrInvalidCode):
		return newValidationError("code", err.Error()), true
	case errors.Is(err, script.ErrInvalidKey):
		return newValidationError("key", err.Error()), true
	case errors.Is(err, script.ErrInvalidOrderBy):
		return newValidationError("order_by", err.Error()), true
	case errors.Is(err, script.ErrInvalidOrderDirection):
		return newValidationError("order_direction", err.Error()), true
	}
	return ValidationErrorResponse{}, false
}
