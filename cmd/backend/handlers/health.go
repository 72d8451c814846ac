package handlers

import (
	"net/http"

	"gorm.io/gorm"

	"github.com/fluxbpm/script-registry/logger"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// HealthHandler reports process and database health.
type HealthHandler struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(db *gorm.DB, log logger.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		logger: log,
	}
}

// Check responds 200 when the database answers a ping, 503 otherwise.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(r.Context())
	}
	if err != nil {
		h.logger.Warn(r.Context(), "database ping failed", map[string]interface{}{
			"error": err.Error(),
		})
		respondJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:   "degraded",
			Database: "down",
		})
		return
	}

	respondJSON(w, http.StatusOK, HealthResponse{
		Status:   "healthy",
		Database: "up",
	})
}
