package handler

import (
	"context"
	"net/http"
	"time"

	"thakii-backend/internal/container"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	container *container.Container
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(container *container.Container) *HealthHandler {
	return &HealthHandler{
		container: container,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Service       string    `json:"service"`
	Status        string    `json:"status"`
	Version       string    `json:"version"`
	AdminStore    string    `json:"admin_store"`
	AdminStoreOK  bool      `json:"admin_store_ok"`
	SharedKeySet  bool      `json:"shared_key_set"`
	KeySetAgeSecs *int64    `json:"key_set_age_seconds,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// Check handles GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	log := h.container.GetLogger()

	log.Debug("Health check requested")

	response := HealthResponse{
		Service:      "Thakii Lecture2PDF Service",
		Status:       "healthy",
		Version:      "1.0.0",
		AdminStore:   h.container.AdminStore.Name(),
		AdminStoreOK: true,
		SharedKeySet: h.container.HasRedis(),
		Timestamp:    time.Now().UTC(),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.container.AdminStore.Health(ctx); err != nil {
		log.WithError(err).Warn("Admin store health check failed")
		response.Status = "degraded"
		response.AdminStoreOK = false
	}

	if age, ok := h.container.KeySet.Age(); ok {
		secs := int64(age.Seconds())
		response.KeySetAgeSecs = &secs
	}

	status := http.StatusOK
	if response.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response, log)
}
