package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/AlexIndustrial/latebot/internal/container"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	container *container.Container
}

func NewHealthHandler(c *container.Container) *HealthHandler {
	return &HealthHandler{container: c}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Service   string            `json:"service"`
	Backends  map[string]string `json:"backends"`
}

// Check handles GET /health. Backend failures degrade the status but the
// endpoint itself always answers 200 so orchestrators see the process alive.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	log := h.container.Logger
	ctx := r.Context()

	status := "healthy"
	backends := make(map[string]string)

	if h.container.Postgres != nil {
		if err := h.container.Postgres.Health(ctx); err != nil {
			log.WithError(err).Warn("Postgres health check failed")
			backends["postgres"] = "unreachable"
			status = "degraded"
		} else {
			backends["postgres"] = "ok"
		}
	}

	if h.container.RedisClient != nil {
		if err := h.container.RedisClient.Health(ctx); err != nil {
			log.WithError(err).Warn("Redis health check failed")
			backends["redis"] = "unreachable"
			status = "degraded"
		} else {
			backends["redis"] = "ok"
		}
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Service:   "latebot",
		Backends:  backends,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.WithError(err).Error("Failed to encode health check response")
	}
}
