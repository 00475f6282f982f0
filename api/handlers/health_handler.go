package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/mediagrab-go/internal/domain"
)

// WorkerStatus reports whether the fulfillment worker is consuming jobs
type WorkerStatus interface {
	IsRunning() bool
}

// StatsProvider reports job counts
type StatsProvider interface {
	GetStats(ctx context.Context) (*domain.JobStats, error)
}

// HealthHandler handles health check requests
type HealthHandler struct {
	worker WorkerStatus
	stats  StatsProvider
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(worker WorkerStatus, stats StatsProvider) *HealthHandler {
	return &HealthHandler{
		worker: worker,
		stats:  stats,
	}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Worker  struct {
		Running bool `json:"running"`
	} `json:"worker"`
	Jobs *domain.JobStats `json:"jobs,omitempty"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	response := HealthResponse{
		Status:  "ok",
		Version: "1.0.0",
	}
	response.Worker.Running = h.worker.IsRunning()

	// Stats are best effort; health stays ok while the store is slow
	if stats, err := h.stats.GetStats(c.Request.Context()); err == nil {
		response.Jobs = stats
	}

	c.JSON(http.StatusOK, response)
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if !h.worker.IsRunning() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "fulfillment worker not running",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
