package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/mediagrab-go/api/middleware"
	"github.com/yourusername/mediagrab-go/internal/domain"
)

// JobService is the orchestrator surface used by the HTTP handlers
type JobService interface {
	Submit(ctx context.Context, identity *domain.UserIdentity, req domain.DownloadRequest) (*domain.DownloadJob, error)
	GetJob(ctx context.Context, identity *domain.UserIdentity, id string) (*domain.DownloadJob, error)
	ListJobs(ctx context.Context, identity *domain.UserIdentity, ownerID string) ([]*domain.DownloadJob, error)
}

// DownloadHandler handles download submission and job queries
type DownloadHandler struct {
	jobs   JobService
	logger *zap.Logger
}

// NewDownloadHandler creates a new download handler
func NewDownloadHandler(jobs JobService, logger *zap.Logger) *DownloadHandler {
	return &DownloadHandler{
		jobs:   jobs,
		logger: logger,
	}
}

// SubmitDownloadRequest represents a download submission
type SubmitDownloadRequest struct {
	URL       string `json:"url"`
	MediaType string `json:"media_type"`
	Quality   string `json:"quality,omitempty"`
}

// SubmitDownloadResponse acknowledges an admitted job
type SubmitDownloadResponse struct {
	JobID string `json:"job_id"`
}

// Submit handles POST /api/v1/downloads
func (h *DownloadHandler) Submit(c *gin.Context) {
	var req SubmitDownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "InvalidRequest"})
		return
	}

	job, err := h.jobs.Submit(c.Request.Context(), middleware.CurrentIdentity(c), domain.DownloadRequest{
		URL:       req.URL,
		MediaType: domain.MediaType(req.MediaType),
		Quality:   domain.Quality(req.Quality),
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusAccepted, SubmitDownloadResponse{JobID: job.ID})
}

// GetJob handles GET /api/v1/jobs/:id
func (h *DownloadHandler) GetJob(c *gin.Context) {
	job, err := h.jobs.GetJob(c.Request.Context(), middleware.CurrentIdentity(c), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, job)
}

// ListJobs handles GET /api/v1/jobs
func (h *DownloadHandler) ListJobs(c *gin.Context) {
	jobs, err := h.jobs.ListJobs(c.Request.Context(), middleware.CurrentIdentity(c), c.Query("owner"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, jobs)
}
