package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/yourusername/mediagrab-go/api/middleware"
	"github.com/yourusername/mediagrab-go/internal/domain"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // bearer token is required, not cookies
	},
}

// JobWatchHandler streams job snapshots over a websocket until the job is terminal
type JobWatchHandler struct {
	jobs     JobService
	interval time.Duration
	logger   *zap.Logger
}

// NewJobWatchHandler creates a watch handler polling the store every interval
func NewJobWatchHandler(jobs JobService, interval time.Duration, logger *zap.Logger) *JobWatchHandler {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &JobWatchHandler{
		jobs:     jobs,
		interval: interval,
		logger:   logger,
	}
}

// Watch handles GET /api/v1/jobs/:id/watch. A snapshot is sent on connect and
// on every status change; the server closes the socket after the terminal one.
// Disconnecting does not affect fulfillment.
func (h *JobWatchHandler) Watch(c *gin.Context) {
	ctx := c.Request.Context()
	identity := middleware.CurrentIdentity(c)
	id := c.Param("id")

	job, err := h.jobs.GetJob(ctx, identity, id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket", zap.Error(err))
		return
	}
	defer conn.Close()

	// Drain client frames so close and pong frames are processed
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var lastStatus domain.JobStatus
	for {
		if job.Status != lastStatus {
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(job); err != nil {
				h.logger.Debug("Watch client went away", zap.String("id", id), zap.Error(err))
				return
			}
			lastStatus = job.Status
		}

		if job.IsTerminal() {
			closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(job.Status))
			conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(writeWait))
			return
		}

		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		job, err = h.jobs.GetJob(ctx, identity, id)
		if err != nil {
			h.logger.Error("Failed to refresh watched job", zap.String("id", id), zap.Error(err))
			closeMsg := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "job lookup failed")
			conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(writeWait))
			return
		}
	}
}
