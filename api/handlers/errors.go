package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/mediagrab-go/internal/domain"
)

// writeError maps domain errors to status codes and stable error codes
func writeError(c *gin.Context, log *zap.Logger, err error) {
	var forbidden *domain.ForbiddenError
	switch {
	case errors.As(err, &forbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden", "reason": forbidden.Reason})
	case errors.Is(err, domain.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	case errors.Is(err, domain.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	case errors.Is(err, domain.ErrInvalidURL):
		c.JSON(http.StatusBadRequest, gin.H{"error": "InvalidUrl"})
	case errors.Is(err, domain.ErrInvalidMediaType):
		c.JSON(http.StatusBadRequest, gin.H{"error": "InvalidMediaType"})
	case errors.Is(err, domain.ErrInvalidQuality):
		c.JSON(http.StatusBadRequest, gin.H{"error": "InvalidQuality"})
	case errors.Is(err, domain.ErrJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "NotFound"})
	default:
		log.Error("Request failed",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "InternalError"})
	}
}
