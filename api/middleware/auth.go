package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/mediagrab-go/internal/domain"
)

const identityKey = "identity"

// Authenticator resolves a bearer token to a user identity
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.UserIdentity, error)
}

// Auth rejects requests without a valid bearer token and stores the caller's identity.
// The token comes from the Authorization header, or the access_token query
// parameter for clients that cannot set headers (websockets).
func Auth(auth Authenticator, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c.Request)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		identity, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, domain.ErrUnauthorized) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
				return
			}
			log.Error("Failed to authenticate request",
				zap.String("request_id", c.GetString(RequestIDKey)),
				zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "InternalError"})
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// BearerToken extracts the bearer credential from a request
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return ""
		}
		return strings.TrimSpace(token)
	}
	return r.URL.Query().Get("access_token")
}

// CurrentIdentity returns the authenticated caller, or nil
func CurrentIdentity(c *gin.Context) *domain.UserIdentity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	identity, _ := v.(*domain.UserIdentity)
	return identity
}
