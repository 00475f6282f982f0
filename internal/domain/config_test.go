package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.NotNil(t, config)
	assert.Equal(t, "localhost", config.Server.Host)
	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, "sqlite", config.Database.Driver)
	assert.Equal(t, "memory", config.Queue.Driver)
	assert.Equal(t, 30*time.Second, config.Queue.CheckInterval)
	assert.Less(t, config.Queue.RequeueAfter, config.Queue.PendingTTL)
	assert.Equal(t, 3, config.Fulfillment.MaxRetries)
	assert.Equal(t, 2*time.Second, config.Fulfillment.RetryDelay)
	assert.Equal(t, 4, config.Fulfillment.Concurrency)
	assert.True(t, config.Fulfillment.AutoStartWorkers)
	assert.Empty(t, config.Auth.JWTSecret, "secret must be supplied by the operator")
	assert.Equal(t, "info", config.Logging.Level)
}
