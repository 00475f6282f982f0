package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yourusername/mediagrab-go/internal/domain"
)

const (
	redisPopTimeout = time.Second
	// A marker outliving a lost pop only delays the next push of that id
	redisQueuedMarkerTTL = 10 * time.Minute
)

// Pushes only ids not already waiting; KEYS[1] list, KEYS[2] the id's marker
var enqueueScript = redis.NewScript(`
if redis.call("SET", KEYS[2], "1", "NX", "PX", ARGV[2]) then
	redis.call("LPUSH", KEYS[1], ARGV[1])
	return 1
end
return 0`)

// RedisJobQueue is a job queue on a Redis list, shared by every server process
type RedisJobQueue struct {
	client *redis.Client
	key    string
	closed atomic.Bool
}

// NewRedisClient creates a client from queue configuration
func NewRedisClient(config *domain.QueueConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
	})
}

// NewRedisJobQueue creates a queue on the given list key. The queue owns the client.
func NewRedisJobQueue(client *redis.Client, key string) *RedisJobQueue {
	return &RedisJobQueue{client: client, key: key}
}

func (q *RedisJobQueue) markerKey(jobID string) string {
	return q.key + ":queued:" + jobID
}

// Client returns the underlying client for collaborators sharing the connection
func (q *RedisJobQueue) Client() *redis.Client {
	return q.client
}

// Ping checks connectivity
func (q *RedisJobQueue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Enqueue pushes a job id onto the list unless it is already waiting there
func (q *RedisJobQueue) Enqueue(ctx context.Context, jobID string) error {
	if q.closed.Load() {
		return domain.ErrQueueClosed
	}
	if err := enqueueScript.Run(ctx, q.client, []string{q.key, q.markerKey(jobID)},
		jobID, redisQueuedMarkerTTL.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}
	return nil
}

// Dequeue pops the oldest job id, blocking until one arrives or the context ends
func (q *RedisJobQueue) Dequeue(ctx context.Context) (string, error) {
	for {
		if q.closed.Load() {
			return "", domain.ErrQueueClosed
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}

		result, err := q.client.BRPop(ctx, redisPopTimeout, q.key).Result()
		if err == nil {
			// BRPOP returns [key, value]
			jobID := result[1]
			q.client.Del(ctx, q.markerKey(jobID))
			return jobID, nil
		}
		if errors.Is(err, redis.Nil) {
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		if errors.Is(err, redis.ErrClosed) {
			return "", domain.ErrQueueClosed
		}
		return "", fmt.Errorf("failed to dequeue job: %w", err)
	}
}

// Len returns the number of waiting ids
func (q *RedisJobQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}

// Close closes the underlying client
func (q *RedisJobQueue) Close() error {
	if q.closed.Swap(true) {
		return nil
	}
	return q.client.Close()
}
