package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/yourusername/mediagrab-go/internal/domain"
)

// Compare-and-act so a holder never touches a lease that changed hands
var (
	renewLeaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

	releaseLeaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)
)

// RedisJobLeaser issues per-job leases as SET NX PX keys
type RedisJobLeaser struct {
	client *redis.Client
	prefix string
	nodeID string
}

// NewRedisJobLeaser creates a leaser storing keys under "<prefix>:lease:<job id>".
// nodeID identifies this process in the lease value.
func NewRedisJobLeaser(client *redis.Client, prefix, nodeID string) *RedisJobLeaser {
	if nodeID == "" {
		nodeID = uuid.New().String()
	}
	return &RedisJobLeaser{client: client, prefix: prefix, nodeID: nodeID}
}

func (l *RedisJobLeaser) key(jobID string) string {
	return l.prefix + ":lease:" + jobID
}

// Acquire takes the job's lease unless another holder has it
func (l *RedisJobLeaser) Acquire(ctx context.Context, jobID string, ttl time.Duration) (domain.JobLease, bool, error) {
	lease := &redisJobLease{
		client: l.client,
		key:    l.key(jobID),
		token:  l.nodeID + "/" + uuid.New().String(),
	}

	ok, err := l.client.SetNX(ctx, lease.key, lease.token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lease for job %s: %w", jobID, err)
	}
	if !ok {
		return nil, false, nil
	}
	return lease, true, nil
}

// Held reports whether the job's lease key exists
func (l *RedisJobLeaser) Held(ctx context.Context, jobID string) (bool, error) {
	n, err := l.client.Exists(ctx, l.key(jobID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check lease for job %s: %w", jobID, err)
	}
	return n > 0, nil
}

type redisJobLease struct {
	client *redis.Client
	key    string
	token  string
}

func (l *redisJobLease) Renew(ctx context.Context, ttl time.Duration) error {
	n, err := renewLeaseScript.Run(ctx, l.client, []string{l.key}, l.token, ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("failed to renew lease %s: %w", l.key, err)
	}
	if n == 0 {
		return domain.ErrLeaseLost
	}
	return nil
}

func (l *redisJobLease) Release(ctx context.Context) error {
	if err := releaseLeaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err(); err != nil {
		return fmt.Errorf("failed to release lease %s: %w", l.key, err)
	}
	return nil
}
