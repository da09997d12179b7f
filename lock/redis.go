package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"mySocialApp/logging"
)

// releaseScript deletes the lock only if it's still owned by the caller.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Locker shared by every server instance using the same redis.
// Locks expire after ttl so a crashed holder can't block a pair forever.
type Redis struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	retry  time.Duration
}

// NewRedis returns a Redis locker. A ttl <= 0 defaults to five seconds.
// Locks are never extended: a holder must be done within ttl, which is why
// work under a lock runs on a context from Bound.
func NewRedis(client redis.UniversalClient, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &Redis{
		client: client,
		prefix: "mysocialapp:lock:",
		ttl:    ttl,
		retry:  20 * time.Millisecond,
	}
}

var _ Locker = &Redis{}

// TTL returns how long a lock lives unless released first.
func (r *Redis) TTL() time.Duration {
	return r.ttl
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	k := r.prefix + key
	token := uuid.NewString()

	for {
		ok, err := r.client.SetNX(ctx, k, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.retry):
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The request context may already be cancelled at this point.
			err := releaseScript.Run(context.Background(), r.client, []string{k}, token).Err()
			if err != nil {
				logger := logging.L()
				logger.Warn().Err(err).Str("lock", k).Msg("release lock")
			}
		})
	}, nil
}
