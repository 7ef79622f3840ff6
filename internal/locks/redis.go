package locks

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrLockLost is returned by Lock when acquisition fails for a reason other
// than the context ending.
var ErrLockLost = errors.New("lock could not be acquired")

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Redis is a lease-based lock shared by every process using the same Redis.
// Keys are stored as "<prefix><key>" holding a random token with TTL = lease.
type Redis struct {
	client *redis.Client
	prefix string
	lease  time.Duration
	poll   time.Duration
}

// NewRedis creates a Redis-backed locker. Prefix may be empty.
func NewRedis(client *redis.Client, prefix string, lease time.Duration) *Redis {
	if prefix == "" {
		prefix = "lock:"
	}
	if lease <= 0 {
		lease = 10 * time.Second
	}
	return &Redis{client: client, prefix: prefix, lease: lease, poll: 25 * time.Millisecond}
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	token := hex.EncodeToString(b)
	rk := r.prefix + key

	for {
		ok, err := r.client.SetNX(ctx, rk, token, r.lease).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, errors.Join(ErrLockLost, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.poll):
		}
	}

	return func() {
		// release with a fresh context: the caller's may already be done
		rctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = releaseScript.Run(rctx, r.client, []string{rk}, token).Err()
	}, nil
}
