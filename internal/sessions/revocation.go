package sessions

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Revocations is the access-token deny list kept in Redis until the token
// would have expired anyway. A nil client makes every call a no-op.
type Revocations struct {
	client *redis.Client
	prefix string
}

func NewRevocations(client *redis.Client) *Revocations {
	return &Revocations{client: client, prefix: "revoked:access:"}
}

func (r *Revocations) key(token string) string { return r.prefix + digest(token) }

// Revoke denies token for ttl. Non-positive ttls are ignored.
func (r *Revocations) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if r == nil || r.client == nil || ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, r.key(token), "1", ttl).Err()
}

func (r *Revocations) IsRevoked(ctx context.Context, token string) (bool, error) {
	if r == nil || r.client == nil {
		return false, nil
	}
	n, err := r.client.Exists(ctx, r.key(token)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
