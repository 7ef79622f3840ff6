package sessions

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRepository keeps each session as a hash under <prefix><digest> that
// Redis expires at the session's ExpiresAt.
type RedisRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisRepository(client *redis.Client, prefix string) *RedisRepository {
	if prefix == "" {
		prefix = "session:"
	}
	return &RedisRepository{client: client, prefix: prefix}
}

func (r *RedisRepository) Create(ctx context.Context, s *Session) error {
	key := r.prefix + s.TokenHash
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key,
			"username", s.Username,
			"created_at", s.CreatedAt.Unix(),
			"expires_at", s.ExpiresAt.Unix(),
		)
		p.ExpireAt(ctx, key, s.ExpiresAt)
		return nil
	})
	return err
}

func (r *RedisRepository) Get(ctx context.Context, tokenHash string) (*Session, error) {
	var fields struct {
		Username  string `redis:"username"`
		CreatedAt int64  `redis:"created_at"`
		ExpiresAt int64  `redis:"expires_at"`
	}
	res := r.client.HGetAll(ctx, r.prefix+tokenHash)
	if err := res.Err(); err != nil {
		return nil, err
	}
	if len(res.Val()) == 0 {
		return nil, ErrSessionNotFound
	}
	if err := res.Scan(&fields); err != nil {
		return nil, err
	}
	return &Session{
		TokenHash: tokenHash,
		Username:  fields.Username,
		CreatedAt: time.Unix(fields.CreatedAt, 0).UTC(),
		ExpiresAt: time.Unix(fields.ExpiresAt, 0).UTC(),
	}, nil
}

func (r *RedisRepository) Delete(ctx context.Context, tokenHash string) error {
	n, err := r.client.Del(ctx, r.prefix+tokenHash).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}
