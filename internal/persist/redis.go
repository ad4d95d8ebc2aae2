package persist

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

const redisKey = "legalchat:saved_sessions"

// RedisAdapter keeps the saved-session list under a single key. Last writer
// wins; concurrent writers are not coordinated.
type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (a *RedisAdapter) Load(ctx context.Context) ([]Record, error) {
	raw, err := a.client.Get(ctx, redisKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []Record{}, nil
		}
		return nil, err
	}
	return decode(raw), nil
}

func (a *RedisAdapter) Store(ctx context.Context, records []Record) error {
	raw, err := encode(records)
	if err != nil {
		return err
	}
	return a.client.Set(ctx, redisKey, raw, 0).Err()
}
