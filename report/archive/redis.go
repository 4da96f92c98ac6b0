package archive

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/labfont/gpu-test-harness/report"
)

// RedisArchive keeps every record in one hash, keyed by run ID, and the most recent record
// under a separate key.
type RedisArchive struct {
	redis *redis.Client
}

func NewRedisArchive(addr string) (*RedisArchive, error) {
	if addr == "" {
		return nil, fmt.Errorf("missing Redis address")
	}
	return &RedisArchive{redis: redis.NewClient(&redis.Options{Addr: addr})}, nil
}

func (r *RedisArchive) DSN() string {
	return fmt.Sprintf("redis://%s", r.redis.Options().Addr)
}

func (r *RedisArchive) Store(ctx context.Context, record report.Record) error {
	data := string(record.JSON())
	if _, err := r.redis.HSet(ctx, keyPrefix+":runs", map[string]string{record.RunID: data}).Result(); err != nil {
		return err
	}
	return r.redis.Set(ctx, keyPrefix+":latest", data, 0).Err()
}

func (r *RedisArchive) Close() error {
	return r.redis.Close()
}
