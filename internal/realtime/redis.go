package realtime

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher publishes on Redis pub/sub channels named after the topic
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher creates a publisher backed by Redis
func NewRedisPublisher(addr string, password string, db int) *RedisPublisher {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisPublisher{client: rdb}
}

// Publish implements Publisher
func (p *RedisPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := p.client.Publish(ctx, topic, payload).Err(); err != nil {
		return fmt.Errorf("redis publish error: %w", err)
	}
	return nil
}

// Close releases the connection pool
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
