package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClients holds the two connections the service needs: Queue carries
// commands (BLPOP workers hold connections for their full block interval, so
// its pool is sized separately), PubSub is dedicated to subscriptions.
type RedisClients struct {
	Queue  *redis.Client
	PubSub *redis.Client
}

// NewRedisClients dials both clients and verifies each with a ping.
// poolSize sizes the queue client's connection pool; zero keeps the
// library default.
func NewRedisClients(redisURL string, poolSize int) (*RedisClients, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse Redis URL: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	queueOpt := *opt
	if poolSize > 0 {
		queueOpt.PoolSize = poolSize
	}
	queue := redis.NewClient(&queueOpt)
	if err := queue.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping Redis (queue): %w", err)
	}

	pubsubOpt := *opt
	pubsub := redis.NewClient(&pubsubOpt)
	if err := pubsub.Ping(ctx).Err(); err != nil {
		queue.Close()
		return nil, fmt.Errorf("ping Redis (pubsub): %w", err)
	}

	return &RedisClients{Queue: queue, PubSub: pubsub}, nil
}

func (r *RedisClients) Close() {
	r.Queue.Close()
	r.PubSub.Close()
}
