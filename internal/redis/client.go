package redis

import (
	"context"
	"fmt"

	"github.com/MahmutEsadErman/HealthCareWristlet/internal/config"

	"github.com/go-redis/redis/v8"
)

// Client Redis client alias
type Client = redis.Client

// NewRedisClient builds a client from the redis config block.
func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Connect builds a client and pings it.
func Connect(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	client := NewRedisClient(cfg)
	if err := Ping(ctx, client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// Ping checks the connection
func Ping(ctx context.Context, client *redis.Client) error {
	return client.Ping(ctx).Err()
}

// Close closes the connection
func Close(client *redis.Client) error {
	return client.Close()
}
