package cache

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/academictracker/api/internal/config"
	"github.com/redis/go-redis/v9"
)

// New initialises a Redis client using the provided configuration.
// It returns a nil client when Redis is not configured.
func New(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		// Redis 7.x rejects the CLIENT SETINFO handshake some managed instances proxy.
		DisableIdentity: true,
	}

	if cfg.EnableTLS {
		opts.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Key joins a namespace and key parts with ':' separators.
func Key(namespace string, parts ...string) string {
	key := namespace
	for _, p := range parts {
		key += ":" + p
	}
	return key
}
