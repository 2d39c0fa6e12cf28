package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "session:"

// RedisConfig defines connection parameters for the Redis session backend.
type RedisConfig struct {
	Addr     string `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" envconfig:"REDIS_DB"`
}

// NewRedisClient creates a client and performs a health check.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// RedisManager stores sessions as JSON values whose expiry is the key TTL.
type RedisManager struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

var _ Manager = (*RedisManager)(nil)

// NewRedisManager wraps a client. A ttl of zero stores keys without expiry.
func NewRedisManager(client redis.Cmdable, ttl time.Duration) *RedisManager {
	return &RedisManager{client: client, prefix: redisKeyPrefix, ttl: ttl}
}

func (r *RedisManager) key(userID int64) string {
	return r.prefix + strconv.FormatInt(userID, 10)
}

// Get implements Manager.
func (r *RedisManager) Get(ctx context.Context, userID int64) (Session, error) {
	raw, err := r.client.Get(ctx, r.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Idle(), nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("redis get session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	return s.Clone(), nil
}

// Save implements Manager.
func (r *RedisManager) Save(ctx context.Context, userID int64, s Session) error {
	s = s.Clone()
	s.UpdatedAt = time.Now().UTC()
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.client.Set(ctx, r.key(userID), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

// Clear implements Manager.
func (r *RedisManager) Clear(ctx context.Context, userID int64) error {
	if err := r.client.Del(ctx, r.key(userID)).Err(); err != nil {
		return fmt.Errorf("redis del session: %w", err)
	}
	return nil
}
