package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	sessionbridge "github.com/opengovern/session-bridge"
)

const (
	DefaultRedisKey     = "sessionbridge:access_token"
	defaultRedisTimeout = 2 * time.Second
)

// Redis keeps the token under one key, shared by every client using the same
// instance and key. Failures are logged and read as "logged out".
type Redis struct {
	client  redis.Cmdable
	key     string
	timeout time.Duration
	logger  zerolog.Logger
}

var _ sessionbridge.SessionStore = (*Redis)(nil)

type RedisOption func(*Redis)

func WithRedisKey(key string) RedisOption {
	return func(r *Redis) { r.key = key }
}

func WithRedisTimeout(d time.Duration) RedisOption {
	return func(r *Redis) { r.timeout = d }
}

func WithRedisLogger(l zerolog.Logger) RedisOption {
	return func(r *Redis) { r.logger = l }
}

func NewRedis(client redis.Cmdable, opts ...RedisOption) *Redis {
	r := &Redis{
		client:  client,
		key:     DefaultRedisKey,
		timeout: defaultRedisTimeout,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) Get() (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	val, err := r.client.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false
	}
	if err != nil {
		r.logger.Error().Err(err).Str("key", r.key).Msg("read session key")
		return "", false
	}
	return val, val != ""
}

func (r *Redis) Set(token string) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.client.Set(ctx, r.key, token, 0).Err(); err != nil {
		r.logger.Error().Err(err).Str("key", r.key).Msg("write session key")
	}
}

func (r *Redis) Clear() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		r.logger.Error().Err(err).Str("key", r.key).Msg("delete session key")
	}
}
