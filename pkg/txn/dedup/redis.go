// Copyright © 2025 jackelyj <dreamerlyj@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
//

package dedup

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrInvalidRedisConfig indicates that the Redis configuration is invalid.
var ErrInvalidRedisConfig = errors.New("invalid redis configuration")

// defaultKeyPrefix namespaces the dedup keys in a shared Redis.
const defaultKeyPrefix = "txkit:dedup:"

// RedisConfig holds the configuration for the Redis-backed store.
type RedisConfig struct {
	// Addr is the Redis server address in the format "host:port".
	Addr string `json:"addr" yaml:"addr"`

	// Password is the optional Redis password.
	Password string `json:"password" yaml:"password"`

	// DB is the Redis database number.
	DB int `json:"db" yaml:"db"`

	// KeyPrefix namespaces the store's keys. Default: "txkit:dedup:".
	KeyPrefix string `json:"key_prefix" yaml:"key_prefix"`

	// DialTimeout bounds the initial connection. Default: 5s.
	DialTimeout time.Duration `json:"dial_timeout" yaml:"dial_timeout"`
}

// Validate checks the configuration.
func (c *RedisConfig) Validate() error {
	if c == nil || c.Addr == "" {
		return ErrInvalidRedisConfig
	}
	if c.DB < 0 {
		return ErrInvalidRedisConfig
	}
	return nil
}

// RedisStore is a Store backed by a Redis sorted set: members are
// side-effect ids, scores are publish timestamps in milliseconds. This makes
// DeleteBefore a single ZREMRANGEBYSCORE and keeps the store safe for
// concurrent access from multiple processes.
type RedisStore struct {
	client    redis.UniversalClient
	key       string
	ownClient bool
}

// NewRedisStore connects to Redis with the given configuration and verifies
// connectivity with a ping.
func NewRedisStore(config *RedisConfig) (*RedisStore, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	dialTimeout := config.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:        config.Addr,
		Password:    config.Password,
		DB:          config.DB,
		DialTimeout: dialTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	store := NewRedisStoreFromClient(client, config.KeyPrefix)
	store.ownClient = true
	return store, nil
}

// NewRedisStoreFromClient wraps an existing client. The caller keeps
// ownership of the client's lifecycle.
func NewRedisStoreFromClient(client redis.UniversalClient, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisStore{
		client: client,
		key:    keyPrefix + "published",
	}
}

// score encodes a publish timestamp as a sorted-set score. Millisecond
// precision keeps the value exactly representable as a float64; nanosecond
// values exceed the 2^53 integer range and would round across DeleteBefore's
// exclusive bound.
func score(t time.Time) float64 {
	return float64(t.UnixMilli())
}

// exclusiveBound formats t as an exclusive ZRANGEBYSCORE bound.
func exclusiveBound(t time.Time) string {
	return "(" + strconv.FormatInt(t.UnixMilli(), 10)
}

// MarkPublished records the publish timestamp for id. ZADD NX keeps the
// original timestamp on re-mark.
func (s *RedisStore) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	err := s.client.ZAddNX(ctx, s.key, redis.Z{
		Score:  score(publishedAt),
		Member: id,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to mark side effect %q published: %w", id, err)
	}
	return nil
}

// IsPublished reports whether id has been marked and not purged.
func (s *RedisStore) IsPublished(ctx context.Context, id string) (bool, error) {
	err := s.client.ZScore(ctx, s.key, id).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up side effect %q: %w", id, err)
	}
	return true, nil
}

// Count returns the number of entries currently held.
func (s *RedisStore) Count(ctx context.Context) (int64, error) {
	n, err := s.client.ZCard(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count dedup entries: %w", err)
	}
	return n, nil
}

// DeleteBefore removes the entries whose millisecond timestamp is strictly
// less than cutoff's.
func (s *RedisStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	// exclusive upper bound keeps entries at exactly cutoff
	n, err := s.client.ZRemRangeByScore(ctx, s.key, "-inf", exclusiveBound(cutoff)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to purge dedup entries: %w", err)
	}
	return n, nil
}

// Close releases the underlying client when this store created it.
func (s *RedisStore) Close() error {
	if s.ownClient {
		return s.client.Close()
	}
	return nil
}
