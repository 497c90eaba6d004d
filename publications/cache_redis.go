/*
 * Copyright 2020 Guardtime, Inc.
 *
 * This file is part of the Guardtime client SDK.
 *
 * Licensed under the Apache License, Version 2.0 (the "License").
 * You may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *     http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES, CONDITIONS, OR OTHER LICENSES OF ANY KIND, either
 * express or implied. See the License for the specific language governing
 * permissions and limitations under the License.
 * "Guardtime" and "KSI" are trademarks or registered trademarks of
 * Guardtime, Inc., and no license to trademarks is granted; Guardtime
 * reserves and retains all trademark rights.
 */

package publications

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/guardtime/ksicore/errors"
)

// RedisCache is a FileCache backed by Redis, allowing several verifier processes to share one download.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache returns a cache connected to the given Redis server.
func NewRedisCache(addr, password string, db int) (*RedisCache, error) {
	if addr == "" {
		return nil, errors.New(errors.KsiInvalidArgumentError).AppendMessage("Redis address is required.")
	}
	return NewRedisCacheFromClient(redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}))
}

// NewRedisCacheFromClient wraps an existing Redis client.
func NewRedisCacheFromClient(client *redis.Client) (*RedisCache, error) {
	if client == nil {
		return nil, errors.New(errors.KsiInvalidArgumentError)
	}
	return &RedisCache{client: client}, nil
}

// Ping checks the connection to the server.
func (c *RedisCache) Ping(ctx context.Context) error {
	if c == nil {
		return errors.New(errors.KsiInvalidArgumentError)
	}
	if err := c.client.Ping(ctx).Err(); err != nil {
		return errors.New(errors.KsiCacheError).SetExtError(err).AppendMessage("Redis ping failed.")
	}
	return nil
}

// Get implements FileCache.Get().
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	if c == nil {
		return nil, errors.New(errors.KsiInvalidArgumentError)
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.New(errors.KsiCacheError).SetExtError(err).AppendMessage("Redis GET failed.")
	}
	return raw, nil
}

// Set implements FileCache.Set(). A zero ttl stores the entry without expiration.
func (c *RedisCache) Set(ctx context.Context, key string, raw []byte, ttl time.Duration) error {
	if c == nil {
		return errors.New(errors.KsiInvalidArgumentError)
	}
	if ttl < 0 {
		return errors.New(errors.KsiInvalidArgumentError).AppendMessage("Duration can not be negative.")
	}
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return errors.New(errors.KsiCacheError).SetExtError(err).AppendMessage("Redis SET failed.")
	}
	return nil
}

// Close releases the connection pool.
func (c *RedisCache) Close() error {
	if c == nil {
		return errors.New(errors.KsiInvalidArgumentError)
	}
	return c.client.Close()
}
