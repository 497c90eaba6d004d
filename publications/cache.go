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
	"sync"
	"time"

	"github.com/guardtime/ksicore/errors"
)

// FileCache is a store for raw publications files shared between handlers. A cache miss is reported as (nil, nil).
//
// Entries are kept as received: a file read from the cache is always verified again by the handler.
type FileCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, raw []byte, ttl time.Duration) error
}

type memoryEntry struct {
	raw       []byte
	expiresAt time.Time
}

// MemoryCache is a process local FileCache.
type MemoryCache struct {
	mu   sync.Mutex
	now  func() time.Time
	data map[string]memoryEntry
}

// NewMemoryCache returns an empty in-memory cache. If now is nil, time.Now is used.
func NewMemoryCache(now func() time.Time) *MemoryCache {
	if now == nil {
		now = time.Now
	}
	return &MemoryCache{
		now:  now,
		data: make(map[string]memoryEntry),
	}
}

// Get implements FileCache.Get().
func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	if m == nil {
		return nil, errors.New(errors.KsiInvalidArgumentError)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		delete(m.data, key)
		return nil, nil
	}
	return append([]byte(nil), e.raw...), nil
}

// Set implements FileCache.Set(). A zero ttl keeps the entry until it is overwritten.
func (m *MemoryCache) Set(_ context.Context, key string, raw []byte, ttl time.Duration) error {
	if m == nil {
		return errors.New(errors.KsiInvalidArgumentError)
	}
	if ttl < 0 {
		return errors.New(errors.KsiInvalidArgumentError).AppendMessage("Duration can not be negative.")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e := memoryEntry{raw: append([]byte(nil), raw...)}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.data[key] = e
	return nil
}
