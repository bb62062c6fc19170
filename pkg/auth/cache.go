// Copyright 2026 Bindu Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// maxCacheEntries bounds the cache. A process talking to that many distinct
// tokens inside one TTL is either misconfigured or under attack; either way
// the cache must not grow without limit.
const maxCacheEntries = 1024

// CachingValidator memoizes successful validations. Entries live for the
// configured timeout or until the token expires, whichever is sooner;
// failures are never cached. The cache holds at most maxCacheEntries
// entries; expired entries are swept on insert and the oldest-expiring one
// is evicted when the sweep frees nothing.
type CachingValidator struct {
	inner   TokenValidator
	timeout time.Duration

	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	principal *Principal
	expires   time.Time
}

// NewCachingValidator wraps a validator with a TTL cache.
func NewCachingValidator(inner TokenValidator, timeout time.Duration) *CachingValidator {
	return &CachingValidator{
		inner:   inner,
		timeout: timeout,
		entries: make(map[string]cacheEntry),
	}
}

func (c *CachingValidator) ValidateToken(ctx context.Context, token string) (*Principal, error) {
	key := cacheKey(token)
	now := time.Now()

	c.mu.Lock()
	if entry, ok := c.entries[key]; ok && now.Before(entry.expires) {
		c.mu.Unlock()
		return entry.principal, nil
	}
	c.mu.Unlock()

	principal, err := c.inner.ValidateToken(ctx, token)
	if err != nil {
		return nil, err
	}

	ttl := c.timeout
	if !principal.ExpiresAt.IsZero() {
		if remaining := time.Until(principal.ExpiresAt); remaining < ttl {
			ttl = remaining
		}
	}
	if ttl > 0 {
		c.mu.Lock()
		if len(c.entries) >= maxCacheEntries {
			c.evictLocked(now)
		}
		c.entries[key] = cacheEntry{principal: principal, expires: now.Add(ttl)}
		c.mu.Unlock()
	}
	return principal, nil
}

// evictLocked drops every expired entry and, when none has expired yet, the
// entry closest to expiry. Caller holds c.mu.
func (c *CachingValidator) evictLocked(now time.Time) {
	var oldestKey string
	var oldestExpiry time.Time
	for key, entry := range c.entries {
		if !now.Before(entry.expires) {
			delete(c.entries, key)
			continue
		}
		if oldestKey == "" || entry.expires.Before(oldestExpiry) {
			oldestKey = key
			oldestExpiry = entry.expires
		}
	}
	if len(c.entries) >= maxCacheEntries && oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// cacheKey hashes the token so raw credentials never sit in the map.
func cacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
