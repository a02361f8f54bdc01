// Copyright 2025 Matthew Gall <me@matthewgall.dev>
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

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// CacheEntry represents a single cached item with expiration
type CacheEntry struct {
	Data      json.RawMessage `json:"data"`
	CachedAt  time.Time       `json:"cached_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// CacheStore holds all cache entries of one namespace
type CacheStore struct {
	Entries map[string]*CacheEntry `json:"entries"`
}

// Cache is a JSON file cache with per-entry expiry, one file per namespace
type Cache struct {
	filePath  string
	namespace string
	store     *CacheStore
	mutex     sync.RWMutex
	logger    *Logger
	now       func() time.Time
}

// NewCache opens (or creates) the cache file for namespace under basePath
func NewCache(basePath, namespace string, logger *Logger) (*Cache, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, &CacheError{
			Operation: "create_directory",
			Path:      basePath,
			Err:       err,
		}
	}

	cache := &Cache{
		filePath:  filepath.Join(basePath, fmt.Sprintf("cache_%s.json", namespace)),
		namespace: namespace,
		store:     &CacheStore{Entries: make(map[string]*CacheEntry)},
		logger:    logger.WithComponent("cache"),
		now:       time.Now,
	}

	if err := cache.load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		cache.logger.Warn("Failed to load cache, starting fresh", "error", err)
	}

	if err := cache.CleanExpired(); err != nil {
		cache.logger.Warn("Failed to clean expired cache", "error", err)
	}

	total, _ := cache.Stats()
	cache.logger.Debug("Cache initialized", "path", cache.filePath, "entries", total)

	return cache, nil
}

// cacheKey normalises keys so "London" and " london" share an entry
func cacheKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Set stores a value in cache with TTL (time-to-live)
func (c *Cache) Set(key string, value interface{}, ttl time.Duration) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	valueJSON, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	now := c.now()
	c.store.Entries[cacheKey(key)] = &CacheEntry{
		Data:      valueJSON,
		CachedAt:  now,
		ExpiresAt: now.Add(ttl),
	}

	if err := c.save(); err != nil {
		return err
	}

	c.logger.LogCacheOperation("set", key)
	return nil
}

// Get decodes a live entry into target and reports whether one was found
func (c *Cache) Get(key string, target interface{}) (bool, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, exists := c.store.Entries[cacheKey(key)]
	if !exists {
		c.logger.LogCacheOperation("miss", key)
		return false, nil
	}

	if c.now().After(entry.ExpiresAt) {
		c.logger.LogCacheOperation("expired", key)
		return false, nil
	}

	if err := json.Unmarshal(entry.Data, target); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}

	c.logger.LogCacheOperation("hit", key)
	return true, nil
}

// Delete removes a cache entry
func (c *Cache) Delete(key string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.store.Entries, cacheKey(key))
	return c.save()
}

// CleanExpired removes all expired cache entries
func (c *Cache) CleanExpired() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	removed := 0
	for key, entry := range c.store.Entries {
		if now.After(entry.ExpiresAt) {
			delete(c.store.Entries, key)
			removed++
		}
	}

	if removed == 0 {
		return nil
	}
	c.logger.Info("Cleaned expired cache entries", "namespace", c.namespace, "count", removed)
	return c.save()
}

// Stats returns the number of entries and how many of them have expired
func (c *Cache) Stats() (total int, expired int) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	now := c.now()
	total = len(c.store.Entries)
	for _, entry := range c.store.Entries {
		if now.After(entry.ExpiresAt) {
			expired++
		}
	}
	return total, expired
}

// load reads the cache from disk
func (c *Cache) load() error {
	data, err := os.ReadFile(c.filePath)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, c.store); err != nil {
		return fmt.Errorf("failed to unmarshal cache file: %w", err)
	}
	if c.store.Entries == nil {
		c.store.Entries = make(map[string]*CacheEntry)
	}

	return nil
}

// save writes the cache to disk (must be called with lock held)
func (c *Cache) save() error {
	data, err := json.MarshalIndent(c.store, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}

	if err := os.WriteFile(c.filePath, data, 0644); err != nil {
		return &CacheError{Operation: "write", Path: c.filePath, Err: err}
	}

	return nil
}

// Close drops expired entries before shutdown
func (c *Cache) Close() error {
	return c.CleanExpired()
}
