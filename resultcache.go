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
	"sync"
	"time"
)

// ResultCache holds the latest analysis per city for one dataset.
// Results of a different dataset are never served.
type ResultCache struct {
	mu        sync.RWMutex
	datasetID string
	runID     string
	elapsed   time.Duration
	results   map[string]*CityAnalysisResult
	logger    *Logger
}

// NewResultCache creates an empty result cache
func NewResultCache(logger *Logger) *ResultCache {
	return &ResultCache{
		results: make(map[string]*CityAnalysisResult),
		logger:  logger.WithComponent("result_cache"),
	}
}

// Reset binds the cache to datasetID, dropping every result if the dataset changed.
// It reports whether the cache was cleared.
func (c *ResultCache) Reset(datasetID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.datasetID == datasetID {
		return false
	}

	dropped := len(c.results)
	c.datasetID = datasetID
	c.runID = ""
	c.elapsed = 0
	c.results = make(map[string]*CityAnalysisResult)

	c.logger.Info("Result cache reset", "dataset_id", datasetID, "dropped", dropped)
	return true
}

// ReplaceAll swaps in the results of a batch run over datasetID.
// A batch for a stale dataset is ignored.
func (c *ResultCache) ReplaceAll(datasetID string, batch *BatchResult) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if datasetID != c.datasetID {
		c.logger.Warn("Discarding batch for stale dataset", "dataset_id", datasetID, "current", c.datasetID)
		return false
	}

	results := make(map[string]*CityAnalysisResult, len(batch.Results))
	for city, r := range batch.Results {
		results[city] = r
	}
	c.results = results
	c.runID = batch.RunID
	c.elapsed = batch.Elapsed

	c.logger.LogCacheOperation("replace_all", batch.RunID)
	return true
}

// Get returns the cached result for city
func (c *ResultCache) Get(city string) (*CityAnalysisResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	r, ok := c.results[city]
	return r, ok
}

// Has reports whether city has a cached result
func (c *ResultCache) Has(city string) bool {
	_, ok := c.Get(city)
	return ok
}

// DatasetID returns the dataset the cache is bound to
func (c *ResultCache) DatasetID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.datasetID
}

// LastRun returns the run ID and elapsed time of the cached batch
func (c *ResultCache) LastRun() (string, time.Duration) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.runID, c.elapsed
}
