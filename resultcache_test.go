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
	"testing"
	"time"
)

func TestResultCacheLifecycle(t *testing.T) {
	cache := NewResultCache(NewDiscardLogger())

	if !cache.Reset("ds1") {
		t.Fatal("binding a first dataset should reset the cache")
	}

	batch := &BatchResult{
		RunID:   "run-1",
		Mode:    modeSequential,
		Elapsed: 3 * time.Second,
		Results: map[string]*CityAnalysisResult{"Oslo": {City: "Oslo"}},
	}
	if !cache.ReplaceAll("ds1", batch) {
		t.Fatal("batch for the current dataset should be stored")
	}
	if r, ok := cache.Get("Oslo"); !ok || r.City != "Oslo" {
		t.Fatalf("expected a cached Oslo result, got %v %v", r, ok)
	}
	if runID, elapsed := cache.LastRun(); runID != "run-1" || elapsed != 3*time.Second {
		t.Errorf("LastRun() = %q, %v", runID, elapsed)
	}

	if cache.Reset("ds1") {
		t.Error("re-binding the same dataset must keep results")
	}
	if !cache.Has("Oslo") {
		t.Error("results lost after re-binding the same dataset")
	}

	if !cache.Reset("ds2") {
		t.Error("a new dataset should reset the cache")
	}
	if cache.Has("Oslo") || cache.DatasetID() != "ds2" {
		t.Error("results of the previous dataset must be dropped")
	}

	if cache.ReplaceAll("ds1", batch) {
		t.Error("a batch for a stale dataset must be ignored")
	}
	if cache.Has("Oslo") {
		t.Error("stale results were stored")
	}
}
