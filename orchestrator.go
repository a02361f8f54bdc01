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
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// CityAnalyzer analyzes the records of a single city
type CityAnalyzer interface {
	Analyze(city string, records []TemperatureRecord) (*CityAnalysisResult, error)
}

// Orchestrator runs the city analysis over every city in a dataset
type Orchestrator struct {
	analyzer    CityAnalyzer
	workers     int
	taskTimeout time.Duration
	logger      *Logger
}

// NewOrchestrator creates a new orchestrator. workers <= 0 means one per CPU.
func NewOrchestrator(analyzer CityAnalyzer, config *Config, logger *Logger) *Orchestrator {
	workers := config.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Orchestrator{
		analyzer:    analyzer,
		workers:     workers,
		taskTimeout: config.TaskTimeout,
		logger:      logger.WithComponent("orchestrator"),
	}
}

type cityOutcome struct {
	city   string
	result *CityAnalysisResult
}

// AnalyzeAll analyzes every city in records, sequentially on the calling goroutine or
// fanned out over a bounded worker pool. The first failing city aborts the batch.
func (o *Orchestrator) AnalyzeAll(ctx context.Context, records []TemperatureRecord, parallel bool) (*BatchResult, error) {
	mode := modeSequential
	if parallel {
		mode = modeParallel
	}

	batch := &BatchResult{
		RunID:   uuid.NewString(),
		Mode:    mode,
		Results: make(map[string]*CityAnalysisResult),
	}

	cities, partitions := PartitionByCity(records)
	o.logger.Info("Starting batch analysis",
		"run_id", batch.RunID,
		"mode", mode,
		"cities", len(cities),
		"workers", o.workers,
	)

	start := time.Now()

	var err error
	if parallel {
		err = o.runParallel(ctx, cities, partitions, batch.Results)
	} else {
		err = o.runSequential(ctx, cities, partitions, batch.Results)
	}
	if err != nil {
		o.logger.Error("Batch analysis aborted", "run_id", batch.RunID, "error", err)
		return nil, err
	}

	batch.Elapsed = time.Since(start)
	o.logger.LogBatchComplete(batch.RunID, mode, len(batch.Results), batch.Elapsed)

	return batch, nil
}

func (o *Orchestrator) runSequential(ctx context.Context, cities []string, partitions map[string][]TemperatureRecord, results map[string]*CityAnalysisResult) error {
	for _, city := range cities {
		if err := ctx.Err(); err != nil {
			return &WorkerFaultError{City: city, Mode: modeSequential, Err: err}
		}

		result, err := o.analyzeSafely(city, partitions[city])
		if err != nil {
			return &WorkerFaultError{City: city, Mode: modeSequential, Err: err}
		}
		results[city] = result
	}
	return nil
}

func (o *Orchestrator) runParallel(ctx context.Context, cities []string, partitions map[string][]TemperatureRecord, results map[string]*CityAnalysisResult) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)

	outcomes := make(chan cityOutcome, len(cities))

	for _, city := range cities {
		slice := partitions[city]

		g.Go(func() error {
			// skip queued cities once the batch is failing
			if err := gctx.Err(); err != nil {
				return &WorkerFaultError{City: city, Mode: modeParallel, Err: err}
			}

			result, err := o.analyzeWithTimeout(gctx, city, slice)
			if err != nil {
				return &WorkerFaultError{City: city, Mode: modeParallel, Err: err}
			}

			outcomes <- cityOutcome{city: city, result: result}
			return nil
		})
	}

	err := g.Wait()
	close(outcomes)
	if err != nil {
		return err
	}

	for outcome := range outcomes {
		results[outcome.city] = outcome.result
	}
	return nil
}

// analyzeWithTimeout bounds one city analysis by the task timeout and the batch context.
// Analyze takes no context, so on timeout the analysis goroutine is abandoned, not
// stopped: it runs to completion and its result is discarded.
func (o *Orchestrator) analyzeWithTimeout(ctx context.Context, city string, records []TemperatureRecord) (*CityAnalysisResult, error) {
	if o.taskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.taskTimeout)
		defer cancel()
	}

	type analysis struct {
		result *CityAnalysisResult
		err    error
	}
	done := make(chan analysis, 1)

	go func() {
		result, err := o.analyzeSafely(city, records)
		done <- analysis{result: result, err: err}
	}()

	select {
	case a := <-done:
		return a.result, a.err
	case <-ctx.Done():
		o.logger.Warn("City analysis abandoned", "city", city, "error", ctx.Err())
		return nil, ctx.Err()
	}
}

// analyzeSafely converts a panic inside the analyzer into an error
func (o *Orchestrator) analyzeSafely(city string, records []TemperatureRecord) (result *CityAnalysisResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during analysis: %v", r)
		}
	}()
	return o.analyzer.Analyze(city, records)
}

// PartitionByCity splits records into independent per-city copies, returning the
// cities in order of first appearance
func PartitionByCity(records []TemperatureRecord) ([]string, map[string][]TemperatureRecord) {
	var cities []string
	partitions := make(map[string][]TemperatureRecord)

	for _, r := range records {
		if _, seen := partitions[r.City]; !seen {
			cities = append(cities, r.City)
		}
		partitions[r.City] = append(partitions[r.City], r)
	}

	return cities, partitions
}
