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
	"errors"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
)

// TemperatureSource provides live temperature readings
type TemperatureSource interface {
	CurrentTemperature(ctx context.Context, city string) (*CurrentReading, error)
}

// LiveMonitor keeps the latest live evaluation of every city in the loaded dataset
type LiveMonitor struct {
	mu        sync.RWMutex
	latest    map[string]*EvaluationResult
	source    TemperatureSource
	evaluator *Evaluator
	dataset   func() *Dataset
	logger    *Logger
}

// NewLiveMonitor creates a monitor reading the dataset through the given accessor
func NewLiveMonitor(source TemperatureSource, evaluator *Evaluator, dataset func() *Dataset, logger *Logger) *LiveMonitor {
	return &LiveMonitor{
		latest:    make(map[string]*EvaluationResult),
		source:    source,
		evaluator: evaluator,
		dataset:   dataset,
		logger:    logger.WithComponent("monitor"),
	}
}

// EvaluateCity fetches the live reading of one city and evaluates it against records
func (m *LiveMonitor) EvaluateCity(ctx context.Context, city string, records []TemperatureRecord) (*EvaluationResult, error) {
	reading, err := m.source.CurrentTemperature(ctx, city)
	if err != nil {
		return nil, err
	}

	result, err := m.evaluator.Evaluate(reading.Temperature, records)
	if err != nil {
		return nil, err
	}
	result.City = city

	m.mu.Lock()
	m.latest[city] = result
	m.mu.Unlock()

	return result, nil
}

// RefreshAll evaluates every city of the current dataset. Failures are logged per city.
func (m *LiveMonitor) RefreshAll(ctx context.Context) int {
	ds := m.dataset()
	if ds == nil {
		m.logger.Debug("No dataset loaded; skipping live refresh")
		return 0
	}

	cities, partitions := PartitionByCity(ds.Records)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		refreshed int
	)
	for _, city := range cities {
		wg.Add(1)
		go func() {
			defer wg.Done()

			if _, err := m.EvaluateCity(ctx, city, partitions[city]); err != nil {
				var noData *NoSeasonalDataError
				if errors.As(err, &noData) {
					m.logger.Info("No seasonal history for live check", "city", city, "season", noData.Season)
					return
				}
				m.logger.Warn("Live check failed", "city", city, "error", err)
				return
			}

			mu.Lock()
			refreshed++
			mu.Unlock()
		}()
	}
	wg.Wait()

	m.logger.Info("Live refresh completed", "cities", len(cities), "refreshed", refreshed)
	return refreshed
}

// Anomalies returns the latest evaluations flagged as anomalous, by city
func (m *LiveMonitor) Anomalies() []*EvaluationResult {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*EvaluationResult
	for _, city := range sortedKeys(m.latest) {
		if m.latest[city].IsAnomaly {
			out = append(out, m.latest[city])
		}
	}
	return out
}

// Clear forgets every evaluation, used when a new dataset replaces the history
func (m *LiveMonitor) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latest = make(map[string]*EvaluationResult)
}

// Scheduler periodically refreshes the live monitor
type Scheduler struct {
	scheduler *gocron.Scheduler
	monitor   *LiveMonitor
	interval  time.Duration
	logger    *Logger
}

// NewScheduler creates a new Scheduler
func NewScheduler(monitor *LiveMonitor, interval time.Duration, logger *Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		monitor:   monitor,
		interval:  interval,
		logger:    logger.WithComponent("scheduler"),
	}
}

// Start schedules the refresh job. A zero interval disables it.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.logger.Info("Live refresh disabled")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.interval)
		defer cancel()
		s.monitor.RefreshAll(ctx)
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info("Live refresh scheduled", "interval", s.interval)
	return nil
}

// Stop stops the scheduler and cancels any future jobs
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
