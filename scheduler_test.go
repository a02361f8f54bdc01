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
	"testing"
	"time"
)

type citySource map[string]float64

func (s citySource) CurrentTemperature(ctx context.Context, city string) (*CurrentReading, error) {
	temp, ok := s[city]
	if !ok {
		return nil, &APIError{StatusCode: 404, Message: "city not found"}
	}
	return &CurrentReading{City: city, Temperature: temp}, nil
}

func TestLiveMonitorRefreshAll(t *testing.T) {
	var records []TemperatureRecord
	records = append(records, summerHistory()...)
	for _, r := range summerHistory() {
		r.City = "Berlin"
		records = append(records, r)
	}
	records = append(records, TemperatureRecord{City: "Cairo", Timestamp: date(2022, 1, 1), Season: SeasonWinter, Temperature: 18})

	ds := &Dataset{ID: "test", Records: records}
	source := citySource{"Athens": 31, "Berlin": 25, "Cairo": 19}
	monitor := NewLiveMonitor(source, julyEvaluator(), func() *Dataset { return ds }, NewDiscardLogger())

	if got := monitor.RefreshAll(context.Background()); got != 2 {
		t.Errorf("refreshed %d cities, want 2 (Cairo has no summer history)", got)
	}

	alerts := monitor.Anomalies()
	if len(alerts) != 1 || alerts[0].City != "Athens" {
		t.Fatalf("expected one alert for Athens, got %+v", alerts)
	}

	monitor.Clear()
	if len(monitor.Anomalies()) != 0 {
		t.Error("Clear should forget previous evaluations")
	}
}

func TestLiveMonitorWithoutDataset(t *testing.T) {
	monitor := NewLiveMonitor(citySource{}, julyEvaluator(), func() *Dataset { return nil }, NewDiscardLogger())
	if got := monitor.RefreshAll(context.Background()); got != 0 {
		t.Errorf("refreshed %d cities without a dataset", got)
	}
}

func TestSchedulerDisabled(t *testing.T) {
	monitor := NewLiveMonitor(citySource{}, julyEvaluator(), func() *Dataset { return nil }, NewDiscardLogger())
	s := NewScheduler(monitor, 0, NewDiscardLogger())

	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	s.Stop()
}

func TestSchedulerRuns(t *testing.T) {
	ds := &Dataset{ID: "test", Records: summerHistory()}
	monitor := NewLiveMonitor(citySource{"Athens": 40}, julyEvaluator(), func() *Dataset { return ds }, NewDiscardLogger())

	s := NewScheduler(monitor, time.Hour, NewDiscardLogger())
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer s.Stop()

	// gocron runs the first job immediately
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(monitor.Anomalies()) == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("scheduled refresh did not run")
}
