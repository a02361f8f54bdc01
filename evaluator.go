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
	"math"
	"time"

	"github.com/montanaflynn/stats"
)

// Evaluator classifies a live temperature reading against a city's seasonal history
type Evaluator struct {
	sigma  float64
	logger *Logger
	now    func() time.Time
}

// NewEvaluator creates a new evaluator using the wall clock
func NewEvaluator(config *Config, logger *Logger) *Evaluator {
	return &Evaluator{
		sigma:  config.SigmaThreshold,
		logger: logger.WithComponent("evaluator"),
		now:    time.Now,
	}
}

// CurrentSeason returns the meteorological season of the evaluator's clock
func (e *Evaluator) CurrentSeason() Season {
	return SeasonForMonth(e.now().Month())
}

// Evaluate compares current against the history of the current season in records.
// It returns a *NoSeasonalDataError when the season has no history.
func (e *Evaluator) Evaluate(current float64, records []TemperatureRecord) (*EvaluationResult, error) {
	now := e.now()
	season := SeasonForMonth(now.Month())

	city := ""
	if len(records) > 0 {
		city = records[0].City
	}

	// Stored labels may follow another convention than the month mapping
	if ratio := SeasonLabelMismatch(records); ratio > seasonMismatchWarnRatio {
		e.logger.Warn("Season labels disagree with meteorological seasons",
			"city", city,
			"mismatch_ratio", math.Round(ratio*1000)/1000,
		)
	}

	sample := seasonalSample(records, season)
	if len(sample) == 0 {
		return nil, &NoSeasonalDataError{City: city, Season: season}
	}

	mean, _ := stats.Mean(sample)
	std := 0.0
	if len(sample) > 1 {
		std, _ = stats.StandardDeviationSample(sample)
	}

	difference := current - mean
	result := &EvaluationResult{
		City:        city,
		Season:      season,
		Current:     current,
		MeanTemp:    mean,
		StdTemp:     std,
		Samples:     len(sample),
		IsAnomaly:   len(sample) > 1 && math.Abs(difference) > e.sigma*std,
		Difference:  difference,
		EvaluatedAt: now,
	}

	e.logger.Debug("Current reading evaluated",
		"city", city,
		"season", season,
		"current", current,
		"mean", mean,
		"anomaly", result.IsAnomaly,
	)

	return result, nil
}
