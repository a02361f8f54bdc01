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
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
)

// Analyzer performs the per-city statistical analysis
type Analyzer struct {
	window int
	sigma  float64
	logger *Logger
	now    func() time.Time
}

// NewAnalyzer creates a new analyzer
func NewAnalyzer(config *Config, logger *Logger) *Analyzer {
	return &Analyzer{
		window: config.Window,
		sigma:  config.SigmaThreshold,
		logger: logger.WithComponent("analyzer"),
		now:    time.Now,
	}
}

// Analyze runs every analysis stage over one city's records, which must be sorted
// by timestamp. The caller's slice is not modified.
func (a *Analyzer) Analyze(city string, records []TemperatureRecord) (*CityAnalysisResult, error) {
	logger := a.logger.WithCity(city)
	logger.Debug("Starting city analysis", "records", len(records))

	if len(records) == 0 {
		return nil, &DataError{
			DataType: city,
			Message:  "no temperature records to analyze",
		}
	}

	data := make([]TemperatureRecord, len(records))
	copy(data, records)

	if err := validateRecords(city, data); err != nil {
		return nil, err
	}

	result := &CityAnalysisResult{
		City:        city,
		GeneratedAt: a.now(),
		Records:     len(data),
		Start:       data[0].Timestamp,
		End:         data[len(data)-1].Timestamp,
	}

	temps := temperatures(data)

	result.Descriptive = Describe(temps)
	logger.LogAnalysisStage("descriptive_statistics")

	result.Rolling = RollingStats(temps, a.window)
	logger.LogAnalysisStage("rolling_statistics")

	result.Band = DetectAnomalies(data, result.Rolling, a.sigma)
	for _, idx := range result.Band.Indices {
		logger.LogAnomalyDetected(
			data[idx].Timestamp.Format("2006-01-02"),
			data[idx].Temperature,
			result.Band.Lower[idx],
			result.Band.Upper[idx],
		)
	}
	logger.LogAnalysisStage("anomaly_detection")

	// A missing trend does not invalidate the rest of the analysis
	trend, err := FitTrend(data)
	if err != nil {
		var yearsErr *InsufficientYearsError
		if !errors.As(err, &yearsErr) {
			return nil, fmt.Errorf("trend analysis for %s: %w", city, err)
		}
		logger.Warn("Trend not available", "error", err)
		result.TrendErr = err
	}
	result.Trend = trend
	logger.LogAnalysisStage("long_term_trend")

	result.Seasonal = AggregateSeasons(data)
	result.Profiles = SeasonProfiles(data)
	logger.LogAnalysisStage("seasonal_statistics")

	result.TemperaturePlot = newTemperaturePlot(city, data, result.Rolling, result.Band)
	result.SeasonalPlot = &SeasonalPlot{City: city, Profiles: result.Profiles}
	result.TrendPlot = newTrendPlot(city, trend)

	logger.Info("City analysis completed",
		"records", result.Records,
		"anomalies", len(result.Band.Anomalies),
		"seasonal_groups", len(result.Seasonal),
	)

	return result, nil
}

// validateRecords rejects rows that would corrupt the statistics
func validateRecords(city string, records []TemperatureRecord) error {
	for i, r := range records {
		if r.City != city {
			return &ValidationError{
				Field:   fmt.Sprintf("row %d city", i),
				Value:   r.City,
				Message: fmt.Sprintf("record does not belong to %s", city),
			}
		}
		if math.IsNaN(r.Temperature) || math.IsInf(r.Temperature, 0) {
			return &ValidationError{
				Field:   fmt.Sprintf("row %d temperature", i),
				Value:   fmt.Sprint(r.Temperature),
				Message: "temperature must be a finite number",
			}
		}
		if err := validate.Struct(r); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) && len(verrs) > 0 {
				return &ValidationError{
					Field:   fmt.Sprintf("row %d %s", i, verrs[0].Field()),
					Value:   fmt.Sprint(verrs[0].Value()),
					Message: fmt.Sprintf("failed %s validation", verrs[0].Tag()),
				}
			}
			return &ValidationError{Field: fmt.Sprintf("row %d", i), Message: err.Error()}
		}
	}
	return nil
}
