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
	"math"
	"testing"
	"time"
)

func yearlyRecords(city string, firstYear int, means []float64) []TemperatureRecord {
	records := make([]TemperatureRecord, 0, len(means)*2)
	for i, mean := range means {
		year := firstYear + i
		// two readings per year averaging to mean
		records = append(records,
			TemperatureRecord{City: city, Timestamp: date(year, time.January, 15), Season: SeasonWinter, Temperature: mean - 1},
			TemperatureRecord{City: city, Timestamp: date(year, time.July, 15), Season: SeasonSummer, Temperature: mean + 1},
		)
	}
	return records
}

func TestYearlyTrends(t *testing.T) {
	yearly := YearlyTrends(yearlyRecords("Vienna", 2019, []float64{10, 12}))

	if len(yearly) != 2 {
		t.Fatalf("expected 2 years, got %d", len(yearly))
	}
	if yearly[0].Year != 2019 || yearly[1].Year != 2020 {
		t.Errorf("years not sorted: %+v", yearly)
	}
	if yearly[0].Mean != 10 || yearly[0].Count != 2 {
		t.Errorf("unexpected 2019 summary: %+v", yearly[0])
	}
	if math.Abs(yearly[0].Std-math.Sqrt2) > 1e-12 {
		t.Errorf("std = %v, want √2", yearly[0].Std)
	}
}

func TestFitTrendInsufficientYears(t *testing.T) {
	records := dailyRecords("Vienna", date(2023, 1, 1), constantTemps(100, 5))

	fit, err := FitTrend(records)
	if fit != nil {
		t.Fatalf("expected no fit, got %+v", fit)
	}
	if !errors.Is(err, ErrInsufficientYears) {
		t.Fatalf("expected ErrInsufficientYears, got %v", err)
	}
	var yearsErr *InsufficientYearsError
	if !errors.As(err, &yearsErr) || yearsErr.Years != 1 {
		t.Errorf("expected InsufficientYearsError with 1 year, got %v", err)
	}
}

func TestFitTrendLinear(t *testing.T) {
	fit, err := FitTrend(yearlyRecords("Vienna", 2000, []float64{10, 10.5, 11, 11.5, 12}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if math.Abs(fit.Slope-0.5) > 1e-9 {
		t.Errorf("slope = %v, want 0.5", fit.Slope)
	}
	if math.Abs(fit.Intercept-(10-0.5*2000)) > 1e-6 {
		t.Errorf("intercept = %v, want %v", fit.Intercept, 10-0.5*2000)
	}
	if math.Abs(fit.RValue-1) > 1e-9 {
		t.Errorf("r = %v, want 1", fit.RValue)
	}
	if fit.PValue > 1e-6 {
		t.Errorf("p-value = %v, expected a significant slope", fit.PValue)
	}
	if math.Abs(fit.RSquared()-1) > 1e-9 {
		t.Errorf("r² = %v, want 1", fit.RSquared())
	}
}

func TestFitTrendFlat(t *testing.T) {
	fit, err := FitTrend(yearlyRecords("Vienna", 2000, []float64{8, 8, 8, 8}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if fit.Slope != 0 || fit.RValue != 0 {
		t.Errorf("expected zero slope and r, got slope=%v r=%v", fit.Slope, fit.RValue)
	}
	if math.Abs(fit.PValue-1) > 1e-12 {
		t.Errorf("p-value = %v, want 1", fit.PValue)
	}
	if fit.StdErr != 0 {
		t.Errorf("stderr = %v, want 0", fit.StdErr)
	}
}

func TestFitTrendTwoYears(t *testing.T) {
	tests := []struct {
		name  string
		means []float64
		slope float64
		p     float64
	}{
		{"equal means", []float64{9, 9}, 0, 1},
		{"rising", []float64{9, 11}, 2, 0},
		{"falling", []float64{11, 9}, -2, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fit, err := FitTrend(yearlyRecords("Vienna", 2010, tt.means))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(fit.Slope-tt.slope) > 1e-9 {
				t.Errorf("slope = %v, want %v", fit.Slope, tt.slope)
			}
			if fit.PValue != tt.p {
				t.Errorf("p-value = %v, want %v", fit.PValue, tt.p)
			}
		})
	}
}

func TestFitTrendStrongSlopeKeepsPrecision(t *testing.T) {
	noise := []float64{0, 0.01, -0.01, 0.01, -0.01, 0, 0.01, -0.01, 0, 0.01}
	means := make([]float64, len(noise))
	for i := range means {
		means[i] = 10 + 0.5*float64(i) + noise[i]
	}

	fit, err := FitTrend(yearlyRecords("Vienna", 2000, means))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fit.RValue >= 1 {
		t.Fatalf("r = %v, expected an inexact fit", fit.RValue)
	}
	if fit.PValue <= 0 || fit.PValue > 1e-10 {
		t.Errorf("p-value = %v, want a tiny positive value", fit.PValue)
	}
}

func TestFitTrendNoisy(t *testing.T) {
	records := yearlyRecords("Vienna", 2000, []float64{10, 11, 10.5, 12, 11.5, 13})

	first, err := FitTrend(records)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, _ := FitTrend(records)

	if first.Slope != second.Slope || first.Intercept != second.Intercept ||
		first.RValue != second.RValue || first.PValue != second.PValue || first.StdErr != second.StdErr {
		t.Errorf("fit is not deterministic: %+v vs %+v", first, second)
	}
	if first.Slope <= 0 {
		t.Errorf("slope = %v, expected warming", first.Slope)
	}
	if first.RValue <= 0 || first.RValue >= 1 {
		t.Errorf("r = %v, expected within (0, 1)", first.RValue)
	}
	if first.PValue <= 0 || first.PValue >= 0.05 {
		t.Errorf("p-value = %v, expected a significant but inexact fit", first.PValue)
	}
	if first.StdErr <= 0 {
		t.Errorf("stderr = %v, expected positive", first.StdErr)
	}
}
