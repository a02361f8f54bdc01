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
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Season is one of the four fixed season labels
type Season string

const (
	SeasonWinter Season = "winter"
	SeasonSpring Season = "spring"
	SeasonSummer Season = "summer"
	SeasonAutumn Season = "autumn"
)

// Seasons lists the season labels in calendar order
var Seasons = []Season{SeasonWinter, SeasonSpring, SeasonSummer, SeasonAutumn}

// ParseSeason converts a label into a Season, ignoring case and surrounding space
func ParseSeason(label string) (Season, error) {
	s := Season(strings.ToLower(strings.TrimSpace(label)))
	for _, known := range Seasons {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown season %q", label)
}

// order returns the position of the season in Seasons, or len(Seasons) if unknown
func (s Season) order() int {
	for i, known := range Seasons {
		if s == known {
			return i
		}
	}
	return len(Seasons)
}

// TemperatureRecord is a single daily observation for a city
type TemperatureRecord struct {
	City        string    `json:"city" validate:"required"`
	Timestamp   time.Time `json:"timestamp" validate:"required"`
	Season      Season    `json:"season" validate:"oneof=winter spring summer autumn"`
	Temperature float64   `json:"temperature"` // °C
}

// RollingWindow holds trailing-window statistics aligned with the input series.
// Entries without enough history are NaN.
type RollingWindow struct {
	Window int       `json:"window"`
	Mean   []float64 `json:"-"`
	Std    []float64 `json:"-"`
}

// Defined reports whether both statistics exist at index i
func (rw RollingWindow) Defined(i int) bool {
	if i < 0 || i >= len(rw.Mean) || i >= len(rw.Std) {
		return false
	}
	return !math.IsNaN(rw.Mean[i]) && !math.IsNaN(rw.Std[i])
}

// AnomalyBand holds the confidence band and the records falling outside it
type AnomalyBand struct {
	Sigma     float64             `json:"sigma"`
	Upper     []float64           `json:"-"`
	Lower     []float64           `json:"-"`
	Anomalies []TemperatureRecord `json:"anomalies"`
	Indices   []int               `json:"indices"`
}

// YearlyTrend summarises one calendar year
type YearlyTrend struct {
	Year  int     `json:"year"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Count int     `json:"count"`
}

// TrendFit is the least-squares fit of yearly mean temperature against year
type TrendFit struct {
	Yearly    []YearlyTrend `json:"yearly"`
	Slope     float64       `json:"slope"` // °C per year
	Intercept float64       `json:"intercept"`
	RValue    float64       `json:"r_value"`
	PValue    float64       `json:"p_value"`
	StdErr    float64       `json:"std_err"`
}

// RSquared returns the coefficient of determination
func (t *TrendFit) RSquared() float64 {
	return t.RValue * t.RValue
}

// SeasonalStats summarises one (season, year) group
type SeasonalStats struct {
	Season Season  `json:"season"`
	Year   int     `json:"year"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Count  int     `json:"count"`
}

// SeasonProfile describes the distribution of temperatures within a season
type SeasonProfile struct {
	Season Season  `json:"season"`
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
}

// DescriptiveStats summarises the temperature column of a dataset
type DescriptiveStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
}

// CityAnalysisResult is the complete analysis of one city.
// It is built once per analysis call and must not be modified afterwards.
type CityAnalysisResult struct {
	City        string           `json:"city"`
	GeneratedAt time.Time        `json:"generated_at"`
	Records     int              `json:"records"`
	Start       time.Time        `json:"start"`
	End         time.Time        `json:"end"`
	Descriptive DescriptiveStats `json:"descriptive"`
	Rolling     RollingWindow    `json:"rolling"`
	Band        AnomalyBand      `json:"band"`
	Trend       *TrendFit        `json:"trend,omitempty"`
	TrendErr    error            `json:"-"`
	Seasonal    []SeasonalStats  `json:"seasonal"`
	Profiles    []SeasonProfile  `json:"profiles"`

	TemperaturePlot *TemperaturePlot `json:"-"`
	SeasonalPlot    *SeasonalPlot    `json:"-"`
	TrendPlot       *TrendPlot       `json:"-"`
}

// Anomalies returns the anomalous records in input order
func (r *CityAnalysisResult) Anomalies() []TemperatureRecord {
	return r.Band.Anomalies
}

// BatchResult is the outcome of analysing every city in a dataset
type BatchResult struct {
	RunID   string                         `json:"run_id"`
	Mode    string                         `json:"mode"`
	Results map[string]*CityAnalysisResult `json:"results"`
	Elapsed time.Duration                  `json:"elapsed"`
}

// ElapsedSeconds returns the wall-clock cost of the batch in seconds
func (b *BatchResult) ElapsedSeconds() float64 {
	return b.Elapsed.Seconds()
}

// Cities returns the analysed city names in sorted order
func (b *BatchResult) Cities() []string {
	return sortedKeys(b.Results)
}

// EvaluationResult is the classification of a live reading against history
type EvaluationResult struct {
	City        string    `json:"city"`
	Season      Season    `json:"season"`
	Current     float64   `json:"current"`
	MeanTemp    float64   `json:"mean_temp"`
	StdTemp     float64   `json:"std_temp"`
	Samples     int       `json:"samples"`
	IsAnomaly   bool      `json:"is_anomaly"`
	Difference  float64   `json:"difference"`
	EvaluatedAt time.Time `json:"evaluated_at"`
}

// sortedKeys returns the keys of m in ascending order
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
