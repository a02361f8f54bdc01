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
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"time"

	charts "github.com/vicanso/go-charts/v2"
)

// TemperaturePlot holds the series behind the time-series chart of a city
type TemperaturePlot struct {
	City        string
	Dates       []time.Time
	Temperature []float64
	RollingMean []float64
	Upper       []float64
	Lower       []float64
	// Anomalies carries the temperature at anomalous indices and NaN elsewhere
	Anomalies []float64
}

// SeasonalPlot holds the per-season distributions of a city
type SeasonalPlot struct {
	City     string
	Profiles []SeasonProfile
}

// TrendPlot holds the yearly means with a ±1σ band and the fitted trend
type TrendPlot struct {
	City     string
	Years    []int
	Mean     []float64
	Upper    []float64
	Lower    []float64
	Fitted   bool
	Slope    float64
	RSquared float64
}

// Title returns the chart title annotated with slope and R² when a trend exists
func (p *TrendPlot) Title() string {
	if !p.Fitted {
		return "Long-term Trend (insufficient temporal range)"
	}
	return fmt.Sprintf("Long-term Trend (Slope: %.3f°C/year, R²: %.3f)", p.Slope, p.RSquared)
}

func newTemperaturePlot(city string, records []TemperatureRecord, rw RollingWindow, band AnomalyBand) *TemperaturePlot {
	p := &TemperaturePlot{
		City:        city,
		Dates:       make([]time.Time, len(records)),
		Temperature: temperatures(records),
		RollingMean: append([]float64(nil), rw.Mean...),
		Upper:       append([]float64(nil), band.Upper...),
		Lower:       append([]float64(nil), band.Lower...),
		Anomalies:   make([]float64, len(records)),
	}
	for i, r := range records {
		p.Dates[i] = r.Timestamp
		p.Anomalies[i] = math.NaN()
	}
	for _, idx := range band.Indices {
		p.Anomalies[idx] = records[idx].Temperature
	}
	return p
}

func newTrendPlot(city string, fit *TrendFit) *TrendPlot {
	p := &TrendPlot{City: city}
	if fit == nil {
		return p
	}
	p.Fitted = true
	p.Slope = fit.Slope
	p.RSquared = fit.RSquared()
	for _, yt := range fit.Yearly {
		p.Years = append(p.Years, yt.Year)
		p.Mean = append(p.Mean, yt.Mean)
		p.Upper = append(p.Upper, yt.Mean+yt.Std)
		p.Lower = append(p.Lower, yt.Mean-yt.Std)
	}
	return p
}

// ChartGenerator renders plot artifacts to PNG
type ChartGenerator struct {
	theme  string
	width  int
	height int
}

// NewChartGenerator creates a new chart generator
func NewChartGenerator() *ChartGenerator {
	return &ChartGenerator{
		theme:  "dark", // Match the HTML report dark theme
		width:  1200,
		height: 500,
	}
}

// Render renders the named plot of a city result
func (cg *ChartGenerator) Render(result *CityAnalysisResult, kind string) ([]byte, error) {
	switch kind {
	case PlotTemperature:
		return cg.RenderTemperature(result.TemperaturePlot)
	case PlotSeasonal:
		return cg.RenderSeasonal(result.SeasonalPlot)
	case PlotTrend:
		return cg.RenderTrend(result.TrendPlot)
	default:
		return nil, &ValidationError{Field: "plot", Value: kind, Message: "unknown plot kind"}
	}
}

// RenderBase64 renders the named plot for embedding in HTML
func (cg *ChartGenerator) RenderBase64(result *CityAnalysisResult, kind string) (string, error) {
	buf, err := cg.Render(result, kind)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// RenderTemperature draws raw temperature, rolling mean, the ±σ band and anomaly markers
func (cg *ChartGenerator) RenderTemperature(p *TemperaturePlot) ([]byte, error) {
	if p == nil || len(p.Dates) == 0 {
		return nil, fmt.Errorf("no temperature data available")
	}

	labels := make([]string, len(p.Dates))
	for i, d := range p.Dates {
		labels[i] = d.Format("2006-01-02")
	}

	values := [][]float64{
		nullify(p.Temperature),
		nullify(p.RollingMean),
		nullify(p.Upper),
		nullify(p.Lower),
		nullify(p.Anomalies),
	}

	return cg.renderLine(values, labels,
		fmt.Sprintf("Temperature Time Series with Anomalies (%s)", p.City), "",
		[]string{"Temperature", "Rolling Mean", "Upper Band", "Lower Band", "Anomalies"},
	)
}

// RenderSeasonal draws the distribution of each season as min/quartiles/max bars
func (cg *ChartGenerator) RenderSeasonal(p *SeasonalPlot) ([]byte, error) {
	if p == nil || len(p.Profiles) == 0 {
		return nil, fmt.Errorf("no seasonal data available")
	}

	labels := make([]string, len(p.Profiles))
	series := make([][]float64, 5)
	for i, prof := range p.Profiles {
		labels[i] = string(prof.Season)
		series[0] = append(series[0], prof.Min)
		series[1] = append(series[1], prof.Q1)
		series[2] = append(series[2], prof.Median)
		series[3] = append(series[3], prof.Q3)
		series[4] = append(series[4], prof.Max)
	}

	chart, err := charts.BarRender(
		series,
		charts.TitleTextOptionFunc(fmt.Sprintf("Seasonal Temperature Distribution (%s)", p.City)),
		charts.XAxisDataOptionFunc(labels),
		charts.LegendLabelsOptionFunc([]string{"Min", "Q1", "Median", "Q3", "Max"}, charts.PositionRight),
		charts.ThemeOptionFunc(cg.theme),
		charts.WidthOptionFunc(cg.width),
		charts.HeightOptionFunc(cg.height),
		charts.PaddingOptionFunc(chartPadding),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render seasonal chart: %w", err)
	}

	buf, err := chart.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to generate chart bytes: %w", err)
	}
	return buf, nil
}

// RenderTrend draws yearly means with the ±1σ band
func (cg *ChartGenerator) RenderTrend(p *TrendPlot) ([]byte, error) {
	if p == nil || !p.Fitted {
		return nil, fmt.Errorf("no trend available: %w", ErrInsufficientYears)
	}

	labels := make([]string, len(p.Years))
	for i, y := range p.Years {
		labels[i] = strconv.Itoa(y)
	}

	return cg.renderLine(
		[][]float64{p.Mean, p.Upper, p.Lower},
		labels, p.Title(), p.City,
		[]string{"Yearly Mean", "+1σ", "-1σ"},
	)
}

var chartPadding = charts.Box{
	Top:    20,
	Right:  20,
	Bottom: 20,
	Left:   20,
}

func (cg *ChartGenerator) renderLine(values [][]float64, labels []string, title, subtitle string, legend []string) ([]byte, error) {
	chart, err := charts.LineRender(
		values,
		charts.TitleTextOptionFunc(title, subtitle),
		charts.XAxisDataOptionFunc(labels),
		charts.LegendLabelsOptionFunc(legend, charts.PositionRight),
		charts.ThemeOptionFunc(cg.theme),
		charts.WidthOptionFunc(cg.width),
		charts.HeightOptionFunc(cg.height),
		charts.PaddingOptionFunc(chartPadding),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render chart %q: %w", title, err)
	}

	buf, err := chart.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to generate chart bytes: %w", err)
	}
	return buf, nil
}

// nullify replaces missing values with the chart library's null marker
func nullify(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			out[i] = charts.GetNullValue()
			continue
		}
		out[i] = v
	}
	return out
}
