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

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// RollingStats computes the trailing mean and sample standard deviation over window
// observations. The first window-1 entries are NaN; if the input is shorter than the
// window every entry is NaN.
func RollingStats(temps []float64, window int) RollingWindow {
	rw := RollingWindow{
		Window: window,
		Mean:   make([]float64, len(temps)),
		Std:    make([]float64, len(temps)),
	}

	for i := range temps {
		if window < 1 || i < window-1 {
			rw.Mean[i] = math.NaN()
			rw.Std[i] = math.NaN()
			continue
		}
		values := temps[i-window+1 : i+1]
		// a flat window keeps its exact value; the summed mean may drift by an ulp
		if constant(values) {
			rw.Mean[i], rw.Std[i] = values[0], 0
			continue
		}
		rw.Mean[i], rw.Std[i] = stat.MeanStdDev(values, nil)
	}

	return rw
}

// DetectAnomalies flags records strictly outside mean ± sigma·std at their index.
// Records without a defined band are never flagged.
func DetectAnomalies(records []TemperatureRecord, rw RollingWindow, sigma float64) AnomalyBand {
	band := AnomalyBand{
		Sigma: sigma,
		Upper: make([]float64, len(records)),
		Lower: make([]float64, len(records)),
	}

	for i, rec := range records {
		if !rw.Defined(i) {
			band.Upper[i] = math.NaN()
			band.Lower[i] = math.NaN()
			continue
		}

		band.Upper[i] = rw.Mean[i] + sigma*rw.Std[i]
		band.Lower[i] = rw.Mean[i] - sigma*rw.Std[i]

		if rec.Temperature > band.Upper[i] || rec.Temperature < band.Lower[i] {
			band.Anomalies = append(band.Anomalies, rec)
			band.Indices = append(band.Indices, i)
		}
	}

	return band
}

// Describe summarises a temperature series the way a data frame describe() would
func Describe(temps []float64) DescriptiveStats {
	d := DescriptiveStats{Count: len(temps)}
	if len(temps) == 0 {
		return d
	}

	d.Mean, _ = stats.Mean(temps)
	d.Min, _ = stats.Min(temps)
	d.Max, _ = stats.Max(temps)
	d.Median, _ = stats.Median(temps)

	if len(temps) > 1 {
		d.Std, _ = stats.StandardDeviationSample(temps)
	}

	// a single value has no halves to split
	if q, err := stats.Quartile(temps); err == nil {
		d.Q1, d.Q3 = q.Q1, q.Q3
	} else {
		d.Q1, d.Q3 = d.Median, d.Median
	}

	return d
}

// sampleMeanStd returns the mean and n-1 standard deviation, with std 0 for fewer than two values
func sampleMeanStd(values []float64) (float64, float64) {
	switch len(values) {
	case 0:
		return 0, 0
	case 1:
		return values[0], 0
	}
	if constant(values) {
		return values[0], 0
	}
	return stat.MeanStdDev(values, nil)
}

// temperatures extracts the temperature column
func temperatures(records []TemperatureRecord) []float64 {
	out := make([]float64, len(records))
	for i, r := range records {
		out[i] = r.Temperature
	}
	return out
}
