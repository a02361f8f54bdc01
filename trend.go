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
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// YearlyTrends groups records by calendar year, ordered by year
func YearlyTrends(records []TemperatureRecord) []YearlyTrend {
	byYear := make(map[int][]float64)
	for _, r := range records {
		year := r.Timestamp.Year()
		byYear[year] = append(byYear[year], r.Temperature)
	}

	years := make([]int, 0, len(byYear))
	for year := range byYear {
		years = append(years, year)
	}
	sort.Ints(years)

	trends := make([]YearlyTrend, 0, len(years))
	for _, year := range years {
		mean, std := sampleMeanStd(byYear[year])
		trends = append(trends, YearlyTrend{
			Year:  year,
			Mean:  mean,
			Std:   std,
			Count: len(byYear[year]),
		})
	}
	return trends
}

// FitTrend fits an ordinary least squares line of yearly mean temperature on year
func FitTrend(records []TemperatureRecord) (*TrendFit, error) {
	yearly := YearlyTrends(records)
	if len(yearly) < 2 {
		return nil, &InsufficientYearsError{Years: len(yearly)}
	}

	x := make([]float64, len(yearly))
	y := make([]float64, len(yearly))
	for i, yt := range yearly {
		x[i] = float64(yt.Year)
		y[i] = yt.Mean
	}

	intercept, slope := stat.LinearRegression(x, y, nil, false)

	fit := &TrendFit{
		Yearly:    yearly,
		Slope:     slope,
		Intercept: intercept,
	}
	fit.RValue = pearson(x, y)
	fit.PValue, fit.StdErr = slopeSignificance(x, y, fit.RValue)

	return fit, nil
}

// pearson returns the correlation of x and y, defined as 0 when either has no spread
func pearson(x, y []float64) float64 {
	if constant(x) || constant(y) {
		return 0
	}
	r := stat.Correlation(x, y, nil)
	return math.Max(-1, math.Min(1, r))
}

// slopeSignificance returns the two-sided p-value for a non-zero slope and the
// standard error of the slope
func slopeSignificance(x, y []float64, r float64) (pValue, stdErr float64) {
	n := len(x)
	if n == 2 {
		// a line through two points is exact
		if y[0] == y[1] {
			return 1, 0
		}
		return 0, 0
	}

	df := float64(n - 2)
	ssx := stat.Variance(x, nil) * float64(n-1)
	ssy := stat.Variance(y, nil) * float64(n-1)

	residual := (1 - r) * (1 + r)
	if residual <= 0 {
		return 0, 0
	}
	stdErr = math.Sqrt(residual * ssy / ssx / df)

	t := r * math.Sqrt(df/residual)
	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	pValue = 2 * tDist.Survival(math.Abs(t))

	return pValue, stdErr
}

func constant(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}
