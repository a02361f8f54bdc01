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

import "time"

const (
	// OpenWeatherMapEndpoint is the current weather endpoint
	OpenWeatherMapEndpoint = "https://api.openweathermap.org/data/2.5/weather"

	// DefaultWindow is the number of trailing observations in a rolling window
	DefaultWindow = 30

	// DefaultSigmaThreshold is the band half-width in standard deviations
	DefaultSigmaThreshold = 2.0

	// DefaultTaskTimeout bounds a single city analysis in parallel mode
	DefaultTaskTimeout = 2 * time.Minute

	// seasonMismatchWarnRatio is the share of mislabelled rows that triggers a warning
	seasonMismatchWarnRatio = 0.10
)

const (
	modeSequential = "sequential"
	modeParallel   = "parallel"
)

// Plot kinds served by the API and embedded in reports
const (
	PlotTemperature = "temperature"
	PlotSeasonal    = "seasonal"
	PlotTrend       = "trend"
)
