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
	"sort"
	"time"

	"github.com/montanaflynn/stats"
)

// SeasonForMonth maps a calendar month to its meteorological (northern hemisphere) season
func SeasonForMonth(m time.Month) Season {
	switch m {
	case time.December, time.January, time.February:
		return SeasonWinter
	case time.March, time.April, time.May:
		return SeasonSpring
	case time.June, time.July, time.August:
		return SeasonSummer
	default:
		return SeasonAutumn
	}
}

type seasonYear struct {
	season Season
	year   int
}

// AggregateSeasons groups records by season label and calendar year
func AggregateSeasons(records []TemperatureRecord) []SeasonalStats {
	groups := make(map[seasonYear][]float64)
	for _, r := range records {
		key := seasonYear{season: r.Season, year: r.Timestamp.Year()}
		groups[key] = append(groups[key], r.Temperature)
	}

	out := make([]SeasonalStats, 0, len(groups))
	for key, values := range groups {
		mean, std := sampleMeanStd(values)
		out = append(out, SeasonalStats{
			Season: key.season,
			Year:   key.year,
			Mean:   mean,
			Std:    std,
			Count:  len(values),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Season != out[j].Season {
			return out[i].Season.order() < out[j].Season.order()
		}
		return out[i].Year < out[j].Year
	})

	return out
}

// SeasonProfiles returns the temperature distribution of each season present in records
func SeasonProfiles(records []TemperatureRecord) []SeasonProfile {
	bySeason := make(map[Season][]float64)
	for _, r := range records {
		bySeason[r.Season] = append(bySeason[r.Season], r.Temperature)
	}

	var profiles []SeasonProfile
	for _, season := range Seasons {
		values := bySeason[season]
		if len(values) == 0 {
			continue
		}
		d := Describe(values)
		profiles = append(profiles, SeasonProfile{
			Season: season,
			Count:  d.Count,
			Min:    d.Min,
			Q1:     d.Q1,
			Median: d.Median,
			Q3:     d.Q3,
			Max:    d.Max,
		})
	}
	return profiles
}

// SeasonLabelMismatch returns the share of records whose season label differs from
// the meteorological season of their timestamp
func SeasonLabelMismatch(records []TemperatureRecord) float64 {
	if len(records) == 0 {
		return 0
	}
	mismatched := 0
	for _, r := range records {
		if SeasonForMonth(r.Timestamp.Month()) != r.Season {
			mismatched++
		}
	}
	return float64(mismatched) / float64(len(records))
}

// seasonalSample returns the temperatures of the records labelled with season
func seasonalSample(records []TemperatureRecord, season Season) stats.Float64Data {
	var values stats.Float64Data
	for _, r := range records {
		if r.Season == season {
			values = append(values, r.Temperature)
		}
	}
	return values
}
