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
	"strings"
	"time"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// dailyRecords builds one record per day from start, labelled with the
// meteorological season of each date
func dailyRecords(city string, start time.Time, temps []float64) []TemperatureRecord {
	records := make([]TemperatureRecord, len(temps))
	for i, temp := range temps {
		ts := start.AddDate(0, 0, i)
		records[i] = TemperatureRecord{
			City:        city,
			Timestamp:   ts,
			Season:      SeasonForMonth(ts.Month()),
			Temperature: temp,
		}
	}
	return records
}

func constantTemps(n int, value float64) []float64 {
	temps := make([]float64, n)
	for i := range temps {
		temps[i] = value
	}
	return temps
}

// seasonalTemps produces a smooth annual cycle with a warming drift and a spike every 97 days
func seasonalTemps(days int, offset float64) []float64 {
	temps := make([]float64, days)
	for i := range temps {
		temps[i] = offset + 10*math.Sin(2*math.Pi*float64(i)/365) + 0.002*float64(i)
		if i%97 == 96 {
			temps[i] += 25
		}
	}
	return temps
}

func datasetCSV(records []TemperatureRecord) string {
	var b strings.Builder
	b.WriteString("city,timestamp,temperature,season\n")
	for _, r := range records {
		fmt.Fprintf(&b, "%s,%s,%.3f,%s\n", r.City, r.Timestamp.Format("2006-01-02"), r.Temperature, r.Season)
	}
	return b.String()
}

func testConfig() *Config {
	config := DefaultConfig()
	config.Workers = 2
	return config
}
