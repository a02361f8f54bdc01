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
	"testing"
	"time"
)

func TestSeasonForMonth(t *testing.T) {
	want := map[time.Month]Season{
		time.January:   SeasonWinter,
		time.February:  SeasonWinter,
		time.March:     SeasonSpring,
		time.April:     SeasonSpring,
		time.May:       SeasonSpring,
		time.June:      SeasonSummer,
		time.July:      SeasonSummer,
		time.August:    SeasonSummer,
		time.September: SeasonAutumn,
		time.October:   SeasonAutumn,
		time.November:  SeasonAutumn,
		time.December:  SeasonWinter,
	}

	for month, season := range want {
		if got := SeasonForMonth(month); got != season {
			t.Errorf("SeasonForMonth(%s) = %s, want %s", month, got, season)
		}
	}
}

func TestParseSeason(t *testing.T) {
	if s, err := ParseSeason(" Summer "); err != nil || s != SeasonSummer {
		t.Errorf("ParseSeason(\" Summer \") = %q, %v", s, err)
	}
	if _, err := ParseSeason("monsoon"); err == nil {
		t.Error("expected an error for an unknown season")
	}
}

func TestAggregateSeasons(t *testing.T) {
	records := []TemperatureRecord{
		{City: "Bern", Timestamp: date(2023, 1, 10), Season: SeasonWinter, Temperature: 5},
		{City: "Bern", Timestamp: date(2022, 7, 1), Season: SeasonSummer, Temperature: 20},
		{City: "Bern", Timestamp: date(2022, 1, 10), Season: SeasonWinter, Temperature: 1},
		{City: "Bern", Timestamp: date(2022, 2, 10), Season: SeasonWinter, Temperature: 3},
	}

	got := AggregateSeasons(records)
	if len(got) != 3 {
		t.Fatalf("expected 3 groups, got %d: %+v", len(got), got)
	}

	order := []struct {
		season Season
		year   int
	}{
		{SeasonWinter, 2022},
		{SeasonWinter, 2023},
		{SeasonSummer, 2022},
	}
	for i, o := range order {
		if got[i].Season != o.season || got[i].Year != o.year {
			t.Errorf("group %d = %s %d, want %s %d", i, got[i].Season, got[i].Year, o.season, o.year)
		}
	}

	if got[0].Mean != 2 || got[0].Count != 2 || math.Abs(got[0].Std-math.Sqrt2) > 1e-12 {
		t.Errorf("unexpected winter 2022 group: %+v", got[0])
	}
	if got[1].Std != 0 || got[1].Count != 1 {
		t.Errorf("single-sample group should have std 0, got %+v", got[1])
	}
}

func TestSeasonProfiles(t *testing.T) {
	records := dailyRecords("Bern", date(2022, 1, 1), seasonalTemps(365, 10))
	profiles := SeasonProfiles(records)

	if len(profiles) != 4 {
		t.Fatalf("expected 4 profiles, got %d", len(profiles))
	}
	total := 0
	for i, p := range profiles {
		if p.Season != Seasons[i] {
			t.Errorf("profile %d is %s, want %s", i, p.Season, Seasons[i])
		}
		if !(p.Min <= p.Q1 && p.Q1 <= p.Median && p.Median <= p.Q3 && p.Q3 <= p.Max) {
			t.Errorf("%s profile not ordered: %+v", p.Season, p)
		}
		total += p.Count
	}
	if total != len(records) {
		t.Errorf("profiles cover %d records, want %d", total, len(records))
	}
}

func TestSeasonLabelMismatch(t *testing.T) {
	records := dailyRecords("Bern", date(2023, 6, 1), constantTemps(4, 20))
	if got := SeasonLabelMismatch(records); got != 0 {
		t.Errorf("mismatch = %v, want 0", got)
	}

	records[0].Season = SeasonWinter
	if got := SeasonLabelMismatch(records); got != 0.25 {
		t.Errorf("mismatch = %v, want 0.25", got)
	}

	if got := SeasonLabelMismatch(nil); got != 0 {
		t.Errorf("mismatch of empty input = %v, want 0", got)
	}
}
