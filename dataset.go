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
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

var requiredColumns = []string{"city", "timestamp", "temperature", "season"}

var timestampLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// Dataset is a loaded temperature table
type Dataset struct {
	// ID identifies the dataset content, so a re-upload of the same file keeps its ID
	ID       string
	Source   string
	LoadedAt time.Time
	Records  []TemperatureRecord
}

// Cities returns the city names in order of first appearance
func (d *Dataset) Cities() []string {
	cities, _ := PartitionByCity(d.Records)
	return cities
}

// CityRecords returns a copy of the records of one city
func (d *Dataset) CityRecords(city string) []TemperatureRecord {
	var out []TemperatureRecord
	for _, r := range d.Records {
		if r.City == city {
			out = append(out, r)
		}
	}
	return out
}

// LoadDataset reads a CSV dataset from disk
func LoadDataset(path string, logger *Logger) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	return ParseDataset(path, data, logger)
}

// ParseDataset parses CSV content with at least the city, timestamp, temperature and
// season columns. Records are sorted by timestamp; rows of equal time keep file order.
func ParseDataset(source string, data []byte, logger *Logger) (*Dataset, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &DataError{DataType: "dataset", Message: "file is empty"}
		}
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, &ValidationError{
				Field:   "header",
				Value:   strings.Join(header, ","),
				Message: fmt.Sprintf("missing required column %q", name),
			}
		}
	}

	var records []TemperatureRecord
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV line %d: %w", line, err)
		}

		rec, err := parseRow(row, columns, line)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, &DataError{DataType: "dataset", Message: "no rows after header"}
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})

	sum := sha256.Sum256(data)
	ds := &Dataset{
		ID:       hex.EncodeToString(sum[:8]),
		Source:   source,
		LoadedAt: time.Now(),
		Records:  records,
	}

	logger.LogDatasetLoaded(source, len(records), len(ds.Cities()))
	return ds, nil
}

func parseRow(row []string, columns map[string]int, line int) (TemperatureRecord, error) {
	field := func(name string) string {
		idx := columns[name]
		if idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	ts, err := parseTimestamp(field("timestamp"))
	if err != nil {
		return TemperatureRecord{}, &ValidationError{
			Field:   fmt.Sprintf("line %d timestamp", line),
			Value:   field("timestamp"),
			Message: err.Error(),
		}
	}

	temp, err := strconv.ParseFloat(field("temperature"), 64)
	if err != nil {
		return TemperatureRecord{}, &ValidationError{
			Field:   fmt.Sprintf("line %d temperature", line),
			Value:   field("temperature"),
			Message: "not a number",
		}
	}

	// unknown labels are kept so the analysis of that city reports them
	return TemperatureRecord{
		City:        field("city"),
		Timestamp:   ts,
		Season:      Season(strings.ToLower(field("season"))),
		Temperature: temp,
	}, nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp format")
}
