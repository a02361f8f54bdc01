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
	"fmt"
)

var (
	// ErrInsufficientYears is returned when a trend needs more distinct years than the data spans
	ErrInsufficientYears = errors.New("insufficient temporal range")

	// ErrNoSeasonalData is returned when no historical rows match the current season
	ErrNoSeasonalData = errors.New("no historical data for season")
)

// APIError represents a weather API error
type APIError struct {
	StatusCode int
	Endpoint   string
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("API error at %s (status %d): %s: %v", e.Endpoint, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("API error at %s (status %d): %s", e.Endpoint, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if this error should be retried
func (e *APIError) IsRetryable() bool {
	return isRetryableStatus(e.StatusCode)
}

func isRetryableStatus(statusCode int) bool {
	switch statusCode {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// AuthError represents a rejected API key
type AuthError struct {
	Code    string
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("authentication error [%s]: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("authentication error: %s", e.Message)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// ValidationError represents a malformed input row or value
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("validation error for %s (%s): %s", e.Field, e.Value, e.Message)
	}
	return fmt.Sprintf("validation error for %s: %s", e.Field, e.Message)
}

// CacheError represents a cache file operation error
type CacheError struct {
	Operation string
	Path      string
	Err       error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache error during %s at %s: %v", e.Operation, e.Path, e.Err)
}

func (e *CacheError) Unwrap() error {
	return e.Err
}

// DataError represents insufficient or missing data
type DataError struct {
	DataType string
	Message  string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("data error for %s: %s", e.DataType, e.Message)
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error for %s: %s", e.Field, e.Message)
}

// InsufficientYearsError reports a trend fit over fewer than two distinct years
type InsufficientYearsError struct {
	Years int
}

func (e *InsufficientYearsError) Error() string {
	return fmt.Sprintf("%s: trend needs at least 2 distinct years, got %d", ErrInsufficientYears, e.Years)
}

func (e *InsufficientYearsError) Unwrap() error {
	return ErrInsufficientYears
}

// NoSeasonalDataError reports that a city has no history for the requested season.
// It is meant to be shown to the user.
type NoSeasonalDataError struct {
	City   string
	Season Season
}

func (e *NoSeasonalDataError) Error() string {
	if e.City != "" {
		return fmt.Sprintf("no historical data for season %s in %s", e.Season, e.City)
	}
	return fmt.Sprintf("no historical data for season %s", e.Season)
}

func (e *NoSeasonalDataError) Unwrap() error {
	return ErrNoSeasonalData
}

// WorkerFaultError reports the city whose analysis aborted a batch
type WorkerFaultError struct {
	City string
	Mode string
	Err  error
}

func (e *WorkerFaultError) Error() string {
	return fmt.Sprintf("%s analysis failed for city %q: %v", e.Mode, e.City, e.Err)
}

func (e *WorkerFaultError) Unwrap() error {
	return e.Err
}
