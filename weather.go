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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// CurrentReading is a live temperature observation for a city
type CurrentReading struct {
	City        string    `json:"city"`
	Temperature float64   `json:"temperature"` // °C
	ObservedAt  time.Time `json:"observed_at"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// openWeatherResponse is the subset of the current weather payload we use
type openWeatherResponse struct {
	Name string `json:"name"`
	Dt   int64  `json:"dt"`
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Message string `json:"message"`
}

// WeatherClient fetches current temperatures from OpenWeatherMap
type WeatherClient struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	cache      *Cache
	cacheTTL   time.Duration
	logger     *Logger
}

// NewWeatherClient creates a new weather client. cache may be nil.
func NewWeatherClient(config *Config, cache *Cache, logger *Logger) *WeatherClient {
	logger = logger.WithComponent("weather")
	return &WeatherClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		endpoint:   OpenWeatherMapEndpoint,
		apiKey:     config.OpenWeatherAPIKey,
		limiter:    rate.NewLimiter(rate.Limit(config.WeatherRateLimit), config.WeatherBurst),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "openweathermap",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			},
		}),
		cache:    cache,
		cacheTTL: config.WeatherCacheTTL,
		logger:   logger,
	}
}

// CurrentTemperature returns the current temperature for a city in °C
func (w *WeatherClient) CurrentTemperature(ctx context.Context, city string) (*CurrentReading, error) {
	if w.apiKey == "" {
		return nil, &ConfigError{Field: "openweather_api_key", Message: "an API key is required for live readings"}
	}

	if w.cache != nil && w.cacheTTL > 0 {
		var cached CurrentReading
		found, err := w.cache.Get(city, &cached)
		if err != nil {
			w.logger.Warn("Dropping unreadable cached reading", "city", city, "error", err)
			if err := w.cache.Delete(city); err != nil {
				w.logger.Warn("Failed to delete cached reading", "city", city, "error", err)
			}
		}
		if found {
			return &cached, nil
		}
	}

	if err := w.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait canceled: %w", err)
	}

	result, err := w.breaker.Execute(func() (interface{}, error) {
		return w.fetch(ctx, city)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &APIError{
				StatusCode: http.StatusServiceUnavailable,
				Endpoint:   w.endpoint,
				Message:    "weather service temporarily unavailable",
				Err:        err,
			}
		}
		return nil, err
	}

	outcome := result.(fetchOutcome)
	if outcome.err != nil {
		return nil, outcome.err
	}

	if w.cache != nil && w.cacheTTL > 0 {
		if err := w.cache.Set(city, outcome.reading, w.cacheTTL); err != nil {
			w.logger.Warn("Failed to cache reading", "city", city, "error", err)
		}
	}

	return outcome.reading, nil
}

// fetchOutcome carries client-side failures past the circuit breaker so that an
// unknown city does not count towards tripping it
type fetchOutcome struct {
	reading *CurrentReading
	err     error
}

func (w *WeatherClient) fetch(ctx context.Context, city string) (fetchOutcome, error) {
	query := url.Values{}
	query.Set("q", city)
	query.Set("units", "metric")
	query.Set("appid", w.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return fetchOutcome{}, fmt.Errorf("failed to create weather request: %w", err)
	}
	req.Header.Set("User-Agent", GetUserAgent())

	w.logger.LogAPIRequest(http.MethodGet, w.endpoint)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fetchOutcome{}, &APIError{Endpoint: w.endpoint, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fetchOutcome{}, &APIError{StatusCode: resp.StatusCode, Endpoint: w.endpoint, Message: "failed to read response", Err: err}
	}

	var payload openWeatherResponse
	decodeErr := json.Unmarshal(body, &payload)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fetchOutcome{err: &AuthError{
			Code:    "invalid_api_key",
			Message: payload.Message,
		}}, nil
	case isRetryableStatus(resp.StatusCode):
		apiErr := &APIError{StatusCode: resp.StatusCode, Endpoint: w.endpoint, Message: payload.Message}
		w.logger.LogAPIError(w.endpoint, resp.StatusCode, apiErr)
		return fetchOutcome{}, apiErr
	case resp.StatusCode != http.StatusOK:
		return fetchOutcome{err: &APIError{
			StatusCode: resp.StatusCode,
			Endpoint:   w.endpoint,
			Message:    fmt.Sprintf("lookup of %q failed: %s", city, payload.Message),
		}}, nil
	}

	if decodeErr != nil {
		return fetchOutcome{}, &APIError{StatusCode: resp.StatusCode, Endpoint: w.endpoint, Message: "failed to decode response", Err: decodeErr}
	}

	reading := &CurrentReading{
		City:        city,
		Temperature: payload.Main.Temp,
		ObservedAt:  time.Unix(payload.Dt, 0).UTC(),
		FetchedAt:   time.Now().UTC(),
	}

	w.logger.Debug("Fetched current temperature", "city", city, "temperature", reading.Temperature)
	return fetchOutcome{reading: reading}, nil
}
