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
	"io"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with domain-specific methods
type Logger struct {
	*slog.Logger
}

// NewLogger creates a text-formatted logger
func NewLogger(debug bool) *Logger {
	return newLogger(os.Stderr, debug, false)
}

// NewJSONLogger creates a JSON-formatted logger
func NewJSONLogger(debug bool) *Logger {
	return newLogger(os.Stderr, debug, true)
}

// NewDiscardLogger creates a logger that drops everything, used by tests
func NewDiscardLogger() *Logger {
	return newLogger(io.Discard, false, false)
}

func newLogger(w io.Writer, debug, json bool) *Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return &Logger{slog.New(handler)}
}

// WithComponent adds a component field to the logger
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{l.With("component", component)}
}

// WithCity adds a city field to the logger
func (l *Logger) WithCity(city string) *Logger {
	return &Logger{l.With("city", city)}
}

// LogAPIRequest logs an API request
func (l *Logger) LogAPIRequest(method, endpoint string) {
	l.Debug("API request",
		"method", method,
		"endpoint", endpoint,
	)
}

// LogAPIError logs an API error
func (l *Logger) LogAPIError(endpoint string, statusCode int, err error) {
	l.Error("API request failed",
		"endpoint", endpoint,
		"status_code", statusCode,
		"error", err,
	)
}

// LogDatasetLoaded logs dataset ingestion
func (l *Logger) LogDatasetLoaded(source string, rows, cities int) {
	l.Info("Dataset loaded",
		"source", source,
		"rows", rows,
		"cities", cities,
	)
}

// LogAnalysisStage logs analysis stage completion
func (l *Logger) LogAnalysisStage(stage string) {
	l.Debug("Analysis stage completed",
		"stage", stage,
	)
}

// LogAnomalyDetected logs a detected anomaly
func (l *Logger) LogAnomalyDetected(date string, temperature, lower, upper float64) {
	l.Debug("Anomaly detected",
		"date", date,
		"temperature", fmt.Sprintf("%.1f°C", temperature),
		"band", fmt.Sprintf("[%.1f, %.1f]", lower, upper),
	)
}

// LogBatchComplete logs the end of a multi-city run
func (l *Logger) LogBatchComplete(runID, mode string, cities int, elapsed time.Duration) {
	l.Info("Batch analysis completed",
		"run_id", runID,
		"mode", mode,
		"cities", cities,
		"elapsed", elapsed.Round(time.Millisecond),
	)
}

// LogCacheOperation logs cache operations
func (l *Logger) LogCacheOperation(operation, key string) {
	l.Debug("Cache operation",
		"operation", operation,
		"key", key,
	)
}

// UserMessage outputs a message directly to stdout (bypassing structured logging)
func (l *Logger) UserMessage(format string, args ...interface{}) {
	fmt.Printf(format+"\n", args...)
}
