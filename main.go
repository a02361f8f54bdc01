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
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	// Define command-line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	dataPath := flag.String("data", "", "CSV dataset to analyze (overrides config)")
	city := flag.String("city", "", "Analyze a single city")
	parallel := flag.Bool("parallel", false, "Analyze cities in parallel")
	workers := flag.Int("workers", -1, "Parallel worker limit (0 = number of CPUs)")
	outputPath := flag.String("output", "", "Output file for report (default: stdout)")
	htmlOutput := flag.Bool("html", false, "Generate HTML report instead of Markdown")
	current := flag.Bool("current", false, "Check the current temperature of -city against its season")
	serve := flag.Bool("serve", false, "Run the HTTP API instead of a one-shot report")
	debug := flag.Bool("debug", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Show version and exit")

	flag.Parse()

	// Show version and exit
	if *showVersion {
		fmt.Printf("tempwatch %s\n", GetVersion())
		os.Exit(0)
	}

	// Initialize logger
	logger := NewLogger(*debug)

	// Load configuration
	config, err := LoadConfig(*configPath)
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Override with command-line flags
	if *dataPath != "" {
		config.DataPath = *dataPath
	}
	if *parallel {
		config.Parallel = true
	}
	if *workers >= 0 {
		config.Workers = *workers
	}
	if *debug {
		config.Debug = true
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	if config.LogFormat == "json" {
		logger = NewJSONLogger(config.Debug)
	} else {
		logger = NewLogger(config.Debug)
	}
	logger.Info("Starting tempwatch", "version", GetVersion())

	// Check for updates (non-blocking)
	go CheckForUpdates(context.Background(), logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *serve {
		err = runServer(ctx, config, logger)
	} else {
		err = runReport(ctx, config, logger, reportOptions{
			city:       *city,
			current:    *current,
			html:       *htmlOutput,
			outputPath: *outputPath,
		})
	}
	if err != nil {
		logger.Error("tempwatch failed", "error", err)
		os.Exit(1)
	}
}

type reportOptions struct {
	city       string
	current    bool
	html       bool
	outputPath string
}

// runReport analyzes a dataset once and writes a report
func runReport(ctx context.Context, config *Config, logger *Logger, opts reportOptions) error {
	if config.DataPath == "" {
		return &ConfigError{Field: "data_path", Message: "a dataset is required (use -data or data_path)"}
	}

	dataset, err := LoadDataset(config.DataPath, logger)
	if err != nil {
		return err
	}

	records := dataset.Records
	if opts.city != "" {
		records = dataset.CityRecords(opts.city)
		if len(records) == 0 {
			return &DataError{DataType: "dataset", Message: fmt.Sprintf("no records for city %q", opts.city)}
		}
	}

	orchestrator := NewOrchestrator(NewAnalyzer(config, logger), config, logger)
	batch, err := orchestrator.AnalyzeAll(ctx, records, config.Parallel)
	if err != nil {
		return err
	}

	var live *EvaluationResult
	if opts.current {
		live, err = checkCurrent(ctx, config, logger, opts.city, dataset)
		if err != nil {
			logger.Warn("Current temperature check failed", "city", opts.city, "error", err)
		}
	}

	if opts.html {
		return NewHTMLReporter(logger).GenerateHTMLReport(batch, live, opts.outputPath)
	}
	return NewReporter(logger).GenerateReport(batch, live, opts.outputPath)
}

// checkCurrent fetches the live temperature for city and compares it with the season
func checkCurrent(ctx context.Context, config *Config, logger *Logger, city string, dataset *Dataset) (*EvaluationResult, error) {
	if city == "" {
		return nil, &ConfigError{Field: "city", Message: "-current requires -city"}
	}

	cache, err := NewCache(config.CachePath, "weather", logger)
	if err != nil {
		logger.Warn("Weather cache unavailable", "error", err)
		cache = nil
	}
	if cache != nil {
		defer cache.Close()
	}

	client := NewWeatherClient(config, cache, logger)
	reading, err := client.CurrentTemperature(ctx, city)
	if err != nil {
		return nil, err
	}

	return NewEvaluator(config, logger).Evaluate(reading.Temperature, dataset.CityRecords(city))
}

// runServer runs the HTTP API and the live refresh job until ctx is cancelled
func runServer(ctx context.Context, config *Config, logger *Logger) error {
	cache, err := NewCache(config.CachePath, "weather", logger)
	if err != nil {
		return err
	}
	defer cache.Close()

	weather := NewWeatherClient(config, cache, logger)
	orchestrator := NewOrchestrator(NewAnalyzer(config, logger), config, logger)
	server := NewServer(config, orchestrator, NewEvaluator(config, logger), weather, logger)

	if config.DataPath != "" {
		dataset, err := LoadDataset(config.DataPath, logger)
		if err != nil {
			return err
		}
		server.SetDataset(dataset)
	}

	scheduler := NewScheduler(server.Monitor(), config.RefreshInterval, logger)
	if config.OpenWeatherAPIKey == "" {
		logger.Warn("OPENWEATHER_API_KEY not set, live checks are disabled")
	} else if err := scheduler.Start(); err != nil {
		return err
	}
	defer scheduler.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Listen(config.ListenAddr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
