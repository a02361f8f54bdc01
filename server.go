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
	"io"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Server exposes the analysis engine over HTTP and owns the per-city result cache
type Server struct {
	app          *fiber.App
	mu           sync.RWMutex
	dataset      *Dataset
	results      *ResultCache
	orchestrator *Orchestrator
	monitor      *LiveMonitor
	charts       *ChartGenerator
	parallel     bool
	logger       *Logger
}

// NewServer creates the HTTP API
func NewServer(config *Config, orchestrator *Orchestrator, evaluator *Evaluator, source TemperatureSource, logger *Logger) *Server {
	logger = logger.WithComponent("server")
	s := &Server{
		results:      NewResultCache(logger),
		orchestrator: orchestrator,
		charts:       NewChartGenerator(),
		parallel:     config.Parallel,
		logger:       logger,
	}
	s.monitor = NewLiveMonitor(source, evaluator, s.currentDataset, logger)

	s.app = fiber.New(fiber.Config{
		AppName:               "tempwatch",
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          5 * time.Minute,
		BodyLimit:             64 * 1024 * 1024,
		ErrorHandler:          s.handleError,
	})
	s.app.Use(recover.New())
	s.routes()

	return s
}

// App returns the underlying fiber app
func (s *Server) App() *fiber.App {
	return s.app
}

// Monitor returns the live monitor fed by this server's dataset
func (s *Server) Monitor() *LiveMonitor {
	return s.monitor
}

// Listen serves HTTP on addr until Shutdown
func (s *Server) Listen(addr string) error {
	s.logger.Info("HTTP server listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// SetDataset makes ds the active dataset. Cached results are dropped when its
// content differs from the previous one.
func (s *Server) SetDataset(ds *Dataset) bool {
	s.mu.Lock()
	s.dataset = ds
	s.mu.Unlock()

	reset := s.results.Reset(ds.ID)
	if reset {
		s.monitor.Clear()
	}
	return reset
}

func (s *Server) currentDataset() *Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dataset
}

func (s *Server) routes() {
	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "tempwatch",
			"version": GetVersion(),
		})
	})

	v1 := s.app.Group("/api/v1")
	v1.Post("/datasets", s.uploadDataset)
	v1.Post("/analyze", s.analyze)
	v1.Get("/cities", s.listCities)
	v1.Get("/cities/:city", s.cityResult)
	v1.Get("/cities/:city/seasonal", s.citySeasonal)
	v1.Get("/cities/:city/plots/:kind", s.cityPlot)
	v1.Get("/cities/:city/current", s.cityCurrent)
	v1.Get("/alerts", s.alerts)
}

func (s *Server) uploadDataset(c *fiber.Ctx) error {
	source := "upload"
	var data []byte

	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "failed to open uploaded file")
		}
		defer f.Close()
		if data, err = io.ReadAll(f); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "failed to read uploaded file")
		}
		source = fh.Filename
	} else {
		data = append([]byte(nil), c.Body()...)
	}

	if len(data) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "request body must contain a CSV dataset")
	}

	ds, err := ParseDataset(source, data, s.logger)
	if err != nil {
		return err
	}
	reset := s.SetDataset(ds)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"dataset_id":    ds.ID,
		"source":        ds.Source,
		"records":       len(ds.Records),
		"cities":        ds.Cities(),
		"cache_cleared": reset,
	})
}

func (s *Server) analyze(c *fiber.Ctx) error {
	ds := s.currentDataset()
	if ds == nil {
		return fiber.NewError(fiber.StatusConflict, "no dataset uploaded")
	}

	parallel := s.parallel
	if raw := c.Query("parallel"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "parallel must be true or false")
		}
		parallel = v
	}

	batch, err := s.orchestrator.AnalyzeAll(c.UserContext(), ds.Records, parallel)
	if err != nil {
		return err
	}
	s.results.ReplaceAll(ds.ID, batch)

	return c.JSON(fiber.Map{
		"run_id":          batch.RunID,
		"dataset_id":      ds.ID,
		"mode":            batch.Mode,
		"elapsed_seconds": batch.ElapsedSeconds(),
		"cities":          batch.Cities(),
	})
}

func (s *Server) listCities(c *fiber.Ctx) error {
	ds := s.currentDataset()
	if ds == nil {
		return c.JSON(fiber.Map{"cities": []fiber.Map{}})
	}

	cities := make([]fiber.Map, 0)
	for _, city := range ds.Cities() {
		cities = append(cities, fiber.Map{
			"city":   city,
			"cached": s.results.Has(city),
		})
	}
	runID, elapsed := s.results.LastRun()

	return c.JSON(fiber.Map{
		"dataset_id":      ds.ID,
		"run_id":          runID,
		"elapsed_seconds": elapsed.Seconds(),
		"cities":          cities,
	})
}

func (s *Server) cachedResult(c *fiber.Ctx) (*CityAnalysisResult, error) {
	city, err := url.PathUnescape(c.Params("city"))
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid city")
	}
	result, ok := s.results.Get(city)
	if !ok {
		return nil, fiber.NewError(fiber.StatusNotFound, "no results in cache for "+city+"; run an analysis first")
	}
	return result, nil
}

func (s *Server) cityResult(c *fiber.Ctx) error {
	result, err := s.cachedResult(c)
	if err != nil {
		return err
	}
	return c.JSON(newCityResponse(result))
}

func (s *Server) citySeasonal(c *fiber.Ctx) error {
	result, err := s.cachedResult(c)
	if err != nil {
		return err
	}

	rows := result.Seasonal
	if raw := c.Query("season"); raw != "" {
		season, err := ParseSeason(raw)
		if err != nil {
			return &ValidationError{Field: "season", Value: raw, Message: err.Error()}
		}
		rows = nil
		for _, row := range result.Seasonal {
			if row.Season == season {
				rows = append(rows, row)
			}
		}
	}

	return c.JSON(fiber.Map{
		"city":     result.City,
		"seasonal": rows,
		"profiles": result.Profiles,
	})
}

func (s *Server) cityPlot(c *fiber.Ctx) error {
	result, err := s.cachedResult(c)
	if err != nil {
		return err
	}

	kind := c.Params("kind")
	if kind == PlotTrend && result.Trend == nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, result.TrendErr.Error())
	}

	buf, err := s.charts.Render(result, kind)
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(buf)
}

func (s *Server) cityCurrent(c *fiber.Ctx) error {
	ds := s.currentDataset()
	if ds == nil {
		return fiber.NewError(fiber.StatusConflict, "no dataset uploaded")
	}
	city, err := url.PathUnescape(c.Params("city"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid city")
	}

	records := ds.CityRecords(city)
	if len(records) == 0 {
		return fiber.NewError(fiber.StatusNotFound, "city not in dataset: "+city)
	}

	result, err := s.monitor.EvaluateCity(c.UserContext(), city, records)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

func (s *Server) alerts(c *fiber.Ctx) error {
	anomalies := s.monitor.Anomalies()
	if anomalies == nil {
		anomalies = []*EvaluationResult{}
	}
	return c.JSON(fiber.Map{"alerts": anomalies})
}

// handleError maps typed errors to HTTP statuses
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var (
		fiberErr   *fiber.Error
		noSeason   *NoSeasonalDataError
		validation *ValidationError
		dataErr    *DataError
		fault      *WorkerFaultError
		configErr  *ConfigError
		authErr    *AuthError
		apiErr     *APIError
	)
	switch {
	case errors.As(err, &fiberErr):
		code = fiberErr.Code
	case errors.As(err, &noSeason), errors.As(err, &fault):
		code = fiber.StatusUnprocessableEntity
	case errors.As(err, &validation), errors.As(err, &dataErr):
		code = fiber.StatusBadRequest
	case errors.As(err, &configErr):
		code = fiber.StatusServiceUnavailable
	case errors.As(err, &authErr), errors.As(err, &apiErr):
		code = fiber.StatusBadGateway
	}

	if code >= fiber.StatusInternalServerError {
		s.logger.Error("Request failed", "path", c.Path(), "error", err)
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

type anomalyResponse struct {
	Timestamp   time.Time `json:"timestamp"`
	Season      Season    `json:"season"`
	Temperature float64   `json:"temperature"`
	Lower       float64   `json:"lower"`
	Upper       float64   `json:"upper"`
}

type trendResponse struct {
	Slope    float64       `json:"slope"`
	RValue   float64       `json:"r_value"`
	RSquared float64       `json:"r_squared"`
	PValue   float64       `json:"p_value"`
	StdErr   float64       `json:"std_err"`
	Yearly   []YearlyTrend `json:"yearly"`
}

type cityResponse struct {
	City        string            `json:"city"`
	GeneratedAt time.Time         `json:"generated_at"`
	Records     int               `json:"records"`
	Start       time.Time         `json:"start"`
	End         time.Time         `json:"end"`
	Window      int               `json:"window"`
	Descriptive DescriptiveStats  `json:"descriptive"`
	Trend       *trendResponse    `json:"trend,omitempty"`
	TrendError  string            `json:"trend_error,omitempty"`
	Anomalies   []anomalyResponse `json:"anomalies"`
	Seasonal    []SeasonalStats   `json:"seasonal"`
	Plots       []string          `json:"plots"`
}

func newCityResponse(r *CityAnalysisResult) cityResponse {
	resp := cityResponse{
		City:        r.City,
		GeneratedAt: r.GeneratedAt,
		Records:     r.Records,
		Start:       r.Start,
		End:         r.End,
		Window:      r.Rolling.Window,
		Descriptive: r.Descriptive,
		Anomalies:   make([]anomalyResponse, 0, len(r.Band.Indices)),
		Seasonal:    r.Seasonal,
		Plots:       []string{PlotTemperature, PlotSeasonal},
	}

	for n, idx := range r.Band.Indices {
		rec := r.Band.Anomalies[n]
		resp.Anomalies = append(resp.Anomalies, anomalyResponse{
			Timestamp:   rec.Timestamp,
			Season:      rec.Season,
			Temperature: rec.Temperature,
			Lower:       r.Band.Lower[idx],
			Upper:       r.Band.Upper[idx],
		})
	}

	if r.Trend != nil {
		resp.Trend = &trendResponse{
			Slope:    r.Trend.Slope,
			RValue:   r.Trend.RValue,
			RSquared: r.Trend.RSquared(),
			PValue:   r.Trend.PValue,
			StdErr:   r.Trend.StdErr,
			Yearly:   r.Trend.Yearly,
		}
		resp.Plots = append(resp.Plots, PlotTrend)
	} else if r.TrendErr != nil {
		resp.TrendError = r.TrendErr.Error()
	}

	return resp
}
