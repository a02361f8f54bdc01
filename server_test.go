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
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type fakeSource struct {
	temperature float64
	err         error
}

func (f fakeSource) CurrentTemperature(ctx context.Context, city string) (*CurrentReading, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &CurrentReading{City: city, Temperature: f.temperature}, nil
}

func newTestServer(source TemperatureSource) *Server {
	config := testConfig()
	logger := NewDiscardLogger()
	orchestrator := NewOrchestrator(NewAnalyzer(config, logger), config, logger)
	return NewServer(config, orchestrator, julyEvaluator(), source, logger)
}

func twoCityCSV() string {
	var records []TemperatureRecord
	records = append(records, dailyRecords("London", date(2022, 1, 1), seasonalTemps(730, 11))...)
	records = append(records, dailyRecords("New York", date(2022, 1, 1), seasonalTemps(730, 13))...)
	return datasetCSV(records)
}

func doRequest(t *testing.T, s *Server, method, target, body string) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "text/csv")
	}

	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading response: %v", err)
	}
	return resp.StatusCode, data
}

func decode(t *testing.T, data []byte, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, target); err != nil {
		t.Fatalf("invalid JSON %s: %v", data, err)
	}
}

func TestServerHealth(t *testing.T) {
	status, _ := doRequest(t, newTestServer(fakeSource{}), http.MethodGet, "/health", "")
	if status != http.StatusOK {
		t.Errorf("status = %d", status)
	}
}

func TestServerAnalysisFlow(t *testing.T) {
	s := newTestServer(fakeSource{temperature: 21})

	if status, _ := doRequest(t, s, http.MethodPost, "/api/v1/analyze", ""); status != http.StatusConflict {
		t.Errorf("analyze without dataset: status = %d, want 409", status)
	}

	status, body := doRequest(t, s, http.MethodPost, "/api/v1/datasets", twoCityCSV())
	if status != http.StatusCreated {
		t.Fatalf("upload: status = %d body=%s", status, body)
	}
	var upload struct {
		DatasetID string   `json:"dataset_id"`
		Records   int      `json:"records"`
		Cities    []string `json:"cities"`
	}
	decode(t, body, &upload)
	if upload.Records != 1460 || len(upload.Cities) != 2 {
		t.Errorf("unexpected upload summary: %+v", upload)
	}

	if status, _ := doRequest(t, s, http.MethodGet, "/api/v1/cities/London", ""); status != http.StatusNotFound {
		t.Errorf("city before analysis: status = %d, want 404", status)
	}

	status, body = doRequest(t, s, http.MethodPost, "/api/v1/analyze?parallel=true", "")
	if status != http.StatusOK {
		t.Fatalf("analyze: status = %d body=%s", status, body)
	}
	var run struct {
		RunID  string   `json:"run_id"`
		Mode   string   `json:"mode"`
		Cities []string `json:"cities"`
	}
	decode(t, body, &run)
	if run.Mode != "parallel" || run.RunID == "" || len(run.Cities) != 2 {
		t.Errorf("unexpected run summary: %+v", run)
	}

	status, body = doRequest(t, s, http.MethodGet, "/api/v1/cities/New%20York", "")
	if status != http.StatusOK {
		t.Fatalf("city: status = %d body=%s", status, body)
	}
	var city cityResponse
	decode(t, body, &city)
	if city.City != "New York" || city.Records != 730 || city.Window != DefaultWindow {
		t.Errorf("unexpected city response: %+v", city)
	}
	if city.Trend == nil || city.Trend.Slope <= 0 {
		t.Errorf("expected a warming trend, got %+v", city.Trend)
	}
	if len(city.Anomalies) == 0 {
		t.Error("expected the injected spikes to be reported")
	}

	status, body = doRequest(t, s, http.MethodGet, "/api/v1/cities/London/seasonal?season=summer", "")
	if status != http.StatusOK {
		t.Fatalf("seasonal: status = %d body=%s", status, body)
	}
	var seasonal struct {
		Seasonal []SeasonalStats `json:"seasonal"`
	}
	decode(t, body, &seasonal)
	if len(seasonal.Seasonal) != 2 {
		t.Errorf("expected summer of 2022 and 2023, got %+v", seasonal.Seasonal)
	}
	for _, row := range seasonal.Seasonal {
		if row.Season != SeasonSummer {
			t.Errorf("unexpected season %s", row.Season)
		}
	}

	if status, _ := doRequest(t, s, http.MethodGet, "/api/v1/cities/London/seasonal?season=monsoon", ""); status != http.StatusBadRequest {
		t.Errorf("bad season: status = %d, want 400", status)
	}
	if status, _ := doRequest(t, s, http.MethodGet, "/api/v1/cities/London/plots/pie", ""); status != http.StatusBadRequest {
		t.Errorf("bad plot kind: status = %d, want 400", status)
	}
	if status, _ := doRequest(t, s, http.MethodGet, "/api/v1/cities/Atlantis", ""); status != http.StatusNotFound {
		t.Errorf("unknown city: status = %d, want 404", status)
	}

	status, body = doRequest(t, s, http.MethodGet, "/api/v1/cities", "")
	if status != http.StatusOK || !strings.Contains(string(body), `"cached":true`) {
		t.Errorf("cities: status = %d body=%s", status, body)
	}
}

func TestServerTrendPlot(t *testing.T) {
	s := newTestServer(fakeSource{})
	doRequest(t, s, http.MethodPost, "/api/v1/datasets", twoCityCSV())
	doRequest(t, s, http.MethodPost, "/api/v1/analyze", "")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cities/London/plots/trend", nil)
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %q", ct)
	}
}

func TestServerReuploadKeepsResults(t *testing.T) {
	s := newTestServer(fakeSource{})
	data := twoCityCSV()

	doRequest(t, s, http.MethodPost, "/api/v1/datasets", data)
	doRequest(t, s, http.MethodPost, "/api/v1/analyze", "")

	_, body := doRequest(t, s, http.MethodPost, "/api/v1/datasets", data)
	if !strings.Contains(string(body), `"cache_cleared":false`) {
		t.Errorf("identical upload should keep the cache: %s", body)
	}
	if status, _ := doRequest(t, s, http.MethodGet, "/api/v1/cities/London", ""); status != http.StatusOK {
		t.Errorf("results lost after identical upload: status = %d", status)
	}

	_, body = doRequest(t, s, http.MethodPost, "/api/v1/datasets", sampleCSV)
	if !strings.Contains(string(body), `"cache_cleared":true`) {
		t.Errorf("new dataset should clear the cache: %s", body)
	}
	if status, _ := doRequest(t, s, http.MethodGet, "/api/v1/cities/London", ""); status != http.StatusNotFound {
		t.Errorf("stale result served: status = %d", status)
	}
}

func TestServerRejectsBadUpload(t *testing.T) {
	s := newTestServer(fakeSource{})

	status, _ := doRequest(t, s, http.MethodPost, "/api/v1/datasets", "city,timestamp\nOslo,2023-01-01\n")
	if status != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", status)
	}
	if status, _ := doRequest(t, s, http.MethodPost, "/api/v1/datasets", ""); status != http.StatusBadRequest {
		t.Errorf("empty body: status = %d, want 400", status)
	}
}

func TestServerCurrentReading(t *testing.T) {
	s := newTestServer(fakeSource{temperature: 60})
	doRequest(t, s, http.MethodPost, "/api/v1/datasets", twoCityCSV())

	status, body := doRequest(t, s, http.MethodGet, "/api/v1/cities/London/current", "")
	if status != http.StatusOK {
		t.Fatalf("status = %d body=%s", status, body)
	}
	var result EvaluationResult
	decode(t, body, &result)
	if result.Season != SeasonSummer || !result.IsAnomaly || result.City != "London" {
		t.Errorf("unexpected evaluation: %+v", result)
	}

	_, body = doRequest(t, s, http.MethodGet, "/api/v1/alerts", "")
	if !strings.Contains(string(body), `"city":"London"`) {
		t.Errorf("alert missing: %s", body)
	}
}

func TestServerCurrentWithoutSeasonalHistory(t *testing.T) {
	s := newTestServer(fakeSource{temperature: 20})
	doRequest(t, s, http.MethodPost, "/api/v1/datasets", sampleCSV)

	status, body := doRequest(t, s, http.MethodGet, "/api/v1/cities/Paris/current", "")
	if status != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422 (body=%s)", status, body)
	}
	if !strings.Contains(string(body), "no historical data for season summer") {
		t.Errorf("unexpected message: %s", body)
	}
}

func TestServerCurrentUpstreamFailure(t *testing.T) {
	s := newTestServer(fakeSource{err: &AuthError{Message: "Invalid API key"}})
	doRequest(t, s, http.MethodPost, "/api/v1/datasets", sampleCSV)

	status, _ := doRequest(t, s, http.MethodGet, "/api/v1/cities/Paris/current", "")
	if status != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", status)
	}

	s = newTestServer(fakeSource{err: errors.New("unexpected")})
	doRequest(t, s, http.MethodPost, "/api/v1/datasets", sampleCSV)
	if status, _ := doRequest(t, s, http.MethodGet, "/api/v1/cities/Paris/current", ""); status != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", status)
	}
}
