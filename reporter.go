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
	"os"
	"time"

	"github.com/dustin/go-humanize"
)

// maxReportedAnomalies caps the anomaly table per city
const maxReportedAnomalies = 20

// Reporter generates markdown reports from batch results
type Reporter struct {
	logger *Logger
}

// NewReporter creates a new report generator
func NewReporter(logger *Logger) *Reporter {
	return &Reporter{
		logger: logger,
	}
}

// openReportWriter returns stdout for an empty path, otherwise a new file
func openReportWriter(outputPath string) (io.Writer, func() error, error) {
	if outputPath == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	file, err := os.Create(outputPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create report file: %w", err)
	}
	return file, file.Close, nil
}

// GenerateReport writes a markdown report of batch to outputPath (stdout if empty)
func (r *Reporter) GenerateReport(batch *BatchResult, live *EvaluationResult, outputPath string) error {
	r.logger.Info("Generating report")

	writer, closeFn, err := openReportWriter(outputPath)
	if err != nil {
		return err
	}
	defer closeFn()

	r.Write(writer, batch, live)

	if outputPath != "" {
		r.logger.Info("Report saved", "path", outputPath)
	}
	return nil
}

// Write renders the report to w
func (r *Reporter) Write(w io.Writer, batch *BatchResult, live *EvaluationResult) {
	r.writeHeader(w, batch)
	r.writeSummary(w, batch)
	for _, city := range batch.Cities() {
		r.writeCity(w, batch.Results[city])
	}
	if live != nil {
		r.writeLiveReading(w, live)
	}
	r.writeFooter(w)
}

func (r *Reporter) writeHeader(w io.Writer, batch *BatchResult) {
	fmt.Fprintf(w, "# Temperature Analysis Report\n\n")
	fmt.Fprintf(w, "**Generated:** %s\n\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "**Run:** `%s` (%s, %.3fs)\n\n", batch.RunID, batch.Mode, batch.ElapsedSeconds())
	fmt.Fprintf(w, "**tempwatch version:** %s\n\n", GetVersion())
	fmt.Fprintf(w, "---\n\n")
}

func (r *Reporter) writeSummary(w io.Writer, batch *BatchResult) {
	fmt.Fprintf(w, "## 📊 Summary\n\n")
	fmt.Fprintf(w, "| City | Records | Mean | Anomalies | Trend (°C/year) | R² |\n")
	fmt.Fprintf(w, "|------|---------|------|-----------|-----------------|----|\n")

	for _, city := range batch.Cities() {
		res := batch.Results[city]
		slope, r2 := "n/a", "n/a"
		if res.Trend != nil {
			slope = fmt.Sprintf("%+.3f", res.Trend.Slope)
			r2 = fmt.Sprintf("%.3f", res.Trend.RSquared())
		}
		fmt.Fprintf(w, "| %s | %s | %s | %d | %s | %s |\n",
			city,
			humanize.Comma(int64(res.Records)),
			FormatTemperature(res.Descriptive.Mean),
			len(res.Band.Anomalies),
			slope,
			r2,
		)
	}
	fmt.Fprintf(w, "\n")
}

func (r *Reporter) writeCity(w io.Writer, res *CityAnalysisResult) {
	fmt.Fprintf(w, "## 🏙️ %s\n\n", res.City)
	fmt.Fprintf(w, "**Period:** %s to %s\n\n", res.Start.Format("2006-01-02"), res.End.Format("2006-01-02"))

	d := res.Descriptive
	fmt.Fprintf(w, "### Descriptive Statistics\n\n")
	fmt.Fprintf(w, "| count | mean | std | min | 25%% | 50%% | 75%% | max |\n")
	fmt.Fprintf(w, "|-------|------|-----|-----|-----|-----|-----|-----|\n")
	fmt.Fprintf(w, "| %d | %.2f | %.2f | %.2f | %.2f | %.2f | %.2f | %.2f |\n\n",
		d.Count, d.Mean, d.Std, d.Min, d.Q1, d.Median, d.Q3, d.Max)

	fmt.Fprintf(w, "### Long-term Trend\n\n")
	if res.Trend != nil {
		fmt.Fprintf(w, "- **Temperature change:** %+.3f°C/year\n", res.Trend.Slope)
		fmt.Fprintf(w, "- **R²:** %.3f\n", res.Trend.RSquared())
		fmt.Fprintf(w, "- **p-value:** %.3e\n\n", res.Trend.PValue)
	} else {
		fmt.Fprintf(w, "⚠️ %v\n\n", res.TrendErr)
	}

	fmt.Fprintf(w, "### Seasonal Statistics\n\n")
	fmt.Fprintf(w, "| Season | Year | Mean | Std | Count |\n")
	fmt.Fprintf(w, "|--------|------|------|-----|-------|\n")
	for _, s := range res.Seasonal {
		fmt.Fprintf(w, "| %s | %d | %.2f | %.2f | %d |\n", s.Season, s.Year, s.Mean, s.Std, s.Count)
	}
	fmt.Fprintf(w, "\n")

	r.writeAnomalies(w, res)
}

func (r *Reporter) writeAnomalies(w io.Writer, res *CityAnalysisResult) {
	fmt.Fprintf(w, "### 🔍 Anomalies\n\n")
	if len(res.Band.Anomalies) == 0 {
		fmt.Fprintf(w, "No temperatures outside the ±%.0fσ rolling band.\n\n", res.Band.Sigma)
		return
	}

	fmt.Fprintf(w, "Detected **%d** anomalies", len(res.Band.Anomalies))
	if len(res.Band.Anomalies) > maxReportedAnomalies {
		fmt.Fprintf(w, " (showing the first %d)", maxReportedAnomalies)
	}
	fmt.Fprintf(w, ":\n\n")

	fmt.Fprintf(w, "| Date | Season | Temperature | Band |\n")
	fmt.Fprintf(w, "|------|--------|-------------|------|\n")
	for n, idx := range res.Band.Indices {
		if n == maxReportedAnomalies {
			break
		}
		rec := res.Band.Anomalies[n]
		fmt.Fprintf(w, "| %s | %s | %s | %.1f … %.1f |\n",
			rec.Timestamp.Format("2006-01-02"),
			rec.Season,
			FormatTemperature(rec.Temperature),
			res.Band.Lower[idx],
			res.Band.Upper[idx],
		)
	}
	fmt.Fprintf(w, "\n")
}

func (r *Reporter) writeLiveReading(w io.Writer, live *EvaluationResult) {
	fmt.Fprintf(w, "## 🌡️ Current Temperature: %s\n\n", live.City)
	fmt.Fprintf(w, "**Current:** %s (%s average %s, %s samples)\n\n",
		FormatTemperature(live.Current),
		live.Season,
		FormatTemperature(live.MeanTemp),
		humanize.Comma(int64(live.Samples)),
	)
	if live.IsAnomaly {
		fmt.Fprintf(w, "⚠️ Anomalous for %s: %+.1f°C from the seasonal mean.\n\n", live.Season, live.Difference)
	} else {
		fmt.Fprintf(w, "✅ Within the normal range for %s.\n\n", live.Season)
	}
}

func (r *Reporter) writeFooter(w io.Writer) {
	fmt.Fprintf(w, "---\n\n")
	fmt.Fprintf(w, "*Anomalies are readings outside the rolling confidence band; the first window of each city has no band. Season labels come from the dataset.*\n")
}

// FormatTemperature formats a value in degrees Celsius
func FormatTemperature(value float64) string {
	return fmt.Sprintf("%.1f°C", value)
}
