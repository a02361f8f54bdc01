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
	"html"
	"io"
	"time"

	"github.com/dustin/go-humanize"
)

// HTMLReporter generates HTML reports with embedded charts
type HTMLReporter struct {
	logger *Logger
	charts *ChartGenerator
}

// NewHTMLReporter creates a new HTML reporter
func NewHTMLReporter(logger *Logger) *HTMLReporter {
	return &HTMLReporter{
		logger: logger,
		charts: NewChartGenerator(),
	}
}

// GenerateHTMLReport generates an HTML report
func (r *HTMLReporter) GenerateHTMLReport(batch *BatchResult, live *EvaluationResult, outputPath string) error {
	r.logger.Info("Generating HTML report")

	writer, closeFn, err := openReportWriter(outputPath)
	if err != nil {
		return err
	}
	defer closeFn()

	r.Write(writer, batch, live)

	if outputPath != "" {
		r.logger.Info("HTML report saved", "path", outputPath)
	}
	return nil
}

// Write renders the HTML report to w
func (r *HTMLReporter) Write(w io.Writer, batch *BatchResult, live *EvaluationResult) {
	r.writeHTMLHeader(w, batch)
	if live != nil {
		r.writeHTMLLiveReading(w, live)
	}
	for _, city := range batch.Cities() {
		r.writeHTMLCity(w, batch.Results[city])
	}
	r.writeHTMLFooter(w)
}

func (r *HTMLReporter) writeHTMLHeader(w io.Writer, batch *BatchResult) {
	fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Temperature Analysis Report</title>
    <style>
        :root {
            --primary-color: #3A86FF;
            --warning-color: #FFB800;
            --danger-color: #FF006E;
            --success-color: #00C896;
            --bg-color: #0A0F1E;
            --card-bg: #1A2332;
            --text-color: #E8EAF6;
            --text-muted: #9FA8DA;
            --border-color: #2A3550;
        }
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Oxygen, Ubuntu, Cantarell, sans-serif;
            background: var(--bg-color);
            color: var(--text-color);
            line-height: 1.6;
            padding: 20px;
        }
        .container { max-width: 1200px; margin: 0 auto; }
        header {
            background: linear-gradient(135deg, var(--primary-color), var(--success-color));
            padding: 40px;
            border-radius: 16px;
            margin-bottom: 30px;
        }
        .card {
            background: var(--card-bg);
            border: 1px solid var(--border-color);
            border-radius: 12px;
            padding: 24px;
            margin-bottom: 24px;
        }
        h2 { margin-bottom: 16px; }
        h3 { margin: 20px 0 10px; color: var(--text-muted); }
        table { width: 100%%; border-collapse: collapse; margin: 10px 0; }
        th, td { padding: 8px 12px; border-bottom: 1px solid var(--border-color); text-align: left; }
        th { color: var(--text-muted); font-weight: 600; }
        img.chart { width: 100%%; border-radius: 8px; margin: 12px 0; }
        .warning { color: var(--warning-color); }
        .danger { color: var(--danger-color); }
        .success { color: var(--success-color); }
        footer { color: var(--text-muted); text-align: center; padding: 20px; }
    </style>
</head>
<body>
    <div class="container">
        <header>
            <h1>🌡️ Temperature Analysis Report</h1>
            <p>Generated %s &middot; run <code>%s</code> &middot; %s mode &middot; %.3fs &middot; %d cities</p>
        </header>
`,
		time.Now().Format("2006-01-02 15:04:05"),
		html.EscapeString(batch.RunID),
		batch.Mode,
		batch.ElapsedSeconds(),
		len(batch.Results),
	)
}

func (r *HTMLReporter) writeHTMLCity(w io.Writer, res *CityAnalysisResult) {
	city := html.EscapeString(res.City)
	d := res.Descriptive

	fmt.Fprintf(w, `
        <div class="card">
            <h2>🏙️ %s</h2>
            <p>%s records from %s to %s</p>
            <h3>Descriptive Statistics</h3>
            <table>
                <thead><tr><th>count</th><th>mean</th><th>std</th><th>min</th><th>25%%</th><th>50%%</th><th>75%%</th><th>max</th></tr></thead>
                <tbody><tr><td>%d</td><td>%.2f</td><td>%.2f</td><td>%.2f</td><td>%.2f</td><td>%.2f</td><td>%.2f</td><td>%.2f</td></tr></tbody>
            </table>
`,
		city,
		humanize.Comma(int64(res.Records)),
		res.Start.Format("2006-01-02"),
		res.End.Format("2006-01-02"),
		d.Count, d.Mean, d.Std, d.Min, d.Q1, d.Median, d.Q3, d.Max,
	)

	r.writeHTMLChart(w, res, PlotTemperature)

	fmt.Fprintf(w, "            <h3>🔍 Anomalies</h3>\n")
	if len(res.Band.Anomalies) == 0 {
		fmt.Fprintf(w, "            <p class=\"success\">No temperatures outside the ±%.0fσ rolling band.</p>\n", res.Band.Sigma)
	} else {
		fmt.Fprintf(w, "            <p class=\"warning\">Detected <strong>%d</strong> anomalies.</p>\n", len(res.Band.Anomalies))
		fmt.Fprintf(w, "            <table>\n                <thead><tr><th>Date</th><th>Season</th><th>Temperature</th><th>Band</th></tr></thead>\n                <tbody>\n")
		for n, idx := range res.Band.Indices {
			if n == maxReportedAnomalies {
				break
			}
			rec := res.Band.Anomalies[n]
			fmt.Fprintf(w, "                    <tr><td>%s</td><td>%s</td><td>%s</td><td>%.1f … %.1f</td></tr>\n",
				rec.Timestamp.Format("2006-01-02"),
				rec.Season,
				FormatTemperature(rec.Temperature),
				res.Band.Lower[idx],
				res.Band.Upper[idx],
			)
		}
		fmt.Fprintf(w, "                </tbody>\n            </table>\n")
	}

	fmt.Fprintf(w, "            <h3>Seasonal Statistics</h3>\n")
	r.writeHTMLChart(w, res, PlotSeasonal)
	fmt.Fprintf(w, "            <table>\n                <thead><tr><th>Season</th><th>Year</th><th>Mean</th><th>Std</th><th>Count</th></tr></thead>\n                <tbody>\n")
	for _, s := range res.Seasonal {
		fmt.Fprintf(w, "                    <tr><td>%s</td><td>%d</td><td>%.2f</td><td>%.2f</td><td>%d</td></tr>\n",
			s.Season, s.Year, s.Mean, s.Std, s.Count)
	}
	fmt.Fprintf(w, "                </tbody>\n            </table>\n")

	fmt.Fprintf(w, "            <h3>Long-term Trend</h3>\n")
	if res.Trend != nil {
		r.writeHTMLChart(w, res, PlotTrend)
		fmt.Fprintf(w, "            <p>Temperature change: <strong>%+.3f°C/year</strong> &middot; R² %.3f &middot; p-value %.3e</p>\n",
			res.Trend.Slope, res.Trend.RSquared(), res.Trend.PValue)
	} else {
		fmt.Fprintf(w, "            <p class=\"warning\">%s</p>\n", html.EscapeString(fmt.Sprint(res.TrendErr)))
	}

	fmt.Fprintf(w, "        </div>\n")
}

func (r *HTMLReporter) writeHTMLChart(w io.Writer, res *CityAnalysisResult, kind string) {
	encoded, err := r.charts.RenderBase64(res, kind)
	if err != nil {
		r.logger.Warn("Failed to render chart", "city", res.City, "chart", kind, "error", err)
		return
	}
	fmt.Fprintf(w, "            <img class=\"chart\" alt=\"%s chart\" src=\"data:image/png;base64,%s\">\n", kind, encoded)
}

func (r *HTMLReporter) writeHTMLLiveReading(w io.Writer, live *EvaluationResult) {
	class, verdict := "success", fmt.Sprintf("Within the normal range for %s.", live.Season)
	if live.IsAnomaly {
		class = "danger"
		verdict = fmt.Sprintf("Anomalous for %s: %+.1f°C from the seasonal mean.", live.Season, live.Difference)
	}

	fmt.Fprintf(w, `
        <div class="card">
            <h2>🌡️ Current Temperature: %s</h2>
            <p>Now %s &middot; %s mean %s over %s samples</p>
            <p class="%s">%s</p>
        </div>
`,
		html.EscapeString(live.City),
		FormatTemperature(live.Current),
		live.Season,
		FormatTemperature(live.MeanTemp),
		humanize.Comma(int64(live.Samples)),
		class,
		verdict,
	)
}

func (r *HTMLReporter) writeHTMLFooter(w io.Writer) {
	fmt.Fprintf(w, `
        <footer>
            <p><em>Anomalies are readings outside the rolling confidence band. Season labels are taken from the dataset; live checks use meteorological seasons.</em></p>
            <p style="margin-top: 10px;">Generated by <a href="https://github.com/matthewgall/tempwatch" style="color: var(--primary-color); text-decoration: none;">tempwatch</a> %s</p>
        </footer>
    </div>
</body>
</html>
`, html.EscapeString(GetVersion()))
}
