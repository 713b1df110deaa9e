package detect

import "fmt"

const analystSystemPrompt = `You are a senior data analyst who writes small, correct Go programs.
You respond with Go source code only, no markdown fences, no explanations.`

func buildAnalysisPrompt(csvPath, inspection, lastErr string) string {
	errorContext := ""
	if lastErr != "" {
		errorContext = "Previous attempt failed with: " + lastErr + "\nFix the cause and try again.\n"
	}

	return fmt.Sprintf(`Write a complete Go program (package main) that detects significant anomalies in this sales dataset.

Data structure:
%s

Goal:
- If the data is time-series: look for drops > 20%% or spikes > 50%% period-over-period.
- If categorical: look for segments significantly under/over-performing the average.
- If it involves cycle times: look for increases (friction).
- Focus on revenue trends by region and product tier.
- Calculate impact_usd as the exact dollar difference between the current period and a baseline
  (previous period or rolling average).

%s
Requirements:
- Open the file %q with os.Open and parse it with encoding/csv.
- Import only from the standard library (encoding/csv, encoding/json, fmt, os, sort, strconv, strings, time, math).
- Print ONLY a valid JSON array of objects to stdout, nothing else.
- Each object must have: id, type ("Revenue Leak"|"Growth Opportunity"|"Operational Bottleneck"),
  metric ("Revenue"|"Sales Cycle"), value (signed percentage string like "-34%%" or "+12 Days"),
  impact_usd (number), segment (e.g. "APAC Enterprise"), description, severity ("CRITICAL"|"OPPORTUNITY"|"WATCH").
- Print an empty array [] if no anomalies are found.`, inspection, errorContext, csvPath)
}
