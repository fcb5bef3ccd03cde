package loadtest

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"time"
)

// LatencyStats summarises response times in seconds.
type LatencyStats struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"std_dev"`
}

// Analysis is the summary of a run. Distributions count successful requests only.
type Analysis struct {
	TotalRequests          int            `json:"total_requests"`
	SuccessfulRequests     int            `json:"successful_requests"`
	FailedRequests         int            `json:"failed_requests"`
	SuccessRate            float64        `json:"success_rate"`
	ResponseTime           LatencyStats   `json:"response_time_stats"`
	SubstationDistribution map[string]int `json:"substation_distribution"`
	PowerDistribution      map[string]int `json:"power_distribution"`
}

// Analyze computes the run summary.
func Analyze(results []Result) Analysis {
	a := Analysis{
		TotalRequests:          len(results),
		SubstationDistribution: make(map[string]int),
		PowerDistribution:      make(map[string]int),
	}
	latencies := make([]float64, 0, len(results))
	for _, r := range results {
		if !r.Success {
			a.FailedRequests++
			continue
		}
		a.SuccessfulRequests++
		latencies = append(latencies, r.ResponseTime)

		sub := r.SubstationID
		if sub == "" {
			sub = "unknown"
		}
		a.SubstationDistribution[sub]++
		a.PowerDistribution[formatKW(r.RequestedKW)]++
	}
	if a.TotalRequests > 0 {
		a.SuccessRate = float64(a.SuccessfulRequests) / float64(a.TotalRequests) * 100
	}
	a.ResponseTime = latencyStats(latencies)
	return a
}

func latencyStats(xs []float64) LatencyStats {
	if len(xs) == 0 {
		return LatencyStats{}
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)

	var sum float64
	for _, x := range sorted {
		sum += x
	}
	mean := sum / float64(len(sorted))

	var median float64
	if n := len(sorted); n%2 == 1 {
		median = sorted[n/2]
	} else {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}

	// Sample standard deviation; zero for a single observation.
	var stddev float64
	if len(sorted) > 1 {
		var sq float64
		for _, x := range sorted {
			sq += (x - mean) * (x - mean)
		}
		stddev = math.Sqrt(sq / float64(len(sorted)-1))
	}

	return LatencyStats{
		Mean:   mean,
		Median: median,
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		StdDev: stddev,
	}
}

func formatKW(kw float64) string {
	return strconv.FormatFloat(kw, 'f', -1, 64)
}

// Print writes a human readable report.
func Print(w io.Writer, a Analysis) {
	line := "============================================================"
	fmt.Fprintf(w, "\n%s\nLOAD TEST RESULTS\n%s\n", line, line)
	if a.TotalRequests == 0 {
		fmt.Fprintln(w, "No results to analyze")
		return
	}
	fmt.Fprintf(w, "Total Requests: %d\n", a.TotalRequests)
	fmt.Fprintf(w, "Successful Requests: %d\n", a.SuccessfulRequests)
	fmt.Fprintf(w, "Failed Requests: %d\n", a.FailedRequests)
	fmt.Fprintf(w, "Success Rate: %.2f%%\n", a.SuccessRate)

	rt := a.ResponseTime
	fmt.Fprintln(w, "\nResponse Time Statistics:")
	fmt.Fprintf(w, "  Mean: %.3fs\n  Median: %.3fs\n  Min: %.3fs\n  Max: %.3fs\n  Std Dev: %.3fs\n",
		rt.Mean, rt.Median, rt.Min, rt.Max, rt.StdDev)

	fmt.Fprintln(w, "\nSubstation Distribution:")
	for _, k := range sortedKeys(a.SubstationDistribution) {
		n := a.SubstationDistribution[k]
		fmt.Fprintf(w, "  Substation %s: %d requests (%.1f%%)\n", k, n, share(n, a.SuccessfulRequests))
	}
	fmt.Fprintln(w, "\nPower Distribution:")
	for _, k := range sortedKeys(a.PowerDistribution) {
		n := a.PowerDistribution[k]
		fmt.Fprintf(w, "  %skW: %d requests (%.1f%%)\n", k, n, share(n, a.SuccessfulRequests))
	}
	fmt.Fprintln(w, line)
}

func share(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Report is the JSON document written by Save.
type Report struct {
	TestInfo struct {
		RunID         string    `json:"run_id"`
		Timestamp     time.Time `json:"timestamp"`
		BaseURL       string    `json:"base_url"`
		TotalRequests int       `json:"total_requests"`
		ElapsedSecs   float64   `json:"elapsed_seconds"`
	} `json:"test_info"`
	Results  []Result `json:"results"`
	Analysis Analysis `json:"analysis"`
}

// NewReport assembles a report for a finished run.
func NewReport(runID, baseURL string, results []Result, elapsed time.Duration, at time.Time) Report {
	var r Report
	r.TestInfo.RunID = runID
	r.TestInfo.Timestamp = at.UTC()
	r.TestInfo.BaseURL = baseURL
	r.TestInfo.TotalRequests = len(results)
	r.TestInfo.ElapsedSecs = elapsed.Seconds()
	r.Results = results
	r.Analysis = Analyze(results)
	return r
}

// DefaultFilename is load_test_results_<YYYYmmdd_HHMMSS>.json.
func DefaultFilename(at time.Time) string {
	return fmt.Sprintf("load_test_results_%s.json", at.Format("20060102_150405"))
}

// Save writes the report as indented JSON.
func Save(path string, r Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
