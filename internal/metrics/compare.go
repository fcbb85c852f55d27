package metrics

import "fmt"

// Comparison is the change from an earlier run with the same fingerprint.
type Comparison struct {
	CurrentRunID    string  `json:"current_run_id"`
	PreviousRunID   string  `json:"previous_run_id"`
	Fingerprint     string  `json:"fingerprint"`
	SpeedupFactor   float64 `json:"speedup_factor"`
	TimeSavedMs     int64   `json:"time_saved_ms"`
	RecordsDiff     int64   `json:"records_diff"`
	ComparisonsDiff int64   `json:"comparisons_diff"`
	ThroughputDiff  float64 `json:"throughput_diff"`
}

// CompareRuns returns the change from previous to current. It returns nil
// when either run is missing its totals or the runs have different
// fingerprints.
func CompareRuns(current, previous *RunMetrics) *Comparison {
	if current == nil || previous == nil || current.Totals == nil || previous.Totals == nil {
		return nil
	}
	if current.Fingerprint == "" || current.Fingerprint != previous.Fingerprint {
		return nil
	}

	cur, prev := current.Totals, previous.Totals
	speedup := 1.0
	if cur.DurationMs > 0 {
		speedup = float64(prev.DurationMs) / float64(cur.DurationMs)
	}
	return &Comparison{
		CurrentRunID:    current.RunID,
		PreviousRunID:   previous.RunID,
		Fingerprint:     current.Fingerprint,
		SpeedupFactor:   speedup,
		TimeSavedMs:     prev.DurationMs - cur.DurationMs,
		RecordsDiff:     cur.RecordsIndexed - prev.RecordsIndexed,
		ComparisonsDiff: cur.Comparisons - prev.Comparisons,
		ThroughputDiff:  cur.Throughput - prev.Throughput,
	}
}

// FormatComparison renders c for the terminal.
func FormatComparison(c *Comparison) string {
	if c == nil {
		return "No earlier run with this configuration"
	}
	direction := "faster"
	if c.SpeedupFactor < 1 {
		direction = "slower"
	}
	return fmt.Sprintf("%.2fx %s than run %s (%+dms, %+d comparisons, %+.0f records/sec)",
		c.SpeedupFactor, direction, c.PreviousRunID, -c.TimeSavedMs, c.ComparisonsDiff, c.ThroughputDiff)
}
