// Package metrics aggregates probe samples into uptime and timeline
// views for the console.
package metrics

import (
	"math"
	"time"

	"github.com/brainzmonster/os/internal/models"
)

// Summary condenses a window of probe samples into headline numbers.
type Summary struct {
	UptimePercent float64 `json:"uptime_percent"`
	TotalProbes   int     `json:"total_probes"`
	Passing       int     `json:"passing"`
	Failing       int     `json:"failing"`
	LatencyAvgMs  float64 `json:"latency_avg_ms"`
	LatencyMinMs  int64   `json:"latency_min_ms"`
	LatencyMaxMs  int64   `json:"latency_max_ms"`
	FirstSampleAt string  `json:"first_sample_at,omitempty"`
	LastSampleAt  string  `json:"last_sample_at,omitempty"`
}

// ComputeSummary aggregates uptime and latency statistics over the
// given samples. Latency figures only cover successful probes.
func ComputeSummary(samples []models.ProbeSample) Summary {
	var summary Summary
	if len(samples) == 0 {
		return summary
	}

	var (
		latencySum int64
		first      time.Time
		last       time.Time
	)
	for _, sample := range samples {
		if sample.OK {
			summary.Passing++
			latencySum += sample.LatencyMs
			if summary.LatencyMinMs == 0 || sample.LatencyMs < summary.LatencyMinMs {
				summary.LatencyMinMs = sample.LatencyMs
			}
			if sample.LatencyMs > summary.LatencyMaxMs {
				summary.LatencyMaxMs = sample.LatencyMs
			}
		} else {
			summary.Failing++
		}
		if first.IsZero() || sample.CheckedAt.Before(first) {
			first = sample.CheckedAt
		}
		if sample.CheckedAt.After(last) {
			last = sample.CheckedAt
		}
	}

	summary.TotalProbes = summary.Passing + summary.Failing
	if summary.TotalProbes > 0 {
		summary.UptimePercent = round2(float64(summary.Passing) / float64(summary.TotalProbes) * 100)
	}
	if summary.Passing > 0 {
		summary.LatencyAvgMs = round2(float64(latencySum) / float64(summary.Passing))
	}
	if !first.IsZero() {
		summary.FirstSampleAt = first.UTC().Format(time.RFC3339)
	}
	if !last.IsZero() {
		summary.LastSampleAt = last.UTC().Format(time.RFC3339)
	}
	return summary
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
