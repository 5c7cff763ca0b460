package metrics

import (
	"sort"
	"time"

	"github.com/brainzmonster/os/internal/models"
)

const (
	// DefaultTimelinePoints controls how many dots the console renders.
	DefaultTimelinePoints = 80
	maxDetailsPerPoint    = 4
)

// BuildTimeline reduces probe samples into compact timeline points
// spanning [start, end). Buckets without samples inherit the previous
// state as long as the gap stays plausible for the sampling cadence.
func BuildTimeline(entries []models.ProbeSample, start, end time.Time, points int, degradedAbove time.Duration) []models.TimelinePoint {
	if points <= 0 {
		points = DefaultTimelinePoints
	}
	if !end.After(start) {
		end = start.Add(time.Minute)
	}
	if degradedAbove <= 0 {
		degradedAbove = 800 * time.Millisecond
	}

	samples := make([]models.ProbeSample, 0, len(entries))
	for _, entry := range entries {
		if entry.CheckedAt.IsZero() {
			continue
		}
		samples = append(samples, entry)
	}
	sort.Slice(samples, func(i, j int) bool {
		return samples[i].CheckedAt.Before(samples[j].CheckedAt)
	})

	bucketDuration := end.Sub(start) / time.Duration(points)
	if bucketDuration <= 0 {
		bucketDuration = time.Minute
	}

	gapThreshold := deriveSampleGap(samples)

	result := make([]models.TimelinePoint, 0, points)
	idx := 0
	var last models.ProbeSample
	var haveLast bool
	for idx < len(samples) && samples[idx].CheckedAt.Before(start) {
		last = samples[idx]
		haveLast = true
		idx++
	}

	for i := 0; i < points; i++ {
		bucketStart := start.Add(time.Duration(i) * bucketDuration)
		bucketEnd := bucketStart.Add(bucketDuration)
		if i == points-1 {
			bucketEnd = end
		}

		point := models.TimelinePoint{
			ClassName: "state-missing",
			Label:     "No data",
			Start:     bucketStart,
			End:       bucketEnd,
		}

		details := make([]models.TimelineDetail, 0, maxDetailsPerPoint)
		var bucketSamples []models.ProbeSample
		for idx < len(samples) && !samples[idx].CheckedAt.After(bucketEnd) {
			current := samples[idx]
			last = current
			haveLast = true
			bucketSamples = append(bucketSamples, current)
			idx++
		}

		switch {
		case len(bucketSamples) > 0:
			selected := bucketSamples[len(bucketSamples)-1]
			point.ClassName, point.Label = sampleClass(selected, degradedAbove)
			for _, sample := range bucketSamples {
				if len(details) >= maxDetailsPerPoint {
					break
				}
				details = append(details, sampleDetail(sample, degradedAbove))
			}
		case haveLast && bucketStart.Sub(last.CheckedAt) <= gapThreshold:
			point.ClassName, point.Label = sampleClass(last, degradedAbove)
			detail := sampleDetail(last, degradedAbove)
			detail.Timestamp = bucketStart
			details = append(details, detail)
		}

		if len(details) > 0 && point.ClassName != "state-missing" {
			point.Details = details
		}

		result = append(result, point)
	}

	return result
}

func deriveSampleGap(samples []models.ProbeSample) time.Duration {
	const defaultGap = 5 * time.Minute
	if len(samples) < 2 {
		return defaultGap
	}
	diffs := make([]time.Duration, 0, len(samples)-1)
	prev := samples[0].CheckedAt
	for i := 1; i < len(samples); i++ {
		curr := samples[i].CheckedAt
		if curr.After(prev) {
			diffs = append(diffs, curr.Sub(prev))
		}
		prev = curr
	}
	if len(diffs) == 0 {
		return defaultGap
	}
	sort.Slice(diffs, func(i, j int) bool {
		return diffs[i] < diffs[j]
	})
	median := diffs[len(diffs)/2]
	if median <= 0 {
		return defaultGap
	}
	gap := median * 2
	if gap < time.Minute {
		return time.Minute
	}
	if gap > 2*time.Hour {
		return 2 * time.Hour
	}
	return gap
}

func sampleDetail(sample models.ProbeSample, degradedAbove time.Duration) models.TimelineDetail {
	state := "offline"
	if sample.OK {
		state = "online"
		if time.Duration(sample.LatencyMs)*time.Millisecond > degradedAbove {
			state = "degraded"
		}
	}
	return models.TimelineDetail{
		Timestamp: sample.CheckedAt,
		State:     state,
		Error:     sample.Error,
	}
}

func sampleClass(sample models.ProbeSample, degradedAbove time.Duration) (className, label string) {
	switch {
	case sample.OK && time.Duration(sample.LatencyMs)*time.Millisecond > degradedAbove:
		return "state-warning", "Degraded"
	case sample.OK:
		return "state-success", "Operational"
	default:
		return "state-error", "Unavailable"
	}
}
