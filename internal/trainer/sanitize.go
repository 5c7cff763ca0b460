package trainer

import "strings"

// SanitizeOptions controls the conservative cleanup applied to raw
// training texts before submission.
type SanitizeOptions struct {
	// MinWords drops entries with fewer whitespace-separated words.
	MinWords int

	// Dedupe removes exact duplicates while preserving order.
	Dedupe bool
}

// SanitizeStats reports what the cleanup kept and dropped.
type SanitizeStats struct {
	Input            int `json:"input"`
	Kept             int `json:"kept"`
	DroppedEmpty     int `json:"dropped_empty"`
	DroppedShort     int `json:"dropped_short"`
	DroppedDuplicate int `json:"dropped_duplicate"`
}

// SanitizeTexts trims surrounding whitespace, drops empty and
// too-short entries and optionally deduplicates with stable order.
// Formatting and casing of kept entries are never changed.
func SanitizeTexts(texts []string, opts SanitizeOptions) ([]string, SanitizeStats) {
	stats := SanitizeStats{Input: len(texts)}

	var seen map[string]struct{}
	if opts.Dedupe {
		seen = make(map[string]struct{}, len(texts))
	}

	out := make([]string, 0, len(texts))
	for _, text := range texts {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			stats.DroppedEmpty++
			continue
		}
		if opts.MinWords > 0 && len(strings.Fields(trimmed)) < opts.MinWords {
			stats.DroppedShort++
			continue
		}
		if opts.Dedupe {
			if _, dup := seen[trimmed]; dup {
				stats.DroppedDuplicate++
				continue
			}
			seen[trimmed] = struct{}{}
		}
		out = append(out, trimmed)
	}

	stats.Kept = len(out)
	return out, stats
}
