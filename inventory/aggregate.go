package inventory

import (
	"sort"

	"crate-vision/detect"
)

// Count maps product display names to how many were detected in one
// image. Built fresh per request and never merged across requests.
type Count map[string]int

// Aggregate folds detections into per-product counts. Every detection is
// counted exactly once under its normalized label; no confidence
// threshold is applied.
func (n *Normalizer) Aggregate(detections []detect.Detection) Count {
	counts := make(Count, len(detections))
	for _, d := range detections {
		counts[n.Normalize(d.Label)]++
	}
	return counts
}

// Products returns the counted product names sorted ascending, so that
// downstream encoding is reproducible given identical detector output.
func (c Count) Products() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Total returns the number of detections behind the counts.
func (c Count) Total() int {
	total := 0
	for _, v := range c {
		total += v
	}
	return total
}
