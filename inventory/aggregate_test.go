package inventory

import (
	"testing"

	"github.com/stretchr/testify/require"

	"crate-vision/detect"
)

func detections(labels ...string) []detect.Detection {
	out := make([]detect.Detection, len(labels))
	for i, l := range labels {
		out[i] = detect.Detection{Label: l, Confidence: 0.9}
	}
	return out
}

func TestAggregateCountsEveryDetectionOnce(t *testing.T) {
	n := NewNormalizer(nil)

	dets := detections(
		"beer_keg_small",
		"beer_keg_large",
		"red_square_rivella",
		"unmapped_widget",
	)

	counts := n.Aggregate(dets)
	require.Equal(t, Count{
		"Beer keg":        2,
		"Rivella":         1,
		"unmapped_widget": 1,
	}, counts)
	require.Equal(t, len(dets), counts.Total())
}

func TestAggregateSumEqualsInputLength(t *testing.T) {
	n := NewNormalizer(nil)

	inputs := [][]detect.Detection{
		nil,
		detections("blue_square_henniez"),
		detections("blue_square_henniez", "blue_square_henniez", "blue_square_henniez"),
		detections("a", "b", "c", "beer_keg_medium", "water_bottle_small", "water_bottle_large"),
	}
	for _, dets := range inputs {
		require.Equal(t, len(dets), n.Aggregate(dets).Total())
	}
}

func TestAggregateIgnoresConfidence(t *testing.T) {
	n := NewNormalizer(nil)

	// No thresholding: every returned detection is counted.
	dets := []detect.Detection{
		{Label: "red_rectangle_cocacola", Confidence: 0.01},
		{Label: "red_rectangle_cocacola", Confidence: 0.99},
	}
	require.Equal(t, Count{"Coca-Cola": 2}, n.Aggregate(dets))
}

func TestAggregateEmpty(t *testing.T) {
	n := NewNormalizer(nil)

	counts := n.Aggregate(nil)
	require.Empty(t, counts)
	require.Empty(t, counts.Products())
}

func TestCountProductsSorted(t *testing.T) {
	c := Count{"Rivella": 1, "Beer keg": 2, "Acqua Panna": 3}
	require.Equal(t, []string{"Acqua Panna", "Beer keg", "Rivella"}, c.Products())
}
