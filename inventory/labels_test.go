package inventory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeKnownLabels(t *testing.T) {
	n := NewNormalizer(nil)

	cases := map[string]string{
		"lightblue_cp_rectangle_perrier":     "Perrier",
		"lightblue_rectangle_sanclemente":    "San Clemente",
		"lightblue_rectangle_valser":         "Valser",
		"beer_keg_large":                     "Beer keg",
		"beer_keg_medium":                    "Beer keg",
		"beer_keg_small":                     "Beer keg",
		"black_square_chopfabdoppelleu":      "Chopfab Doppelleu",
		"black_square_epti":                  "Epti",
		"blue_rectangle_feldschlosschenbier": "Feldschlösschen Bier",
		"blue_rectangle_gazzosi":             "Gazzose",
		"blue_rectangle_hackerpschorr":       "Hacker-Pschorr",
		"blue_square_henniez":                "Henniez",
		"brown_square_appenzellerbier":       "Appenzeller Bier",
		"green_square_pomdorsuisse":          "Pomd'or Suisse",
		"red_cp_rectangle_michel":            "Michel",
		"red_rectangle_cocacola":             "Coca-Cola",
		"red_rectangle_noname":               "Unknown red crate",
		"red_square_drinks":                  "Drinks",
		"red_square_rivella":                 "Rivella",
		"water_bottle_large":                 "Water bottle",
		"water_bottle_small":                 "Water bottle",
		"yellow_rectangle_schweppes":         "Schweppes",
		"yellow_square_acquapanna":           "Acqua Panna",
	}
	for raw, want := range cases {
		require.Equal(t, want, n.Normalize(raw), "raw label %q", raw)
	}
}

func TestNormalizeMatchesSubstrings(t *testing.T) {
	n := NewNormalizer(nil)

	// Detector class labels can carry numeric suffixes or prefixes.
	require.Equal(t, "Henniez", n.Normalize("blue_square_henniez_01"))
	require.Equal(t, "Beer keg", n.Normalize("stack_beer_keg_small_left"))
}

func TestNormalizePassThrough(t *testing.T) {
	n := NewNormalizer(nil)

	require.Equal(t, "unmapped_widget", n.Normalize("unmapped_widget"))
	require.Equal(t, "", n.Normalize(""))
	// Matching is case-sensitive.
	require.Equal(t, "BLUE_SQUARE_HENNIEZ", n.Normalize("BLUE_SQUARE_HENNIEZ"))
}

func TestNormalizeIsDeterministic(t *testing.T) {
	n := NewNormalizer(nil)

	for i := 0; i < 10; i++ {
		require.Equal(t, "Rivella", n.Normalize("red_square_rivella"))
	}
}

func TestNormalizeFirstMatchWins(t *testing.T) {
	n := NewNormalizer(nil)

	// Both patterns are substrings; the one earlier in the table wins.
	require.Equal(t, "Drinks", n.Normalize("red_square_drinks_red_square_rivella"))

	// Reversing the table order flips the outcome.
	reversed := NewNormalizer([]Rule{
		{Pattern: "red_square_rivella", Name: "Rivella"},
		{Pattern: "red_square_drinks", Name: "Drinks"},
	})
	require.Equal(t, "Rivella", reversed.Normalize("red_square_drinks_red_square_rivella"))
}

func TestLoadRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.json")
	require.NoError(t, os.WriteFile(path, []byte(
		`[{"pattern":"keg","name":"Keg"},{"pattern":"crate","name":"Crate"}]`), 0o644))

	rules, err := LoadRules(path)
	require.NoError(t, err)
	require.Equal(t, []Rule{{Pattern: "keg", Name: "Keg"}, {Pattern: "crate", Name: "Crate"}}, rules)

	n := NewNormalizer(rules)
	require.Equal(t, "Keg", n.Normalize("beer_keg_small"))
}

func TestLoadRulesRejectsIncomplete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"pattern":"keg"}]`), 0o644))

	_, err := LoadRules(path)
	require.Error(t, err)
}

func TestProductNames(t *testing.T) {
	n := NewNormalizer(nil)

	names := n.ProductNames()
	require.Contains(t, names, "Beer keg")
	require.Contains(t, names, "Water bottle")

	// Multi-pattern products appear once.
	seen := map[string]int{}
	for _, name := range names {
		seen[name]++
	}
	require.Equal(t, 1, seen["Beer keg"])
	require.Equal(t, 1, seen["Water bottle"])
}
