// Package inventory turns raw detector output into priced stock lines:
// label normalization, per-product counting, catalog enrichment and wire
// encoding.
package inventory

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Rule maps a substring of a raw detector class label to a product
// display name.
type Rule struct {
	Pattern string `json:"pattern"`
	Name    string `json:"name"`
}

// DefaultRules is the built-in rule table. Order is significant: rules
// are tried top to bottom and the first pattern contained in the raw
// label wins, so product-specific patterns must precede broader ones.
func DefaultRules() []Rule {
	return []Rule{
		{Pattern: "lightblue_cp_rectangle_perrier", Name: "Perrier"},
		{Pattern: "lightblue_rectangle_sanclemente", Name: "San Clemente"},
		{Pattern: "lightblue_rectangle_valser", Name: "Valser"},
		{Pattern: "beer_keg_large", Name: "Beer keg"},
		{Pattern: "beer_keg_medium", Name: "Beer keg"},
		{Pattern: "beer_keg_small", Name: "Beer keg"},
		{Pattern: "black_square_chopfabdoppelleu", Name: "Chopfab Doppelleu"},
		{Pattern: "black_square_epti", Name: "Epti"},
		{Pattern: "blue_rectangle_feldschlosschenbier", Name: "Feldschlösschen Bier"},
		{Pattern: "blue_rectangle_gazzosi", Name: "Gazzose"},
		{Pattern: "blue_rectangle_hackerpschorr", Name: "Hacker-Pschorr"},
		{Pattern: "blue_square_henniez", Name: "Henniez"},
		{Pattern: "brown_square_appenzellerbier", Name: "Appenzeller Bier"},
		{Pattern: "green_square_pomdorsuisse", Name: "Pomd'or Suisse"},
		{Pattern: "red_cp_rectangle_michel", Name: "Michel"},
		{Pattern: "red_rectangle_cocacola", Name: "Coca-Cola"},
		{Pattern: "red_rectangle_noname", Name: "Unknown red crate"},
		{Pattern: "red_square_drinks", Name: "Drinks"},
		{Pattern: "red_square_rivella", Name: "Rivella"},
		{Pattern: "water_bottle_large", Name: "Water bottle"},
		{Pattern: "water_bottle_small", Name: "Water bottle"},
		{Pattern: "yellow_rectangle_schweppes", Name: "Schweppes"},
		{Pattern: "yellow_square_acquapanna", Name: "Acqua Panna"},
	}
}

// LoadRules reads an ordered rule table from a JSON file: an array of
// {"pattern", "name"} objects evaluated top to bottom.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rules []Rule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parse rule table %s: %w", path, err)
	}
	for i, r := range rules {
		if r.Pattern == "" || r.Name == "" {
			return nil, fmt.Errorf("rule table %s: rule %d missing pattern or name", path, i)
		}
	}
	return rules, nil
}

// Normalizer maps raw detector class labels to product display names by
// first-match-wins substring rules.
type Normalizer struct {
	rules []Rule
}

// NewNormalizer creates a normalizer over an ordered rule table. Nil
// rules means DefaultRules.
func NewNormalizer(rules []Rule) *Normalizer {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Normalizer{rules: rules}
}

// Normalize returns the display name for a raw label. Matching is
// case-sensitive and total: a label no rule matches passes through
// unchanged.
func (n *Normalizer) Normalize(raw string) string {
	for _, r := range n.rules {
		if strings.Contains(raw, r.Pattern) {
			return r.Name
		}
	}
	return raw
}

// ProductNames returns the distinct display names the rule table can
// produce, in first-appearance order. Used by catalog validation.
func (n *Normalizer) ProductNames() []string {
	seen := make(map[string]bool, len(n.rules))
	var names []string
	for _, r := range n.rules {
		if !seen[r.Name] {
			seen[r.Name] = true
			names = append(names, r.Name)
		}
	}
	return names
}
