package inventory

import "encoding/json"

// PriceUnknown is the wire sentinel for a product the catalog has no
// entry for.
const PriceUnknown = "N/A"

type lineJSON struct {
	Count int `json:"count"`
	Price any `json:"price"`
}

// EncodeLines serializes enriched lines into the wire form: a JSON
// object keyed by product name, each value {"count": n, "price": p}
// where p is a number for a known price and the "N/A" sentinel string
// otherwise. Key order in the output is deterministic.
func EncodeLines(lines []Line) ([]byte, error) {
	obj := make(map[string]lineJSON, len(lines))
	for _, l := range lines {
		entry := lineJSON{Count: l.Count, Price: PriceUnknown}
		if l.PriceKnown {
			entry.Price = json.Number(l.Price.String())
		}
		obj[l.Product] = entry
	}
	return json.Marshal(obj)
}
