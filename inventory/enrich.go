package inventory

import (
	"context"

	"github.com/shopspring/decimal"
)

// Catalog resolves a product display name to its unit price. Lookup is by
// exact string equality; absence of an entry is reported via ok=false,
// not an error. Errors mean the catalog itself failed.
type Catalog interface {
	Price(ctx context.Context, name string) (decimal.Decimal, bool, error)
}

// Line is one priced inventory row. PriceKnown distinguishes a real
// catalog price from a product the catalog has no entry for: absence of
// a price is a data-completeness fact, never a zero price.
type Line struct {
	Product    string
	Count      int
	Price      decimal.Decimal
	PriceKnown bool
}

// Enrich joins counts with the price catalog. Counts are carried through
// untouched; the only thing enrichment adds is the price, or the
// unknown marker when the catalog has no entry. Products are emitted in
// sorted name order.
func Enrich(ctx context.Context, counts Count, catalog Catalog) ([]Line, error) {
	lines := make([]Line, 0, len(counts))
	for _, name := range counts.Products() {
		price, ok, err := catalog.Price(ctx, name)
		if err != nil {
			return nil, err
		}
		lines = append(lines, Line{
			Product:    name,
			Count:      counts[name],
			Price:      price,
			PriceKnown: ok,
		})
	}
	return lines, nil
}
