package pricelist

import (
	"github.com/shopspring/decimal"

	"github.com/orderkit/orderkit/internal/types"
)

// Pricelist holds per-product sale prices in one currency. Promotion rules
// may be restricted to a set of pricelists; line options are priced through
// the order's pricelist.
type Pricelist struct {
	ID           string  `json:"id" db:"id"`
	Name         string  `json:"name" db:"name"`
	CurrencyCode string  `json:"currency_code" db:"currency_code"`
	Items        []*Item `json:"items" db:"-"`
	types.BaseModel
}

// Item is one pricelist entry. MinQty gates quantity breaks; the first
// matching item with the highest MinQty not above the requested quantity wins.
type Item struct {
	ID              string          `json:"id" db:"id"`
	PricelistID     string          `json:"pricelist_id" db:"pricelist_id"`
	ProductID       string          `json:"product_id" db:"product_id"`
	MinQty          decimal.Decimal `json:"min_qty" db:"min_qty"`
	Price           decimal.Decimal `json:"price" db:"price"`
	DiscountPercent decimal.Decimal `json:"discount_percent" db:"discount_percent"`
}

// PriceGet resolves the unit price for a product at a quantity. Returns
// false when the pricelist has no entry for the product.
func (p *Pricelist) PriceGet(productID string, qty decimal.Decimal) (decimal.Decimal, bool) {
	var best *Item
	for _, item := range p.Items {
		if item.ProductID != productID {
			continue
		}
		if item.MinQty.GreaterThan(qty) {
			continue
		}
		if best == nil || item.MinQty.GreaterThan(best.MinQty) {
			best = item
		}
	}
	if best == nil {
		return decimal.Zero, false
	}
	return best.Price, true
}

// DiscountFor returns the standing pricelist discount for a product, zero
// when none applies. Used to restore line discounts after promotion removal.
func (p *Pricelist) DiscountFor(productID string, qty decimal.Decimal) decimal.Decimal {
	var best *Item
	for _, item := range p.Items {
		if item.ProductID != productID {
			continue
		}
		if item.MinQty.GreaterThan(qty) {
			continue
		}
		if best == nil || item.MinQty.GreaterThan(best.MinQty) {
			best = item
		}
	}
	if best == nil {
		return decimal.Zero
	}
	return best.DiscountPercent
}
