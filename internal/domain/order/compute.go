package order

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/orderkit/orderkit/internal/domain/pricelist"
	"github.com/orderkit/orderkit/internal/domain/tax"
	"github.com/orderkit/orderkit/internal/types"
)

// RatesFunc resolves tax rate ids to rates. Stores pass their tax
// repository's GetBatch here.
type RatesFunc func(ctx context.Context, ids []string) ([]*tax.TaxRate, error)

// RecomputeTotals recomputes every line's price fields and the order sums
// from unit price, quantity, discount and taxes. Stores call this after
// every write so readers always observe consistent amounts.
func RecomputeTotals(ctx context.Context, o *Order, ratesFor RatesFunc) error {
	digits := types.PrecisionDigits(types.PrecisionProductPrice)

	o.AmountUntaxed = decimal.Zero
	o.AmountTax = decimal.Zero
	o.AmountTotal = decimal.Zero
	o.DiscountTotal = decimal.Zero
	o.PriceTotalNoDiscount = decimal.Zero

	for _, line := range o.Lines {
		var rates []*tax.TaxRate
		if len(line.TaxRateIDs) > 0 {
			var err error
			rates, err = ratesFor(ctx, line.TaxRateIDs)
			if err != nil {
				return err
			}
		}
		discounted := line.UnitPrice.Mul(decimal.NewFromInt(1).Sub(line.Discount.Div(decimal.NewFromInt(100))))
		comp := tax.ComputeAll(rates, discounted, line.Quantity, digits)
		full := tax.ComputeAll(rates, line.UnitPrice, line.Quantity, digits)

		line.PriceSubtotal = comp.TotalExcluded
		line.PriceTax = comp.TaxAmount
		line.PriceTotal = comp.TotalIncluded
		line.PriceTotalNoDiscount = full.TotalIncluded
		line.DiscountTotal = full.TotalIncluded.Sub(comp.TotalIncluded)

		o.AmountUntaxed = o.AmountUntaxed.Add(line.PriceSubtotal)
		o.AmountTax = o.AmountTax.Add(line.PriceTax)
		o.AmountTotal = o.AmountTotal.Add(line.PriceTotal)
		o.DiscountTotal = o.DiscountTotal.Add(line.DiscountTotal)
		o.PriceTotalNoDiscount = o.PriceTotalNoDiscount.Add(line.PriceTotalNoDiscount)
	}
	return nil
}

// ResetPricelistDiscounts restores each ordinary line's discount to the
// standing pricelist discount. Promotion lines and lines still attributed to
// a rule are left alone. A nil pricelist keeps the stored snapshot.
func ResetPricelistDiscounts(o *Order, plist *pricelist.Pricelist) {
	for _, line := range o.Lines {
		if line.IsPromotionLine || line.HasPromotionRules() {
			continue
		}
		if plist != nil {
			line.PricelistDiscount = plist.DiscountFor(line.ProductID, line.Quantity)
		}
		line.Discount = line.PricelistDiscount
	}
}
