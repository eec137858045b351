package tax

import (
	"github.com/shopspring/decimal"

	"github.com/orderkit/orderkit/internal/types"
)

// TaxRate is a percentage tax applied to order lines. PriceInclude marks
// rates whose percentage is already contained in the unit price.
type TaxRate struct {
	ID           string          `json:"id" db:"id"`
	Name         string          `json:"name" db:"name"`
	Code         string          `json:"code" db:"code"`
	Percent      decimal.Decimal `json:"percent" db:"percent"`
	PriceInclude bool            `json:"price_include" db:"price_include"`
	types.BaseModel
}

// Computation is the result of computing a set of taxes on a price
type Computation struct {
	TotalExcluded decimal.Decimal `json:"total_excluded"`
	TotalIncluded decimal.Decimal `json:"total_included"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
}

// FiscalPosition remaps product taxes per customer jurisdiction. Keys and
// values are tax rate IDs; rates without a mapping pass through unchanged.
type FiscalPosition struct {
	ID     string            `json:"id" db:"id"`
	Name   string            `json:"name" db:"name"`
	TaxMap map[string]string `json:"tax_map" db:"tax_map"`
	types.BaseModel
}

// MapTaxes applies the fiscal position to a list of tax rate IDs
func (fp *FiscalPosition) MapTaxes(rateIDs []string) []string {
	if fp == nil || len(fp.TaxMap) == 0 {
		return rateIDs
	}
	mapped := make([]string, 0, len(rateIDs))
	for _, id := range rateIDs {
		if target, ok := fp.TaxMap[id]; ok {
			mapped = append(mapped, target)
		} else {
			mapped = append(mapped, id)
		}
	}
	return mapped
}

// ComputeAll computes the given rates on price*qty, rounding tax amounts at
// the given precision. Price-included rates are backed out of the base
// before per-rate amounts are computed.
func ComputeAll(rates []*TaxRate, price decimal.Decimal, qty decimal.Decimal, digits int32) Computation {
	base := price.Mul(qty)

	inclPercent := decimal.Zero
	for _, rate := range rates {
		if rate.PriceInclude {
			inclPercent = inclPercent.Add(rate.Percent)
		}
	}

	totalExcluded := base
	if !inclPercent.IsZero() {
		divisor := decimal.NewFromInt(1).Add(inclPercent.Div(decimal.NewFromInt(100)))
		totalExcluded = base.Div(divisor)
	}
	totalExcluded = totalExcluded.Round(digits)

	taxAmount := decimal.Zero
	for _, rate := range rates {
		amount := totalExcluded.Mul(rate.Percent).Div(decimal.NewFromInt(100)).Round(digits)
		taxAmount = taxAmount.Add(amount)
	}

	return Computation{
		TotalExcluded: totalExcluded,
		TotalIncluded: totalExcluded.Add(taxAmount),
		TaxAmount:     taxAmount,
	}
}
