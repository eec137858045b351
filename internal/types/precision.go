package types

import (
	"sync"

	"github.com/shopspring/decimal"
)

// PrecisionCategory names a configurable decimal precision, looked up by the
// engine the same way the host application resolves its precision settings.
type PrecisionCategory string

const (
	PrecisionDiscount     PrecisionCategory = "Discount"
	PrecisionProductPrice PrecisionCategory = "Product Price"
	PrecisionProductUnit  PrecisionCategory = "Product Unit of Measure"
)

var (
	precisionMu       sync.RWMutex
	precisionRegistry = map[PrecisionCategory]int32{
		PrecisionDiscount:     2,
		PrecisionProductPrice: 2,
		PrecisionProductUnit:  3,
	}
)

// PrecisionDigits returns the number of decimal digits configured for the
// category. Unknown categories default to 2.
func PrecisionDigits(category PrecisionCategory) int32 {
	precisionMu.RLock()
	defer precisionMu.RUnlock()
	if digits, ok := precisionRegistry[category]; ok {
		return digits
	}
	return 2
}

// RegisterPrecision overrides the digits for a category. Intended for host
// applications with non-default precision settings.
func RegisterPrecision(category PrecisionCategory, digits int32) {
	precisionMu.Lock()
	defer precisionMu.Unlock()
	precisionRegistry[category] = digits
}

// RoundTo rounds half away from zero at the given number of digits.
func RoundTo(value decimal.Decimal, digits int32) decimal.Decimal {
	return value.Round(digits)
}

// CompareAtPrecision rounds both operands to the given digits and returns
// -1, 0 or 1. Values closer than half a unit of precision compare equal.
func CompareAtPrecision(a, b decimal.Decimal, digits int32) int {
	return a.Round(digits).Cmp(b.Round(digits))
}

// PrecisionStep returns one unit of the given precision, e.g. 0.01 for 2.
func PrecisionStep(digits int32) decimal.Decimal {
	return decimal.New(1, -digits)
}
