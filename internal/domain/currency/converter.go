package currency

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	ierr "github.com/orderkit/orderkit/internal/errors"
)

// Converter converts a monetary amount between currencies at a given date.
// The host application owns the rate source; the engine only consumes it.
type Converter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from string, to string, at time.Time) (decimal.Decimal, error)
}

// Table is a Converter backed by a static rate table. Rates are expressed
// as units of the target currency per unit of the source currency.
type Table struct {
	rates map[string]decimal.Decimal
}

func NewTable() *Table {
	return &Table{rates: make(map[string]decimal.Decimal)}
}

// SetRate registers the rate from one currency to another, along with the
// inverse rate
func (t *Table) SetRate(from, to string, rate decimal.Decimal) {
	t.rates[from+":"+to] = rate
	if !rate.IsZero() {
		t.rates[to+":"+from] = decimal.NewFromInt(1).Div(rate)
	}
}

func (t *Table) Convert(ctx context.Context, amount decimal.Decimal, from string, to string, at time.Time) (decimal.Decimal, error) {
	if from == to || from == "" || to == "" {
		return amount, nil
	}
	rate, ok := t.rates[from+":"+to]
	if !ok {
		return decimal.Zero, ierr.NewError("no conversion rate").
			WithHintf("No conversion rate from %s to %s", from, to).
			WithReportableDetails(map[string]any{
				"from": from,
				"to":   to,
				"date": at,
			}).
			Mark(ierr.ErrNotFound)
	}
	return amount.Mul(rate), nil
}
