package service

import (
	"context"

	"github.com/shopspring/decimal"
)

// LineDiscountAmount is the discount granted on one line, in currency
type LineDiscountAmount struct {
	LineID               string          `json:"line_id"`
	DiscountTotal        decimal.Decimal `json:"discount_total"`
	PriceTotalNoDiscount decimal.Decimal `json:"price_total_no_discount"`
}

// DiscountSummary aggregates the discount amounts granted on an order
type DiscountSummary struct {
	OrderID              string               `json:"order_id"`
	DiscountTotal        decimal.Decimal      `json:"discount_total"`
	PriceTotalNoDiscount decimal.Decimal      `json:"price_total_no_discount"`
	Lines                []LineDiscountAmount `json:"lines"`
}

// OrderDiscountService exposes the discount amounts as currency figures
// instead of percentages, summed from the per-line totals the store keeps.
type OrderDiscountService interface {
	DiscountSummary(ctx context.Context, orderID string) (*DiscountSummary, error)
}

type orderDiscountService struct {
	ServiceParams
}

// NewOrderDiscountService creates an order discount summary service
func NewOrderDiscountService(params ServiceParams) OrderDiscountService {
	return &orderDiscountService{ServiceParams: params}
}

func (s *orderDiscountService) DiscountSummary(ctx context.Context, orderID string) (*DiscountSummary, error) {
	o, err := s.OrderRepo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	summary := &DiscountSummary{
		OrderID:              o.ID,
		DiscountTotal:        decimal.Zero,
		PriceTotalNoDiscount: decimal.Zero,
	}
	for _, line := range o.Lines {
		summary.DiscountTotal = summary.DiscountTotal.Add(line.DiscountTotal)
		summary.PriceTotalNoDiscount = summary.PriceTotalNoDiscount.Add(line.PriceTotalNoDiscount)
		summary.Lines = append(summary.Lines, LineDiscountAmount{
			LineID:               line.ID,
			DiscountTotal:        line.DiscountTotal,
			PriceTotalNoDiscount: line.PriceTotalNoDiscount,
		})
	}
	return summary, nil
}
