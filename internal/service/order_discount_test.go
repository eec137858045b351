package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/orderkit/orderkit/internal/domain/order"
	"github.com/orderkit/orderkit/internal/domain/tax"
	ierr "github.com/orderkit/orderkit/internal/errors"
	"github.com/orderkit/orderkit/internal/testutil"
	"github.com/orderkit/orderkit/internal/types"
)

type OrderDiscountSuite struct {
	testutil.BaseServiceTestSuite
	discounts OrderDiscountService
}

func TestOrderDiscount(t *testing.T) {
	suite.Run(t, new(OrderDiscountSuite))
}

func (s *OrderDiscountSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.discounts = NewOrderDiscountService(newTestServiceParams(&s.BaseServiceTestSuite))
}

func (s *OrderDiscountSuite) TestDiscountSummary() {
	s.NoError(s.GetStores().TaxRateRepo.Create(s.GetContext(), &tax.TaxRate{
		ID:      "tax_10",
		Name:    "VAT 10%",
		Percent: decimal.NewFromInt(10),
	}))

	o := &order.Order{
		ID:           types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ORDER),
		CustomerID:   "cust_1",
		CurrencyCode: "EUR",
		Status:       types.OrderStatusDraft,
		BaseModel:    types.GetDefaultBaseModel(s.GetContext()),
	}
	discounted := &order.Line{
		ID:         types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ORDER_LINE),
		OrderID:    o.ID,
		ProductID:  "prod_1",
		Quantity:   decimal.NewFromInt(2),
		UnitPrice:  decimal.NewFromInt(100),
		Discount:   decimal.NewFromInt(25),
		TaxRateIDs: []string{"tax_10"},
	}
	plain := &order.Line{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ORDER_LINE),
		OrderID:   o.ID,
		ProductID: "prod_2",
		Quantity:  decimal.NewFromInt(1),
		UnitPrice: decimal.NewFromInt(40),
	}
	o.Lines = []*order.Line{discounted, plain}
	s.NoError(s.GetStores().OrderRepo.Create(s.GetContext(), o))

	summary, err := s.discounts.DiscountSummary(s.GetContext(), o.ID)
	s.NoError(err)
	s.Equal(o.ID, summary.OrderID)
	s.Len(summary.Lines, 2)

	// 2 x 100 at 25% off and 10% tax: 220 gross, 165 after the discount
	s.True(summary.DiscountTotal.Equal(decimal.NewFromInt(55)), "got %s", summary.DiscountTotal)
	s.True(summary.PriceTotalNoDiscount.Equal(decimal.NewFromInt(260)), "got %s", summary.PriceTotalNoDiscount)

	s.Equal(discounted.ID, summary.Lines[0].LineID)
	s.True(summary.Lines[0].DiscountTotal.Equal(decimal.NewFromInt(55)))
	s.True(summary.Lines[1].DiscountTotal.IsZero())
	s.True(summary.Lines[1].PriceTotalNoDiscount.Equal(decimal.NewFromInt(40)))
}

func (s *OrderDiscountSuite) TestDiscountSummaryUnknownOrder() {
	_, err := s.discounts.DiscountSummary(s.GetContext(), "order_missing")
	s.True(ierr.IsNotFound(err))
}
