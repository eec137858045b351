package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/orderkit/orderkit/internal/domain/order"
	"github.com/orderkit/orderkit/internal/domain/product"
	ierr "github.com/orderkit/orderkit/internal/errors"
	"github.com/orderkit/orderkit/internal/testutil"
	"github.com/orderkit/orderkit/internal/types"
)

type QuantityRestrictionSuite struct {
	testutil.BaseServiceTestSuite
	quantities QuantityRestrictionService
}

func TestQuantityRestriction(t *testing.T) {
	suite.Run(t, new(QuantityRestrictionSuite))
}

func (s *QuantityRestrictionSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.quantities = NewQuantityRestrictionService(newTestServiceParams(&s.BaseServiceTestSuite))
}

func (s *QuantityRestrictionSuite) createProduct(mutate func(*product.Product)) *product.Product {
	p := &product.Product{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PRODUCT),
		Name:      "Widget",
		Type:      product.ProductTypeStockable,
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}
	if mutate != nil {
		mutate(p)
	}
	s.NoError(s.GetStores().ProductRepo.Create(s.GetContext(), p))
	return p
}

func (s *QuantityRestrictionSuite) createOrderWithLine(productID string, qty int64) *order.Order {
	o := &order.Order{
		ID:           types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ORDER),
		CustomerID:   "cust_1",
		CurrencyCode: "EUR",
		Status:       types.OrderStatusDraft,
		BaseModel:    types.GetDefaultBaseModel(s.GetContext()),
	}
	o.Lines = []*order.Line{{
		ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ORDER_LINE),
		OrderID:     o.ID,
		ProductID:   productID,
		Description: "Widget",
		Quantity:    decimal.NewFromInt(qty),
		UnitPrice:   decimal.NewFromInt(10),
	}}
	s.NoError(s.GetStores().OrderRepo.Create(s.GetContext(), o))
	return o
}

func (s *QuantityRestrictionSuite) refreshedLine(p *product.Product, qty int64) *order.Line {
	o := s.createOrderWithLine(p.ID, qty)
	refreshed, err := s.quantities.RefreshLineRestrictions(s.GetContext(), o.ID)
	s.NoError(err)
	s.Len(refreshed.Lines, 1)
	return refreshed.Lines[0]
}

func (s *QuantityRestrictionSuite) TestNoRestrictionsNoWarning() {
	p := s.createProduct(nil)
	line := s.refreshedLine(p, 1)
	s.False(line.QtyInvalid)
	s.Empty(line.QtyWarning)
}

func (s *QuantityRestrictionSuite) TestMinQtyHardStop() {
	p := s.createProduct(func(p *product.Product) {
		p.SaleMinQty = decimal.NewFromInt(5)
	})
	line := s.refreshedLine(p, 3)
	s.True(line.QtyInvalid)
	s.Equal("Higher quantity required!", line.QtyWarning)
}

func (s *QuantityRestrictionSuite) TestMinQtySoftWarning() {
	p := s.createProduct(func(p *product.Product) {
		p.SaleMinQty = decimal.NewFromInt(5)
		p.ForceSaleMinQty = true
	})
	line := s.refreshedLine(p, 3)
	s.False(line.QtyInvalid)
	s.Equal("Higher quantity recommended!", line.QtyWarning)
}

func (s *QuantityRestrictionSuite) TestMaxQtyHardStop() {
	p := s.createProduct(func(p *product.Product) {
		p.SaleMaxQty = decimal.NewFromInt(10)
	})
	line := s.refreshedLine(p, 12)
	s.True(line.QtyInvalid)
	s.Equal("Lower quantity required!", line.QtyWarning)
}

func (s *QuantityRestrictionSuite) TestMaxQtySoftWarning() {
	p := s.createProduct(func(p *product.Product) {
		p.SaleMaxQty = decimal.NewFromInt(10)
		p.ForceSaleMaxQty = true
	})
	line := s.refreshedLine(p, 12)
	s.False(line.QtyInvalid)
	s.Equal("Lower quantity recommended!", line.QtyWarning)
}

func (s *QuantityRestrictionSuite) TestMultipleQty() {
	p := s.createProduct(func(p *product.Product) {
		p.SaleMultipleQty = decimal.NewFromInt(6)
	})
	line := s.refreshedLine(p, 9)
	s.True(line.QtyInvalid)
	s.Equal("Correct multiple of quantity required!", line.QtyWarning)

	line = s.refreshedLine(p, 12)
	s.False(line.QtyInvalid)
	s.Empty(line.QtyWarning)
}

func (s *QuantityRestrictionSuite) TestCombinedMessages() {
	p := s.createProduct(func(p *product.Product) {
		p.SaleMinQty = decimal.NewFromInt(5)
		p.SaleMultipleQty = decimal.NewFromInt(2)
	})
	line := s.refreshedLine(p, 3)
	s.True(line.QtyInvalid)
	s.Equal("Higher quantity required!\nCorrect multiple of quantity required!", line.QtyWarning)
}

func (s *QuantityRestrictionSuite) TestBoundsAreInclusive() {
	p := s.createProduct(func(p *product.Product) {
		p.SaleMinQty = decimal.NewFromInt(5)
		p.SaleMaxQty = decimal.NewFromInt(10)
	})
	for _, qty := range []int64{5, 7, 10} {
		line := s.refreshedLine(p, qty)
		s.False(line.QtyInvalid, "qty %d is within bounds", qty)
		s.Empty(line.QtyWarning)
	}
}

func (s *QuantityRestrictionSuite) TestValidateOrderQuantities() {
	p := s.createProduct(func(p *product.Product) {
		p.SaleMinQty = decimal.NewFromInt(5)
	})

	o := s.createOrderWithLine(p.ID, 3)
	_, err := s.quantities.RefreshLineRestrictions(s.GetContext(), o.ID)
	s.NoError(err)

	err = s.quantities.ValidateOrderQuantities(s.GetContext(), o.ID)
	s.Error(err)
	s.True(ierr.IsValidation(err))
	s.Contains(err.Error(), "Widget error: Higher quantity required!")

	ok := s.createOrderWithLine(p.ID, 5)
	_, err = s.quantities.RefreshLineRestrictions(s.GetContext(), ok.ID)
	s.NoError(err)
	s.NoError(s.quantities.ValidateOrderQuantities(s.GetContext(), ok.ID))
}
