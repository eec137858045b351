package service

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/orderkit/orderkit/internal/domain/order"
	"github.com/orderkit/orderkit/internal/domain/pricelist"
	"github.com/orderkit/orderkit/internal/domain/product"
	ierr "github.com/orderkit/orderkit/internal/errors"
	"github.com/orderkit/orderkit/internal/testutil"
	"github.com/orderkit/orderkit/internal/types"
)

type LineOptionSuite struct {
	testutil.BaseServiceTestSuite
	options LineOptionService
}

func TestLineOption(t *testing.T) {
	suite.Run(t, new(LineOptionSuite))
}

func (s *LineOptionSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.options = NewLineOptionService(newTestServiceParams(&s.BaseServiceTestSuite))
}

// bundle is a desk sold with two options: a lamp (default 1, max 2) and a
// drawer (default 2, min 1)
func (s *LineOptionSuite) createBundle() *product.Product {
	p := &product.Product{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PRODUCT),
		Name:          "Desk",
		Type:          product.ProductTypeStockable,
		BOMWithOption: true,
		BOMLines: []*product.BOMLine{
			{
				ID:            "bom_lamp",
				ProductID:     "prod_lamp",
				OptDefaultQty: decimal.NewFromInt(1),
				OptMaxQty:     decimal.NewFromInt(2),
			},
			{
				ID:            "bom_drawer",
				ProductID:     "prod_drawer",
				OptDefaultQty: decimal.NewFromInt(2),
				OptMinQty:     decimal.NewFromInt(1),
			},
			{
				// plain component, not an option
				ID:        "bom_screws",
				ProductID: "prod_screws",
			},
		},
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().ProductRepo.Create(s.GetContext(), p))
	return p
}

func (s *LineOptionSuite) createPricelist() *pricelist.Pricelist {
	plist := &pricelist.Pricelist{
		ID:           "plist_1",
		Name:         "Public",
		CurrencyCode: "EUR",
		Items: []*pricelist.Item{
			{ID: "pli_lamp", PricelistID: "plist_1", ProductID: "prod_lamp", Price: decimal.NewFromInt(30)},
			{ID: "pli_drawer", PricelistID: "plist_1", ProductID: "prod_drawer", Price: decimal.NewFromInt(50)},
			// quantity break: drawers get cheaper from 4 units
			{ID: "pli_drawer_bulk", PricelistID: "plist_1", ProductID: "prod_drawer", MinQty: decimal.NewFromInt(4), Price: decimal.NewFromInt(40)},
		},
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().PricelistRepo.Create(s.GetContext(), plist))
	return plist
}

func (s *LineOptionSuite) createOrderWithLine(productID string, qty int64) *order.Order {
	o := &order.Order{
		ID:           types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ORDER),
		CustomerID:   "cust_1",
		PricelistID:  "plist_1",
		CurrencyCode: "EUR",
		Status:       types.OrderStatusDraft,
		BaseModel:    types.GetDefaultBaseModel(s.GetContext()),
	}
	o.Lines = []*order.Line{{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ORDER_LINE),
		OrderID:   o.ID,
		ProductID: productID,
		Quantity:  decimal.NewFromInt(qty),
		UnitPrice: decimal.NewFromInt(100),
	}}
	s.NoError(s.GetStores().OrderRepo.Create(s.GetContext(), o))
	return o
}

func (s *LineOptionSuite) TestApplyDefaultOptions() {
	bundle := s.createBundle()
	s.createPricelist()
	o := s.createOrderWithLine(bundle.ID, 1)

	updated, err := s.options.ApplyDefaultOptions(s.GetContext(), o.ID, o.Lines[0].ID)
	s.NoError(err)

	line := updated.Lines[0]
	s.Len(line.Options, 2, "only BOM entries with a default option quantity become options")

	byProduct := map[string]*order.LineOption{}
	for _, opt := range line.Options {
		s.True(strings.HasPrefix(opt.ID, "opt_"), "got %s", opt.ID)
		s.Equal(line.ID, opt.LineID)
		byProduct[opt.ProductID] = opt
	}

	lamp := byProduct["prod_lamp"]
	s.Equal("bom_lamp", lamp.BOMLineID)
	s.True(lamp.Qty.Equal(decimal.NewFromInt(1)))
	s.True(lamp.LinePriceUnit.Equal(decimal.NewFromInt(30)))
	s.True(lamp.LinePrice.Equal(decimal.NewFromInt(30)))

	drawer := byProduct["prod_drawer"]
	s.True(drawer.Qty.Equal(decimal.NewFromInt(2)))
	s.True(drawer.LinePrice.Equal(decimal.NewFromInt(100)))

	// unit price is the option total divided by the line quantity
	s.True(line.UnitPrice.Equal(decimal.NewFromInt(130)), "got %s", line.UnitPrice)
}

func (s *LineOptionSuite) TestRepriceOptionsUsesQuantityBreaks() {
	bundle := s.createBundle()
	s.createPricelist()
	o := s.createOrderWithLine(bundle.ID, 1)

	updated, err := s.options.ApplyDefaultOptions(s.GetContext(), o.ID, o.Lines[0].ID)
	s.NoError(err)
	lineID := updated.Lines[0].ID

	// doubling the line quantity pushes the drawer price quantity (2*2=4)
	// into the bulk tier
	updated.Lines[0].Quantity = decimal.NewFromInt(2)
	s.NoError(s.GetStores().OrderRepo.Update(s.GetContext(), updated))

	repriced, err := s.options.RepriceOptions(s.GetContext(), o.ID, lineID)
	s.NoError(err)

	line := repriced.Lines[0]
	var drawer *order.LineOption
	for _, opt := range line.Options {
		if opt.ProductID == "prod_drawer" {
			drawer = opt
		}
	}
	s.NotNil(drawer)
	s.True(drawer.LinePriceUnit.Equal(decimal.NewFromInt(40)), "got %s", drawer.LinePriceUnit)
	s.True(drawer.LinePrice.Equal(decimal.NewFromInt(80)))

	// (30 + 80) lamp+drawer at qty 2: 30*1 prices to 30, total 110 over 2
	s.True(line.UnitPrice.Equal(decimal.NewFromInt(55)), "got %s", line.UnitPrice)
}

func (s *LineOptionSuite) TestApplyDefaultOptionsWithoutBOMClearsOptions() {
	p := &product.Product{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PRODUCT),
		Name:      "Plain",
		Type:      product.ProductTypeStockable,
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().ProductRepo.Create(s.GetContext(), p))
	s.createPricelist()
	o := s.createOrderWithLine(p.ID, 1)
	o.Lines[0].Options = []*order.LineOption{{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ORDER_LINE_OPT),
		LineID:    o.Lines[0].ID,
		ProductID: "prod_lamp",
		Qty:       decimal.NewFromInt(1),
	}}
	s.NoError(s.GetStores().OrderRepo.Update(s.GetContext(), o))

	updated, err := s.options.ApplyDefaultOptions(s.GetContext(), o.ID, o.Lines[0].ID)
	s.NoError(err)
	s.Empty(updated.Lines[0].Options)
}

func (s *LineOptionSuite) TestValidateOptionsRejectsDuplicates() {
	bundle := s.createBundle()
	s.createPricelist()
	o := s.createOrderWithLine(bundle.ID, 1)
	line := o.Lines[0]
	line.Options = []*order.LineOption{
		{ID: "opt_a", LineID: line.ID, ProductID: "prod_lamp", Qty: decimal.NewFromInt(1)},
		{ID: "opt_b", LineID: line.ID, ProductID: "prod_lamp", Qty: decimal.NewFromInt(1)},
	}
	s.NoError(s.GetStores().OrderRepo.Update(s.GetContext(), o))

	err := s.options.ValidateOptions(s.GetContext(), o.ID, line.ID)
	s.True(ierr.IsValidation(err))
}

func (s *LineOptionSuite) TestValidateOptionsRejectsOutOfBoundsQty() {
	bundle := s.createBundle()
	s.createPricelist()
	o := s.createOrderWithLine(bundle.ID, 1)
	line := o.Lines[0]
	line.Options = []*order.LineOption{{
		ID:        "opt_a",
		LineID:    line.ID,
		ProductID: "prod_lamp",
		Qty:       decimal.NewFromInt(3),
		MaxQty:    decimal.NewFromInt(2),
	}}
	s.NoError(s.GetStores().OrderRepo.Update(s.GetContext(), o))

	err := s.options.ValidateOptions(s.GetContext(), o.ID, line.ID)
	s.True(ierr.IsValidation(err))
}

func (s *LineOptionSuite) TestValidateOptionsPasses() {
	bundle := s.createBundle()
	s.createPricelist()
	o := s.createOrderWithLine(bundle.ID, 1)

	updated, err := s.options.ApplyDefaultOptions(s.GetContext(), o.ID, o.Lines[0].ID)
	s.NoError(err)
	s.NoError(s.options.ValidateOptions(s.GetContext(), updated.ID, updated.Lines[0].ID))
}

func (s *LineOptionSuite) TestUnknownLine() {
	s.createPricelist()
	bundle := s.createBundle()
	o := s.createOrderWithLine(bundle.ID, 1)

	_, err := s.options.ApplyDefaultOptions(s.GetContext(), o.ID, "line_missing")
	s.True(ierr.IsNotFound(err))
}
