package service

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/suite"

	"github.com/orderkit/orderkit/internal/domain/product"
	ierr "github.com/orderkit/orderkit/internal/errors"
	"github.com/orderkit/orderkit/internal/testutil"
	"github.com/orderkit/orderkit/internal/types"
)

type RentalSuite struct {
	testutil.BaseServiceTestSuite
	rental RentalService
}

func TestRental(t *testing.T) {
	suite.Run(t, new(RentalSuite))
}

func (s *RentalSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.rental = NewRentalService(newTestServiceParams(&s.BaseServiceTestSuite))
}

func (s *RentalSuite) createProduct(mutate func(*product.Product)) *product.Product {
	p := &product.Product{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PRODUCT),
		Name:      "Excavator rental",
		Type:      product.ProductTypeService,
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}
	if mutate != nil {
		mutate(p)
	}
	s.NoError(s.GetStores().ProductRepo.Create(s.GetContext(), p))
	return p
}

func (s *RentalSuite) validRental(rentedIDs ...string) *product.Product {
	return s.createProduct(func(p *product.Product) {
		p.RentedProductIDs = rentedIDs
		p.MustHaveDates = true
		p.UOMCategory = product.UOMCategoryWorkingTime
	})
}

func (s *RentalSuite) TestValidRentalProductPasses() {
	p := s.validRental("prod_excavator")
	s.NoError(s.rental.ValidateRentalProduct(s.GetContext(), p.ID))
}

func (s *RentalSuite) TestNonRentalProductSkipsChecks() {
	p := s.createProduct(func(p *product.Product) {
		p.Type = product.ProductTypeStockable
	})
	s.NoError(s.rental.ValidateRentalProduct(s.GetContext(), p.ID))
}

func (s *RentalSuite) TestRentalMustBeService() {
	p := s.createProduct(func(p *product.Product) {
		p.Type = product.ProductTypeStockable
		p.RentedProductIDs = []string{"prod_excavator"}
		p.MustHaveDates = true
		p.UOMCategory = product.UOMCategoryWorkingTime
	})
	err := s.rental.ValidateRentalProduct(s.GetContext(), p.ID)
	s.True(ierr.IsValidation(err))
	s.Contains(errors.FlattenHints(err), "must be of type 'Service'")
}

func (s *RentalSuite) TestRentalMustHaveDates() {
	p := s.createProduct(func(p *product.Product) {
		p.RentedProductIDs = []string{"prod_excavator"}
		p.UOMCategory = product.UOMCategoryWorkingTime
	})
	err := s.rental.ValidateRentalProduct(s.GetContext(), p.ID)
	s.True(ierr.IsValidation(err))
	s.Contains(errors.FlattenHints(err), "'Must Have Start and End Dates'")
}

func (s *RentalSuite) TestRentalMustUseTimeUnits() {
	p := s.createProduct(func(p *product.Product) {
		p.RentedProductIDs = []string{"prod_excavator"}
		p.MustHaveDates = true
		p.UOMCategory = product.UOMCategoryUnit
	})
	err := s.rental.ValidateRentalProduct(s.GetContext(), p.ID)
	s.True(ierr.IsValidation(err))
	s.Contains(errors.FlattenHints(err), "'Working time'")
}

func (s *RentalSuite) TestRentedProducts() {
	hardware := s.createProduct(func(p *product.Product) {
		p.Name = "Excavator"
		p.Type = product.ProductTypeStockable
	})
	rental := s.validRental(hardware.ID)

	rented, err := s.rental.RentedProducts(s.GetContext(), rental.ID)
	s.NoError(err)
	s.Len(rented, 1)
	s.Equal(hardware.ID, rented[0].ID)

	none, err := s.rental.RentedProducts(s.GetContext(), hardware.ID)
	s.NoError(err)
	s.Empty(none)
}

func (s *RentalSuite) TestUnknownProduct() {
	err := s.rental.ValidateRentalProduct(s.GetContext(), "prod_missing")
	s.True(ierr.IsNotFound(err))
}
